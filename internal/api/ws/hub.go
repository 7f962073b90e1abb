// Package ws streams live event log entries to dashboard clients over
// WebSocket, backed by the Redis pub/sub stream.
package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	redisstore "github.com/gosuda/botrelay/internal/store/redis"
)

// Streamer is the pub/sub source the hub tails. *redisstore.EventLog
// satisfies this interface.
type Streamer interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub fans the event log stream out to WebSocket clients. Each client gets
// its own subscription; slow clients are disconnected by the write error.
type Hub struct {
	stream Streamer
}

func NewHub(stream Streamer) *Hub {
	return &Hub{stream: stream}
}

// ServeLogs handles WebSocket connections tailing the event log. Every entry
// appended to the log after the connection opens is sent as one JSON text
// frame in the log entry wire format.
func (h *Hub) ServeLogs(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	messages, cleanup, err := h.stream.Subscribe(ctx, redisstore.StreamChannel())
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
