// Package redis holds the event log sink: an append-only, capped record of
// inbound events, plus the pub/sub stream the dashboard tails live.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/botrelay/internal/domain"
)

const logKey = "botrelay:eventlog"

// StreamChannel is the pub/sub channel carrying every appended entry.
func StreamChannel() string {
	return "botrelay:eventlog:stream"
}

// EventLog implements domain.EventLogRepository as a Redis list capped at a
// fixed retention count; the oldest entries are trimmed away on append.
type EventLog struct {
	client    *redis.Client
	retention int64
}

func New(ctx context.Context, addr, password string, db int, retention int64) (*EventLog, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &EventLog{client: client, retention: retention}, nil
}

func (l *EventLog) Close() error {
	if err := l.client.Close(); err != nil {
		return fmt.Errorf("redis.EventLog.Close: %w", err)
	}
	return nil
}

// Append records one entry, trims to the retention cap, and publishes the
// entry on the live stream. Publishing is best-effort.
func (l *EventLog) Append(ctx context.Context, e *domain.EventLogEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis.EventLog.Append: marshal: %w", err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, logKey, payload)
		pipe.LTrim(ctx, logKey, 0, l.retention-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis.EventLog.Append: %w", err)
	}

	if pubErr := l.client.Publish(ctx, StreamChannel(), payload).Err(); pubErr != nil {
		log.Debug().Err(pubErr).Msg("event log stream publish failed")
	}

	return nil
}

// List returns entries newest first, optionally filtered by bot.
func (l *EventLog) List(ctx context.Context, botID *uuid.UUID, limit int) ([]*domain.EventLogEntry, error) {
	raw, err := l.client.LRange(ctx, logKey, 0, l.retention-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.EventLog.List: %w", err)
	}

	entries := make([]*domain.EventLogEntry, 0, min(len(raw), limit))
	for _, item := range raw {
		if limit > 0 && len(entries) >= limit {
			break
		}

		var e domain.EventLogEntry
		if unmarshalErr := json.Unmarshal([]byte(item), &e); unmarshalErr != nil {
			log.Warn().Err(unmarshalErr).Msg("skipping malformed event log entry")
			continue
		}

		if botID != nil && e.BotID != *botID {
			continue
		}

		entries = append(entries, &e)
	}

	return entries, nil
}

// Clear drops all entries, or only one bot's entries when botID is set.
func (l *EventLog) Clear(ctx context.Context, botID *uuid.UUID) error {
	if botID == nil {
		if err := l.client.Del(ctx, logKey).Err(); err != nil {
			return fmt.Errorf("redis.EventLog.Clear: %w", err)
		}
		return nil
	}

	raw, err := l.client.LRange(ctx, logKey, 0, l.retention-1).Result()
	if err != nil {
		return fmt.Errorf("redis.EventLog.Clear: %w", err)
	}

	// Rebuild the list without the bot's entries. LRange returns newest
	// first, so push back with RPush to preserve order.
	kept := make([]any, 0, len(raw))
	for _, item := range raw {
		var e domain.EventLogEntry
		if unmarshalErr := json.Unmarshal([]byte(item), &e); unmarshalErr == nil && e.BotID == *botID {
			continue
		}
		kept = append(kept, item)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, logKey)
		if len(kept) > 0 {
			pipe.RPush(ctx, logKey, kept...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis.EventLog.Clear: %w", err)
	}

	return nil
}

// Subscribe streams raw published entries from a pub/sub channel until the
// context is cancelled.
func (l *EventLog) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := l.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.EventLog.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}
