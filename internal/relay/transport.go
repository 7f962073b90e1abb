package relay

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gosuda/botrelay/internal/domain"
)

// Sentinel errors classifying transport failures. Transport adapters wrap
// these with actionable, operator-facing messages.
var (
	ErrAuthentication = errors.New("relay: authentication failed")
	ErrPermission     = errors.New("relay: permission denied")
	ErrConnectivity   = errors.New("relay: connectivity failure")
)

// Handler receives transport callbacks for one bot connection. Events from
// every delivery path of the transport (primary stream and raw fallback) are
// funneled through HandleEvent; the consumer deduplicates by event ID.
type Handler interface {
	// HandleReady is called when the transport session reaches readiness.
	HandleReady(botUserID, botTag string)

	// HandleDisconnect is called when the transport drops the session.
	HandleDisconnect()

	// HandleError is called for transport-level errors on a live session.
	HandleError(err error)

	// HandleEvent is called for every inbound message or command event.
	HandleEvent(ev InboundEvent)
}

// Session is one gateway session, exclusively owned by the connection
// manager.
type Session interface {
	// Connect opens the session. Synchronous handshake failures are
	// returned wrapped in one of the sentinel errors above.
	Connect(ctx context.Context) error

	// Disconnect tears the session down. Safe to call mid-handshake.
	Disconnect() error

	// Acknowledge performs the transport-side silent acknowledgment of a
	// command event, within the transport's response deadline.
	Acknowledge(ctx context.Context, ev InboundEvent) error
}

// Dialer constructs sessions for authenticated gateway credentials.
type Dialer interface {
	Dial(token string, h Handler) (Session, error)
}

// CommandRegistrar pushes a bot's command definitions to the platform's REST
// API. Invoked best-effort when a connection reaches readiness.
type CommandRegistrar interface {
	RegisterAll(ctx context.Context, botID uuid.UUID) (domain.CommandRegistration, error)
}
