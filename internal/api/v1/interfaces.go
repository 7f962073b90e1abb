package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/botrelay/internal/domain"
	"github.com/gosuda/botrelay/internal/relay"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Bots() domain.BotRepository
	Commands() domain.CommandRepository
}

// ConnectionManager abstracts bot lifecycle operations for handler testing.
// *relay.Manager satisfies this interface.
type ConnectionManager interface {
	InitializeAll(ctx context.Context) error
	IsInitialized() bool
	Start(ctx context.Context, botID uuid.UUID) error
	Stop(botID uuid.UUID) bool
	Restart(ctx context.Context, botID uuid.UUID) error
	StopAll()
	Status(botID uuid.UUID) relay.BotStatus
	AllStatuses() []relay.BotStatus
}

// CommandRegistrar abstracts command registration for handler testing.
// *commands.Registrar satisfies this interface.
type CommandRegistrar interface {
	RegisterAll(ctx context.Context, botID uuid.UUID) (domain.CommandRegistration, error)
	VerifyAll(ctx context.Context, botID uuid.UUID) (domain.CommandVerification, error)
}

// DMTester sends a test direct message with a bot's own credentials.
// *discord.DMTester satisfies this interface.
type DMTester interface {
	SendDirectMessage(ctx context.Context, token, userID, content string) error
}

// AuthService abstracts operator login for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Login(password string) (string, error)
}
