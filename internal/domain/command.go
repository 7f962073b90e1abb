package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Command is a slash-command definition owned by one bot. Options holds the
// raw platform option schema and is passed through to the registration API
// without interpretation.
type Command struct {
	ID          uuid.UUID
	BotID       uuid.UUID
	Name        string
	Description string
	Type        int // platform command type; 0 means default (chat input)
	Options     json.RawMessage
	PlatformID  string // command ID assigned by the platform on registration
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CommandRegistration summarizes one RegisterAll run against the platform's
// REST API. Errors carries both hard failures and surfaced warnings.
type CommandRegistration struct {
	Registered int      `json:"registered"`
	Total      int      `json:"total"`
	Errors     []string `json:"errors"`
}

// PlatformCommand is a command as reported by the platform's REST API.
type PlatformCommand struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        int    `json:"type,omitempty"`
}

// CommandVerification compares the commands actually registered on the
// platform against the stored definitions. Missing lists stored command
// names the platform does not know about.
type CommandVerification struct {
	Commands []PlatformCommand `json:"commands"`
	Count    int               `json:"count"`
	Missing  []string          `json:"missing,omitempty"`
}

type CommandRepository interface {
	Create(ctx context.Context, c *Command) error
	GetByID(ctx context.Context, botID, id uuid.UUID) (*Command, error)
	ListByBot(ctx context.Context, botID uuid.UUID) ([]*Command, error)
	Update(ctx context.Context, c *Command) error
	SetPlatformID(ctx context.Context, id uuid.UUID, platformID string) error
	Delete(ctx context.Context, botID, id uuid.UUID) error
}
