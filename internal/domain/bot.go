package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InteractionOrigin is the per-bot forwarding policy: which event origins
// are relayed to the configured webhook.
type InteractionOrigin string

const (
	OriginGuildChannel  InteractionOrigin = "guild-channel"
	OriginDirectMessage InteractionOrigin = "direct-message"
	OriginHybrid        InteractionOrigin = "hybrid"
)

// Valid reports whether the value is one of the known policies.
func (o InteractionOrigin) Valid() bool {
	switch o {
	case OriginGuildChannel, OriginDirectMessage, OriginHybrid:
		return true
	default:
		return false
	}
}

// Allows reports whether an event with the given origin qualifies for
// forwarding under this policy.
func (o InteractionOrigin) Allows(direct bool) bool {
	if direct {
		return o == OriginDirectMessage || o == OriginHybrid
	}
	return o == OriginGuildChannel || o == OriginHybrid
}

// Bot is a provisioned bot credential record. EncryptedToken holds the
// AES-GCM ciphertext of the long-lived gateway token and is never serialized
// in API responses.
type Bot struct {
	ID                uuid.UUID
	Name              string
	Description       string
	AvatarURL         string
	InteractionOrigin InteractionOrigin
	WebhookURL        string
	GuildID           string
	ApplicationID     string // optional, may be overridden by the token's application
	EncryptedToken    string `json:"-"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type BotRepository interface {
	Create(ctx context.Context, b *Bot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bot, error)
	List(ctx context.Context) ([]*Bot, error)
	Update(ctx context.Context, b *Bot) error
	Delete(ctx context.Context, id uuid.UUID) error
}
