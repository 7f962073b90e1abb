package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventKindMessage EventKind = "message"
	EventKindCommand EventKind = "command"
)

type WebhookStatus string

const (
	WebhookSuccess WebhookStatus = "success"
	WebhookError   WebhookStatus = "error"
)

// EventLogEntry is the immutable outcome record for one processed inbound
// event. An empty WebhookStatus means no delivery was attempted (bot-authored
// or policy-filtered event). Entries are serialized to JSON in the sink, so
// field names follow the dashboard's wire format.
type EventLogEntry struct {
	ID              uuid.UUID     `json:"id"`
	BotID           uuid.UUID     `json:"botId"`
	BotName         string        `json:"botName"`
	Kind            EventKind     `json:"kind"`
	EventID         string        `json:"eventId"`
	Direct          bool          `json:"direct"`
	GuildID         string        `json:"guildId,omitempty"`
	ChannelID       string        `json:"channelId"`
	ChannelName     string        `json:"channelName,omitempty"`
	UserID          string        `json:"userId"`
	Username        string        `json:"username"`
	Content         string        `json:"content,omitempty"`
	CommandName     string        `json:"commandName,omitempty"`
	HasAttachments  bool          `json:"hasAttachments"`
	AttachmentCount int           `json:"attachmentCount"`
	WebhookStatus   WebhookStatus `json:"webhookStatus,omitempty"`
	WebhookError    string        `json:"webhookError,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}

// EventLogRepository is an append-only sink with a fixed retention cap;
// the sink drops the oldest entries, callers never prune.
type EventLogRepository interface {
	Append(ctx context.Context, e *EventLogEntry) error
	List(ctx context.Context, botID *uuid.UUID, limit int) ([]*EventLogEntry, error)
	Clear(ctx context.Context, botID *uuid.UUID) error
}
