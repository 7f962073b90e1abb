package relay

import (
	"time"

	"github.com/gosuda/botrelay/internal/domain"
)

// Status is the lifecycle state of one bot connection.
type Status string

const (
	StatusOffline    Status = "offline"
	StatusConnecting Status = "connecting"
	StatusOnline     Status = "online"
	StatusError      Status = "error"
)

// Attachment is a file attached to an inbound message, in the shape relayed
// to the webhook.
type Attachment struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Name        string `json:"name"`
	Size        int    `json:"size"`
}

// InboundEvent is the normalized view of one transport event, either a text
// message or a slash-command invocation. It exists only for the duration of
// processing and is never persisted as-is.
type InboundEvent struct {
	Kind    domain.EventKind
	EventID string // transport-assigned, used for duplicate suppression

	Direct      bool // true when the event carries no guild context
	GuildID     string
	ChannelID   string
	ChannelName string

	ActorID    string
	ActorName  string
	ActorIsBot bool

	// Message fields.
	Content     string
	MentionsBot bool
	Attachments []Attachment

	// Command fields (mutually exclusive with message fields).
	CommandName      string
	CommandID        string
	InteractionID    string
	InteractionToken string
	Options          map[string]any

	CreatedAt time.Time
}

// BotStatus is the introspection view of one connection exposed to the API
// layer.
type BotStatus struct {
	BotID  string `json:"botId"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}
