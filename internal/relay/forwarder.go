package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gosuda/botrelay/internal/domain"
)

const (
	forwardTimeout    = 10 * time.Second
	maxErrorBodyBytes = 512
	forwardedBy       = "botrelay"
)

// Delivery is the outcome of one webhook forwarding attempt. Exactly one
// Delivery is produced per qualifying event; failures carry a human-readable
// message, never a panic or retry.
type Delivery struct {
	Status domain.WebhookStatus
	Error  string
}

// webhookPayload is the JSON body POSTed to the bot's webhook URL.
type webhookPayload struct {
	BotID             string                   `json:"botId"`
	BotName           string                   `json:"botName"`
	InteractionOrigin domain.InteractionOrigin `json:"interactionOrigin"`
	GuildID           *string                  `json:"guildId"`
	ChannelID         string                   `json:"channelId"`
	UserID            string                   `json:"userId"`
	Username          string                   `json:"username"`

	// Message kind.
	MessageID   string       `json:"messageId,omitempty"`
	Content     string       `json:"content,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Command kind.
	InteractionType string         `json:"interactionType,omitempty"`
	CommandName     string         `json:"commandName,omitempty"`
	CommandID       string         `json:"commandId,omitempty"`
	InteractionID   string         `json:"interactionId,omitempty"`
	Options         map[string]any `json:"options,omitempty"`

	CreatedAt string `json:"createdAt"`
}

// Forwarder delivers normalized event payloads to webhook endpoints with a
// bounded timeout. It never retries and never panics on delivery failure.
type Forwarder struct {
	client *http.Client
}

// NewForwarder creates a Forwarder with the default 10 second timeout.
func NewForwarder() *Forwarder {
	return &Forwarder{client: &http.Client{Timeout: forwardTimeout}}
}

// NewForwarderWithClient creates a Forwarder with a custom HTTP client,
// used by tests.
func NewForwarderWithClient(client *http.Client) *Forwarder {
	return &Forwarder{client: client}
}

// Forward POSTs the event to the bot's webhook URL and reports the outcome.
func (f *Forwarder) Forward(ctx context.Context, bot *domain.Bot, ev InboundEvent) Delivery {
	payload := buildPayload(bot, ev)

	body, err := json.Marshal(payload)
	if err != nil {
		return Delivery{Status: domain.WebhookError, Error: "marshal payload: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, bot.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return Delivery{Status: domain.WebhookError, Error: "build request: " + err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Bot-Id", bot.ID.String())
	req.Header.Set("X-Guild-Id", ev.GuildID)
	req.Header.Set("X-Channel-Id", ev.ChannelID)
	req.Header.Set("X-User-Id", ev.ActorID)
	req.Header.Set("X-Forwarded-By", forwardedBy)
	if ev.Kind == domain.EventKindCommand {
		req.Header.Set("X-Interaction-Type", "command")
		req.Header.Set("X-Command-Name", ev.CommandName)
		req.Header.Set("X-Interaction-Id", ev.InteractionID)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Delivery{Status: domain.WebhookError, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return Delivery{Status: domain.WebhookSuccess}
	}

	snippet, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if readErr != nil {
		snippet = []byte("(unreadable body)")
	}

	return Delivery{
		Status: domain.WebhookError,
		Error:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(snippet)),
	}
}

func buildPayload(bot *domain.Bot, ev InboundEvent) webhookPayload {
	// Same fallback the event log applies, so both records carry the
	// same timestamp for an event the transport left unstamped.
	created := ev.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	p := webhookPayload{
		BotID:             bot.ID.String(),
		BotName:           bot.Name,
		InteractionOrigin: bot.InteractionOrigin,
		ChannelID:         ev.ChannelID,
		UserID:            ev.ActorID,
		Username:          ev.ActorName,
		CreatedAt:         created.UTC().Format(time.RFC3339),
	}

	if ev.GuildID != "" {
		guildID := ev.GuildID
		p.GuildID = &guildID
	}

	switch ev.Kind {
	case domain.EventKindCommand:
		p.InteractionType = "command"
		p.CommandName = ev.CommandName
		p.CommandID = ev.CommandID
		p.InteractionID = ev.InteractionID
		p.Options = ev.Options
	default:
		p.MessageID = ev.EventID
		p.Content = ev.Content
		p.Attachments = ev.Attachments
	}

	return p
}
