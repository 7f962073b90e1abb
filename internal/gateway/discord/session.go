// Package discord adapts the Discord gateway to the relay transport
// interfaces using discordgo. It is the only package aware of the platform's
// wire types.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gosuda/botrelay/internal/domain"
	"github.com/gosuda/botrelay/internal/relay"
)

// Dialer implements relay.Dialer over discordgo gateway sessions.
type Dialer struct{}

// Compile-time interface check.
var _ relay.Dialer = (*Dialer)(nil) //nolint:gochecknoglobals // compile-time check

func NewDialer() *Dialer {
	return &Dialer{}
}

// Dial builds an unopened gateway session with all event handlers wired.
func (d *Dialer) Dial(token string, h relay.Handler) (relay.Session, error) {
	dg, err := discordgo.New("Bot " + strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("discord.Dialer.Dial: %w", err)
	}

	// MessageContent and GuildMembers are privileged and must be enabled in
	// the developer portal for the application.
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMembers

	s := &Session{dg: dg, handler: h}

	dg.AddHandler(s.onReady)
	dg.AddHandler(s.onDisconnect)
	dg.AddHandler(s.onRateLimit)
	dg.AddHandler(s.onMessageCreate)
	dg.AddHandler(s.onInteractionCreate)
	dg.AddHandler(s.onRawEvent)

	return s, nil
}

// Session wraps one discordgo gateway session.
type Session struct {
	dg        *discordgo.Session
	handler   relay.Handler
	botUserID string
}

// Connect opens the gateway session. Handshake failures are classified into
// the relay sentinel errors with operator-actionable messages.
func (s *Session) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("discord.Session.Connect: %w", err)
	}

	if err := s.dg.Open(); err != nil {
		return classifyConnectError(err)
	}

	return nil
}

// Disconnect closes the gateway session. Safe mid-handshake.
func (s *Session) Disconnect() error {
	if err := s.dg.Close(); err != nil {
		return fmt.Errorf("discord.Session.Disconnect: %w", err)
	}
	return nil
}

// Acknowledge sends a deferred ephemeral response so the interaction never
// shows a visible pending state while the webhook call runs.
func (s *Session) Acknowledge(_ context.Context, ev relay.InboundEvent) error {
	err := s.dg.InteractionRespond(&discordgo.Interaction{
		ID:    ev.InteractionID,
		Token: ev.InteractionToken,
	}, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		return fmt.Errorf("discord.Session.Acknowledge: %w", err)
	}
	return nil
}

func (s *Session) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User != nil {
		s.botUserID = r.User.ID
		s.handler.HandleReady(r.User.ID, r.User.Username+"#"+r.User.Discriminator)
		return
	}
	s.handler.HandleReady("", "")
}

func (s *Session) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	s.handler.HandleDisconnect()
}

// onRateLimit is the gateway's only in-band error signal; other transport
// faults surface as disconnects and are handled by onDisconnect.
func (s *Session) onRateLimit(_ *discordgo.Session, rl *discordgo.RateLimit) {
	if rl == nil || rl.TooManyRequests == nil {
		return
	}
	s.handler.HandleError(fmt.Errorf(
		"gateway rate limited on %s, retry after %s: %s",
		rl.URL, rl.RetryAfter, rl.Message))
}

func (s *Session) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}

	s.handler.HandleEvent(s.messageEvent(m.Message))
}

// onRawEvent is the secondary delivery path: direct-message MESSAGE_CREATE
// frames re-parsed from the raw dispatch stream, covering the gateway's
// partial-caching gap for DM channels. Duplicates against the primary path
// are collapsed by the consumer's dedup set.
func (s *Session) onRawEvent(_ *discordgo.Session, e *discordgo.Event) {
	if e.Type != "MESSAGE_CREATE" {
		return
	}

	var raw rawMessage
	if err := json.Unmarshal(e.RawData, &raw); err != nil {
		return
	}
	if raw.GuildID != "" || raw.ID == "" || raw.Author.ID == "" {
		return
	}

	created, _ := time.Parse(time.RFC3339, raw.Timestamp)

	ev := relay.InboundEvent{
		Kind:        domain.EventKindMessage,
		EventID:     raw.ID,
		Direct:      true,
		ChannelID:   raw.ChannelID,
		ChannelName: "DM",
		ActorID:     raw.Author.ID,
		ActorName:   raw.Author.Username,
		ActorIsBot:  raw.Author.Bot,
		Content:     raw.Content,
		CreatedAt:   created,
	}
	for _, a := range raw.Attachments {
		ev.Attachments = append(ev.Attachments, relay.Attachment{
			ID:          a.ID,
			URL:         a.URL,
			ContentType: a.ContentType,
			Name:        a.Filename,
			Size:        a.Size,
		})
	}

	s.handler.HandleEvent(ev)
}

func (s *Session) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()

	actor := i.User
	if actor == nil && i.Member != nil {
		actor = i.Member.User
	}
	if actor == nil {
		return
	}

	options := make(map[string]any, len(data.Options))
	for _, opt := range data.Options {
		options[opt.Name] = opt.Value
	}

	created, err := discordgo.SnowflakeTimestamp(i.ID)
	if err != nil {
		created = time.Now().UTC()
	}

	s.handler.HandleEvent(relay.InboundEvent{
		Kind:             domain.EventKindCommand,
		EventID:          i.ID,
		Direct:           i.GuildID == "",
		GuildID:          i.GuildID,
		ChannelID:        i.ChannelID,
		ChannelName:      s.channelName(i.ChannelID, i.GuildID == ""),
		ActorID:          actor.ID,
		ActorName:        actor.Username,
		ActorIsBot:       actor.Bot,
		CommandName:      data.Name,
		CommandID:        data.ID,
		InteractionID:    i.ID,
		InteractionToken: i.Token,
		Options:          options,
		CreatedAt:        created,
	})
}

func (s *Session) messageEvent(m *discordgo.Message) relay.InboundEvent {
	direct := m.GuildID == ""

	ev := relay.InboundEvent{
		Kind:        domain.EventKindMessage,
		EventID:     m.ID,
		Direct:      direct,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		ChannelName: s.channelName(m.ChannelID, direct),
		ActorID:     m.Author.ID,
		ActorName:   m.Author.Username,
		ActorIsBot:  m.Author.Bot,
		Content:     m.Content,
		MentionsBot: s.mentionsBot(m),
		CreatedAt:   m.Timestamp,
	}

	for _, a := range m.Attachments {
		ev.Attachments = append(ev.Attachments, relay.Attachment{
			ID:          a.ID,
			URL:         a.URL,
			ContentType: a.ContentType,
			Name:        a.Filename,
			Size:        a.Size,
		})
	}

	return ev
}

func (s *Session) mentionsBot(m *discordgo.Message) bool {
	if s.botUserID == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == s.botUserID {
			return true
		}
	}
	return false
}

func (s *Session) channelName(channelID string, direct bool) string {
	if direct {
		return "DM"
	}
	if ch, err := s.dg.State.Channel(channelID); err == nil && ch.Name != "" {
		return ch.Name
	}
	return ""
}

// classifyConnectError maps gateway handshake failures to the relay error
// taxonomy with messages an operator can act on.
func classifyConnectError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "disallowed intent"),
		errors.Is(err, discordgo.ErrUnauthorized) && strings.Contains(lower, "intent"):
		return fmt.Errorf(
			"privileged gateway intents are not enabled for this application: "+
				"enable MESSAGE CONTENT INTENT and SERVER MEMBERS INTENT under "+
				"Bot > Privileged Gateway Intents in the developer portal: %w",
			relay.ErrPermission)
	case errors.Is(err, discordgo.ErrUnauthorized),
		strings.Contains(lower, "authentication failed"),
		strings.Contains(lower, "invalid token"),
		strings.Contains(lower, "401"):
		return fmt.Errorf("invalid bot token: verify the token configured for this bot: %w", relay.ErrAuthentication)
	default:
		return fmt.Errorf("could not reach the gateway (%s): %w", msg, relay.ErrConnectivity)
	}
}

type rawMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Author    struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Bot      bool   `json:"bot"`
	} `json:"author"`
	Attachments []struct {
		ID          string `json:"id"`
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
		Filename    string `json:"filename"`
		Size        int    `json:"size"`
	} `json:"attachments"`
}
