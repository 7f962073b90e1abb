package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/botrelay/internal/domain"
)

// connection is the runtime state of one live or pending gateway session.
// At most one connection exists per bot at any time; the manager replaces,
// never stacks.
type connection struct {
	manager *Manager
	bot     *domain.Bot // credential snapshot taken at start
	session Session
	seen    *seenSet

	mu        sync.Mutex
	status    Status
	lastError string
}

func newConnection(m *Manager, bot *domain.Bot, dedupSize int) *connection {
	return &connection{
		manager: m,
		bot:     bot,
		seen:    newSeenSet(dedupSize),
		status:  StatusConnecting,
	}
}

func (c *connection) snapshot() BotStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return BotStatus{
		BotID:  c.bot.ID.String(),
		Status: c.status,
		Error:  c.lastError,
	}
}

func (c *connection) setStatus(s Status, errMsg string) {
	c.mu.Lock()
	c.status = s
	c.lastError = errMsg
	c.mu.Unlock()
}

// HandleReady transitions the connection to online and fires best-effort
// command registration against the platform.
func (c *connection) HandleReady(botUserID, botTag string) {
	c.setStatus(StatusOnline, "")

	log.Info().
		Str("bot_id", c.bot.ID.String()).
		Str("bot_name", c.bot.Name).
		Str("gateway_user", botTag).
		Msg("bot online")

	if c.manager.registrar == nil {
		return
	}

	// Registration failures are logged, never fatal to the connection.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), registrationTimeout)
		defer cancel()

		result, err := c.manager.registrar.RegisterAll(ctx, c.bot.ID)
		if err != nil {
			log.Warn().Err(err).Str("bot_id", c.bot.ID.String()).Msg("command registration failed")
			return
		}

		log.Info().
			Str("bot_id", c.bot.ID.String()).
			Int("registered", result.Registered).
			Int("total", result.Total).
			Strs("errors", result.Errors).
			Msg("commands registered")
	}()
}

// HandleDisconnect marks the connection offline. The entry stays in the map
// until an explicit stop; a later start re-enters via connecting.
func (c *connection) HandleDisconnect() {
	c.setStatus(StatusOffline, "")
	log.Info().Str("bot_id", c.bot.ID.String()).Str("bot_name", c.bot.Name).Msg("bot disconnected")
}

// HandleError records a transport-level error on a live session.
func (c *connection) HandleError(err error) {
	c.setStatus(StatusError, err.Error())
	log.Error().Err(err).Str("bot_id", c.bot.ID.String()).Str("bot_name", c.bot.Name).Msg("transport error")
}

// HandleEvent runs the classification pipeline for one inbound event:
// dedup, origin classification, policy filter, acknowledgment, forwarding,
// and audit logging. A failure in one event never affects the connection or
// other bots.
func (c *connection) HandleEvent(ev InboundEvent) {
	// Duplicate suppression must happen before any suspension point so the
	// dual delivery paths serialize on the set, not on the network.
	if c.seen.Observe(ev.EventID) {
		return
	}

	// Plain guild message that does not target this bot: not our traffic.
	if ev.Kind == domain.EventKindMessage && !ev.Direct && !ev.MentionsBot {
		return
	}

	entry := c.logEntry(ev)

	// Events from other bots/automated actors are audited but never
	// forwarded.
	if ev.ActorIsBot {
		c.appendLog(entry)
		return
	}

	if !c.bot.InteractionOrigin.Allows(ev.Direct) {
		c.appendLog(entry)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	// Commands must be acknowledged within the transport's response
	// deadline before the webhook call, so no pending state surfaces to
	// the end user. Acknowledgment failure does not block forwarding.
	if ev.Kind == domain.EventKindCommand && c.session != nil {
		if err := c.session.Acknowledge(ctx, ev); err != nil {
			log.Warn().Err(err).
				Str("bot_id", c.bot.ID.String()).
				Str("command", ev.CommandName).
				Msg("interaction acknowledgment failed")
		}
	}

	delivery := c.manager.forwarder.Forward(ctx, c.bot, ev)

	entry.WebhookStatus = delivery.Status
	entry.WebhookError = delivery.Error
	c.appendLog(entry)

	if delivery.Status == domain.WebhookError {
		log.Warn().
			Str("bot_id", c.bot.ID.String()).
			Str("event_id", ev.EventID).
			Str("error", delivery.Error).
			Msg("webhook delivery failed")
	}
}

func (c *connection) logEntry(ev InboundEvent) *domain.EventLogEntry {
	ts := ev.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return &domain.EventLogEntry{
		ID:              uuid.New(),
		BotID:           c.bot.ID,
		BotName:         c.bot.Name,
		Kind:            ev.Kind,
		EventID:         ev.EventID,
		Direct:          ev.Direct,
		GuildID:         ev.GuildID,
		ChannelID:       ev.ChannelID,
		ChannelName:     ev.ChannelName,
		UserID:          ev.ActorID,
		Username:        ev.ActorName,
		Content:         ev.Content,
		CommandName:     ev.CommandName,
		HasAttachments:  len(ev.Attachments) > 0,
		AttachmentCount: len(ev.Attachments),
		Timestamp:       ts,
	}
}

// appendLog is best-effort relative to forwarding: a sink failure is logged
// operationally and dropped.
func (c *connection) appendLog(entry *domain.EventLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), logAppendTimeout)
	defer cancel()

	if err := c.manager.logs.Append(ctx, entry); err != nil {
		log.Error().Err(err).Str("bot_id", c.bot.ID.String()).Msg("event log append failed")
	}
}
