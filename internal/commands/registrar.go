// Package commands pushes stored slash-command definitions to the Discord
// REST API.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/botrelay/internal/domain"
	"github.com/gosuda/botrelay/internal/secrets"
)

// RESTClient is the subset of the platform REST API the registrar needs,
// abstracted for testing.
type RESTClient interface {
	// ApplicationID resolves the application owning the given bot token.
	ApplicationID(token string) (string, error)

	// CreateCommand registers one command. An empty guildID registers it
	// globally. Returns the platform-assigned command ID.
	CreateCommand(token, appID, guildID string, cmd *discordgo.ApplicationCommand) (string, error)

	// ListCommands fetches the commands registered on the platform. An
	// empty guildID lists the global scope.
	ListCommands(token, appID, guildID string) ([]*discordgo.ApplicationCommand, error)
}

// Registrar registers every stored command of a bot against the platform.
type Registrar struct {
	bots  domain.BotRepository
	cmds  domain.CommandRepository
	vault *secrets.Vault
	rest  RESTClient
}

func NewRegistrar(bots domain.BotRepository, cmds domain.CommandRepository, vault *secrets.Vault, rest RESTClient) *Registrar {
	return &Registrar{bots: bots, cmds: cmds, vault: vault, rest: rest}
}

// RegisterAll registers each of the bot's commands both globally (covers
// direct messages, propagates slowly) and in the configured guild (available
// immediately). A command counts as registered when at least one of the two
// paths succeeds; the globally assigned ID is preferred when both do.
//
// The application ID is always resolved from the bot token. A configured
// application ID that disagrees is overridden, and the mismatch is surfaced
// in the result so operator misconfiguration stays visible.
func (r *Registrar) RegisterAll(ctx context.Context, botID uuid.UUID) (domain.CommandRegistration, error) {
	var result domain.CommandRegistration

	bot, err := r.bots.GetByID(ctx, botID)
	if err != nil {
		return result, fmt.Errorf("commands.Registrar.RegisterAll: %w", err)
	}

	token, err := r.vault.Decrypt(bot.EncryptedToken)
	if err != nil {
		return result, fmt.Errorf("commands.Registrar.RegisterAll: decrypt token: %w", err)
	}

	appID, err := r.rest.ApplicationID(token)
	if err != nil {
		return result, fmt.Errorf("commands.Registrar.RegisterAll: resolve application: %w", err)
	}

	if bot.ApplicationID != "" && bot.ApplicationID != appID {
		warning := fmt.Sprintf(
			"configured application ID %s does not match the token's application ID %s; using the token's",
			bot.ApplicationID, appID)
		log.Warn().Str("bot_id", botID.String()).Msg(warning)
		result.Errors = append(result.Errors, warning)
	}

	stored, err := r.cmds.ListByBot(ctx, botID)
	if err != nil {
		return result, fmt.Errorf("commands.Registrar.RegisterAll: list commands: %w", err)
	}

	result.Total = len(stored)

	for _, c := range stored {
		platformID, errs := r.registerOne(token, appID, bot.GuildID, c)
		result.Errors = append(result.Errors, errs...)
		if platformID == "" {
			continue
		}

		result.Registered++

		if setErr := r.cmds.SetPlatformID(ctx, c.ID, platformID); setErr != nil {
			log.Error().Err(setErr).
				Str("command_id", c.ID.String()).
				Msg("failed to store platform command id")
		}
	}

	return result, nil
}

// VerifyAll lists the commands actually registered on the platform for the
// bot's guild scope (global scope when no guild is configured) and reports
// stored commands the platform does not know about. The application ID is
// resolved from the token, as in RegisterAll.
func (r *Registrar) VerifyAll(ctx context.Context, botID uuid.UUID) (domain.CommandVerification, error) {
	var result domain.CommandVerification

	bot, err := r.bots.GetByID(ctx, botID)
	if err != nil {
		return result, fmt.Errorf("commands.Registrar.VerifyAll: %w", err)
	}

	token, err := r.vault.Decrypt(bot.EncryptedToken)
	if err != nil {
		return result, fmt.Errorf("commands.Registrar.VerifyAll: decrypt token: %w", err)
	}

	appID, err := r.rest.ApplicationID(token)
	if err != nil {
		return result, fmt.Errorf("commands.Registrar.VerifyAll: resolve application: %w", err)
	}

	registered, err := r.rest.ListCommands(token, appID, bot.GuildID)
	if err != nil {
		return result, fmt.Errorf("commands.Registrar.VerifyAll: list registered commands: %w", err)
	}

	result.Commands = make([]domain.PlatformCommand, 0, len(registered))
	known := make(map[string]bool, len(registered))
	for _, c := range registered {
		result.Commands = append(result.Commands, domain.PlatformCommand{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Type:        int(c.Type),
		})
		known[c.Name] = true
	}
	result.Count = len(result.Commands)

	stored, err := r.cmds.ListByBot(ctx, botID)
	if err != nil {
		return result, fmt.Errorf("commands.Registrar.VerifyAll: list commands: %w", err)
	}
	for _, c := range stored {
		if !known[strings.ToLower(c.Name)] {
			result.Missing = append(result.Missing, strings.ToLower(c.Name))
		}
	}

	return result, nil
}

// registerOne attempts both registration scopes. An error is reported only
// when both fail. A bot without a configured guild registers globally only;
// an empty guild ID would otherwise register globally twice.
func (r *Registrar) registerOne(token, appID, guildID string, c *domain.Command) (string, []string) {
	cmd, err := buildCommand(c)
	if err != nil {
		return "", []string{fmt.Sprintf("command %q: %v", c.Name, err)}
	}

	globalID, globalErr := r.rest.CreateCommand(token, appID, "", cmd)

	if guildID == "" {
		if globalErr != nil {
			return "", []string{fmt.Sprintf("command %q: global: %v", c.Name, globalErr)}
		}
		return globalID, nil
	}

	guildID2, guildErr := r.rest.CreateCommand(token, appID, guildID, cmd)

	switch {
	case globalErr == nil:
		if guildErr != nil {
			log.Warn().Err(guildErr).Str("command", cmd.Name).Msg("guild registration failed; global succeeded")
		}
		return globalID, nil
	case guildErr == nil:
		log.Warn().Err(globalErr).Str("command", cmd.Name).Msg("global registration failed; guild succeeded")
		return guildID2, nil
	default:
		return "", []string{
			fmt.Sprintf("command %q: global: %v", c.Name, globalErr),
			fmt.Sprintf("command %q: guild %s: %v", c.Name, guildID, describeGuildError(guildErr)),
		}
	}
}

func buildCommand(c *domain.Command) (*discordgo.ApplicationCommand, error) {
	cmd := &discordgo.ApplicationCommand{
		// Command names must be lowercase on the platform.
		Name:        strings.ToLower(c.Name),
		Description: c.Description,
	}

	if c.Type != 0 {
		cmd.Type = discordgo.ApplicationCommandType(c.Type)
	}

	if len(c.Options) > 0 {
		if err := json.Unmarshal(c.Options, &cmd.Options); err != nil {
			return nil, fmt.Errorf("invalid options: %w", err)
		}
	}

	return cmd, nil
}

// describeGuildError expands the platform's common registration error codes
// into actionable messages.
func describeGuildError(err error) string {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return err.Error()
	}

	switch restErr.Message.Code {
	case 20012:
		return "the bot token is not authorized to register commands for this application; " +
			"check that the application ID belongs to this bot"
	case 50001:
		return "missing access: the bot is not a member of the configured guild; invite it first"
	default:
		return err.Error()
	}
}
