package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordREST implements RESTClient with per-call discordgo sessions. No
// gateway connection is opened; only the REST surface is used.
type DiscordREST struct{}

// Compile-time interface check.
var _ RESTClient = (*DiscordREST)(nil) //nolint:gochecknoglobals // compile-time check

func NewDiscordREST() *DiscordREST {
	return &DiscordREST{}
}

func (DiscordREST) ApplicationID(token string) (string, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return "", fmt.Errorf("commands.DiscordREST.ApplicationID: %w", err)
	}

	app, err := s.Application("@me")
	if err != nil {
		return "", fmt.Errorf("commands.DiscordREST.ApplicationID: %w", err)
	}

	return app.ID, nil
}

func (DiscordREST) CreateCommand(token, appID, guildID string, cmd *discordgo.ApplicationCommand) (string, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return "", fmt.Errorf("commands.DiscordREST.CreateCommand: %w", err)
	}

	created, err := s.ApplicationCommandCreate(appID, guildID, cmd)
	if err != nil {
		return "", fmt.Errorf("commands.DiscordREST.CreateCommand: %w", err)
	}

	return created.ID, nil
}

func (DiscordREST) ListCommands(token, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("commands.DiscordREST.ListCommands: %w", err)
	}

	cmds, err := s.ApplicationCommands(appID, guildID)
	if err != nil {
		return nil, fmt.Errorf("commands.DiscordREST.ListCommands: %w", err)
	}

	return cmds, nil
}
