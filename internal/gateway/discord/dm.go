package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// DMTester sends a test direct message through a short-lived REST client,
// confirming the bot's credentials can open a DM channel to a user. No
// gateway connection is opened.
type DMTester struct{}

func NewDMTester() *DMTester {
	return &DMTester{}
}

func (DMTester) SendDirectMessage(ctx context.Context, token, userID, content string) error {
	dg, err := discordgo.New("Bot " + strings.TrimSpace(token))
	if err != nil {
		return fmt.Errorf("discord.DMTester.SendDirectMessage: %w", err)
	}

	ch, err := dg.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord.DMTester.SendDirectMessage: create DM channel: %w", err)
	}

	if _, err := dg.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord.DMTester.SendDirectMessage: send: %w", err)
	}

	return nil
}
