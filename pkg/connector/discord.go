// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/aiku/slackcord/pkg/connector/discordfmt"
)

// DiscordAPI is the part of the Discord REST API the sink uses.
// *discordgo.Session implements it.
type DiscordAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ DiscordAPI = (*discordgo.Session)(nil)

// DiscordSink posts every unit of a notification as one message with one
// embed.
type DiscordSink struct {
	api       DiscordAPI
	channelID string
	roleID    string
	color     int
}

var _ Sink = (*DiscordSink)(nil)

// NewDiscordSink creates a sink posting to cfg.ChannelID.
func NewDiscordSink(api DiscordAPI, cfg DiscordConfig, color int) *DiscordSink {
	return &DiscordSink{
		api:       api,
		channelID: cfg.ChannelID,
		roleID:    cfg.MentionRoleID,
		color:     color,
	}
}

func (s *DiscordSink) Name() string { return "discord" }

// Deliver implements Sink. It stops at the first unit that fails so later
// units are never posted out of order.
func (s *DiscordSink) Deliver(ctx context.Context, n *Notification) error {
	for i, unit := range n.Units {
		msg := discordfmt.MessageSend(unit, s.color, s.roleID)
		if _, err := s.api.ChannelMessageSendComplex(s.channelID, msg, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to send unit %d of %d: %w", i+1, len(n.Units), err)
		}
	}
	return nil
}

// OpenDiscordSession creates a Discord session and connects to the gateway
// so the bot shows as online with its watching status.
func OpenDiscordSession(cfg DiscordConfig, log zerolog.Logger) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	log = log.With().Str("component", "discord").Logger()
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Msg("Connected to Discord")
		if cfg.Presence == "" {
			return
		}
		if err := s.UpdateWatchStatus(0, cfg.Presence); err != nil {
			log.Warn().Err(err).Msg("Failed to set Discord presence")
		}
	})
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return session, nil
}
