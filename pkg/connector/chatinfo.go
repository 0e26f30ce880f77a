// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/aiku/slackcord/pkg/connector/discordfmt"
)

var (
	teamIconKeys = []string{"image_88", "image_68", "image_44", "image_34"}
)

// Directory builds message envelopes from workspace, channel and author
// information. Team and channel details are cached until Forget is called.
type Directory struct {
	api SlackAPI
	cfg *Config

	mu       sync.Mutex
	team     *slack.TeamInfo
	channels map[string]string
}

// NewDirectory creates a Directory backed by api. cfg supplies the author
// name template and may be nil.
func NewDirectory(api SlackAPI, cfg *Config) *Directory {
	return &Directory{
		api:      api,
		cfg:      cfg,
		channels: make(map[string]string),
	}
}

// Envelope collects the context shown around a relayed message. Lookups
// that fail leave the matching fields empty.
func (d *Directory) Envelope(ctx context.Context, channelID string, msg *slack.Msg) discordfmt.Envelope {
	log := zerolog.Ctx(ctx)
	var env discordfmt.Envelope

	if team := d.teamInfo(ctx); team != nil {
		env.TeamName = team.Name
		env.TeamIconURL = teamIcon(team.Icon)
	}
	env.ChannelLabel = d.channelName(ctx, channelID)

	switch {
	case msg.User != "":
		user, err := d.api.GetUserInfoContext(ctx, msg.User)
		if err != nil {
			log.Warn().Err(err).Str("user_id", msg.User).Msg("Failed to look up message author")
			break
		}
		env.AuthorName = d.authorName(user)
		env.AuthorIconURL = userIcon(user.Profile)
	case msg.Username != "":
		env.AuthorName = msg.Username
	}

	if msg.Timestamp != "" {
		ts, err := ParseTimestamp(msg.Timestamp)
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring unparseable message timestamp")
		} else {
			env.Timestamp = ts
		}
	}
	return env
}

// Forget drops the cached team and channel details.
func (d *Directory) Forget() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.team = nil
	d.channels = make(map[string]string)
}

func (d *Directory) teamInfo(ctx context.Context) *slack.TeamInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.team != nil {
		return d.team
	}
	team, err := d.api.GetTeamInfoContext(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to get team info")
		return nil
	}
	d.team = team
	return team
}

func (d *Directory) channelName(ctx context.Context, channelID string) string {
	if channelID == "" {
		return ""
	}
	d.mu.Lock()
	name, ok := d.channels[channelID]
	d.mu.Unlock()
	if ok {
		return name
	}
	channel, err := d.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("channel_id", channelID).Msg("Failed to get channel info")
		return ""
	}
	d.mu.Lock()
	d.channels[channelID] = channel.Name
	d.mu.Unlock()
	return channel.Name
}

func (d *Directory) authorName(user *slack.User) string {
	params := DisplaynameParams{
		DisplayName: user.Profile.DisplayName,
		RealName:    user.Profile.RealName,
		Username:    user.Name,
	}
	if params.RealName == "" {
		params.RealName = user.RealName
	}
	if d.cfg == nil {
		return profileName(user)
	}
	return d.cfg.FormatDisplayname(params)
}

// teamIcon picks the largest available team icon.
func teamIcon(icon map[string]any) string {
	for _, key := range teamIconKeys {
		if url, ok := icon[key].(string); ok && url != "" {
			return url
		}
	}
	return ""
}

// userIcon picks the largest of the avatar sizes used for embed authors.
func userIcon(profile slack.UserProfile) string {
	for _, url := range []string{profile.Image72, profile.Image48, profile.Image32} {
		if url != "" {
			return url
		}
	}
	return ""
}
