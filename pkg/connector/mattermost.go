// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"fmt"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/aiku/slackcord/pkg/connector/discordfmt"
)

// MattermostAPI is the part of the Mattermost REST API the sink uses.
// *model.Client4 implements it.
type MattermostAPI interface {
	CreatePost(ctx context.Context, post *model.Post) (*model.Post, *model.Response, error)
}

var _ MattermostAPI = (*model.Client4)(nil)

// NewMattermostClient creates an authenticated Mattermost API client.
func NewMattermostClient(cfg MattermostConfig) *model.Client4 {
	client := model.NewAPIv4Client(cfg.ServerURL)
	client.SetToken(cfg.Token)
	return client
}

// MattermostSink mirrors notifications into a Mattermost channel, one post
// with one message attachment per unit.
type MattermostSink struct {
	api       MattermostAPI
	channelID string
	color     string
}

var _ Sink = (*MattermostSink)(nil)

// NewMattermostSink creates a sink posting to cfg.ChannelID.
func NewMattermostSink(api MattermostAPI, cfg MattermostConfig, color int) *MattermostSink {
	return &MattermostSink{
		api:       api,
		channelID: cfg.ChannelID,
		color:     fmt.Sprintf("#%06x", color),
	}
}

func (s *MattermostSink) Name() string { return "mattermost" }

// Deliver implements Sink.
func (s *MattermostSink) Deliver(ctx context.Context, n *Notification) error {
	for i, unit := range n.Units {
		post := unitToPost(unit, s.channelID, s.color)
		if _, _, err := s.api.CreatePost(ctx, post); err != nil {
			return fmt.Errorf("failed to create post for unit %d of %d: %w", i+1, len(n.Units), err)
		}
	}
	return nil
}

func unitToPost(u discordfmt.Unit, channelID, color string) *model.Post {
	attachment := &model.SlackAttachment{
		Fallback:   unitMarkup(u),
		Color:      color,
		AuthorName: u.AuthorName,
		AuthorIcon: u.AuthorIconURL,
		Text:       u.Description,
		ImageURL:   u.ImageURL,
		Footer:     u.FooterText,
		FooterIcon: u.FooterIconURL,
	}
	if !u.Timestamp.IsZero() {
		attachment.Timestamp = u.Timestamp.Unix()
	}
	post := &model.Post{
		ChannelId: channelID,
		Message:   plainMention(u.Mention),
	}
	post.AddProp("attachments", []*model.SlackAttachment{attachment})
	return post
}
