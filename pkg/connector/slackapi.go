// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/aiku/slackcord/pkg/connector/slackfmt"
)

// SlackAPI is the part of the Slack Web API the relay reads from.
// *slack.Client implements it.
type SlackAPI interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetEmojiContext(ctx context.Context) (map[string]string, error)
	GetTeamInfoContext(ctx context.Context) (*slack.TeamInfo, error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
}

// PublicURLAPI enables public sharing of files. Slack only allows this with
// a user token, so it is usually a different client than SlackAPI.
type PublicURLAPI interface {
	ShareFilePublicURLContext(ctx context.Context, fileID string) (*slack.File, []slack.Comment, *slack.Paging, error)
}

var (
	_ SlackAPI     = (*slack.Client)(nil)
	_ PublicURLAPI = (*slack.Client)(nil)
)

// newSlackClient creates a Slack Web API client for token.
func newSlackClient(cfg SlackConfig, token string, log zerolog.Logger) *slack.Client {
	opts := []slack.Option{
		slack.OptionLog(slackLogger{log: log}),
	}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	if cfg.AppToken != "" {
		opts = append(opts, slack.OptionAppLevelToken(cfg.AppToken))
	}
	return slack.New(token, opts...)
}

// slackLogger forwards slack-go's internal logging to zerolog at debug level.
type slackLogger struct {
	log zerolog.Logger
}

func (l slackLogger) Output(_ int, msg string) error {
	l.log.Debug().Str("component", "slack_api").Msg(msg)
	return nil
}

// SlackUsers resolves user mentions through users.info.
type SlackUsers struct {
	API SlackAPI
}

var _ slackfmt.UserResolver = SlackUsers{}

// ResolveUserDisplayName implements slackfmt.UserResolver. The profile
// display name is preferred and the real name is the fallback.
func (u SlackUsers) ResolveUserDisplayName(ctx context.Context, userID string) (string, bool) {
	if u.API == nil {
		return "", false
	}
	user, err := u.API.GetUserInfoContext(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("Failed to look up mentioned user")
		return "", false
	}
	name := profileName(user)
	return name, name != ""
}

func profileName(user *slack.User) string {
	if user == nil {
		return ""
	}
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName
	}
	if user.Profile.RealName != "" {
		return user.Profile.RealName
	}
	return user.RealName
}

// WorkspaceEmoji knows the custom emoji of the workspace. The list is
// fetched through emoji.list on first use, so one value should be created
// per message.
type WorkspaceEmoji struct {
	api   SlackAPI
	once  sync.Once
	names map[string]string
}

var _ slackfmt.EmojiLookup = (*WorkspaceEmoji)(nil)

// NewWorkspaceEmoji creates a WorkspaceEmoji backed by api.
func NewWorkspaceEmoji(api SlackAPI) *WorkspaceEmoji {
	return &WorkspaceEmoji{api: api}
}

// EmojiExists implements slackfmt.EmojiLookup.
func (w *WorkspaceEmoji) EmojiExists(ctx context.Context, name string) bool {
	w.once.Do(func() {
		if w.api == nil {
			return
		}
		names, err := w.api.GetEmojiContext(ctx)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to list workspace emoji")
			return
		}
		w.names = names
	})
	_, ok := w.names[name]
	return ok
}

// SlackFileSharer publishes files through files.sharedPublicURL.
type SlackFileSharer struct {
	API PublicURLAPI
}

var _ slackfmt.FileSharer = SlackFileSharer{}

// EnsurePubliclyShared implements slackfmt.FileSharer. A file that is
// already public is not an error.
func (s SlackFileSharer) EnsurePubliclyShared(ctx context.Context, fileID string) error {
	if s.API == nil {
		return errors.New("no user token configured for file sharing")
	}
	_, _, _, err := s.API.ShareFilePublicURLContext(ctx, fileID)
	if err == nil {
		return nil
	}
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) && slackErr.Err == "already_public" {
		return nil
	}
	return fmt.Errorf("failed to share file %s: %w", fileID, err)
}
