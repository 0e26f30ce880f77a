// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
	"maunium.net/go/mautrix/event"

	"github.com/aiku/slackcord/pkg/connector/discordfmt"
	"github.com/aiku/slackcord/pkg/connector/matrixfmt"
	"github.com/aiku/slackcord/pkg/connector/slackfmt"
)

var roleMentionRe = regexp.MustCompile(`<@&\d*>\s*`)

// renderText converts the rich-text blocks of msg to Discord markup. Plain
// messages without text render nothing.
func renderText(ctx context.Context, renderer *slackfmt.Renderer, msg *slack.Msg) string {
	if msg.Text == "" {
		return ""
	}
	return renderer.Aggregate(ctx, slackfmt.FromBlocks(msg.Blocks))
}

// plainMention strips the Discord role token from a unit mention, leaving
// the announcement sentence.
func plainMention(mention string) string {
	return strings.TrimSpace(roleMentionRe.ReplaceAllString(mention, ""))
}

// unitMarkup flattens a unit into a single markup document for targets
// without embeds.
func unitMarkup(u discordfmt.Unit) string {
	var parts []string
	if m := plainMention(u.Mention); m != "" {
		parts = append(parts, m)
	}
	if u.AuthorName != "" {
		parts = append(parts, "**"+u.AuthorName+"**")
	}
	if u.Description != "" {
		parts = append(parts, strings.TrimSuffix(u.Description, "\n"))
	}
	if u.ImageURL != "" {
		parts = append(parts, "[image]("+u.ImageURL+")")
	}
	if u.FooterText != "" {
		parts = append(parts, "*"+u.FooterText+"*")
	}
	return strings.Join(parts, "\n")
}

// matrixContent converts a unit to a Matrix text message.
func matrixContent(u discordfmt.Unit) *event.MessageEventContent {
	return matrixfmt.Parse(unitMarkup(u))
}
