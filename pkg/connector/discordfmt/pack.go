// Copyright 2024-2026 Aiku AI

// Package discordfmt packs rendered Slack messages into Discord embeds.
package discordfmt

import (
	"strings"
	"time"
	"unicode"
)

// Envelope carries the metadata of one relayed message. Every field is
// optional; empty strings and the zero time mean absent.
type Envelope struct {
	ChannelLabel  string
	AuthorName    string
	AuthorIconURL string
	TeamName      string
	TeamIconURL   string
	Timestamp     time.Time
}

// Unit is one Discord embed plus the content line posted with it. A unit
// carries at most one image.
type Unit struct {
	Mention       string
	AuthorName    string
	AuthorIconURL string
	Description   string
	ImageURL      string
	FooterText    string
	FooterIconURL string
	Timestamp     time.Time
}

// HasFooter reports whether the unit carries the footer set.
func (u Unit) HasFooter() bool {
	return u.FooterText != "" || u.FooterIconURL != "" || !u.Timestamp.IsZero()
}

// Options tune the packer.
type Options struct {
	// MentionRoleID is the Discord role pinged on the first unit. Empty
	// leaves the role token out of the mention.
	MentionRoleID string
}

// Pack splits a rendered message into units. With at most one image a
// single unit carries everything. With more images each image gets its own
// unit, preceded by a text-only unit when text is non-empty, and only the
// last image unit carries the footer. The mention and author always ride on
// the first unit.
func Pack(text string, images []string, env Envelope, opts Options) []Unit {
	var units []Unit
	if len(images) <= 1 {
		u := Unit{Description: text}
		if len(images) == 1 {
			u.ImageURL = images[0]
		}
		withFooter(&u, env)
		units = append(units, u)
	} else {
		if text != "" {
			units = append(units, Unit{Description: text})
		}
		for i, img := range images {
			u := Unit{ImageURL: img}
			if i == len(images)-1 {
				withFooter(&u, env)
			}
			units = append(units, u)
		}
	}

	first := &units[0]
	first.Mention = Mention(opts.MentionRoleID, env.ChannelLabel)
	first.AuthorName = env.AuthorName
	first.AuthorIconURL = env.AuthorIconURL
	return units
}

func withFooter(u *Unit, env Envelope) {
	u.FooterText = env.TeamName
	u.FooterIconURL = env.TeamIconURL
	u.Timestamp = env.Timestamp
}

// Mention builds the content line announcing a message posted in channel.
// It returns "" when channel is empty.
func Mention(roleID, channel string) string {
	if channel == "" {
		return ""
	}
	var sb strings.Builder
	if roleID != "" {
		sb.WriteString("<@&" + roleID + "> ")
	}
	sb.WriteString("New message posted in the ")
	sb.WriteString(TitleCase(strings.ReplaceAll(channel, "-", " ")))
	sb.WriteString(" channel!")
	return sb.String()
}

// TitleCase upper-cases the first letter of every run of letters and
// lower-cases the rest, so "dev2ops" becomes "Dev2Ops".
func TitleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && prevLetter:
			sb.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r):
			sb.WriteRune(unicode.ToTitle(r))
			prevLetter = true
		default:
			sb.WriteRune(r)
			prevLetter = false
		}
	}
	return sb.String()
}
