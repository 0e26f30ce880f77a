// Copyright 2024-2026 Aiku AI

package slackfmt

import (
	"strings"

	"github.com/kyokomi/emoji/v2"
)

// StandardEmoji returns the Unicode display form of a standard Slack emoji
// short name, including the flag-xx country flags. The second result is
// false for unknown names. Workspace custom emoji are resolved separately
// through an EmojiLookup.
func StandardEmoji(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, ": \t\n") {
		return "", false
	}
	code := ":" + name + ":"
	out := emoji.Emojize(code)
	if out == code {
		return "", false
	}
	return strings.TrimSuffix(out, emoji.ReplacePadding), true
}
