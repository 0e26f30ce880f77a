// Copyright 2024-2026 Aiku AI

package slackfmt

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// UserResolver looks up the name shown for a Slack user. The second result
// is false when the user has neither a display name nor a real name, or when
// the lookup failed.
type UserResolver interface {
	ResolveUserDisplayName(ctx context.Context, userID string) (string, bool)
}

// EmojiLookup reports whether an emoji short name is known.
type EmojiLookup interface {
	EmojiExists(ctx context.Context, name string) bool
}

// EmojiResolver knows the standard emoji table and defers to Custom for
// workspace emoji.
type EmojiResolver struct {
	Custom EmojiLookup
}

// EmojiExists implements EmojiLookup.
func (r EmojiResolver) EmojiExists(ctx context.Context, name string) bool {
	if _, ok := StandardEmoji(name); ok {
		return true
	}
	return r.Custom != nil && r.Custom.EmojiExists(ctx, name)
}

// Renderer turns a Document into Discord markup. It holds no per-message
// state and may be shared between goroutines if its collaborators can.
type Renderer struct {
	users UserResolver
	emoji EmojiLookup
}

// NewRenderer creates a Renderer. A nil users drops every mention and a nil
// emoji falls back to the standard emoji table.
func NewRenderer(users UserResolver, emoji EmojiLookup) *Renderer {
	if emoji == nil {
		emoji = EmojiResolver{}
	}
	return &Renderer{users: users, emoji: emoji}
}

var markupEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	">", `\>`,
)

// Aggregate renders every block of doc in order and concatenates the results.
// Unsupported blocks are skipped.
func (r *Renderer) Aggregate(ctx context.Context, doc Document) string {
	var sb strings.Builder
	for _, b := range doc {
		switch v := b.(type) {
		case *Section:
			sb.WriteString(r.RenderSection(ctx, v))
		case *List:
			sb.WriteString(r.RenderList(ctx, v))
		case *Quote:
			sb.WriteString(r.RenderQuote(ctx, v))
		case *Preformatted:
			sb.WriteString(r.RenderPreformatted(v))
		case *Unsupported:
			zerolog.Ctx(ctx).Debug().Str("block_type", v.Type).Msg("Skipping unsupported block")
		}
	}
	return sb.String()
}

// RenderSection renders the inline elements of a section and concatenates
// them with no separator.
func (r *Renderer) RenderSection(ctx context.Context, section *Section) string {
	if section == nil {
		return ""
	}
	var sb strings.Builder
	for _, elem := range section.Elements {
		sb.WriteString(r.renderInline(ctx, elem))
	}
	return sb.String()
}

func (r *Renderer) renderInline(ctx context.Context, elem Inline) string {
	log := zerolog.Ctx(ctx)
	switch v := elem.(type) {
	case *Text:
		return applyStyle(v.Text, v.Style)
	case *Broadcast:
		if v.Range == BroadcastHere {
			return applyStyle("@here", v.Style)
		}
		return applyStyle("@everyone", v.Style)
	case *Emoji:
		if !r.emoji.EmojiExists(ctx, v.Name) {
			log.Debug().Str("emoji", v.Name).Msg("Skipping unknown emoji")
			return ""
		}
		return applyStyle(":"+v.Name+":", v.Style)
	case *UserMention:
		name, ok := r.resolveUser(ctx, v.UserID)
		if !ok {
			log.Debug().Str("user_id", v.UserID).Msg("Skipping mention of user with no name")
			return ""
		}
		style := v.Style
		style.Bold = true
		return applyStyle("@"+name, style)
	case *Link:
		label := v.Label
		if label == "" {
			label = v.URL
		}
		return "[" + applyStyle(label, v.Style) + "](" + v.URL + ")"
	case *UnsupportedInline:
		log.Debug().Str("element_type", v.Type).Msg("Skipping unsupported inline element")
	}
	return ""
}

func (r *Renderer) resolveUser(ctx context.Context, userID string) (string, bool) {
	if r.users == nil || userID == "" {
		return "", false
	}
	name, ok := r.users.ResolveUserDisplayName(ctx, userID)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// applyStyle escapes text unless it is code and wraps it in bold, italic,
// strike and code delimiters, innermost first.
func applyStyle(text string, style Style) string {
	if !style.Code {
		text = markupEscaper.Replace(text)
	}
	if style.Bold {
		text = "**" + text + "**"
	}
	if style.Italic {
		text = "*" + text + "*"
	}
	if style.Strike {
		text = "~~" + text + "~~"
	}
	if style.Code {
		text = "`" + text + "`"
	}
	return text
}

// RenderList renders one item per line, each prefixed by a full-width space
// per indent level and the item's numbering label.
func (r *Renderer) RenderList(ctx context.Context, list *List) string {
	if list == nil {
		return ""
	}
	pad := strings.Repeat("　", max(list.Indent, 0))
	lines := make([]string, len(list.Items))
	for i, item := range list.Items {
		lines[i] = pad + Numbering(list.Style, list.Indent, i+1) + " " + r.RenderSection(ctx, item)
	}
	return strings.Join(lines, "\n") + "\n"
}

// RenderQuote prefixes every line of the quoted section with "> ".
func (r *Renderer) RenderQuote(ctx context.Context, quote *Quote) string {
	if quote == nil {
		return ""
	}
	text := r.RenderSection(ctx, &quote.Section)
	return "> " + strings.ReplaceAll(text, "\n", "\n> ") + "\n"
}

// RenderPreformatted emits the fragments verbatim inside a fenced code block.
func (r *Renderer) RenderPreformatted(pre *Preformatted) string {
	if pre == nil {
		return "```\n```"
	}
	return "```\n" + strings.Join(pre.Fragments, "") + "```"
}
