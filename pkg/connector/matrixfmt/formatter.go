// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package matrixfmt converts Discord markup to Matrix HTML.
package matrixfmt

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"maunium.net/go/mautrix/event"
)

var (
	codeBlockRe  = regexp.MustCompile("(?s)```\\n?(.*?)```")
	codeRe       = regexp.MustCompile("`([^`]+)`")
	linkRe       = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)
	boldItalicRe = regexp.MustCompile(`\*\*\*(.+?)\*\*\*`)
	boldRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe     = regexp.MustCompile(`\*(.+?)\*`)
	strikeRe     = regexp.MustCompile(`~~(.+?)~~`)
	quoteRe      = regexp.MustCompile(`^> ?(.*)$`)
)

// Escaped markup characters are swapped for private use runes while the
// markup is parsed, then restored as literals.
var (
	hideEscapes = strings.NewReplacer(
		`\_`, "\uE000",
		`\*`, "\uE001",
		"\\`", "\uE002",
		`\>`, "\uE003",
	)
	restoreEscapes = strings.NewReplacer(
		"\uE000", "_",
		"\uE001", "*",
		"\uE002", "`",
		"\uE003", "&gt;",
	)
	plainEscapes = strings.NewReplacer(
		`\_`, "_",
		`\*`, "*",
		"\\`", "`",
		`\>`, ">",
	)
)

// Parse converts Discord markup to the content of a Matrix text message.
// Body holds the markup with escapes removed. FormattedBody is only set
// when the markup contains formatting.
func Parse(markup string) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    plainEscapes.Replace(markup),
	}
	if markup == "" {
		return content
	}
	formatted := ToHTML(markup)
	if formatted == strings.ReplaceAll(html.EscapeString(strings.TrimSuffix(content.Body, "\n")), "\n", "<br/>") {
		return content
	}
	content.Format = event.FormatHTML
	content.FormattedBody = formatted
	return content
}

// ToHTML converts Discord markup to Matrix HTML.
func ToHTML(markup string) string {
	// Step 1: Extract code blocks into placeholders.
	var blocks []string
	text := codeBlockRe.ReplaceAllStringFunc(markup, func(match string) string {
		parts := codeBlockRe.FindStringSubmatch(match)
		blocks = append(blocks, "<pre><code>"+html.EscapeString(parts[1])+"</code></pre>")
		return placeholder("BLOCK", len(blocks)-1)
	})

	text = hideEscapes.Replace(text)

	// Step 2: Inline code is literal.
	var spans []string
	text = codeRe.ReplaceAllStringFunc(text, func(match string) string {
		inner := codeRe.FindStringSubmatch(match)[1]
		spans = append(spans, "<code>"+html.EscapeString(restorePlain(inner))+"</code>")
		return placeholder("CODE", len(spans)-1)
	})

	// Step 3: Quote lines become blockquotes, everything else is inline text.
	lines := strings.Split(text, "\n")
	var result []string
	var quoted []string
	flushQuote := func() {
		if len(quoted) == 0 {
			return
		}
		result = append(result, "<blockquote>"+strings.Join(quoted, "<br/>")+"</blockquote>")
		quoted = nil
	}
	for _, line := range lines {
		if m := quoteRe.FindStringSubmatch(line); m != nil {
			quoted = append(quoted, inline(m[1]))
			continue
		}
		flushQuote()
		result = append(result, inline(line))
	}
	flushQuote()
	formatted := strings.Join(result, "<br/>")
	formatted = strings.ReplaceAll(formatted, "</blockquote><br/>", "</blockquote>")
	formatted = strings.TrimSuffix(formatted, "<br/>")

	// Step 4: Restore placeholders.
	for i, span := range spans {
		formatted = strings.Replace(formatted, placeholder("CODE", i), span, 1)
	}
	for i, block := range blocks {
		formatted = strings.Replace(formatted, placeholder("BLOCK", i), block, 1)
	}
	return restoreEscapes.Replace(formatted)
}

func placeholder(kind string, idx int) string {
	return "\x00" + kind + strconv.Itoa(idx) + "\x00"
}

func restorePlain(s string) string {
	return strings.NewReplacer("\uE000", `\_`, "\uE001", `\*`, "\uE002", "\\`", "\uE003", `\>`).Replace(s)
}

// inline converts emphasis and links on a single line.
func inline(line string) string {
	var links []string
	line = linkRe.ReplaceAllStringFunc(line, func(match string) string {
		parts := linkRe.FindStringSubmatch(match)
		label, href := emphasis(html.EscapeString(parts[1])), parts[2]
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "mailto:") {
			links = append(links, `<a href="`+html.EscapeString(href)+`">`+label+`</a>`)
		} else {
			// Unsafe scheme (javascript:, data:, etc.), keep the label only.
			links = append(links, label)
		}
		return placeholder("LINK", len(links)-1)
	})
	line = emphasis(html.EscapeString(line))
	for i, link := range links {
		line = strings.Replace(line, placeholder("LINK", i), link, 1)
	}
	return line
}

func emphasis(s string) string {
	s = boldItalicRe.ReplaceAllString(s, "<strong><em>$1</em></strong>")
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicRe.ReplaceAllString(s, "<em>$1</em>")
	s = strikeRe.ReplaceAllString(s, "<del>$1</del>")
	return s
}
