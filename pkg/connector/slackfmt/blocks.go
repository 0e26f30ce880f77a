// Copyright 2024-2026 Aiku AI

// Package slackfmt converts Slack rich text blocks to Discord markup.
package slackfmt

// Document is the ordered list of top-level blocks of one Slack message.
type Document []Block

// Block is one top-level rich text element. The set of implementations is
// closed: *Section, *List, *Quote, *Preformatted and *Unsupported.
type Block interface {
	block()
}

// Inline is one element inside a Section. The set of implementations is
// closed: *Text, *Broadcast, *Emoji, *UserMention, *Link and
// *UnsupportedInline.
type Inline interface {
	inline()
}

// Style holds the text decorations Slack allows on inline elements.
type Style struct {
	Bold   bool
	Italic bool
	Strike bool
	Code   bool
}

// ListStyle selects the glyph family of a list.
type ListStyle string

const (
	ListOrdered ListStyle = "ordered"
	ListBullet  ListStyle = "bullet"
)

// BroadcastRange is the audience of a broadcast mention.
type BroadcastRange string

const (
	BroadcastChannel  BroadcastRange = "channel"
	BroadcastHere     BroadcastRange = "here"
	BroadcastEveryone BroadcastRange = "everyone"
)

// Section is a run of inline elements.
type Section struct {
	Elements []Inline
}

// List is a rich_text_list. Each item is a single section.
type List struct {
	Style  ListStyle
	Indent int
	Items  []*Section
}

// Quote wraps a single section rendered as a block quote.
type Quote struct {
	Section
}

// Preformatted holds raw text fragments that are emitted verbatim inside a
// fenced code block.
type Preformatted struct {
	Fragments []string
}

// Unsupported stands in for a block the renderer does not know how to
// handle. It is skipped during aggregation.
type Unsupported struct {
	Type string
}

func (*Section) block()      {}
func (*List) block()         {}
func (*Quote) block()        {}
func (*Preformatted) block() {}
func (*Unsupported) block()  {}

// Text is a plain text run.
type Text struct {
	Text  string
	Style Style
}

// Broadcast is an @channel, @here or @everyone mention.
type Broadcast struct {
	Range BroadcastRange
	Style Style
}

// Emoji references an emoji by its short name, without colons.
type Emoji struct {
	Name  string
	Style Style
}

// UserMention references a Slack user by ID.
type UserMention struct {
	UserID string
	Style  Style
}

// Link is a hyperlink with an optional label.
type Link struct {
	URL   string
	Label string
	Style Style
}

// UnsupportedInline stands in for an inline element the renderer does not
// know how to handle. It renders as nothing.
type UnsupportedInline struct {
	Type string
}

func (*Text) inline()              {}
func (*Broadcast) inline()         {}
func (*Emoji) inline()             {}
func (*UserMention) inline()       {}
func (*Link) inline()              {}
func (*UnsupportedInline) inline() {}
