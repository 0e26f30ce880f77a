// Copyright 2024-2026 Aiku AI

package slackfmt

import (
	"github.com/slack-go/slack"
)

// FromBlocks converts the blocks of a Slack message into a Document. Every
// rich_text block contributes its elements in order; any other block type is
// kept as an *Unsupported placeholder so the aggregator can report it.
func FromBlocks(blocks slack.Blocks) Document {
	var doc Document
	for _, b := range blocks.BlockSet {
		var rt *slack.RichTextBlock
		switch v := b.(type) {
		case *slack.RichTextBlock:
			rt = v
		case slack.RichTextBlock:
			rt = &v
		}
		if rt == nil {
			doc = append(doc, &Unsupported{Type: string(b.BlockType())})
			continue
		}
		for _, elem := range rt.Elements {
			doc = append(doc, fromRichTextElement(elem))
		}
	}
	return doc
}

func fromRichTextElement(elem slack.RichTextElement) Block {
	switch v := elem.(type) {
	case *slack.RichTextSection:
		return fromSection(v)
	case slack.RichTextSection:
		return fromSection(&v)
	case *slack.RichTextList:
		return fromList(v)
	case *slack.RichTextQuote:
		return &Quote{Section: *fromSection((*slack.RichTextSection)(v))}
	case *slack.RichTextPreformatted:
		return fromPreformatted(v)
	case *slack.RichTextUnknown:
		return &Unsupported{Type: string(v.Type)}
	case nil:
		return &Unsupported{Type: "nil"}
	default:
		return &Unsupported{Type: string(elem.RichTextElementType())}
	}
}

func fromList(list *slack.RichTextList) *List {
	out := &List{
		Style:  ListStyle(list.Style),
		Indent: list.Indent,
	}
	for _, item := range list.Elements {
		switch v := item.(type) {
		case *slack.RichTextSection:
			out.Items = append(out.Items, fromSection(v))
		case slack.RichTextSection:
			out.Items = append(out.Items, fromSection(&v))
		}
	}
	return out
}

func fromPreformatted(pre *slack.RichTextPreformatted) *Preformatted {
	out := &Preformatted{}
	for _, elem := range pre.Elements {
		switch v := elem.(type) {
		case *slack.RichTextSectionTextElement:
			if v.Text != "" {
				out.Fragments = append(out.Fragments, v.Text)
			}
		case *slack.RichTextSectionLinkElement:
			if v.Text != "" {
				out.Fragments = append(out.Fragments, v.Text)
			} else if v.URL != "" {
				out.Fragments = append(out.Fragments, v.URL)
			}
		}
	}
	return out
}

func fromSection(section *slack.RichTextSection) *Section {
	out := &Section{Elements: make([]Inline, 0, len(section.Elements))}
	for _, elem := range section.Elements {
		out.Elements = append(out.Elements, fromSectionElement(elem))
	}
	return out
}

func fromSectionElement(elem slack.RichTextSectionElement) Inline {
	switch v := elem.(type) {
	case *slack.RichTextSectionTextElement:
		return &Text{Text: v.Text, Style: fromStyle(v.Style)}
	case *slack.RichTextSectionBroadcastElement:
		return &Broadcast{Range: BroadcastRange(v.Range)}
	case *slack.RichTextSectionEmojiElement:
		return &Emoji{Name: v.Name, Style: fromStyle(v.Style)}
	case *slack.RichTextSectionUserElement:
		return &UserMention{UserID: v.UserID, Style: fromStyle(v.Style)}
	case *slack.RichTextSectionLinkElement:
		return &Link{URL: v.URL, Label: v.Text, Style: fromStyle(v.Style)}
	case *slack.RichTextSectionUnknownElement:
		return &UnsupportedInline{Type: string(v.Type)}
	case nil:
		return &UnsupportedInline{Type: "nil"}
	default:
		return &UnsupportedInline{Type: string(elem.RichTextSectionElementType())}
	}
}

func fromStyle(style *slack.RichTextSectionTextStyle) Style {
	if style == nil {
		return Style{}
	}
	return Style{
		Bold:   style.Bold,
		Italic: style.Italic,
		Strike: style.Strike,
		Code:   style.Code,
	}
}
