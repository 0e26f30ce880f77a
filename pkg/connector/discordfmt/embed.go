// Copyright 2024-2026 Aiku AI

package discordfmt

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// DefaultColor is the embed sidebar colour used when none is configured.
var DefaultColor = RGB(145, 228, 163)

// RGB packs colour components into the integer form Discord expects.
func RGB(r, g, b uint8) int {
	return int(r)<<16 | int(g)<<8 | int(b)
}

// Embed converts a unit to a Discord embed.
func Embed(u Unit, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Description: u.Description,
		Color:       color,
	}
	if u.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: u.ImageURL}
	}
	if u.AuthorName != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: u.AuthorName, IconURL: u.AuthorIconURL}
	}
	if u.FooterText != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: u.FooterText, IconURL: u.FooterIconURL}
	}
	if !u.Timestamp.IsZero() {
		embed.Timestamp = u.Timestamp.UTC().Format(time.RFC3339)
	}
	return embed
}

// MessageSend builds the Discord message for a unit. Only the configured
// role and the everyone/here broadcasts may ping.
func MessageSend(u Unit, color int, roleID string) *discordgo.MessageSend {
	allowed := &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone},
	}
	if roleID != "" {
		allowed.Roles = []string{roleID}
	}
	return &discordgo.MessageSend{
		Content:         u.Mention,
		Embeds:          []*discordgo.MessageEmbed{Embed(u, color)},
		AllowedMentions: allowed,
	}
}
