// Package discord delivers rendered notifications to Discord and answers the
// /stock and /weather slash commands.
package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/albapepper/gagwatch/internal/notifications"
)

// Discord rejects field names or values longer than these.
const (
	maxFieldName  = 256
	maxFieldValue = 1024
	maxTitle      = 256
)

// toEmbed converts a platform-independent message into a Discord embed.
// Each section becomes one non-inline field.
func toEmbed(msg notifications.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       clip(msg.Title, maxTitle),
		Description: msg.Description,
		Color:       msg.Color,
	}
	if !msg.Timestamp.IsZero() {
		embed.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	if msg.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: msg.Footer}
	}
	for _, s := range msg.Sections {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  clip(s.Header, maxFieldName),
			Value: clip(s.Text, maxFieldValue),
		})
	}
	return embed
}

// allowedMentions lets the configured mention target ping; everything else
// is rendered inert.
func allowedMentions(msg notifications.Message) *discordgo.MessageAllowedMentions {
	if msg.Mention == "" {
		return &discordgo.MessageAllowedMentions{}
	}
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{
			discordgo.AllowedMentionTypeEveryone,
			discordgo.AllowedMentionTypeRoles,
			discordgo.AllowedMentionTypeUsers,
		},
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
