package discord

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/albapepper/gagwatch/internal/notifications"
)

// webhookAPI is the subset of *discordgo.Session used for webhook delivery.
type webhookAPI interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Webhook posts notifications through an incoming webhook. No bot token or
// gateway connection is needed.
type Webhook struct {
	api   webhookAPI
	id    string
	token string
}

// NewWebhook parses a URL of the form
// https://discord.com/api/webhooks/{id}/{token}.
func NewWebhook(rawURL string) (*Webhook, error) {
	id, token, err := parseWebhookURL(rawURL)
	if err != nil {
		return nil, err
	}
	s, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &Webhook{api: s, id: id, token: token}, nil
}

// Channel returns a stable reference for logs and history.
func (w *Webhook) Channel() string {
	return "webhook:" + w.id
}

// Send executes the webhook. The channel argument is ignored; a webhook is
// bound to one channel.
func (w *Webhook) Send(ctx context.Context, _ string, msg notifications.Message) error {
	_, err := w.api.WebhookExecute(w.id, w.token, false, &discordgo.WebhookParams{
		Content:         msg.Mention,
		Embeds:          []*discordgo.MessageEmbed{toEmbed(msg)},
		AllowedMentions: allowedMentions(msg),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return &notifications.DeliveryError{Channel: w.Channel(), Err: err}
	}
	return nil
}

func parseWebhookURL(rawURL string) (id, token string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse webhook URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", "", fmt.Errorf("webhook URL must be http(s), got %q", u.Scheme)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook URL has no /webhooks/{id}/{token} path: %q", u.Path)
}
