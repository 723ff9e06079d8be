package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/albapepper/gagwatch/internal/notifications"
)

const commandTimeout = 20 * time.Second

// Querier answers on-demand requests. Satisfied by *watcher.Query.
type Querier interface {
	Stock(ctx context.Context) (notifications.Message, error)
	Weather(ctx context.Context) (notifications.Message, error)
}

// channelAPI is the subset of *discordgo.Session used to post messages.
type channelAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// interactionAPI is the subset of *discordgo.Session used to answer commands.
type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var commands = []*discordgo.ApplicationCommand{
	{Name: "stock", Description: "Show the current Grow a Garden shop stock"},
	{Name: "weather", Description: "Show active Grow a Garden weather and events"},
}

// Bot posts notifications with a bot token and serves slash commands.
type Bot struct {
	session  *discordgo.Session
	channels channelAPI
	replies  interactionAPI
	query    Querier
	guildID  string
	logger   *slog.Logger

	registered []*discordgo.ApplicationCommand
	removeFn   func()
}

// NewBot creates a bot client. query may be nil to disable slash commands.
func NewBot(token, guildID string, query Querier, logger *slog.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("discord: empty bot token")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return &Bot{
		session:  s,
		channels: s,
		replies:  s,
		query:    query,
		guildID:  guildID,
		logger:   logger,
	}, nil
}

// Open connects to the gateway and registers slash commands.
func (b *Bot) Open() error {
	if b.query != nil {
		b.removeFn = b.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			b.handleInteraction(i)
		})
	}
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord gateway: %w", err)
	}
	if b.query == nil || b.session.State == nil || b.session.State.User == nil {
		return nil
	}

	appID := b.session.State.User.ID
	for _, cmd := range commands {
		created, err := b.session.ApplicationCommandCreate(appID, b.guildID, cmd)
		if err != nil {
			return fmt.Errorf("register /%s: %w", cmd.Name, err)
		}
		b.registered = append(b.registered, created)
	}
	b.logger.Info("Discord connected",
		"user", b.session.State.User.Username,
		"guild", b.guildID,
		"commands", len(b.registered))
	return nil
}

// Close removes registered commands and disconnects.
func (b *Bot) Close() error {
	if b.removeFn != nil {
		b.removeFn()
	}
	if b.session.State != nil && b.session.State.User != nil {
		appID := b.session.State.User.ID
		for _, cmd := range b.registered {
			if err := b.session.ApplicationCommandDelete(appID, b.guildID, cmd.ID); err != nil {
				b.logger.Warn("Failed to remove command", "command", cmd.Name, "error", err)
			}
		}
	}
	b.registered = nil
	return b.session.Close()
}

// Send posts msg to channel as an embed, with the mention as plain content.
func (b *Bot) Send(ctx context.Context, channel string, msg notifications.Message) error {
	if channel == "" {
		return errors.New("discord: no channel configured")
	}
	_, err := b.channels.ChannelMessageSendComplex(channel, &discordgo.MessageSend{
		Content:         msg.Mention,
		Embeds:          []*discordgo.MessageEmbed{toEmbed(msg)},
		AllowedMentions: allowedMentions(msg),
	}, discordgo.WithContext(ctx))
	return err
}

// handleInteraction defers the reply, runs the query and posts a follow-up.
// Queries can outlast Discord's three second acknowledgement window.
func (b *Bot) handleInteraction(i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name

	var load func(context.Context) (notifications.Message, error)
	switch name {
	case "stock":
		load = b.query.Stock
	case "weather":
		load = b.query.Weather
	default:
		return
	}

	if err := b.replies.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		b.logger.Warn("Failed to acknowledge command", "command", name, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	// On error the query already returns the short failure reply.
	msg, err := load(ctx)
	if err != nil {
		b.logger.Warn("Command query failed", "command", name, "error", err)
	}

	if _, err := b.replies.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds:          []*discordgo.MessageEmbed{toEmbed(msg)},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("Failed to answer command", "command", name, "error", err)
	}
}
