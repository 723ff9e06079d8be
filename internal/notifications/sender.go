package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sender delivers a rendered message to a chat channel.
type Sender interface {
	Send(ctx context.Context, channel string, msg Message) error
}

// DeliveryError wraps a failed send.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to channel %q: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsDeliveryFailure reports whether err came from a Sender.
func IsDeliveryFailure(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// LogSender writes messages to the log instead of a chat channel.
// Used for dry runs and when no chat credentials are configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(ctx context.Context, channel string, msg Message) error {
	s.logger.Info("Notification (dry run)",
		"channel", channel,
		"kind", msg.Kind,
		"title", msg.Title,
		"mention", msg.Mention,
		"body", PlainText(msg))
	return nil
}

// PlainText flattens a message into text, one section after another.
func PlainText(msg Message) string {
	var b strings.Builder
	if msg.Mention != "" {
		b.WriteString(msg.Mention)
		b.WriteString("\n")
	}
	b.WriteString(msg.Title)
	if msg.Description != "" {
		b.WriteString("\n")
		b.WriteString(msg.Description)
	}
	for _, s := range msg.Sections {
		b.WriteString("\n\n")
		b.WriteString(s.Header)
		b.WriteString("\n")
		b.WriteString(s.Text)
	}
	if msg.Footer != "" {
		b.WriteString("\n\n")
		b.WriteString(msg.Footer)
	}
	return b.String()
}
