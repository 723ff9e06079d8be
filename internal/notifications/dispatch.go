package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/gagwatch/internal/metrics"
)

// Dispatcher sends messages through a Sender and records every attempt.
// Failures are logged and swallowed: delivery is never retried here.
type Dispatcher struct {
	sender  Sender
	history History
	channel string
	logger  *slog.Logger
	timeout time.Duration
}

// NewDispatcher creates a dispatcher for one destination channel.
// history may be nil.
func NewDispatcher(sender Sender, history History, channel string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if history == nil {
		history = noHistory{}
	}
	return &Dispatcher{
		sender:  sender,
		history: history,
		channel: channel,
		logger:  logger,
		timeout: deliveryTimeout,
	}
}

// Dispatch delivers msg and returns the recorded attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, cycleID string, msg Message) Delivery {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	rec := Delivery{
		ID:        uuid.NewString(),
		CycleID:   cycleID,
		Kind:      msg.Kind,
		Channel:   d.channel,
		Title:     msg.Title,
		Status:    StatusSent,
		CreatedAt: time.Now().UTC(),
	}

	if err := d.sender.Send(sendCtx, d.channel, msg); err != nil {
		if !IsDeliveryFailure(err) {
			err = &DeliveryError{Channel: d.channel, Err: err}
		}
		rec.Status = StatusFailed
		rec.Error = err.Error()
		d.logger.Warn("send failed", "kind", msg.Kind, "cycle_id", cycleID, "error", err)
	} else {
		d.logger.Info("Notification sent", "kind", msg.Kind, "cycle_id", cycleID, "title", msg.Title)
	}
	metrics.Notifications.WithLabelValues(string(msg.Kind), rec.Status).Inc()

	if err := d.history.Record(ctx, rec); err != nil {
		d.logger.Warn("record delivery failed", "delivery_id", rec.ID, "error", err)
	}
	return rec
}
