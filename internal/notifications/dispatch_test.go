package notifications

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/albapepper/gagwatch/internal/metrics"
)

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []Message
}

func (f *fakeSender) Send(ctx context.Context, channel string, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type memHistory struct {
	mu   sync.Mutex
	rows []Delivery
	err  error
}

func (h *memHistory) Record(ctx context.Context, d Delivery) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rows = append(h.rows, d)
	return h.err
}

func (h *memHistory) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	return h.rows, nil
}

func (h *memHistory) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchSuccess(t *testing.T) {
	sender := &fakeSender{}
	hist := &memHistory{}
	d := NewDispatcher(sender, hist, "chan-1", quietLogger())

	before := testutil.ToFloat64(metrics.Notifications.WithLabelValues("stock", StatusSent))
	rec := d.Dispatch(context.Background(), "", Message{Kind: KindStock, Title: "t"})

	if rec.Status != StatusSent || rec.Channel != "chan-1" || rec.ID == "" {
		t.Fatalf("record=%+v", rec)
	}
	if len(sender.sent) != 1 || len(hist.rows) != 1 {
		t.Fatalf("sent=%d recorded=%d", len(sender.sent), len(hist.rows))
	}
	after := testutil.ToFloat64(metrics.Notifications.WithLabelValues("stock", StatusSent))
	if after-before != 1 {
		t.Fatalf("sent counter delta=%v", after-before)
	}
}

func TestDispatchFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("403 missing access")}
	hist := &memHistory{err: errors.New("db down")}
	d := NewDispatcher(sender, hist, "chan-1", quietLogger())

	before := testutil.ToFloat64(metrics.Notifications.WithLabelValues("events", StatusFailed))
	rec := d.Dispatch(context.Background(), "cycle", Message{Kind: KindEvents})

	if rec.Status != StatusFailed || rec.Error == "" {
		t.Fatalf("record=%+v", rec)
	}
	if len(hist.rows) != 1 {
		t.Fatalf("failed delivery must still be recorded")
	}
	after := testutil.ToFloat64(metrics.Notifications.WithLabelValues("events", StatusFailed))
	if after-before != 1 {
		t.Fatalf("failed counter delta=%v", after-before)
	}
}

func TestDeliveryError(t *testing.T) {
	base := errors.New("boom")
	err := error(&DeliveryError{Channel: "c", Err: base})
	if !IsDeliveryFailure(err) || !errors.Is(err, base) {
		t.Fatalf("DeliveryError must unwrap: %v", err)
	}
	if IsDeliveryFailure(base) {
		t.Fatalf("plain error is not a delivery failure")
	}
}

func TestNilPGHistoryIsNoop(t *testing.T) {
	var h *PGHistory
	if err := h.Record(context.Background(), Delivery{}); err != nil {
		t.Fatalf("record: %v", err)
	}
	rows, err := h.Recent(context.Background(), 10)
	if err != nil || rows != nil {
		t.Fatalf("recent=%v, %v", rows, err)
	}
	if NewPGHistory(nil) != nil {
		t.Fatalf("NewPGHistory(nil) should be nil")
	}
}

func TestPlainText(t *testing.T) {
	msg := Message{
		Title:    "T",
		Mention:  "@here x",
		Sections: []Section{{Header: "H", Text: "a\nb"}},
		Footer:   "F",
	}
	want := "@here x\nT\n\nH\na\nb\n\nF"
	if got := PlainText(msg); got != want {
		t.Fatalf("plain=%q want %q", got, want)
	}
	if err := NewLogSender(quietLogger()).Send(context.Background(), "c", msg); err != nil {
		t.Fatalf("log sender: %v", err)
	}
}

func TestDispatchKeepsSenderDeliveryError(t *testing.T) {
	sender := &fakeSender{err: &DeliveryError{Channel: "webhook:9", Err: errors.New("429")}}
	d := NewDispatcher(sender, nil, "123", quietLogger())

	rec := d.Dispatch(context.Background(), "", Message{Kind: KindEvents, Title: "Active Events – 15:30"})
	if rec.Status != StatusFailed {
		t.Fatalf("status=%q", rec.Status)
	}
	if want := `deliver to channel "webhook:9": 429`; rec.Error != want {
		t.Fatalf("error=%q, want %q", rec.Error, want)
	}
}
