package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/albapepper/gagwatch/internal/gardenapi"
	"github.com/albapepper/gagwatch/internal/icons"
	"github.com/albapepper/gagwatch/internal/metrics"
	"github.com/albapepper/gagwatch/internal/notifications"
)

// fakeSource serves whatever documents the test last set.
type fakeSource struct {
	mu         sync.Mutex
	stock      string
	restock    string
	weather    string
	stockErr   error
	restockErr error
	weatherErr error
	block      chan struct{} // when set, Stock waits on it
	calls      int
}

func (f *fakeSource) Stock(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	block := f.block
	f.calls++
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return []byte(f.stock), f.stockErr
}

func (f *fakeSource) RestockTimes(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []byte(f.restock), f.restockErr
}

func (f *fakeSource) Weather(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []byte(f.weather), f.weatherErr
}

func (f *fakeSource) setTimers(t *testing.T, timers map[string]int) {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"seedsStock":    []map[string]any{{"name": "Carrot", "value": 4}, {"name": "Beanstalk", "value": 1}},
		"restockTimers": timers,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	f.mu.Lock()
	f.stock = string(b)
	f.mu.Unlock()
}

func (f *fakeSource) setActive(t *testing.T, names ...string) {
	t.Helper()
	evts := make([]map[string]any, 0, len(names)+1)
	for _, n := range names {
		evts = append(evts, map[string]any{"name": n, "displayName": strings.ToUpper(n), "isActive": true})
	}
	evts = append(evts, map[string]any{"name": "frost", "isActive": false})
	b, err := json.Marshal(map[string]any{"events": evts})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	f.mu.Lock()
	f.weather = string(b)
	f.mu.Unlock()
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notifications.Message
	err  error
}

func (s *recordingSender) Send(ctx context.Context, channel string, msg notifications.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []notifications.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notifications.Message(nil), s.sent...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPoller(t *testing.T, src Source, sender notifications.Sender, opts Options) *Poller {
	t.Helper()
	tbl, err := icons.Default()
	if err != nil {
		t.Fatalf("icons: %v", err)
	}
	if opts.Interval == 0 {
		opts.Interval = time.Hour
	}
	d := notifications.NewDispatcher(sender, nil, "chan", quietLogger())
	return NewPoller(src, notifications.NewRenderer(tbl, 7, ""), d, opts, quietLogger())
}

func TestPollerRestockScenario(t *testing.T) {
	src := &fakeSource{restock: `{"seeds":{"countdown":"04:59"}}`, weather: `{"events":[]}`}
	sender := &recordingSender{}
	p := newTestPoller(t, src, sender, Options{})

	src.setTimers(t, map[string]int{"seeds": 3})
	if res := p.RunCycle(context.Background()); res.Err != nil || res.Restock.Fired {
		t.Fatalf("baseline cycle: %+v", res)
	}
	if len(sender.messages()) != 0 {
		t.Fatalf("no message expected on startup")
	}

	src.setTimers(t, map[string]int{"seeds": 7})
	res := p.RunCycle(context.Background())
	if !res.Restock.Fired || len(res.Sent) != 1 {
		t.Fatalf("restock cycle: %+v", res)
	}
	msgs := sender.messages()
	if len(msgs) != 1 || msgs[0].Kind != notifications.KindStock {
		t.Fatalf("messages=%+v", msgs)
	}
	if len(msgs[0].Sections) != 1 || msgs[0].Sections[0].Header != "🌱 Seeds (04:59)" {
		t.Fatalf("seeds section missing: %+v", msgs[0].Sections)
	}

	src.setTimers(t, map[string]int{"seeds": 2})
	if res := p.RunCycle(context.Background()); res.Restock.Fired {
		t.Fatalf("decrease must not fire: %+v", res)
	}
	if got := p.State().LastTimers(); got["seeds"] != 2 {
		t.Fatalf("baseline=%v", got)
	}
	if len(sender.messages()) != 1 {
		t.Fatalf("unexpected extra messages")
	}
}

func TestPollerEventScenario(t *testing.T) {
	src := &fakeSource{restock: `{}`}
	src.setTimers(t, nil)
	sender := &recordingSender{}
	p := newTestPoller(t, src, sender, Options{WeatherEnabled: true})

	steps := []struct {
		active []string
		fires  bool
	}{
		{nil, false},
		{[]string{"rain"}, true},
		{[]string{"rain", "thunderstorm"}, true},
		{[]string{"thunderstorm", "rain"}, true},
		{[]string{"thunderstorm", "rain"}, false},
	}
	sent := 0
	for i, st := range steps {
		src.setActive(t, st.active...)
		res := p.RunCycle(context.Background())
		if res.Err != nil {
			t.Fatalf("step %d: %v", i, res.Err)
		}
		if res.EventsChanged != st.fires {
			t.Fatalf("step %d: changed=%v want %v", i, res.EventsChanged, st.fires)
		}
		if st.fires {
			sent++
		}
	}

	msgs := sender.messages()
	if len(msgs) != sent {
		t.Fatalf("sent=%d want %d", len(msgs), sent)
	}
	if msgs[0].Description != "🌧️ RAIN – ?" {
		t.Fatalf("first event message=%q", msgs[0].Description)
	}
	if lines := strings.Split(msgs[2].Description, "\n"); len(lines) != 2 || !strings.Contains(lines[0], "THUNDERSTORM") {
		t.Fatalf("reordered message=%q", msgs[2].Description)
	}
}

func TestPollerEventsClearedPolicy(t *testing.T) {
	for _, announce := range []bool{false, true} {
		src := &fakeSource{restock: `{}`}
		src.setTimers(t, nil)
		sender := &recordingSender{}
		p := newTestPoller(t, src, sender, Options{WeatherEnabled: true, AnnounceEventsCleared: announce})

		src.setActive(t)
		p.RunCycle(context.Background())
		src.setActive(t, "rain")
		p.RunCycle(context.Background())
		src.setActive(t)
		res := p.RunCycle(context.Background())

		if !res.EventsChanged {
			t.Fatalf("clearing events is a change")
		}
		want := 1
		if announce {
			want = 2
		}
		if got := len(sender.messages()); got != want {
			t.Fatalf("announce=%v: sent=%d want %d", announce, got, want)
		}
	}
}

func TestPollerFetchFailureLeavesStateUntouched(t *testing.T) {
	boom := errors.New("connection reset")
	for _, endpoint := range []string{"stock", "restock", "weather"} {
		t.Run(endpoint, func(t *testing.T) {
			src := &fakeSource{restock: `{}`}
			src.setTimers(t, map[string]int{"seeds": 3})
			src.setActive(t, "rain")
			sender := &recordingSender{}
			p := newTestPoller(t, src, sender, Options{WeatherEnabled: true})
			p.RunCycle(context.Background())
			before := p.State()

			src.setTimers(t, map[string]int{"seeds": 50})
			src.setActive(t, "rain", "disco")
			switch endpoint {
			case "stock":
				src.stockErr = boom
			case "restock":
				src.restockErr = boom
			case "weather":
				src.weatherErr = boom
			}

			failedBefore := testutil.ToFloat64(metrics.FetchFailures.WithLabelValues(endpoint))
			res := p.RunCycle(context.Background())
			if !errors.Is(res.Err, boom) {
				t.Fatalf("err=%v", res.Err)
			}
			if !gardenapi.IsFetchFailure(res.Err) || gardenapi.EndpointOf(res.Err) != endpoint {
				t.Fatalf("err not tagged with endpoint %q: %v", endpoint, res.Err)
			}
			if !p.State().Equal(before) {
				t.Fatalf("failed cycle mutated detector state")
			}
			if len(sender.messages()) != 0 {
				t.Fatalf("failed cycle dispatched")
			}
			if d := testutil.ToFloat64(metrics.FetchFailures.WithLabelValues(endpoint)) - failedBefore; d != 1 {
				t.Fatalf("fetch failure counter delta=%v", d)
			}

			// The next successful cycle compares against the old baseline.
			src.stockErr, src.restockErr, src.weatherErr = nil, nil, nil
			res = p.RunCycle(context.Background())
			if !res.Restock.Fired || !res.EventsChanged {
				t.Fatalf("recovery cycle: %+v", res)
			}
		})
	}
}

func TestPollerDeliveryFailureKeepsRunning(t *testing.T) {
	src := &fakeSource{restock: `{}`}
	sender := &recordingSender{err: errors.New("missing access")}
	p := newTestPoller(t, src, sender, Options{})

	src.setTimers(t, map[string]int{"seeds": 1})
	p.RunCycle(context.Background())
	src.setTimers(t, map[string]int{"seeds": 5})
	res := p.RunCycle(context.Background())

	if res.Err != nil || len(res.Sent) != 1 || res.Sent[0].Status != notifications.StatusFailed {
		t.Fatalf("result=%+v", res)
	}
	if got := p.State().LastTimers(); got["seeds"] != 5 {
		t.Fatalf("state must advance after a delivery failure, got %v", got)
	}
}

func TestPollerWatchlistMention(t *testing.T) {
	src := &fakeSource{restock: `{}`}
	sender := &recordingSender{}
	p := newTestPoller(t, src, sender, Options{Watchlist: []string{"Beanstalk"}, MentionTarget: "<@&42>"})

	src.setTimers(t, map[string]int{"seeds": 1})
	p.RunCycle(context.Background())
	src.setTimers(t, map[string]int{"seeds": 2})
	p.RunCycle(context.Background())

	msgs := sender.messages()
	if len(msgs) != 1 || msgs[0].Mention != "<@&42> Watch-list in stock: Beanstalk" {
		t.Fatalf("messages=%+v", msgs)
	}
}

func TestPollerWeatherDisabledSkipsFetch(t *testing.T) {
	src := &fakeSource{restock: `{}`, weatherErr: errors.New("should not be called")}
	src.setTimers(t, nil)
	p := newTestPoller(t, src, &recordingSender{}, Options{WeatherEnabled: false})
	if res := p.RunCycle(context.Background()); res.Err != nil {
		t.Fatalf("weather must not be fetched: %v", res.Err)
	}
}

func TestTryCycleSkipsWhileBusy(t *testing.T) {
	src := &fakeSource{restock: `{}`, block: make(chan struct{})}
	src.setTimers(t, nil)
	p := newTestPoller(t, src, &recordingSender{}, Options{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ran := p.TryCycle(context.Background()); !ran {
			t.Errorf("first cycle should run")
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		src.mu.Lock()
		calls := src.calls
		src.mu.Unlock()
		if calls > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("first cycle never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	skippedBefore := testutil.ToFloat64(metrics.PollCyclesSkipped)
	if _, ran := p.TryCycle(context.Background()); ran {
		t.Fatalf("overlapping cycle must be skipped")
	}
	if d := testutil.ToFloat64(metrics.PollCyclesSkipped) - skippedBefore; d != 1 {
		t.Fatalf("skipped counter delta=%v", d)
	}

	close(src.block)
	<-done
	if _, ran := p.TryCycle(context.Background()); !ran {
		t.Fatalf("cycle should run once idle")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{restock: `{}`}
	src.setTimers(t, nil)
	p := newTestPoller(t, src, &recordingSender{}, Options{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(stopped)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		src.mu.Lock()
		calls := src.calls
		src.mu.Unlock()
		if calls >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("poller did not tick, calls=%d", calls)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestPollerKeepsSourceFetchError(t *testing.T) {
	src := &fakeSource{restock: `{}`}
	src.setTimers(t, nil)
	src.restockErr = &gardenapi.FetchError{Endpoint: gardenapi.EndpointRestock, Status: 503, Err: errors.New("busy")}
	p := newTestPoller(t, src, &recordingSender{}, Options{})

	res := p.RunCycle(context.Background())
	var fe *gardenapi.FetchError
	if !errors.As(res.Err, &fe) || fe.Status != 503 || fe.Endpoint != gardenapi.EndpointRestock {
		t.Fatalf("err=%#v", res.Err)
	}
}

func TestRunSkipsTicksWhileBusy(t *testing.T) {
	src := &fakeSource{restock: `{}`, block: make(chan struct{})}
	src.setTimers(t, nil)
	p := newTestPoller(t, src, &recordingSender{}, Options{Interval: 5 * time.Millisecond})

	skippedBefore := testutil.ToFloat64(metrics.PollCyclesSkipped)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(stopped)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(metrics.PollCyclesSkipped)-skippedBefore < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("ticks were not skipped while a cycle was running")
		}
		time.Sleep(5 * time.Millisecond)
	}

	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	if calls != 1 {
		t.Fatalf("overlapping cycles started: calls=%d", calls)
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
