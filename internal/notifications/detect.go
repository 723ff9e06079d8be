package notifications

import (
	"maps"
	"slices"
	"sort"

	"github.com/albapepper/gagwatch/internal/snapshot"
)

// DetectorState remembers what the previous poll cycle saw. It is owned by
// a single poller and must not be shared with the on-demand query path.
//
// Both detectors suppress their first call: whatever is already true when
// the process starts is a baseline, not a transition.
type DetectorState struct {
	lastTimers           map[string]int // nil until the first stock snapshot
	lastActiveEventNames []string
	eventsPrimed         bool
}

// NewDetectorState returns an empty state.
func NewDetectorState() *DetectorState {
	return &DetectorState{}
}

// RestockResult is the outcome of ClassifyRestock.
type RestockResult struct {
	Fired   bool
	Changed []string // timer keys whose value increased, sorted
}

// ClassifyRestock reports whether the restock timers were reset since the
// previous call. Timers count down towards zero and jump back up on
// restock, so any increase is a restock for the whole snapshot.
func (s *DetectorState) ClassifyRestock(current map[string]int) RestockResult {
	if s.lastTimers == nil {
		s.lastTimers = copyTimers(current)
		return RestockResult{}
	}
	if len(current) == 0 {
		return RestockResult{}
	}

	var changed []string
	for k, v := range current {
		if v > s.lastTimers[k] {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)

	s.lastTimers = copyTimers(current)
	return RestockResult{Fired: len(changed) > 0, Changed: changed}
}

// ClassifyEventChange reports whether the ordered list of active event
// names differs from the previous call. A reordering counts as a change.
func (s *DetectorState) ClassifyEventChange(active []snapshot.Event) bool {
	names := make([]string, 0, len(active))
	for _, ev := range active {
		names = append(names, ev.Name)
	}

	primed := s.eventsPrimed
	changed := !slices.Equal(names, s.lastActiveEventNames)

	s.lastActiveEventNames = names
	s.eventsPrimed = true
	return primed && changed
}

// Snapshot returns a deep copy of the state.
func (s *DetectorState) Snapshot() DetectorState {
	return DetectorState{
		lastTimers:           copyTimersKeepNil(s.lastTimers),
		lastActiveEventNames: slices.Clone(s.lastActiveEventNames),
		eventsPrimed:         s.eventsPrimed,
	}
}

// Equal reports whether two states are identical, including whether the
// timer baseline has been set.
func (s DetectorState) Equal(o DetectorState) bool {
	return (s.lastTimers == nil) == (o.lastTimers == nil) &&
		maps.Equal(s.lastTimers, o.lastTimers) &&
		slices.Equal(s.lastActiveEventNames, o.lastActiveEventNames) &&
		s.eventsPrimed == o.eventsPrimed
}

// LastTimers returns a copy of the timer baseline, nil before the first
// stock snapshot.
func (s DetectorState) LastTimers() map[string]int {
	return copyTimersKeepNil(s.lastTimers)
}

// LastActiveEventNames returns a copy of the remembered event names.
func (s DetectorState) LastActiveEventNames() []string {
	return slices.Clone(s.lastActiveEventNames)
}

func copyTimers(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	maps.Copy(out, m)
	return out
}

func copyTimersKeepNil(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	return copyTimers(m)
}
