// Package snapshot holds the normalized view of the Grow a Garden API:
// stock per category, restock countdowns and weather events.
//
// Documents arrive as loosely shaped JSON. Normalization never fails;
// missing or malformed fields degrade to empty values so that one odd
// payload cannot stop a poll cycle.
package snapshot

import "strings"

// --------------------------------------------------------------------------
// Categories
// --------------------------------------------------------------------------

// Category is one of the fixed stock categories.
type Category struct {
	Key   string // seeds, gear, eggs, ...
	Field string // field name in the stock document
}

// CountdownKey is the key used by the restock-time document: the field
// lower-cased with its "stock" suffix stripped ("eggStock" -> "egg").
func (c Category) CountdownKey() string {
	return countdownKey(c.Field)
}

// Categories lists every category in display order.
var Categories = []Category{
	{Key: "seeds", Field: "seedsStock"},
	{Key: "gear", Field: "gearStock"},
	{Key: "eggs", Field: "eggStock"},
	{Key: "honey", Field: "honeyStock"},
	{Key: "night", Field: "nightStock"},
	{Key: "easter", Field: "easterStock"},
}

// LookupCategory returns the category with the given key.
func LookupCategory(key string) (Category, bool) {
	for _, c := range Categories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

func countdownKey(s string) string {
	return strings.TrimSuffix(strings.ToLower(s), "stock")
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Item is a single stock entry.
type Item struct {
	Name        string
	Quantity    int // never negative
	HasQuantity bool
	Icon        string // source-provided icon, may be empty
}

// Stock is one snapshot of the stock endpoint.
type Stock struct {
	Items         map[string][]Item // category key -> items in source order
	RestockTimers map[string]int
}

// CategoryItems returns the items for a category key (nil when empty).
func (s Stock) CategoryItems(key string) []Item {
	if s.Items == nil {
		return nil
	}
	return s.Items[key]
}

// Names returns every item name in category order, then source order.
func (s Stock) Names() []string {
	var names []string
	for _, c := range Categories {
		for _, it := range s.CategoryItems(c.Key) {
			names = append(names, it.Name)
		}
	}
	return names
}

// Countdown maps a countdown key (see Category.CountdownKey) to its text.
type Countdown map[string]string

// For returns the countdown text for a category, or "".
func (c Countdown) For(cat Category) string {
	if c == nil {
		return ""
	}
	return c[cat.CountdownKey()]
}

// Event is one weather or event entry.
type Event struct {
	Name          string // stable identity
	DisplayName   string
	IsActive      bool
	Icon          string
	TimeRemaining string
}

// Events is the ordered event list from the weather endpoint.
type Events []Event

// Active returns the active entries in source order.
func (e Events) Active() []Event {
	var out []Event
	for _, ev := range e {
		if ev.IsActive {
			out = append(out, ev)
		}
	}
	return out
}
