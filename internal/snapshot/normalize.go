package snapshot

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeStock maps the stock document into a Stock. Unknown category
// fields are ignored.
func NormalizeStock(raw []byte) Stock {
	out := Stock{
		Items:         make(map[string][]Item),
		RestockTimers: make(map[string]int),
	}

	doc, ok := decodeObject(raw)
	if !ok {
		return out
	}

	for _, c := range Categories {
		list, _ := doc[c.Field].([]interface{})
		for _, entry := range list {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			out.Items[c.Key] = append(out.Items[c.Key], normalizeItem(obj))
		}
	}

	if timers, ok := doc["restockTimers"].(map[string]interface{}); ok {
		for k, v := range timers {
			if n, ok := extractInt(v); ok {
				out.RestockTimers[k] = n
			}
		}
	}
	return out
}

func normalizeItem(obj map[string]interface{}) Item {
	it := Item{
		Name: stringField(obj, "name"),
		Icon: stringField(obj, "emoji"),
	}
	if it.Name == "" {
		it.Name = "?"
	}
	if n, ok := extractInt(obj["value"]); ok {
		it.Quantity = max(n, 0)
		it.HasQuantity = true
	}
	return it
}

// NormalizeCountdown maps the restock-time document. Keys are lower-cased
// and stripped of their "stock" suffix so they line up with
// Category.CountdownKey. Entries may be objects with a "countdown" field
// or plain strings.
func NormalizeCountdown(raw []byte) Countdown {
	out := make(Countdown)
	doc, ok := decodeObject(raw)
	if !ok {
		return out
	}
	for k, v := range doc {
		var text string
		switch val := v.(type) {
		case map[string]interface{}:
			text = stringField(val, "countdown")
		case string:
			text = val
		}
		if text != "" {
			out[countdownKey(k)] = text
		}
	}
	return out
}

// NormalizeEvents maps the weather document. Both {"events": [...]} and a
// bare array are accepted. Entries without a name are dropped since the
// name is their identity.
func NormalizeEvents(raw []byte) Events {
	var list []interface{}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Events{}
	}
	switch doc := v.(type) {
	case map[string]interface{}:
		list, _ = doc["events"].([]interface{})
	case []interface{}:
		list = doc
	}

	out := make(Events, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		name := stringField(obj, "name")
		if name == "" {
			continue
		}
		ev := Event{
			Name:          name,
			DisplayName:   stringField(obj, "displayName"),
			Icon:          stringField(obj, "emoji"),
			TimeRemaining: stringField(obj, "timeRemaining"),
		}
		ev.IsActive = truthy(obj["isActive"])
		if ev.DisplayName == "" {
			ev.DisplayName = name
		}
		out = append(out, ev)
	}
	return out
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func decodeObject(raw []byte) (map[string]interface{}, bool) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}

func stringField(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// truthy reads a loosely typed flag: booleans, non-zero numbers, and
// strings that parse as either. Other strings such as "yes" count as false.
func truthy(val interface{}) bool {
	switch v := val.(type) {
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		s := strings.TrimSpace(v)
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0 && !math.IsNaN(f)
		}
		return false
	default:
		return false
	}
}

// extractInt accepts JSON numbers and numeric strings. Fractions are
// truncated; NaN and infinities are rejected.
func extractInt(val interface{}) (int, bool) {
	switch v := val.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		// float64(math.MaxInt) rounds up to 2^63, so both bounds are inclusive.
		if v >= float64(math.MaxInt) {
			return math.MaxInt, true
		}
		if v <= float64(math.MinInt) {
			return math.MinInt, true
		}
		return int(v), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return extractInt(f)
		}
		return 0, false
	default:
		return 0, false
	}
}
