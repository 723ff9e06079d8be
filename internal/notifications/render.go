package notifications

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/gagwatch/internal/icons"
	"github.com/albapepper/gagwatch/internal/snapshot"
)

// Renderer turns snapshots into messages. It holds only configuration and
// has no state of its own.
type Renderer struct {
	Icons    *icons.Table
	Location *time.Location // timestamp zone; UTC when nil
	Footer   string
}

// NewRenderer creates a renderer that stamps times at a fixed UTC offset.
func NewRenderer(table *icons.Table, utcOffsetHours int, footer string) Renderer {
	if footer == "" {
		footer = defaultFooter
	}
	loc := time.FixedZone(fmt.Sprintf("UTC%+d", utcOffsetHours), utcOffsetHours*3600)
	return Renderer{Icons: table, Location: loc, Footer: footer}
}

func (r Renderer) clock(now time.Time) string {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(clockLayout)
}

// Stock renders the full stock snapshot. Empty categories are skipped and
// each category lists at most 25 items in source order.
func (r Renderer) Stock(stock snapshot.Stock, countdown snapshot.Countdown, now time.Time) Message {
	msg := Message{
		Kind:      KindStock,
		Title:     fmt.Sprintf("Grow a Garden Stock – %s", r.clock(now)),
		Footer:    r.Footer,
		Timestamp: now,
		Color:     stockColor,
	}

	for _, cat := range snapshot.Categories {
		items := stock.CategoryItems(cat.Key)
		if len(items) == 0 {
			continue
		}

		header := r.Icons.Label(cat.Key)
		if cd := countdown.For(cat); cd != "" {
			header += fmt.Sprintf(" (%s)", cd)
		}

		lines := make([]string, 0, min(len(items), maxSectionItems))
		for _, it := range items[:min(len(items), maxSectionItems)] {
			lines = append(lines, r.itemLine(it))
		}
		msg.Sections = append(msg.Sections, Section{Header: header, Text: strings.Join(lines, "\n")})
	}
	return msg
}

func (r Renderer) itemLine(it snapshot.Item) string {
	icon := it.Icon
	if icon == "" {
		icon = r.Icons.Item(it.Name)
	}
	qty := unknownValue
	if it.HasQuantity {
		qty = strconv.Itoa(it.Quantity)
	}
	return strings.TrimLeft(fmt.Sprintf("%s %s: %s", icon, it.Name, qty), " ")
}

// Events renders the active events, one line each.
func (r Renderer) Events(active []snapshot.Event, now time.Time) Message {
	msg := Message{
		Kind:      KindEvents,
		Title:     fmt.Sprintf("Active Events – %s", r.clock(now)),
		Footer:    r.Footer,
		Timestamp: now,
		Color:     eventColor,
	}
	if len(active) == 0 {
		msg.Description = noEventsLine
		return msg
	}

	lines := make([]string, 0, len(active))
	for _, ev := range active {
		icon := ev.Icon
		if icon == "" {
			icon = r.Icons.Event(ev.Name)
		}
		rem := ev.TimeRemaining
		if rem == "" {
			rem = unknownValue
		}
		lines = append(lines, strings.TrimLeft(fmt.Sprintf("%s %s – %s", icon, ev.DisplayName, rem), " "))
	}
	msg.Description = strings.Join(lines, "\n")
	return msg
}

// Failure renders the short reply sent when an on-demand query fails.
func (r Renderer) Failure(what string, now time.Time) Message {
	return Message{
		Kind:      KindFailure,
		Title:     fmt.Sprintf("Failed to fetch %s.", what),
		Timestamp: now,
		Color:     errorColor,
	}
}

// WatchlistMention returns an alert line naming every watch-listed item
// present in the snapshot, or "" when none are. Matching is exact.
func WatchlistMention(stock snapshot.Stock, watchlist []string, mentionTarget string) string {
	if len(watchlist) == 0 {
		return ""
	}

	var found []string
	for _, name := range stock.Names() {
		if slices.Contains(watchlist, name) && !slices.Contains(found, name) {
			found = append(found, name)
		}
	}
	if len(found) == 0 {
		return ""
	}

	line := fmt.Sprintf("%s %s", watchlistLabel, strings.Join(found, ", "))
	if mentionTarget != "" {
		line = mentionTarget + " " + line
	}
	return line
}
