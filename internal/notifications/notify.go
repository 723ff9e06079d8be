// Package notifications decides when a Grow a Garden snapshot is worth
// announcing and turns snapshots into chat messages.
//
// Pipeline: detect transitions → render message → dispatch via a Sender →
// record the attempt in the delivery history.
package notifications

import "time"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	maxSectionItems = 25 // chat embeds reject longer field lists
	deliveryTimeout = 10 * time.Second

	stockColor  = 0x4caf50
	eventColor  = 0xffc107
	errorColor  = 0xe53935
	clockLayout = "15:04"

	noEventsLine   = "No active weather or events right now."
	unknownValue   = "?"
	defaultFooter  = "gagwatch • posted automatically on every restock"
	watchlistLabel = "Watch-list in stock:"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Kind identifies what a message announces.
type Kind string

const (
	KindStock   Kind = "stock"
	KindEvents  Kind = "events"
	KindFailure Kind = "failure"
)

// Section is one titled block of a message.
type Section struct {
	Header string `json:"header"`
	Text   string `json:"text"`
}

// Message is a rendered notification, independent of the chat platform.
type Message struct {
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Sections    []Section `json:"sections,omitempty"`
	Mention     string    `json:"mention,omitempty"`
	Footer      string    `json:"footer,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Color       int       `json:"color"`
}

// Delivery is one recorded dispatch attempt.
type Delivery struct {
	ID        string    `json:"id"`
	CycleID   string    `json:"cycle_id,omitempty"`
	Kind      Kind      `json:"kind"`
	Channel   string    `json:"channel"`
	Title     string    `json:"title"`
	Status    string    `json:"status"` // "sent" | "failed"
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Delivery statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)
