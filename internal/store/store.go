package store

import (
	"time"

	"github.com/jpalmerr/labboard/internal/model"
)

// Event kinds published to subscribers.
const (
	KindRender      = "render"
	KindBadge       = "badge"
	KindValidation  = "validation"
	KindDiscoveries = "discoveries"
	KindFilter      = "filter"
	KindEditor      = "editor"
)

// Handle identifies one badge within one render generation.
type Handle struct {
	Generation string
	ID         string
}

// Badge is the current verdict of one rendered server.
type Badge struct {
	// ID is the render identity of the server card.
	ID string `json:"id"`

	// Verdict is "unknown" until the probe for this generation resolves.
	Verdict model.Verdict `json:"verdict"`

	// CheckedAt is zero until a verdict arrives.
	CheckedAt time.Time `json:"checked_at"`
}

// Event is a change notification for dashboard clients.
type Event struct {
	Kind       string `json:"kind"`
	Generation string `json:"generation"`
	Badge      *Badge `json:"badge,omitempty"`
	Payload    any    `json:"payload,omitempty"`
}

// Store defines badge storage and change subscription.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Reset installs a new render generation; every id starts as unknown.
	Reset(generation string, ids []string)

	// Update resolves the badge named by h. It reports false, and changes
	// nothing, if h belongs to an older generation, names an id that does
	// not exist, or the badge already holds a verdict for this round.
	Update(h Handle, verdict model.Verdict) bool

	// Publish sends a non-badge event to subscribers.
	Publish(kind string, payload any)

	// Generation returns the current render generation.
	Generation() string

	// GetAll returns the badges of the current generation in render order.
	GetAll() []Badge

	// Subscribe returns a channel that receives events.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Event

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Event)
}
