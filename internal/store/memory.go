package store

import (
	"sync"
	"time"

	"github.com/jpalmerr/labboard/internal/model"
)

const subscriberBuffer = 256

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive events via buffered channels. Sends are non-blocking;
// if a subscriber's buffer is full the event is dropped for that subscriber.
type MemoryStore struct {
	mu         sync.RWMutex
	generation string
	order      []string
	badges     map[string]Badge

	subscribers map[chan Event]struct{}
	subMu       sync.RWMutex

	now func() time.Time
}

// NewMemoryStore creates an empty store with no generation installed.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		badges:      make(map[string]Badge),
		subscribers: make(map[chan Event]struct{}),
		now:         time.Now,
	}
}

// Reset installs generation with every id unknown and notifies subscribers.
func (m *MemoryStore) Reset(generation string, ids []string) {
	m.mu.Lock()
	m.generation = generation
	m.order = append([]string(nil), ids...)
	m.badges = make(map[string]Badge, len(ids))
	for _, id := range ids {
		m.badges[id] = Badge{ID: id, Verdict: model.VerdictUnknown}
	}
	m.mu.Unlock()

	m.notifySubscribers(Event{Kind: KindRender, Generation: generation})
}

// Update resolves one badge of the current generation at most once.
func (m *MemoryStore) Update(h Handle, verdict model.Verdict) bool {
	m.mu.Lock()
	if h.Generation != m.generation {
		m.mu.Unlock()
		return false
	}
	badge, ok := m.badges[h.ID]
	if !ok || !badge.CheckedAt.IsZero() {
		m.mu.Unlock()
		return false
	}
	badge.Verdict = verdict
	badge.CheckedAt = m.now()
	m.badges[h.ID] = badge
	m.mu.Unlock()

	m.notifySubscribers(Event{Kind: KindBadge, Generation: h.Generation, Badge: &badge})
	return true
}

// Publish sends a non-badge event tagged with the current generation.
func (m *MemoryStore) Publish(kind string, payload any) {
	m.notifySubscribers(Event{Kind: kind, Generation: m.Generation(), Payload: payload})
}

// Generation returns the current render generation.
func (m *MemoryStore) Generation() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// GetAll returns a snapshot of the current badges in render order.
func (m *MemoryStore) GetAll() []Badge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Badge, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.badges[id])
	}
	return out
}

// Get returns the badge for id in the current generation.
func (m *MemoryStore) Get(id string) (Badge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.badges[id]
	return b, ok
}

// Subscribe creates a new subscription.
func (m *MemoryStore) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers is non-blocking: a full subscriber misses the event.
func (m *MemoryStore) notifySubscribers(ev Event) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
			// subscriber is slow, drop the event
		}
	}
}
