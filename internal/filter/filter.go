// Package filter decides which rendered server cards are visible for a
// free-text query and a set of active tag chips.
//
// A card is visible iff the query is empty or is a case-insensitive
// substring of the card's normalized name/ip/os/role/tags, and every active
// tag is present on the card. Active tags are conjunctive and order-free.
package filter

import (
	"sort"
	"strings"
	"sync"
)

// Entry is the filter metadata attached to one rendered card.
type Entry struct {
	ID       string
	Haystack string
	Tags     map[string]struct{}
}

// NewEntry builds an Entry from raw server fields. All keys are lowercased.
func NewEntry(id, name, ip, os, role string, tags []string) Entry {
	lowered := make([]string, 0, len(tags))
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		lt := strings.ToLower(t)
		lowered = append(lowered, lt)
		set[lt] = struct{}{}
	}

	haystack := strings.Join([]string{
		strings.ToLower(name),
		strings.ToLower(ip),
		strings.ToLower(os),
		strings.ToLower(role),
		strings.Join(lowered, " "),
	}, " ")

	return Entry{ID: id, Haystack: haystack, Tags: set}
}

// Query is a search string plus active tags.
type Query struct {
	Text string
	Tags []string
}

// Match reports whether e is visible under q.
func Match(e Entry, q Query) bool {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	if text != "" && !strings.Contains(e.Haystack, text) {
		return false
	}
	for _, t := range q.Tags {
		if _, ok := e.Tags[strings.ToLower(t)]; !ok {
			return false
		}
	}
	return true
}

// Index is the searchable set of rendered entries.
type Index struct {
	entries []Entry
}

// NewIndex returns an index over entries in render order.
func NewIndex(entries []Entry) *Index {
	return &Index{entries: append([]Entry(nil), entries...)}
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Visible returns the ids of entries matching q, in render order.
func (ix *Index) Visible(q Query) []string {
	ids := make([]string, 0, len(ix.entries))
	for _, e := range ix.entries {
		if Match(e, q) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// TagSet is the multi-select state of the tag bar.
type TagSet struct {
	mu     sync.RWMutex
	active map[string]struct{}
}

// NewTagSet returns an empty tag selection.
func NewTagSet() *TagSet {
	return &TagSet{active: make(map[string]struct{})}
}

// Toggle flips tag and reports whether it is now active.
func (ts *TagSet) Toggle(tag string) bool {
	tag = strings.ToLower(tag)

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, ok := ts.active[tag]; ok {
		delete(ts.active, tag)
		return false
	}
	ts.active[tag] = struct{}{}
	return true
}

// Active returns the active tags sorted.
func (ts *TagSet) Active() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	tags := make([]string, 0, len(ts.active))
	for t := range ts.active {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Clear deactivates every tag.
func (ts *TagSet) Clear() {
	ts.mu.Lock()
	ts.active = make(map[string]struct{})
	ts.mu.Unlock()
}
