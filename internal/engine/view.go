package engine

import (
	"github.com/jpalmerr/labboard/internal/filter"
	"github.com/jpalmerr/labboard/internal/render"
	"github.com/jpalmerr/labboard/internal/store"
	"github.com/jpalmerr/labboard/internal/validate"
)

// Snapshot is the dashboard state as shown to the operator.
type Snapshot struct {
	render.View

	Badges  []store.Badge `json:"badges"`
	Visible []string      `json:"visible"`

	Query      string   `json:"query"`
	ActiveTags []string `json:"active_tags"`

	Source           string          `json:"source"`
	OverrideDiverges bool            `json:"override_diverges"`
	Validation       validate.Result `json:"validation"`
}

// FilterState is the applied search text and active tags.
type FilterState struct {
	Query      string   `json:"query"`
	ActiveTags []string `json:"active_tags"`
}

// View returns the rendered dashboard with live badges and the cards
// visible under the engine's filter state.
func (e *Engine) View() Snapshot {
	return e.snapshot(nil)
}

// ViewWith is [Engine.View] evaluated under q instead of the engine's
// filter state. The engine's state is not modified.
func (e *Engine) ViewWith(q filter.Query) Snapshot {
	return e.snapshot(&q)
}

func (e *Engine) snapshot(q *filter.Query) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	query := filter.Query{Text: e.queryText, Tags: e.tags.Active()}
	if q != nil {
		query = *q
	}
	if query.Tags == nil {
		query.Tags = []string{}
	}

	return Snapshot{
		View:             e.view,
		Badges:           e.board.GetAll(),
		Visible:          e.index.Visible(query),
		Query:            query.Text,
		ActiveTags:       query.Tags,
		Source:           e.resolution.Source,
		OverrideDiverges: e.resolution.OverrideDiverges,
		Validation:       e.validator.Latest(),
	}
}

// SetQuery updates the search text after the filter debounce window.
func (e *Engine) SetQuery(text string) {
	e.query.Schedule(func() {
		e.mu.Lock()
		e.queryText = text
		e.mu.Unlock()
		e.publishFilter()
	})
}

// FlushQuery applies a pending search update now.
func (e *Engine) FlushQuery() bool {
	return e.query.Flush()
}

// ToggleTag flips one tag chip and applies it immediately. It reports
// whether the tag is now active.
func (e *Engine) ToggleTag(tag string) bool {
	active := e.tags.Toggle(tag)
	e.publishFilter()
	return active
}

// ClearTags deactivates every tag chip.
func (e *Engine) ClearTags() {
	e.tags.Clear()
	e.publishFilter()
}

// Filter returns the applied filter state.
func (e *Engine) Filter() FilterState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return FilterState{Query: e.queryText, ActiveTags: e.tags.Active()}
}

func (e *Engine) publishFilter() {
	e.board.Publish(store.KindFilter, e.Filter())
}
