// Package validate delegates configuration schema checks to the backend.
//
// Results are advisory: the validator never touches the editor buffer and
// never blocks editing. Text that does not parse locally is reported as
// invalid without a network round trip.
package validate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/labboard/internal/api"
	"github.com/jpalmerr/labboard/internal/debounce"
)

// DefaultDelay is the idle window between the last edit and a check.
const DefaultDelay = 400 * time.Millisecond

// State is the outcome of one check.
type State string

const (
	StateIdle    State = "idle"
	StateValid   State = "valid"
	StateInvalid State = "invalid"
)

// Result is the latest validation verdict for a buffer text.
type Result struct {
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// Valid reports whether the backend accepted the text.
func (r Result) Valid() bool {
	return r.State == StateValid
}

// Backend is the subset of the API client used for validation.
type Backend interface {
	Validate(ctx context.Context, raw []byte) error
}

// Validator checks text on demand or after a debounce window.
type Validator struct {
	backend  Backend
	debounce *debounce.Debouncer
	sink     func(Result)
	logger   *slog.Logger

	mu     sync.Mutex
	seq    uint64
	latest Result
}

// New creates a validator. sink receives every published result and may be
// nil. A non-positive delay selects [DefaultDelay].
func New(backend Backend, delay time.Duration, sink func(Result), logger *slog.Logger) *Validator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		backend:  backend,
		debounce: debounce.New(delay),
		sink:     sink,
		logger:   logger,
		latest:   Result{State: StateIdle},
	}
}

// Check validates text immediately. Only JSON syntax is checked locally;
// the schema is the backend's to judge.
func (v *Validator) Check(ctx context.Context, text string) Result {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return Result{State: StateInvalid, Reason: "parse error: " + err.Error()}
	}

	err := v.backend.Validate(ctx, []byte(text))
	if err == nil {
		return Result{State: StateValid}
	}

	var se *api.StatusError
	if errors.As(err, &se) {
		return Result{State: StateInvalid, Reason: se.Reason()}
	}
	v.logger.Warn("validation request failed", "error", err)
	return Result{State: StateInvalid, Reason: err.Error()}
}

// Submit schedules a check of text after the debounce window. Only the
// result for the most recently submitted text is published.
func (v *Validator) Submit(text string) {
	v.mu.Lock()
	v.seq++
	seq := v.seq
	v.mu.Unlock()

	v.debounce.Schedule(func() {
		res := v.Check(context.Background(), text)
		v.publish(seq, res)
	})
}

// Flush runs a pending check now. It reports whether one was pending.
func (v *Validator) Flush() bool {
	return v.debounce.Flush()
}

// Stop cancels any pending check.
func (v *Validator) Stop() {
	v.debounce.Cancel()
}

// Latest returns the most recently published result.
func (v *Validator) Latest() Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest
}

func (v *Validator) publish(seq uint64, res Result) {
	v.mu.Lock()
	if seq != v.seq {
		v.mu.Unlock()
		return
	}
	v.latest = res
	v.mu.Unlock()

	if v.sink != nil {
		v.sink(res)
	}
}
