// Package editor holds the in-edit configuration text.
//
// The buffer has a single logical owner and a single writer: every operation
// replaces the whole text atomically, so a template insertion, a discovery
// merge, an import or a restore can never interleave partial writes. The
// text may be invalid JSON while the operator is typing; operations that
// need a parsed configuration fail with [*EditError] and leave the text
// untouched.
package editor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jpalmerr/labboard/internal/model"
)

// EditError reports that the buffer could not be parsed for an operation.
type EditError struct {
	Op  string
	Err error
}

func (e *EditError) Error() string {
	return fmt.Sprintf("%s: buffer is not a valid configuration: %v", e.Op, e.Err)
}

func (e *EditError) Unwrap() error {
	return e.Err
}

// Buffer is safe for concurrent use.
type Buffer struct {
	mu        sync.Mutex
	text      string
	listeners []func(string)
}

// NewBuffer returns a buffer holding text.
func NewBuffer(text string) *Buffer {
	return &Buffer{text: text}
}

// Text returns the current text.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// OnChange registers fn to run after every replacement with the new text.
// Listeners run on the writer's goroutine, outside the buffer lock.
func (b *Buffer) OnChange(fn func(string)) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

// Replace swaps the whole text.
func (b *Buffer) Replace(text string) {
	b.mu.Lock()
	b.text = text
	listeners := append([]func(string){}, b.listeners...)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(text)
	}
}

// Parse decodes the current text.
func (b *Buffer) Parse(op string) (model.Configuration, error) {
	cfg, err := model.DecodeString(b.Text())
	if err != nil {
		return model.Configuration{}, &EditError{Op: op, Err: err}
	}
	return cfg, nil
}

// Edit decodes the buffer, applies fn and writes the canonical encoding
// back in one step. A JSON object without a "groups" array is edited as if
// it had an empty one. If decoding or fn fails the text is left unchanged.
func (b *Buffer) Edit(op string, fn func(*model.Configuration) error) error {
	b.mu.Lock()
	cfg, err := model.DecodeLenient([]byte(b.text))
	if err != nil {
		b.mu.Unlock()
		return &EditError{Op: op, Err: err}
	}
	if err := fn(&cfg); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}
	text := model.Encode(cfg)
	b.text = text
	listeners := append([]func(string){}, b.listeners...)
	b.mu.Unlock()

	for _, l := range listeners {
		l(text)
	}
	return nil
}

// IsEditError reports whether err is (or wraps) an [*EditError].
func IsEditError(err error) bool {
	var ee *EditError
	return errors.As(err, &ee)
}
