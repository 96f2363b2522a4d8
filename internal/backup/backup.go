// Package backup lists, previews and restores backend configuration
// snapshots.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jpalmerr/labboard/internal/model"
)

// ErrNotConfirmed is returned when the operator declines a restore.
var ErrNotConfirmed = errors.New("restore not confirmed")

// PersistenceError reports a failed save or restore on the backend.
// Nothing is retried automatically.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Backend is the subset of the API client used for backups.
type Backend interface {
	Backups(ctx context.Context) ([]string, error)
	Backup(ctx context.Context, name string) ([]byte, error)
	RestoreConfig(ctx context.Context, name string) error
}

// Confirmer asks the operator to approve overwriting the live configuration.
type Confirmer func(name string) bool

// Confirmed is a Confirmer that always approves.
func Confirmed(string) bool { return true }

// Manager performs backup operations and runs a reload hook after a
// successful restore.
type Manager struct {
	backend Backend
	reload  func(ctx context.Context) error
	logger  *slog.Logger
}

// NewManager creates a backup manager. reload may be nil.
func NewManager(backend Backend, reload func(ctx context.Context) error, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{backend: backend, reload: reload, logger: logger}
}

// List returns backup names newest first.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	names, err := m.backend.Backups(ctx)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(names)
	slices.Reverse(out)
	return out, nil
}

// Preview returns the snapshot pretty-printed when it is valid JSON, or the
// raw text otherwise.
func (m *Manager) Preview(ctx context.Context, name string) (string, error) {
	raw, err := m.backend.Backup(ctx, name)
	if err != nil {
		return "", err
	}
	text, _ := model.Pretty(raw)
	return text, nil
}

// Restore overwrites the live configuration with the named backup after
// confirm approves it, then runs the reload hook.
func (m *Manager) Restore(ctx context.Context, name string, confirm Confirmer) error {
	if confirm == nil || !confirm(name) {
		return ErrNotConfirmed
	}

	if err := m.backend.RestoreConfig(ctx, name); err != nil {
		return &PersistenceError{Op: "restore " + name, Err: err}
	}
	m.logger.Info("configuration restored", "backup", name)

	if m.reload == nil {
		return nil
	}
	if err := m.reload(ctx); err != nil {
		return fmt.Errorf("reload after restore: %w", err)
	}
	return nil
}
