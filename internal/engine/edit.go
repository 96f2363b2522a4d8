package engine

import (
	"context"

	"github.com/jpalmerr/labboard/internal/api"
	"github.com/jpalmerr/labboard/internal/backup"
	"github.com/jpalmerr/labboard/internal/editor"
	"github.com/jpalmerr/labboard/internal/model"
	"github.com/jpalmerr/labboard/internal/validate"
)

// Buffer returns the in-edit configuration text.
func (e *Engine) Buffer() string {
	return e.buffer.Text()
}

// SetBuffer replaces the in-edit text. The text may be invalid JSON; it is
// validated in the background and never rendered until applied.
func (e *Engine) SetBuffer(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer.Replace(text)
}

// Apply commits the buffer: it becomes the local override and is rendered.
// The buffer must parse; otherwise an [*editor.EditError] is returned and
// nothing changes.
func (e *Engine) Apply() (model.Configuration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked("apply")
}

// Save applies the buffer and persists it to the backend, optionally with
// a backup snapshot. A backend failure is a [*backup.PersistenceError];
// the local apply is kept in that case.
func (e *Engine) Save(ctx context.Context, withBackup bool) (api.SaveResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op := "save"
	if withBackup {
		op = "save with backup"
	}
	cfg, err := e.applyLocked(op)
	if err != nil {
		return api.SaveResult{}, err
	}

	res, err := e.client.SaveConfig(ctx, cfg, withBackup)
	if err != nil {
		return api.SaveResult{}, &backup.PersistenceError{Op: op, Err: err}
	}
	e.logger.Info("configuration saved", "path", res.Path, "backup", res.Backup)
	return res, nil
}

// Revert drops the local override and restores the last resolved
// configuration in both the editor and the dashboard.
func (e *Engine) Revert() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.session.ClearOverride(); err != nil {
		return err
	}
	e.buffer.Replace(e.original)
	cfg, err := model.DecodeString(e.original)
	if err != nil {
		// original is always a canonical encoding
		return err
	}
	e.renderLocked(cfg)
	e.resolution.OverrideDiverges = false
	return nil
}

// ClearLocal drops the local override without touching the editor or the
// dashboard.
func (e *Engine) ClearLocal() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.session.ClearOverride(); err != nil {
		return err
	}
	e.resolution.OverrideDiverges = false
	return nil
}

// Export returns the buffer text for download as servers.json.
func (e *Engine) Export() string {
	return e.buffer.Text()
}

// Import replaces the buffer with the canonical form of text, stores it as
// the local override and renders it. Invalid text changes nothing.
func (e *Engine) Import(text string) (model.Configuration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := model.DecodeString(text)
	if err != nil {
		return model.Configuration{}, &editor.EditError{Op: "import", Err: err}
	}
	canonical := model.Encode(cfg)
	if err := e.session.SetOverride(canonical); err != nil {
		return model.Configuration{}, err
	}
	e.buffer.Replace(canonical)
	e.renderLocked(cfg)
	return cfg, nil
}

// InsertTemplate adds a server or group template to the buffer.
func (e *Engine) InsertTemplate(kind string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer.InsertTemplate(kind)
}

// Validation returns the latest advisory validation result.
func (e *Engine) Validation() validate.Result {
	return e.validator.Latest()
}

// ValidateNow checks the buffer immediately, bypassing the debounce.
func (e *Engine) ValidateNow(ctx context.Context) validate.Result {
	return e.validator.Check(ctx, e.buffer.Text())
}

func (e *Engine) applyLocked(op string) (model.Configuration, error) {
	cfg, err := e.buffer.Parse(op)
	if err != nil {
		return model.Configuration{}, err
	}
	if err := e.session.SetOverride(model.Encode(cfg)); err != nil {
		return model.Configuration{}, err
	}
	e.renderLocked(cfg)
	e.resolution.OverrideDiverges = false
	return cfg, nil
}
