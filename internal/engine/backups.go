package engine

import (
	"context"

	"github.com/jpalmerr/labboard/internal/backup"
)

// Backups lists backup names newest first.
func (e *Engine) Backups(ctx context.Context) ([]string, error) {
	return e.backups.List(ctx)
}

// PreviewBackup returns one backup's text, pretty-printed when it is JSON.
func (e *Engine) PreviewBackup(ctx context.Context, name string) (string, error) {
	return e.backups.Preview(ctx, name)
}

// RestoreBackup overwrites the live configuration with a backup once
// confirm approves, then reloads the dashboard and the editor from the
// resolved configuration.
func (e *Engine) RestoreBackup(ctx context.Context, name string, confirm backup.Confirmer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backups.Restore(ctx, name, confirm)
}
