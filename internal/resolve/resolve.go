// Package resolve produces the authoritative configuration from an ordered
// list of candidate sources.
//
// Resolution never fails: each unavailable source is logged and skipped, and
// when every source is exhausted the empty configuration is used.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jpalmerr/labboard/internal/model"
)

// SourceUnavailableError records why one source was skipped.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// Resolution is the outcome of one resolve pass.
type Resolution struct {
	Config model.Configuration
	// Source is the name of the winning source, or "empty".
	Source string
	// OverrideDiverges is set when a local override exists, did not win,
	// and differs from Config.
	OverrideDiverges bool
	// Skipped lists the sources tried before the winner.
	Skipped []*SourceUnavailableError
}

// Resolver tries sources in order.
type Resolver struct {
	sources   []Source
	overrides Overrides
	logger    *slog.Logger
}

// New creates a resolver over sources in priority order. overrides is
// consulted only for divergence reporting and may be nil.
func New(sources []Source, overrides Overrides, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{sources: sources, overrides: overrides, logger: logger}
}

// Standard returns the resolver used by the dashboard: remote, static file,
// local override, embedded payload.
func Standard(f Fetcher, static string, overrides Overrides, embedded []byte, logger *slog.Logger) *Resolver {
	return New([]Source{
		Remote(f),
		Static(f, static),
		Override(overrides),
		Embedded(embedded),
	}, overrides, logger)
}

// Resolve returns the first configuration any source yields.
func (r *Resolver) Resolve(ctx context.Context) Resolution {
	var res Resolution
	for _, src := range r.sources {
		cfg, err := src.Load(ctx)
		if err != nil {
			skip := &SourceUnavailableError{Source: src.Name(), Err: err}
			res.Skipped = append(res.Skipped, skip)
			if !errors.Is(err, ErrNotConfigured) {
				r.logger.Debug("configuration source skipped", "source", src.Name(), "error", err)
			}
			continue
		}
		res.Config = model.Normalize(cfg)
		res.Source = src.Name()
		res.OverrideDiverges = r.diverges(res)
		r.logger.Debug("configuration resolved", "source", res.Source, "servers", res.Config.ServerCount())
		return res
	}

	res.Config = model.Empty()
	res.Source = SourceEmpty
	res.OverrideDiverges = r.diverges(res)
	r.logger.Warn("no configuration source available, using empty configuration")
	return res
}

func (r *Resolver) diverges(res Resolution) bool {
	if r.overrides == nil || res.Source == SourceOverride {
		return false
	}
	text, ok := r.overrides.Override()
	if !ok {
		return false
	}
	local, err := model.DecodeString(text)
	if err != nil {
		return true
	}
	return model.Encode(local) != model.Encode(res.Config)
}
