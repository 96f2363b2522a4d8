// Package engine owns the dashboard state and serializes operator actions.
//
// One Engine holds the authoritative configuration, the in-edit buffer, the
// rendered view with its badge board, and the filter state. Operator actions
// run one at a time; health verdicts, debounced filter updates and
// validation results arrive asynchronously and only ever touch the board or
// their own state.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/labboard/internal/api"
	"github.com/jpalmerr/labboard/internal/backup"
	"github.com/jpalmerr/labboard/internal/debounce"
	"github.com/jpalmerr/labboard/internal/discovery"
	"github.com/jpalmerr/labboard/internal/editor"
	"github.com/jpalmerr/labboard/internal/filter"
	"github.com/jpalmerr/labboard/internal/health"
	"github.com/jpalmerr/labboard/internal/model"
	"github.com/jpalmerr/labboard/internal/render"
	"github.com/jpalmerr/labboard/internal/resolve"
	"github.com/jpalmerr/labboard/internal/session"
	"github.com/jpalmerr/labboard/internal/store"
	"github.com/jpalmerr/labboard/internal/validate"
)

// DefaultFilterDelay is the idle window between the last keystroke in the
// search box and the filter update.
const DefaultFilterDelay = 120 * time.Millisecond

// Config wires an Engine to its collaborators.
type Config struct {
	// Client talks to the backend. Required.
	Client *api.Client

	// Session holds credentials and the local override. Nil selects an
	// in-memory session.
	Session *session.Session

	// StaticSource is a file path or URL tried after the backend.
	StaticSource string

	// Embedded is the configuration of last resort before the empty one.
	Embedded []byte

	// Store receives badges and change events. Nil selects a MemoryStore.
	Store store.Store

	// Extractor reads verdicts from health responses.
	Extractor health.VerdictExtractor

	FilterDelay   time.Duration
	ValidateDelay time.Duration

	Logger *slog.Logger
}

// Engine is safe for concurrent use.
type Engine struct {
	client    *api.Client
	session   *session.Session
	resolver  *resolve.Resolver
	board     store.Store
	health    *health.Orchestrator
	renderer  *render.Renderer
	buffer    *editor.Buffer
	validator *validate.Validator
	discovery *discovery.Service
	backups   *backup.Manager
	tags      *filter.TagSet
	query     *debounce.Debouncer
	logger    *slog.Logger

	// mu serializes operator actions and guards the fields below.
	mu         sync.Mutex
	lifetime   context.Context
	resolution resolve.Resolution
	original   string
	current    model.Configuration
	view       render.View
	index      *filter.Index
	queryText  string
}

// New creates an Engine. Call [Engine.Init] before serving it.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Session == nil {
		cfg.Session = session.New("", "")
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.FilterDelay <= 0 {
		cfg.FilterDelay = DefaultFilterDelay
	}

	e := &Engine{
		client:   cfg.Client,
		session:  cfg.Session,
		board:    cfg.Store,
		buffer:   editor.NewBuffer(model.Encode(model.Empty())),
		tags:     filter.NewTagSet(),
		query:    debounce.New(cfg.FilterDelay),
		logger:   cfg.Logger,
		lifetime: context.Background(),
		current:  model.Empty(),
		index:    filter.NewIndex(nil),
	}

	e.resolver = resolve.Standard(cfg.Client, cfg.StaticSource, cfg.Session, cfg.Embedded, cfg.Logger)
	e.health = health.NewOrchestrator(cfg.Client, cfg.Extractor, cfg.Logger)
	e.renderer = render.NewRenderer(cfg.Store, e.health, cfg.Logger)
	e.validator = validate.New(cfg.Client, cfg.ValidateDelay, func(r validate.Result) {
		e.board.Publish(store.KindValidation, r)
	}, cfg.Logger)
	e.discovery = discovery.NewService(cfg.Client)
	e.backups = backup.NewManager(cfg.Client, e.reloadLocked, cfg.Logger)

	e.buffer.OnChange(func(text string) {
		e.validator.Submit(text)
		e.board.Publish(store.KindEditor, nil)
	})

	return e
}

// Init resolves the configuration, renders it and seeds the editor.
//
// ctx bounds every health round started by this engine; cancel it to stop
// in-flight probes at shutdown.
func (e *Engine) Init(ctx context.Context) resolve.Resolution {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lifetime = ctx
	res := e.resolveLocked(ctx)

	// a saved local override seeds the editor even when another source won
	text := e.original
	if override, ok := e.session.Override(); ok {
		text = override
	}
	e.buffer.Replace(text)

	if _, err := e.discovery.Refresh(ctx); err != nil {
		e.logger.Debug("discoveries unavailable", "error", err)
	}
	return res
}

// Reload re-resolves the configuration, replaces the editor text with it
// and renders it.
func (e *Engine) Reload(ctx context.Context) resolve.Resolution {
	e.mu.Lock()
	defer e.mu.Unlock()

	_ = e.reloadLocked(ctx)
	return e.resolution
}

// Refresh starts a new health round for the current configuration.
func (e *Engine) Refresh() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderLocked(e.current)
}

// Close cancels pending debounced work and waits for in-flight probes.
func (e *Engine) Close() {
	e.query.Cancel()
	e.validator.Stop()
	e.health.Wait()
	e.client.Close()
}

// Wait blocks until every dispatched health evaluation has completed.
func (e *Engine) Wait() {
	e.health.Wait()
}

// Board returns the badge store.
func (e *Engine) Board() store.Store {
	return e.board
}

// Requests returns the number of health requests issued so far.
func (e *Engine) Requests() int64 {
	return e.health.Requests()
}

// Resolution returns the outcome of the last resolve pass.
func (e *Engine) Resolution() resolve.Resolution {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolution
}

// Current returns a copy of the rendered configuration.
func (e *Engine) Current() model.Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

// reloadLocked is also the backup restore hook, which runs under e.mu.
func (e *Engine) reloadLocked(ctx context.Context) error {
	e.resolveLocked(ctx)
	e.buffer.Replace(e.original)
	return nil
}

func (e *Engine) resolveLocked(ctx context.Context) resolve.Resolution {
	res := e.resolver.Resolve(ctx)
	e.resolution = res
	e.original = model.Encode(res.Config)
	e.renderLocked(res.Config)

	e.logger.Info("configuration loaded",
		"source", res.Source,
		"groups", len(res.Config.Groups),
		"servers", res.Config.ServerCount(),
		"override_diverges", res.OverrideDiverges,
	)
	return res
}

func (e *Engine) renderLocked(cfg model.Configuration) {
	e.current = model.Normalize(cfg).Clone()
	e.view, e.index = e.renderer.Render(e.lifetime, e.current)
}

// IsPersistenceError reports whether err is a failed save or restore.
func IsPersistenceError(err error) bool {
	var pe *backup.PersistenceError
	return errors.As(err, &pe)
}
