package labboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/labboard/dashboard"
	"github.com/jpalmerr/labboard/internal/api"
	"github.com/jpalmerr/labboard/internal/engine"
	"github.com/jpalmerr/labboard/internal/poller"
	"github.com/jpalmerr/labboard/internal/server"
	"github.com/jpalmerr/labboard/internal/session"
	"github.com/jpalmerr/labboard/internal/store"
)

const (
	defaultPort              = 8080
	defaultRefreshInterval   = 60 * time.Second
	defaultDiscoveryInterval = 5 * time.Minute
)

// Labboard is the main orchestrator for configuration, live status and the
// dashboard.
//
// Labboard resolves the dashboard configuration from the backend (or its
// fallbacks), renders it, probes every server once per render and serves an
// interactive dashboard via HTTP. It is created using [New] with functional
// options and started with [Labboard.Start].
//
// The typical lifecycle is:
//
//	lb, err := labboard.New(labboard.WithAPIBase("http://nas.lan:8000/api"))
//	if err != nil {
//	    slog.Error("failed to create labboard", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	lb.Start(ctx) // blocks until context cancelled
type Labboard struct {
	title             string
	apiBase           string
	apiKey            string
	bearer            string
	staticSource      string
	embedded          []byte
	stateFile         string
	port              int
	requestTimeout    time.Duration
	validateDelay     time.Duration
	filterDelay       time.Duration
	refreshInterval   time.Duration
	discoveryInterval time.Duration
	extractor         VerdictExtractor
	logger            *slog.Logger
	verdictCallbacks  []func(VerdictResult)
}

// New creates a new [Labboard] instance with the given options.
//
// The backend base URL must be configured via [WithAPIBase]. Other options
// have sensible defaults:
//   - Port: 8080
//   - Refresh interval: 60 seconds
//   - Discovery refresh interval: 5 minutes
//
// Returns an error if the backend is not configured or if any option is
// invalid.
func New(opts ...Option) (*Labboard, error) {
	cfg := &lbConfig{
		port:              defaultPort,
		refreshInterval:   defaultRefreshInterval,
		discoveryInterval: defaultDiscoveryInterval,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.apiBase == "" {
		return nil, errors.New("backend base URL is required")
	}
	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Labboard{
		title:             cfg.title,
		apiBase:           cfg.apiBase,
		apiKey:            cfg.apiKey,
		bearer:            cfg.bearer,
		staticSource:      cfg.staticSource,
		embedded:          cfg.embedded,
		stateFile:         cfg.stateFile,
		port:              cfg.port,
		requestTimeout:    cfg.requestTimeout,
		validateDelay:     cfg.validateDelay,
		filterDelay:       cfg.filterDelay,
		refreshInterval:   cfg.refreshInterval,
		discoveryInterval: cfg.discoveryInterval,
		extractor:         cfg.extractor,
		logger:            logger,
		verdictCallbacks:  cfg.verdictCallbacks,
	}, nil
}

// Start resolves the configuration, probes every server and serves the
// dashboard.
//
// Start is a blocking call that runs until the provided context is
// cancelled. During execution:
//
//   - The configuration is resolved once and rendered; each render starts one
//     health round
//   - The current configuration is re-rendered every refresh interval
//   - Discoveries are refreshed every discovery interval
//   - The dashboard is available at http://localhost:<port>
//
// Returns nil on graceful shutdown. Returns an error if the state file
// cannot be read or the HTTP server fails to start.
func (lb *Labboard) Start(ctx context.Context) error {
	lb.logger.Info("labboard starting", "backend", lb.apiBase)
	lb.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", lb.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	eng, err := lb.newEngine()
	if err != nil {
		return err
	}

	// subscribe before the first render so no verdict is missed
	board := eng.Board()
	events := board.Subscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		lb.consumeVerdicts(eng, events)
	}()

	eng.Init(ctx)

	scheduler := poller.NewScheduler(lb.tasks(eng), lb.refreshInterval, lb.logger)
	scheduler.Start(ctx)

	cleanup := func() {
		scheduler.Stop()
		board.Unsubscribe(events) // ends the verdict consumer
		wg.Wait()
		eng.Close()
	}

	httpServer := server.NewServer(eng, lb.port, dashboard.Assets, lb.title, lb.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	lb.logger.Info("labboard stopped")
	return nil
}

// Check resolves the configuration once, waits for its health round and
// returns the outcome. No HTTP server is started.
func (lb *Labboard) Check(ctx context.Context) (Report, error) {
	eng, err := lb.newEngine()
	if err != nil {
		return Report{}, err
	}
	defer eng.Close()

	eng.Init(ctx)
	eng.Wait()
	return newReport(eng.View()), nil
}

// Export resolves the configuration and returns the text the editor would
// open with: the saved local override if there is one, otherwise the
// resolved configuration in canonical form.
func (lb *Labboard) Export(ctx context.Context) (string, error) {
	eng, err := lb.newEngine()
	if err != nil {
		return "", err
	}

	// the health round started by Init is of no interest here
	probeCtx, cancel := context.WithCancel(ctx)
	eng.Init(probeCtx)
	cancel()
	eng.Close()

	return eng.Export(), nil
}

// Port returns the configured HTTP port for the dashboard server.
func (lb *Labboard) Port() int {
	return lb.port
}

// RefreshInterval returns the interval between health rounds, or 0 when
// periodic refresh is disabled.
func (lb *Labboard) RefreshInterval() time.Duration {
	return lb.refreshInterval
}

// DiscoveryInterval returns the interval between discovery refreshes, or 0
// when they are disabled.
func (lb *Labboard) DiscoveryInterval() time.Duration {
	return lb.discoveryInterval
}

func (lb *Labboard) newEngine() (*engine.Engine, error) {
	sess, err := session.Load(lb.stateFile, lb.apiKey, lb.bearer)
	if err != nil {
		return nil, err
	}

	return engine.New(engine.Config{
		Client:        api.NewClient(lb.apiBase, sess, lb.requestTimeout),
		Session:       sess,
		StaticSource:  lb.staticSource,
		Embedded:      lb.embedded,
		Extractor:     lb.extractor,
		FilterDelay:   lb.filterDelay,
		ValidateDelay: lb.validateDelay,
		Logger:        lb.logger,
	}), nil
}

// tasks returns the periodic work for eng. A zero interval disables the
// corresponding task.
func (lb *Labboard) tasks(eng *engine.Engine) []poller.Task {
	var tasks []poller.Task
	if lb.refreshInterval > 0 {
		tasks = append(tasks, poller.Task{
			Name:     "refresh",
			Interval: lb.refreshInterval,
			Run: func(context.Context) error {
				eng.Refresh()
				return nil
			},
		})
	}
	if lb.discoveryInterval > 0 {
		tasks = append(tasks, poller.Task{
			Name:     "discoveries",
			Interval: lb.discoveryInterval,
			Run: func(ctx context.Context) error {
				_, err := eng.Discoveries(ctx, true)
				return err
			},
		})
	}
	return tasks
}

// consumeVerdicts forwards badge updates to the verdict callbacks until
// events is closed.
func (lb *Labboard) consumeVerdicts(eng *engine.Engine, events <-chan store.Event) {
	var index cardIndex

	for ev := range events {
		if ev.Kind != store.KindBadge || ev.Badge == nil {
			continue
		}
		ref, ok := index.lookup(ev, eng.View)
		if !ok {
			continue
		}
		result := VerdictResult{
			Server:     ref.server,
			Group:      ref.group,
			CardID:     ev.Badge.ID,
			Generation: ev.Generation,
			Verdict:    ev.Badge.Verdict,
			CheckedAt:  ev.Badge.CheckedAt,
		}

		lb.logger.Debug("verdict received",
			"server", result.Server,
			"group", result.Group,
			"verdict", result.Verdict,
		)
		for _, cb := range lb.verdictCallbacks {
			invokeCallbackSafe(cb, result, lb.logger)
		}
	}
}

type cardRef struct {
	group  string
	server string
}

// cardIndex names the cards of one render generation.
type cardIndex struct {
	generation string
	cards      map[string]cardRef
}

// lookup resolves a badge event to its card. The index is rebuilt from
// view when the event's generation is new; events from a generation that
// is no longer on display are dropped, since card ids are reused across
// renders.
func (ix *cardIndex) lookup(ev store.Event, view func() engine.Snapshot) (cardRef, bool) {
	if ev.Generation != ix.generation {
		snap := view()
		if snap.Generation != ev.Generation {
			return cardRef{}, false
		}
		ix.generation, ix.cards = snap.Generation, indexCards(snap)
	}
	ref, ok := ix.cards[ev.Badge.ID]
	return ref, ok
}

func indexCards(snap engine.Snapshot) map[string]cardRef {
	cards := make(map[string]cardRef)
	for _, g := range snap.Groups {
		for _, c := range g.Cards {
			cards[c.ID] = cardRef{group: g.Name, server: c.Name}
		}
	}
	return cards
}

// invokeCallbackSafe calls a verdict callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(VerdictResult), result VerdictResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("verdict callback panicked",
				"panic", r,
				"server", result.Server,
			)
		}
	}()
	cb(result)
}
