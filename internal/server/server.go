package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jpalmerr/labboard/internal/api"
	"github.com/jpalmerr/labboard/internal/backup"
	"github.com/jpalmerr/labboard/internal/engine"
	"github.com/jpalmerr/labboard/internal/filter"
	"github.com/jpalmerr/labboard/internal/model"
	"github.com/jpalmerr/labboard/internal/resolve"
	"github.com/jpalmerr/labboard/internal/store"
	"github.com/jpalmerr/labboard/internal/validate"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Labboard"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	// maxRequestBodySize caps editor and import payloads.
	maxRequestBodySize = 4 << 20
)

// Dashboard is the engine surface the server projects to the browser.
type Dashboard interface {
	View() engine.Snapshot
	ViewWith(q filter.Query) engine.Snapshot
	Board() store.Store
	Reload(ctx context.Context) resolve.Resolution

	Buffer() string
	SetBuffer(text string)
	Apply() (model.Configuration, error)
	Save(ctx context.Context, withBackup bool) (api.SaveResult, error)
	Revert() error
	ClearLocal() error
	Export() string
	Import(text string) (model.Configuration, error)
	InsertTemplate(kind string) error
	Validation() validate.Result
	ValidateNow(ctx context.Context) validate.Result

	Discoveries(ctx context.Context, refresh bool) ([]model.DiscoveredHost, error)
	Scan(ctx context.Context, subnet string) ([]model.DiscoveredHost, error)
	MergeDiscovered(ip string, withLinks bool) error
	Schedule(ctx context.Context) (model.Schedule, error)
	SetSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error)

	Backups(ctx context.Context) ([]string, error)
	PreviewBackup(ctx context.Context, name string) (string, error)
	RestoreBackup(ctx context.Context, name string, confirm backup.Confirmer) error

	SetQuery(text string)
	ToggleTag(tag string) bool
	ClearTags()
	Filter() engine.FilterState

	SetAPIKey(key string) error
	SetBearer(token string) error
}

// Server handles HTTP requests for the dashboard page and its JSON API.
//
// The page is served at "/", live badge and state changes stream from
// "/api/sse", and every operator action is a JSON endpoint under "/api/".
// The server shuts down gracefully when its context is cancelled.
type Server struct {
	dash       Dashboard
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// assets may be nil, in which case only the API is served. An empty title
// selects "Labboard". The server is not started until [Server.Start] is
// called.
func NewServer(dash Dashboard, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		dash:   dash,
		port:   port,
		assets: assets,
		title:  title,
		logger: logger,
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("GET /api/sse", s.handleSSE)
	mux.HandleFunc("POST /api/reload", s.handleReload)

	mux.HandleFunc("GET /api/editor", s.handleGetEditor)
	mux.HandleFunc("PUT /api/editor", s.handlePutEditor)
	mux.HandleFunc("POST /api/editor/apply", s.handleApply)
	mux.HandleFunc("POST /api/editor/save", s.handleSave(false))
	mux.HandleFunc("POST /api/editor/save-backup", s.handleSave(true))
	mux.HandleFunc("POST /api/editor/revert", s.handleRevert)
	mux.HandleFunc("POST /api/editor/clear-local", s.handleClearLocal)
	mux.HandleFunc("GET /api/editor/export", s.handleExport)
	mux.HandleFunc("POST /api/editor/import", s.handleImport)
	mux.HandleFunc("POST /api/editor/template/{kind}", s.handleTemplate)
	mux.HandleFunc("GET /api/validation", s.handleValidation)
	mux.HandleFunc("POST /api/validation", s.handleValidateNow)

	mux.HandleFunc("GET /api/discoveries", s.handleDiscoveries)
	mux.HandleFunc("POST /api/discoveries/merge", s.handleMerge)
	mux.HandleFunc("POST /api/scan", s.handleScan)
	mux.HandleFunc("GET /api/schedule", s.handleGetSchedule)
	mux.HandleFunc("POST /api/schedule", s.handleSetSchedule)

	mux.HandleFunc("GET /api/backups", s.handleBackups)
	mux.HandleFunc("GET /api/backups/{name}", s.handlePreviewBackup)
	mux.HandleFunc("POST /api/backups/{name}/restore", s.handleRestoreBackup)

	mux.HandleFunc("GET /api/filter", s.handleGetFilter)
	mux.HandleFunc("POST /api/filter/query", s.handleSetQuery)
	mux.HandleFunc("POST /api/filter/tags/{tag}", s.handleToggleTag)
	mux.HandleFunc("DELETE /api/filter/tags", s.handleClearTags)

	mux.HandleFunc("POST /api/session/key", s.handleSetAPIKey)
	mux.HandleFunc("POST /api/session/bearer", s.handleSetBearer)

	// serve dashboard assets
	if s.assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleSSE streams board events via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	board := s.dash.Board()
	ch := board.Subscribe()
	defer board.Unsubscribe(ch)

	// replay the current generation's badges so a new client starts in sync
	gen := board.Generation()
	for _, b := range board.GetAll() {
		data, err := json.Marshal(store.Event{Kind: store.KindBadge, Generation: gen, Badge: &b})
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
