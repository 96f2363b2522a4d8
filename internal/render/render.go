// Package render projects a configuration into the dashboard view tree and
// starts the health round for it.
//
// Rendering is idempotent: the same configuration always yields an
// equivalent tree. Every render installs a fresh generation in the badge
// store, which invalidates the handles issued by earlier renders; probes
// still in flight from those renders are not cancelled, their verdicts are
// simply refused by the store.
package render

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jpalmerr/labboard/internal/filter"
	"github.com/jpalmerr/labboard/internal/health"
	"github.com/jpalmerr/labboard/internal/model"
	"github.com/jpalmerr/labboard/internal/store"
)

const (
	unnamedServer = "Unnamed"
	untitledPanel = "Grafana Panel"
)

// View is the rendered dashboard.
type View struct {
	Generation string      `json:"generation"`
	Groups     []GroupView `json:"groups"`
	Tags       []string    `json:"tags"`
	Panels     []PanelView `json:"panels"`
}

// GroupView is one rendered group section.
type GroupView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Cards []Card `json:"cards"`
}

// Card is one rendered server.
type Card struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	IP     string       `json:"ip"`
	OS     string       `json:"os"`
	Role   string       `json:"role"`
	Tags   []string     `json:"tags"`
	Links  []model.Link `json:"links"`
	Probed bool         `json:"probed"`
}

// PanelView is one embedded Grafana panel.
type PanelView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Dispatcher starts health evaluations without blocking.
type Dispatcher interface {
	Dispatch(ctx context.Context, targets []health.Target, sink health.Sink)
}

// Renderer builds views and wires them to the badge store.
type Renderer struct {
	store      store.Store
	dispatcher Dispatcher
	logger     *slog.Logger
	generation func() string
}

// NewRenderer creates a Renderer. A nil logger selects slog.Default().
func NewRenderer(st store.Store, dispatcher Dispatcher, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		store:      st,
		dispatcher: dispatcher,
		logger:     logger,
		generation: uuid.NewString,
	}
}

// Render builds the view for cfg, installs it as the current generation and
// hands every server to the health dispatcher. It returns the filter index
// over the rendered cards.
//
// ctx bounds the health requests of this round; it should outlive the call.
func (r *Renderer) Render(ctx context.Context, cfg model.Configuration) (View, *filter.Index) {
	cfg = model.Normalize(cfg)
	gen := r.generation()

	view := View{
		Generation: gen,
		Groups:     make([]GroupView, 0, len(cfg.Groups)),
		Tags:       model.Tags(cfg),
		Panels:     renderPanels(cfg.Grafana),
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}

	ids := make([]string, 0, cfg.ServerCount())
	entries := make([]filter.Entry, 0, cfg.ServerCount())
	targets := make([]health.Target, 0, cfg.ServerCount())

	for gi, g := range cfg.Groups {
		gv := GroupView{
			ID:    fmt.Sprintf("g%d", gi),
			Name:  g.Name,
			Cards: make([]Card, 0, len(g.Servers)),
		}
		for si, srv := range g.Servers {
			id := CardID(gi, si)
			name := srv.Name
			if name == "" {
				name = unnamedServer
			}

			gv.Cards = append(gv.Cards, Card{
				ID:     id,
				Name:   name,
				IP:     srv.IP,
				OS:     srv.OS,
				Role:   srv.Role,
				Tags:   append([]string{}, srv.Tags...),
				Links:  append([]model.Link{}, srv.Links...),
				Probed: len(srv.Checks) > 0,
			})
			ids = append(ids, id)
			entries = append(entries, filter.NewEntry(id, srv.Name, srv.IP, srv.OS, srv.Role, srv.Tags))
			targets = append(targets, health.Target{
				Handle: store.Handle{Generation: gen, ID: id},
				Server: srv.Clone(),
			})
		}
		view.Groups = append(view.Groups, gv)
	}

	// install the generation before any verdict can arrive for it
	r.store.Reset(gen, ids)

	r.logger.Debug("dashboard rendered",
		"generation", gen,
		"groups", len(view.Groups),
		"servers", len(ids),
		"panels", len(view.Panels),
	)

	r.dispatcher.Dispatch(ctx, targets, r.apply)

	return view, filter.NewIndex(entries)
}

// apply writes one verdict to the store; stale verdicts are dropped.
func (r *Renderer) apply(t health.Target, verdict model.Verdict) {
	if !r.store.Update(t.Handle, verdict) {
		r.logger.Debug("stale verdict dropped",
			"generation", t.Handle.Generation,
			"badge", t.Handle.ID,
		)
	}
}

// CardID is the render identity of the server at (group, server) index.
// Index based identities never collide even when names repeat.
func CardID(group, server int) string {
	return fmt.Sprintf("g%d-s%d", group, server)
}

func renderPanels(g *model.Grafana) []PanelView {
	if g == nil {
		return []PanelView{}
	}
	out := make([]PanelView, 0, len(g.Panels))
	for i, p := range g.Panels {
		title := p.Title
		if title == "" {
			title = untitledPanel
		}
		out = append(out, PanelView{ID: fmt.Sprintf("p%d", i), Title: title, URL: p.URL})
	}
	return out
}
