// Package mockbackend is an in-memory homelab backend for demos and manual
// testing of the dashboard.
//
// It serves a small demo inventory, answers health probes with verdicts
// that flip every 20-60 seconds, and keeps saves, backups, scans and the
// scan schedule in memory.
package mockbackend

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/jpalmerr/labboard/internal/model"
)

// targetState tracks the verdict and next flip time for a single target.
type targetState struct {
	online       bool
	nextChangeAt time.Time
}

type snapshot struct {
	name string
	cfg  model.Configuration
}

// Backend implements the homelab backend API.
type Backend struct {
	apiKey string
	logger *slog.Logger

	mu         sync.Mutex
	config     model.Configuration
	backups    []snapshot
	discovered []model.DiscoveredHost
	schedule   model.Schedule
	targets    map[string]*targetState
}

// New returns a Backend serving [DemoConfiguration]. A non-empty apiKey
// is required on every request as X-API-Key or a bearer token.
func New(apiKey string, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		apiKey:   apiKey,
		logger:   logger,
		config:   DemoConfiguration(),
		schedule: model.Schedule{Subnet: "192.168.1.0/24", IntervalMin: 60, TopPorts: 100},
		targets:  make(map[string]*targetState),
	}
}

// DemoConfiguration is the inventory a fresh Backend starts with.
func DemoConfiguration() model.Configuration {
	return model.Normalize(model.Configuration{Groups: []model.Group{
		{Name: "Core", Servers: []model.Server{
			{Name: "nas", IP: "192.168.1.10", OS: "TrueNAS", Role: "storage", Tags: []string{"storage", "backup"},
				Links:  []model.Link{{Label: "UI", URL: "http://192.168.1.10"}},
				Checks: []model.Check{{Type: "ping"}, {Type: "tcp", Port: 445}}},
			{Name: "router", IP: "192.168.1.1", OS: "OpenWrt", Role: "gateway", Tags: []string{"net"},
				Checks: []model.Check{{Type: "ping"}}},
		}},
		{Name: "Media", Servers: []model.Server{
			{Name: "jellyfin", IP: "192.168.1.20", OS: "Debian", Role: "media", Tags: []string{"media"},
				Links:  []model.Link{{Label: "Web", URL: "http://192.168.1.20:8096"}},
				Checks: []model.Check{{Type: "http", URL: "http://192.168.1.20:8096/health"}}},
		}},
		{Name: "Lab", Servers: []model.Server{
			{Name: "pi", IP: "192.168.1.30", OS: "Raspberry Pi OS", Role: "sensors", Tags: []string{"iot"},
				Checks: []model.Check{{Type: "tcp", Port: 22}}},
			{Name: "printer", IP: "192.168.1.40", Role: "printer"},
		}},
	}})
}

// Handler returns the request router.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /servers", b.handleServers)
	mux.HandleFunc("POST /health", b.handleHealth)
	mux.HandleFunc("GET /discoveries", b.handleDiscoveries)
	mux.HandleFunc("POST /scan", b.handleScan)
	mux.HandleFunc("GET /schedule", b.handleGetSchedule)
	mux.HandleFunc("POST /schedule", b.handleSetSchedule)
	mux.HandleFunc("POST /save-config", b.handleSave(false))
	mux.HandleFunc("POST /save-config-with-backup", b.handleSave(true))
	mux.HandleFunc("GET /backups", b.handleBackups)
	mux.HandleFunc("GET /backups/{name}", b.handleBackup)
	mux.HandleFunc("POST /restore-config", b.handleRestore)
	mux.HandleFunc("POST /validate", b.handleValidate)
	return b.authorize(mux)
}

func (b *Backend) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.apiKey != "" &&
			r.Header.Get("X-API-Key") != b.apiKey &&
			r.Header.Get("Authorization") != "Bearer "+b.apiKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid credentials"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) handleServers(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	text := model.Encode(b.config)
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, text)
}

func (b *Backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string        `json:"target"`
		Checks []model.Check `json:"checks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "target is required"})
		return
	}

	// simulate small latency variance
	time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

	status := "offline"
	if b.probe(req.Target) {
		status = "online"
	}
	writeJSON(w, http.StatusOK, map[string]any{"target": req.Target, "checks": len(req.Checks), "status": status})
}

// probe reports the current verdict for target, flipping it when its
// scheduled change time has passed.
func (b *Backend) probe(target string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, exists := b.targets[target]
	if !exists {
		state = &targetState{online: true, nextChangeAt: time.Now().Add(nextChange())}
		b.targets[target] = state
	}
	if time.Now().After(state.nextChangeAt) {
		state.online = !state.online
		state.nextChangeAt = time.Now().Add(nextChange())
		b.logger.Info("status change", "target", target, "online", state.online)
	}
	return state.online
}

func nextChange() time.Duration {
	return time.Duration(20+rand.Intn(41)) * time.Second
}

func (b *Backend) handleDiscoveries(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	hosts := append([]model.DiscoveredHost{}, b.discovered...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, hosts)
}

// handleScan invents two hosts inside the requested subnet. Scanner
// failures are reported in a 200 body, as the real backend does.
func (b *Backend) handleScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subnet string `json:"subnet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	prefix, err := netip.ParsePrefix(strings.TrimSpace(req.Subnet))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"error": "scan failed", "detail": err.Error()})
		return
	}

	first := prefix.Masked().Addr().Next()
	found := []model.DiscoveredHost{
		newHost(first.Next().Next(), []int{22, 80}, "web"),
		newHost(first.Next().Next().Next(), []int{22, 1883}, "iot"),
	}

	b.mu.Lock()
	for _, h := range found {
		b.discovered = upsertHost(b.discovered, h)
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"hosts": found})
}

func newHost(addr netip.Addr, ports []int, role string) model.DiscoveredHost {
	ip := addr.String()
	services := make([]string, 0, len(ports))
	for _, p := range ports {
		services = append(services, fmt.Sprintf("tcp/%d", p))
	}
	return model.DiscoveredHost{
		IP:             ip,
		OpenPorts:      ports,
		Services:       services,
		SuggestedLinks: []model.Link{{Label: "Web", URL: "http://" + ip}},
		RoleGuess:      role,
	}
}

func upsertHost(hosts []model.DiscoveredHost, h model.DiscoveredHost) []model.DiscoveredHost {
	for i := range hosts {
		if hosts[i].IP == h.IP {
			hosts[i] = h
			return hosts
		}
	}
	return append(hosts, h)
}

func (b *Backend) handleGetSchedule(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	s := b.schedule
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, s)
}

func (b *Backend) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	var s model.Schedule
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid schedule"})
		return
	}
	b.mu.Lock()
	b.schedule = s
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (b *Backend) handleSave(withBackup bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		cfg, err := model.Decode(body)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		result := map[string]string{"path": "servers.json"}
		if withBackup {
			name := fmt.Sprintf("servers-%d.json", len(b.backups)+1)
			b.backups = append(b.backups, snapshot{name: name, cfg: b.config})
			result["backup"] = name
		}
		b.config = cfg
		b.logger.Info("configuration saved", "groups", len(cfg.Groups), "backup", result["backup"])
		writeJSON(w, http.StatusOK, result)
	}
}

func (b *Backend) handleBackups(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	names := make([]string, 0, len(b.backups))
	for _, s := range b.backups {
		names = append(names, s.name)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string][]string{"files": names})
}

func (b *Backend) handleBackup(w http.ResponseWriter, r *http.Request) {
	cfg, ok := b.findBackup(r.PathValue("name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "backup not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, model.Encode(cfg))
}

func (b *Backend) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	cfg, ok := b.findBackup(req.Name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "backup not found"})
		return
	}

	b.mu.Lock()
	b.config = cfg
	b.mu.Unlock()
	b.logger.Info("configuration restored", "backup", req.Name)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (b *Backend) findBackup(name string) (model.Configuration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.backups {
		if s.name == name {
			return s.cfg, true
		}
	}
	return model.Configuration{}, false
}

// handleValidate accepts any document that decodes as a configuration
// whose servers all have a name and an address.
func (b *Backend) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	cfg, err := model.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	for gi, g := range cfg.Groups {
		for si, s := range g.Servers {
			if s.Name == "" || s.IP == "" {
				detail := fmt.Sprintf("groups[%d].servers[%d]: name and ip are required", gi, si)
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": detail})
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
