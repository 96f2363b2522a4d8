package labboard

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const fleetDoc = `{"groups":[
  {"name":"Core","servers":[
    {"name":"nas","ip":"10.0.0.5","tags":["storage"],"checks":[{"type":"ping"}]},
    {"name":"router","ip":"10.0.0.1","tags":["net"],"checks":[{"type":"ping"}]}
  ]},
  {"name":"Lab","servers":[
    {"name":"printer","ip":"10.0.0.9","checks":[]}
  ]}
]}`

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backend is a minimal homelab backend: it serves a fixed configuration and
// answers health probes.
type backend struct {
	mu      sync.Mutex
	servers string
	down    bool
	offline map[string]bool
	probes  int
}

func newBackend(t *testing.T, servers string) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{servers: servers, offline: map[string]bool{}}
	ts := httptest.NewServer(b)
	t.Cleanup(ts.Close)
	return b, ts
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.URL.Path {
	case "/servers":
		if b.down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, b.servers)
	case "/health":
		var req struct {
			Target string `json:"target"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.probes++
		status := "online"
		if b.offline[req.Target] {
			status = "offline"
		}
		_, _ = io.WriteString(w, `{"status":"`+status+`"}`)
	case "/discoveries":
		_, _ = io.WriteString(w, `[]`)
	case "/validate":
		_, _ = io.WriteString(w, `{"ok":true}`)
	default:
		http.NotFound(w, r)
	}
}

func (b *backend) probeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.probes
}
