package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/labboard/internal/api"
	"github.com/jpalmerr/labboard/internal/backup"
	"github.com/jpalmerr/labboard/internal/editor"
	"github.com/jpalmerr/labboard/internal/filter"
	"github.com/jpalmerr/labboard/internal/model"
	"github.com/jpalmerr/labboard/internal/resolve"
	"github.com/jpalmerr/labboard/internal/session"
)

const fleetDoc = `{"groups":[
  {"name":"Core","servers":[
    {"name":"nas","ip":"10.0.0.5","tags":["storage"],"checks":[{"type":"ping"}]},
    {"name":"router","ip":"10.0.0.1","tags":["net"],"checks":[{"type":"ping"}]}
  ]},
  {"name":"Lab","servers":[
    {"name":"pi","ip":"10.0.0.7","tags":["storage","arm"],"checks":[{"type":"tcp","port":22}]}
  ]}
]}`

// fakeBackend is an in-memory homelab backend.
type fakeBackend struct {
	mu          sync.Mutex
	servers     string
	serversCode int
	healthCalls []string
	offline     map[string]bool
	saved       []string
	savePaths   []string
	saveCode    int
	backups     map[string]string
	backupOrder []string
	discovered  []model.DiscoveredHost
	apiKeys     []string
}

func newFakeBackend(servers string) *fakeBackend {
	return &fakeBackend{
		servers:     servers,
		serversCode: http.StatusOK,
		offline:     map[string]bool{},
		backups:     map[string]string{},
	}
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.apiKeys = append(f.apiKeys, r.Header.Get("X-API-KEY"))
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.URL.Path == "/servers":
		w.WriteHeader(f.serversCode)
		_, _ = io.WriteString(w, f.servers)

	case r.URL.Path == "/health":
		var req struct {
			Target string `json:"target"`
		}
		_ = json.Unmarshal(body, &req)
		f.healthCalls = append(f.healthCalls, req.Target)
		status := "online"
		if f.offline[req.Target] {
			status = "offline"
		}
		_, _ = io.WriteString(w, `{"status":"`+status+`"}`)

	case r.URL.Path == "/save-config" || r.URL.Path == "/save-config-with-backup":
		if f.saveCode != 0 {
			w.WriteHeader(f.saveCode)
			_, _ = io.WriteString(w, `{"detail":"disk full"}`)
			return
		}
		f.saved = append(f.saved, string(body))
		f.savePaths = append(f.savePaths, r.URL.Path)
		f.servers = string(body)
		_, _ = io.WriteString(w, `{"path":"servers.json"}`)

	case r.URL.Path == "/backups":
		_ = json.NewEncoder(w).Encode(map[string]any{"files": f.backupOrder})

	case strings.HasPrefix(r.URL.Path, "/backups/"):
		name := strings.TrimPrefix(r.URL.Path, "/backups/")
		text, ok := f.backups[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, text)

	case r.URL.Path == "/restore-config":
		var req struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(body, &req)
		text, ok := f.backups[req.Name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"Not found"}`)
			return
		}
		f.servers = text
		_, _ = io.WriteString(w, `{"ok":true}`)

	case r.URL.Path == "/validate":
		_, _ = io.WriteString(w, `{"ok":true}`)

	case r.URL.Path == "/discoveries":
		_ = json.NewEncoder(w).Encode(f.discovered)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeBackend) healthCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.healthCalls)
}

type fixture struct {
	backend *fakeBackend
	session *session.Session
	engine  *Engine
}

func newFixture(t *testing.T, servers string) *fixture {
	t.Helper()
	backend := newFakeBackend(servers)
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	sess := session.New("", "")
	e := New(Config{
		Client:        api.NewClient(srv.URL, sess, time.Second),
		Session:       sess,
		FilterDelay:   time.Hour,
		ValidateDelay: time.Hour,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(e.Close)

	return &fixture{backend: backend, session: sess, engine: e}
}

func TestInit_RendersAndProbesEveryServer(t *testing.T) {
	f := newFixture(t, fleetDoc)
	f.backend.offline["10.0.0.1"] = true

	res := f.engine.Init(context.Background())
	f.engine.Wait()

	assert.Equal(t, resolve.SourceRemote, res.Source)
	assert.Equal(t, 3, f.backend.healthCount())
	assert.Equal(t, int64(3), f.engine.Requests())

	snap := f.engine.View()
	require.Len(t, snap.Groups, 2)
	assert.Equal(t, []string{"arm", "net", "storage"}, snap.Tags)

	verdicts := map[string]model.Verdict{}
	for _, b := range snap.Badges {
		verdicts[b.ID] = b.Verdict
	}
	assert.Equal(t, model.VerdictOnline, verdicts["g0-s0"])
	assert.Equal(t, model.VerdictOffline, verdicts["g0-s1"])
	assert.Equal(t, model.VerdictOnline, verdicts["g1-s0"])
}

func TestInit_ServerWithoutChecksIsUnknownWithoutRequest(t *testing.T) {
	f := newFixture(t, `{"groups":[{"name":"Core","servers":[{"name":"nas","ip":"10.0.0.5","tags":["storage"],"checks":[]}]}]}`)

	f.engine.Init(context.Background())
	f.engine.Wait()

	snap := f.engine.View()
	require.Len(t, snap.Groups, 1)
	assert.Equal(t, "Core", snap.Groups[0].Name)
	require.Len(t, snap.Groups[0].Cards, 1)
	assert.Equal(t, "nas", snap.Groups[0].Cards[0].Name)
	require.Len(t, snap.Badges, 1)
	assert.Equal(t, model.VerdictUnknown, snap.Badges[0].Verdict)
	assert.Zero(t, f.backend.healthCount())
}

func TestInit_RemoteWinsButOverrideSeedsEditor(t *testing.T) {
	f := newFixture(t, fleetDoc)
	local := `{"groups":[{"name":"Local","servers":[]}]}`
	require.NoError(t, f.session.SetOverride(local))

	res := f.engine.Init(context.Background())

	assert.Equal(t, resolve.SourceRemote, res.Source)
	assert.True(t, res.OverrideDiverges)
	assert.Equal(t, "Core", f.engine.View().Groups[0].Name)
	assert.Equal(t, local, f.engine.Buffer())
}

func TestInit_BackendDownFallsBackToOverride(t *testing.T) {
	f := newFixture(t, "")
	f.backend.serversCode = http.StatusServiceUnavailable
	require.NoError(t, f.session.SetOverride(`{"groups":[{"name":"Local","servers":[]}]}`))

	res := f.engine.Init(context.Background())

	assert.Equal(t, resolve.SourceOverride, res.Source)
	assert.Equal(t, "Local", f.engine.View().Groups[0].Name)
}

func TestApply_InvalidBufferChangesNothing(t *testing.T) {
	f := newFixture(t, fleetDoc)
	f.engine.Init(context.Background())
	f.engine.Wait()
	before := f.engine.View().Generation

	f.engine.SetBuffer(`{"groups":[`)
	_, err := f.engine.Apply()

	require.Error(t, err)
	assert.True(t, editor.IsEditError(err))
	assert.Equal(t, before, f.engine.View().Generation)
	_, ok := f.session.Override()
	assert.False(t, ok)
	assert.Equal(t, `{"groups":[`, f.engine.Buffer())
}

func TestApply_StoresOverrideAndRenders(t *testing.T) {
	f := newFixture(t, fleetDoc)
	f.engine.Init(context.Background())
	f.engine.Wait()

	f.engine.SetBuffer(`{"groups":[{"name":"Edited","servers":[]}]}`)
	cfg, err := f.engine.Apply()
	require.NoError(t, err)

	assert.Equal(t, "Edited", cfg.Groups[0].Name)
	assert.Equal(t, "Edited", f.engine.View().Groups[0].Name)
	override, ok := f.session.Override()
	require.True(t, ok)
	assert.Contains(t, override, "Edited")
}

func TestSave_PersistsAndReportsFailures(t *testing.T) {
	f := newFixture(t, fleetDoc)
	f.engine.Init(context.Background())
	f.engine.Wait()

	f.engine.SetBuffer(`{"groups":[{"name":"Saved","servers":[]}]}`)
	res, err := f.engine.Save(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "servers.json", res.Path)
	assert.Equal(t, []string{"/save-config-with-backup"}, f.backend.savePaths)

	f.backend.saveCode = http.StatusInternalServerError
	_, err = f.engine.Save(context.Background(), false)
	require.Error(t, err)
	assert.True(t, IsPersistenceError(err))
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, f.backend.saved, 1)
}

func TestRevert_RestoresResolvedConfiguration(t *testing.T) {
	f := newFixture(t, fleetDoc)
	f.engine.Init(context.Background())
	f.engine.Wait()

	f.engine.SetBuffer(`{"groups":[]}`)
	_, err := f.engine.Apply()
	require.NoError(t, err)
	require.Empty(t, f.engine.View().Groups)

	require.NoError(t, f.engine.Revert())

	assert.Len(t, f.engine.View().Groups, 2)
	_, ok := f.session.Override()
	assert.False(t, ok)
	assert.Contains(t, f.engine.Buffer(), `"name": "Core"`)
}

func TestClearLocal_LeavesDashboardAlone(t *testing.T) {
	f := newFixture(t, fleetDoc)
	f.engine.Init(context.Background())
	f.engine.Wait()

	f.engine.SetBuffer(`{"groups":[]}`)
	_, err := f.engine.Apply()
	require.NoError(t, err)

	require.NoError(t, f.engine.ClearLocal())

	_, ok := f.session.Override()
	assert.False(t, ok)
	assert.Empty(t, f.engine.View().Groups)
	assert.Equal(t, `{"groups":[]}`, f.engine.Buffer())
}

func TestExportImport_RoundTrip(t *testing.T) {
	f := newFixture(t, fleetDoc)
	f.engine.Init(context.Background())
	f.engine.Wait()

	exported := f.engine.Export()
	want, err := model.DecodeString(exported)
	require.NoError(t, err)

	f.engine.SetBuffer(`{"groups":[]}`)
	got, err := f.engine.Import(exported)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, model.Encode(want), f.engine.Buffer())
	assert.Len(t, f.engine.View().Groups, 2)
}

func TestImport_InvalidChangesNothing(t *testing.T) {
	f := newFixture(t, fleetDoc)
	f.engine.Init(context.Background())
	f.engine.Wait()
	before := f.engine.Buffer()

	_, err := f.engine.Import(`{"servers":[]}`)

	require.Error(t, err)
	assert.True(t, editor.IsEditError(err))
	assert.Equal(t, before, f.engine.Buffer())
}

func TestMergeDiscovered_StagesWithoutRendering(t *testing.T) {
	f := newFixture(t, `{"groups":[]}`)
	f.backend.discovered = []model.DiscoveredHost{{
		IP:             "10.0.0.9",
		SuggestedLinks: []model.Link{{Label: "UI", URL: "http://10.0.0.9"}},
	}}
	f.engine.Init(context.Background())
	f.engine.Wait()
	gen := f.engine.View().Generation

	require.NoError(t, f.engine.MergeDiscovered("10.0.0.9", true))

	cfg, err := model.DecodeString(f.engine.Buffer())
	require.NoError(t, err)
	require.Len(t, cfg.Groups, 1)
	assert.Equal(t, "Discovered", cfg.Groups[0].Name)
	assert.Equal(t, "10.0.0.9", cfg.Groups[0].Servers[0].IP)
	assert.Equal(t, []model.Link{{Label: "UI", URL: "http://10.0.0.9"}}, cfg.Groups[0].Servers[0].Links)
	assert.Equal(t, gen, f.engine.View().Generation)

	assert.Error(t, f.engine.MergeDiscovered("10.0.0.99", false))
}

func TestRestoreBackup(t *testing.T) {
	f := newFixture(t, fleetDoc)
	f.backend.backupOrder = []string{"servers-1.json", "servers-2.json"}
	f.backend.backups["servers-1.json"] = `{"groups":[{"name":"Old","servers":[]}]}`
	f.engine.Init(context.Background())
	f.engine.Wait()

	names, err := f.engine.Backups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"servers-2.json", "servers-1.json"}, names)

	err = f.engine.RestoreBackup(context.Background(), "servers-1.json", func(string) bool { return false })
	assert.ErrorIs(t, err, backup.ErrNotConfirmed)
	assert.Equal(t, "Core", f.engine.View().Groups[0].Name)

	require.NoError(t, f.engine.RestoreBackup(context.Background(), "servers-1.json", backup.Confirmed))
	assert.Equal(t, "Old", f.engine.View().Groups[0].Name)
	assert.Contains(t, f.engine.Buffer(), `"name": "Old"`)

	err = f.engine.RestoreBackup(context.Background(), "missing.json", backup.Confirmed)
	assert.True(t, IsPersistenceError(err))
}

func TestFilter_QueryIsDebouncedAndTagsImmediate(t *testing.T) {
	f := newFixture(t, fleetDoc)
	f.engine.Init(context.Background())
	f.engine.Wait()

	assert.Len(t, f.engine.View().Visible, 3)

	f.engine.SetQuery("NAS")
	assert.Len(t, f.engine.View().Visible, 3, "query applies only after the debounce window")
	require.True(t, f.engine.FlushQuery())
	assert.Equal(t, []string{"g0-s0"}, f.engine.View().Visible)

	f.engine.SetQuery("")
	f.engine.FlushQuery()
	assert.True(t, f.engine.ToggleTag("storage"))
	assert.Equal(t, []string{"g0-s0", "g1-s0"}, f.engine.View().Visible)
	assert.True(t, f.engine.ToggleTag("arm"))
	assert.Equal(t, []string{"g1-s0"}, f.engine.View().Visible)

	view := f.engine.ViewWith(filter.Query{Text: "router"})
	assert.Equal(t, []string{"g0-s1"}, view.Visible)
	assert.Equal(t, []string{"arm", "storage"}, f.engine.Filter().ActiveTags)
}

func TestCredentials_AttachedToLaterRequests(t *testing.T) {
	f := newFixture(t, fleetDoc)
	require.NoError(t, f.engine.SetAPIKey("secret"))
	assert.Error(t, f.engine.SetBearer(""))

	f.engine.Init(context.Background())
	f.engine.Wait()

	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	require.NotEmpty(t, f.backend.apiKeys)
	for _, k := range f.backend.apiKeys {
		assert.Equal(t, "secret", k)
	}
}
