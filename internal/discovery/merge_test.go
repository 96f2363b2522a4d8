package discovery

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/labboard/internal/editor"
	"github.com/jpalmerr/labboard/internal/model"
)

func host() model.DiscoveredHost {
	return model.DiscoveredHost{
		IP:             "10.0.0.9",
		SuggestedLinks: []model.Link{{Label: "UI", URL: "http://10.0.0.9"}},
	}
}

func TestMerge_WithLinksIntoEmptyBuffer(t *testing.T) {
	buf := editor.NewBuffer(`{"groups":[]}`)

	require.NoError(t, Merge(buf, host(), true))

	cfg, err := buf.Parse("check")
	require.NoError(t, err)
	require.Len(t, cfg.Groups, 1)
	assert.Equal(t, "Discovered", cfg.Groups[0].Name)
	require.Len(t, cfg.Groups[0].Servers, 1)

	srv := cfg.Groups[0].Servers[0]
	assert.Equal(t, "10.0.0.9", srv.IP)
	assert.Equal(t, []model.Link{{Label: "UI", URL: "http://10.0.0.9"}}, srv.Links)
}

func TestMerge_WithoutLinks(t *testing.T) {
	buf := editor.NewBuffer(`{"groups":[]}`)

	require.NoError(t, Merge(buf, host(), false))

	cfg, _ := buf.Parse("check")
	srv := cfg.Groups[0].Servers[0]
	assert.Empty(t, srv.Links)
	assert.NotNil(t, srv.Links)
	assert.Contains(t, buf.Text(), `"links": []`)
}

func TestMerge_StubDefaults(t *testing.T) {
	srv := Stub(host(), false)

	assert.Equal(t, "New Device", srv.Name)
	assert.Equal(t, "", srv.OS)
	assert.Equal(t, "", srv.Role)
	assert.ElementsMatch(t, []string{"new", "discovered"}, srv.Tags)
	assert.Equal(t, []model.Check{{Type: "ping"}, {Type: "tcp", Port: 22}}, srv.Checks)

	data, err := json.Marshal(srv)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"os":""`)
}

func TestMerge_ReusesExistingGroupCaseInsensitive(t *testing.T) {
	buf := editor.NewBuffer(`{"groups":[{"name":"Core","servers":[]},{"name":"discovered","servers":[{"name":"old","ip":"10.0.0.3"}]},{"name":"Lab","servers":[]}]}`)

	require.NoError(t, Merge(buf, host(), false))

	cfg, _ := buf.Parse("check")
	require.Len(t, cfg.Groups, 3)
	assert.Equal(t, "discovered", cfg.Groups[1].Name)
	assert.Len(t, cfg.Groups[1].Servers, 2)
	assert.Equal(t, "10.0.0.9", cfg.Groups[1].Servers[1].IP)
}

func TestMerge_AppendsGroupAtEnd(t *testing.T) {
	buf := editor.NewBuffer(`{"groups":[{"name":"Core","servers":[]}]}`)

	require.NoError(t, Merge(buf, host(), false))

	cfg, _ := buf.Parse("check")
	require.Len(t, cfg.Groups, 2)
	assert.Equal(t, "Core", cfg.Groups[0].Name)
	assert.Equal(t, "Discovered", cfg.Groups[1].Name)
}

func TestMerge_BufferWithoutGroups(t *testing.T) {
	buf := editor.NewBuffer(`{"grafana":{"panels":[]}}`)

	require.NoError(t, Merge(buf, host(), false))

	cfg, err := buf.Parse("check")
	require.NoError(t, err)
	require.Len(t, cfg.Groups, 1)
	assert.Equal(t, "Discovered", cfg.Groups[0].Name)
	assert.Equal(t, "10.0.0.9", cfg.Groups[0].Servers[0].IP)
}

func TestMerge_InvalidBufferIsEditError(t *testing.T) {
	buf := editor.NewBuffer(`{"groups":[`)

	err := Merge(buf, host(), true)

	require.Error(t, err)
	assert.True(t, editor.IsEditError(err))
	assert.Equal(t, `{"groups":[`, buf.Text())
}

func TestMerge_LinksAreCopied(t *testing.T) {
	h := host()
	srv := Stub(h, true)
	srv.Links[0].Label = "changed"
	assert.Equal(t, "UI", h.SuggestedLinks[0].Label)
}
