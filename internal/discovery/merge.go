// Package discovery stages hosts found by the backend scanner into the
// editor buffer and manages the recurring scan schedule.
//
// Merging only stages an edit: it never re-renders or persists. The operator
// commits the buffer explicitly afterwards.
package discovery

import (
	"strings"

	"github.com/jpalmerr/labboard/internal/editor"
	"github.com/jpalmerr/labboard/internal/model"
)

const stubName = "New Device"

// Merge appends a stub server for host to the "Discovered" group of the
// buffer's configuration, creating the group at the end when absent.
// With withLinks the host's suggested links are copied onto the stub.
//
// It fails with [*editor.EditError] when the buffer does not parse; the
// buffer is left untouched in that case.
func Merge(buf *editor.Buffer, host model.DiscoveredHost, withLinks bool) error {
	return buf.Edit("merge discovered host", func(cfg *model.Configuration) error {
		g := ensureDiscoveredGroup(cfg)
		g.Servers = append(g.Servers, Stub(host, withLinks))
		return nil
	})
}

// Stub converts a discovered host into a server entry.
func Stub(host model.DiscoveredHost, withLinks bool) model.Server {
	links := []model.Link{}
	if withLinks && host.SuggestedLinks != nil {
		links = append(links, host.SuggestedLinks...)
	}
	return model.Server{
		Name:  stubName,
		IP:    host.IP,
		OS:    "",
		Role:  "",
		Tags:  []string{"new", "discovered"},
		Links: links,
		Checks: []model.Check{
			{Type: "ping"},
			{Type: "tcp", Port: 22},
		},
	}
}

// ensureDiscoveredGroup returns the first group named "Discovered"
// (case-insensitive), appending one when absent.
func ensureDiscoveredGroup(cfg *model.Configuration) *model.Group {
	for i := range cfg.Groups {
		if strings.EqualFold(cfg.Groups[i].Name, model.DiscoveredGroupName) {
			return &cfg.Groups[i]
		}
	}
	cfg.Groups = append(cfg.Groups, model.Group{Name: model.DiscoveredGroupName, Servers: []model.Server{}})
	return &cfg.Groups[len(cfg.Groups)-1]
}
