package editor

import (
	"errors"
	"fmt"

	"github.com/jpalmerr/labboard/internal/model"
)

// Template kinds accepted by [Buffer.InsertTemplate].
const (
	TemplateServer = "server"
	TemplateGroup  = "group"
)

const ungroupedName = "Ungrouped"

// ErrUnknownTemplate is returned for a template kind other than "server"
// or "group".
var ErrUnknownTemplate = errors.New("unknown template kind")

// ServerTemplate is the starting point for a hand-added server.
func ServerTemplate() model.Server {
	return model.Server{
		Name:  "New Server",
		IP:    "192.168.0.10",
		OS:    "Ubuntu 24.04",
		Role:  "App server",
		Tags:  []string{"app", "linux"},
		Links: []model.Link{{Label: "SSH", URL: "ssh://root@192.168.0.10"}},
		Checks: []model.Check{
			{Type: "ping"},
			{Type: "tcp", Port: 22},
			{Type: "http", URL: "http://192.168.0.10"},
		},
	}
}

// GroupTemplate is the starting point for a hand-added group.
func GroupTemplate() model.Group {
	return model.Group{Name: "New Group", Servers: []model.Server{ServerTemplate()}}
}

// InsertTemplate appends a server template to the first group (creating an
// "Ungrouped" group when there is none) or appends a group template.
func (b *Buffer) InsertTemplate(kind string) error {
	return b.Edit("insert template", func(cfg *model.Configuration) error {
		switch kind {
		case TemplateServer:
			if len(cfg.Groups) == 0 {
				cfg.Groups = append(cfg.Groups, model.Group{Name: ungroupedName, Servers: []model.Server{}})
			}
			cfg.Groups[0].Servers = append(cfg.Groups[0].Servers, ServerTemplate())
		case TemplateGroup:
			cfg.Groups = append(cfg.Groups, GroupTemplate())
		default:
			return fmt.Errorf("%w %q (expected %q or %q)", ErrUnknownTemplate, kind, TemplateServer, TemplateGroup)
		}
		return nil
	})
}
