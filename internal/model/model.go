package model

import (
	"sort"
	"strings"
)

// DiscoveredGroupName is the group that receives merged discovery results.
const DiscoveredGroupName = "Discovered"

// Configuration is the full declarative dashboard description.
type Configuration struct {
	Groups  []Group  `json:"groups"`
	Grafana *Grafana `json:"grafana,omitempty"`
}

// Group is a named, ordered collection of servers.
// Group names are not guaranteed unique.
type Group struct {
	Name    string   `json:"name"`
	Servers []Server `json:"servers"`
}

// Server describes one device on the dashboard.
//
// An empty Checks list means the server's verdict is permanently unknown and
// it is never probed.
type Server struct {
	Name   string   `json:"name"`
	IP     string   `json:"ip"`
	OS     string   `json:"os"`
	Role   string   `json:"role"`
	Tags   []string `json:"tags"`
	Links  []Link   `json:"links"`
	Checks []Check  `json:"checks"`
}

// Link is an outbound action rendered on a server card.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Check is a probe descriptor forwarded verbatim to the health service.
type Check struct {
	// Type is "ping", "tcp" or "http".
	Type string `json:"type"`
	// Port is used by "tcp" checks.
	Port int `json:"port,omitempty"`
	// URL is used by "http" checks.
	URL string `json:"url,omitempty"`
}

// Grafana holds embedded panel descriptors.
type Grafana struct {
	Panels []Panel `json:"panels"`
}

// Panel is one embedded Grafana view.
type Panel struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// DiscoveredHost is a candidate host produced by the backend scan service.
type DiscoveredHost struct {
	IP             string   `json:"ip"`
	Vendor         *string  `json:"vendor,omitempty"`
	OpenPorts      []int    `json:"open_ports"`
	Services       []string `json:"services"`
	SuggestedLinks []Link   `json:"suggested_links"`
	RoleGuess      string   `json:"role_guess,omitempty"`
	Labels         []string `json:"labels,omitempty"`
	Banners        []string `json:"banners,omitempty"`
}

// Schedule is the backend's recurring scan configuration.
type Schedule struct {
	Enabled     bool   `json:"enabled"`
	Subnet      string `json:"subnet"`
	IntervalMin int    `json:"interval_min"`
	TopPorts    int    `json:"top_ports"`
}

// Verdict is the tri-state health result of one rendered server.
type Verdict string

const (
	VerdictOnline  Verdict = "online"
	VerdictOffline Verdict = "offline"
	VerdictUnknown Verdict = "unknown"
)

// Terminal reports whether v is a probe outcome other than unknown.
func (v Verdict) Terminal() bool {
	return v == VerdictOnline || v == VerdictOffline
}

// Empty returns the absolute-floor configuration.
func Empty() Configuration {
	return Configuration{Groups: []Group{}}
}

// ServerCount returns the number of servers across all groups.
func (c Configuration) ServerCount() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Servers)
	}
	return n
}

// Clone returns a deep copy of c.
func (c Configuration) Clone() Configuration {
	out := Configuration{Groups: make([]Group, len(c.Groups))}
	for i, g := range c.Groups {
		out.Groups[i] = Group{Name: g.Name, Servers: make([]Server, len(g.Servers))}
		for j, s := range g.Servers {
			out.Groups[i].Servers[j] = s.Clone()
		}
	}
	if c.Grafana != nil {
		out.Grafana = &Grafana{Panels: append([]Panel{}, c.Grafana.Panels...)}
	}
	return out
}

// Clone returns a deep copy of s.
func (s Server) Clone() Server {
	s.Tags = append([]string{}, s.Tags...)
	s.Links = append([]Link{}, s.Links...)
	s.Checks = append([]Check{}, s.Checks...)
	return s
}

// Tags returns the distinct tags of all servers, sorted case-insensitively.
func Tags(c Configuration) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, g := range c.Groups {
		for _, s := range g.Servers {
			for _, t := range s.Tags {
				if _, ok := seen[t]; ok {
					continue
				}
				seen[t] = struct{}{}
				tags = append(tags, t)
			}
		}
	}
	sort.SliceStable(tags, func(i, j int) bool {
		li, lj := strings.ToLower(tags[i]), strings.ToLower(tags[j])
		if li == lj {
			return tags[i] < tags[j]
		}
		return li < lj
	})
	return tags
}
