package labboard

import (
	"time"

	"github.com/jpalmerr/labboard/internal/engine"
)

// Report is a one-shot view of the dashboard, as returned by
// [Labboard.Check].
type Report struct {
	// Source names the configuration source that won: "remote", "static",
	// "local", "embedded" or "empty".
	Source string `json:"source"`

	// OverrideDiverges reports that a saved local override differs from
	// the configuration that was loaded.
	OverrideDiverges bool `json:"override_diverges"`

	Groups []GroupReport `json:"groups"`
}

// GroupReport is one group of a [Report].
type GroupReport struct {
	Name    string         `json:"name"`
	Servers []ServerReport `json:"servers"`
}

// ServerReport is one server of a [Report].
type ServerReport struct {
	Name      string    `json:"name"`
	IP        string    `json:"ip"`
	Role      string    `json:"role,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Probed    bool      `json:"probed"`
	Verdict   Verdict   `json:"verdict"`
	CheckedAt time.Time `json:"checked_at"`
}

// Counts returns the number of servers per verdict.
func (r Report) Counts() map[Verdict]int {
	counts := map[Verdict]int{VerdictOnline: 0, VerdictOffline: 0, VerdictUnknown: 0}
	for _, g := range r.Groups {
		for _, s := range g.Servers {
			counts[s.Verdict]++
		}
	}
	return counts
}

func newReport(snap engine.Snapshot) Report {
	verdicts := make(map[string]int, len(snap.Badges))
	for i, b := range snap.Badges {
		verdicts[b.ID] = i
	}

	r := Report{
		Source:           snap.Source,
		OverrideDiverges: snap.OverrideDiverges,
		Groups:           make([]GroupReport, 0, len(snap.Groups)),
	}
	for _, g := range snap.Groups {
		gr := GroupReport{Name: g.Name, Servers: make([]ServerReport, 0, len(g.Cards))}
		for _, c := range g.Cards {
			sr := ServerReport{
				Name:    c.Name,
				IP:      c.IP,
				Role:    c.Role,
				Tags:    append([]string(nil), c.Tags...),
				Probed:  c.Probed,
				Verdict: VerdictUnknown,
			}
			if i, ok := verdicts[c.ID]; ok {
				sr.Verdict = snap.Badges[i].Verdict
				sr.CheckedAt = snap.Badges[i].CheckedAt
			}
			gr.Servers = append(gr.Servers, sr)
		}
		r.Groups = append(r.Groups, gr)
	}
	return r
}
