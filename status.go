package labboard

import (
	"time"

	"github.com/jpalmerr/labboard/internal/health"
	"github.com/jpalmerr/labboard/internal/model"
)

// Verdict is the tri-state health of a rendered server: [VerdictOnline],
// [VerdictOffline] or [VerdictUnknown]. A badge starts unknown and resolves
// at most once per render.
type Verdict = model.Verdict

const (
	VerdictOnline  = model.VerdictOnline
	VerdictOffline = model.VerdictOffline

	// VerdictUnknown covers servers without checks, unreachable backends
	// and health responses that could not be read.
	VerdictUnknown = model.VerdictUnknown
)

// VerdictExtractor determines the [Verdict] of a server from the body of
// the backend's health response.
//
// Extractors are called within a panic recovery boundary. A panicking
// extractor yields [VerdictUnknown] and logs the stack trace with a
// correlation ID.
type VerdictExtractor = health.VerdictExtractor

// VerdictResult is the outcome of one server's health probe.
type VerdictResult struct {
	// Server is the display name of the server.
	Server string

	// Group is the name of the group the server is rendered in.
	Group string

	// CardID is the render identity of the server's card.
	CardID string

	// Generation identifies the render the verdict belongs to.
	Generation string

	Verdict   Verdict
	CheckedAt time.Time
}
