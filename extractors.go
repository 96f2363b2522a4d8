package labboard

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jpalmerr/labboard/internal/health"
)

// JSONFieldExtractor returns a [VerdictExtractor] that reads a JSON field
// using dot notation, for example "result.state".
//
// "online", "up", "ok", "healthy" and true map to [VerdictOnline];
// "offline", "down", "unreachable" and false map to [VerdictOffline].
// Anything else, including a missing field or a body that is not JSON, is
// [VerdictUnknown].
func JSONFieldExtractor(path string) VerdictExtractor {
	return health.JSONFieldExtractor(path)
}

// FirstMatch returns a [VerdictExtractor] that tries extractors in order and
// returns the first verdict that is not [VerdictUnknown].
//
// Example:
//
//	extractor := labboard.FirstMatch(
//	    labboard.JSONFieldExtractor("result.state"),
//	    labboard.JSONFieldExtractor("status"),
//	)
func FirstMatch(extractors ...VerdictExtractor) VerdictExtractor {
	return health.FirstMatch(extractors...)
}

// RegexExtractor returns a [VerdictExtractor] that matches the response body
// against pattern. The first capture group is compared case-insensitively
// against onlineMatch:
//   - equal: [VerdictOnline]
//   - not equal: [VerdictOffline]
//   - no match: [VerdictUnknown]
//
// Returns an error if the pattern is invalid or has no capture group.
func RegexExtractor(pattern, onlineMatch string) (VerdictExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() < 1 {
		return nil, errors.New("pattern must contain a capture group")
	}

	return func(body []byte) Verdict {
		matches := re.FindSubmatch(body)
		if len(matches) < 2 {
			return VerdictUnknown
		}
		if strings.EqualFold(string(matches[1]), onlineMatch) {
			return VerdictOnline
		}
		return VerdictOffline
	}, nil
}

// MustRegexExtractor is like [RegexExtractor] but panics if the pattern is
// invalid.
func MustRegexExtractor(pattern, onlineMatch string) VerdictExtractor {
	extractor, err := RegexExtractor(pattern, onlineMatch)
	if err != nil {
		panic("labboard: invalid regex pattern: " + err.Error())
	}
	return extractor
}

// ContainsExtractor returns a [VerdictExtractor] that reports
// [VerdictOnline] when the body contains text (case-insensitive) and
// [VerdictOffline] otherwise.
func ContainsExtractor(text string) VerdictExtractor {
	lower := strings.ToLower(text)
	return func(body []byte) Verdict {
		if strings.Contains(strings.ToLower(string(body)), lower) {
			return VerdictOnline
		}
		return VerdictOffline
	}
}

// DefaultExtractor reads the top-level "status" field. It is used when no
// extractor is configured.
var DefaultExtractor = health.DefaultExtractor
