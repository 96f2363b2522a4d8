package health

import (
	"encoding/json"
	"strings"

	"github.com/jpalmerr/labboard/internal/model"
)

// VerdictExtractor determines a verdict from a health response body.
type VerdictExtractor func(body []byte) model.Verdict

// JSONFieldExtractor returns a [VerdictExtractor] that reads a JSON field
// using dot notation ("status", "result.state").
//
// Values map to verdicts:
//   - online: "online", "up", "ok", "healthy", "true"
//   - offline: "offline", "down", "unreachable", "false"
//   - unknown: anything else, missing fields and unparseable bodies
func JSONFieldExtractor(path string) VerdictExtractor {
	parts := strings.Split(path, ".")

	return func(body []byte) model.Verdict {
		var data interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			return model.VerdictUnknown
		}
		return mapStringToVerdict(strings.ToLower(extractJSONPath(data, parts)))
	}
}

// FirstMatch tries extractors in order and returns the first verdict that
// is not unknown.
func FirstMatch(extractors ...VerdictExtractor) VerdictExtractor {
	return func(body []byte) model.Verdict {
		for _, extractor := range extractors {
			if v := extractor(body); v != model.VerdictUnknown {
				return v
			}
		}
		return model.VerdictUnknown
	}
}

// DefaultExtractor reads the top-level "status" field.
var DefaultExtractor = JSONFieldExtractor("status")

// extractJSONPath walks a JSON structure using dot notation parts.
func extractJSONPath(data interface{}, parts []string) string {
	current := data

	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current, ok = obj[part]
		if !ok {
			return ""
		}
	}

	switch v := current.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func mapStringToVerdict(s string) model.Verdict {
	switch s {
	case "online", "up", "ok", "healthy", "true":
		return model.VerdictOnline
	case "offline", "down", "unreachable", "false":
		return model.VerdictOffline
	default:
		return model.VerdictUnknown
	}
}
