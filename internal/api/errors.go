package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is returned when the backend answers with a non-success status.
type StatusError struct {
	Op         string
	StatusCode int
	// Message is the backend-reported reason, or the HTTP status text.
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Message, e.StatusCode)
}

// Reason returns the backend-reported reason or status text.
func (e *StatusError) Reason() string {
	return e.Message
}

// errorMessage extracts "error" (plus "detail") or FastAPI-style "detail"
// from an error body, falling back to the HTTP status text.
func errorMessage(resp Response) string {
	var body struct {
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		detail := detailText(body.Detail)
		switch {
		case body.Error != "" && detail != "":
			return body.Error + ": " + detail
		case body.Error != "":
			return body.Error
		case detail != "":
			return detail
		}
	}

	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

// detailText renders a detail member that may be a string or structured data.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
