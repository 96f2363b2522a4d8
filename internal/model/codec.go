package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoGroups is returned when a document parses but has no "groups" array.
var ErrNoGroups = errors.New(`configuration must be an object with a "groups" array`)

// ErrNotObject is returned by [DecodeLenient] for JSON that is not an object.
var ErrNotObject = errors.New("configuration must be a JSON object")

// Decode parses text as a Configuration.
//
// The document must be a JSON object whose "groups" member is an array.
// Missing optional fields are defaulted so that every slice is non-nil.
func Decode(text []byte) (Configuration, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(text, &probe); err != nil {
		return Configuration{}, err
	}
	raw, ok := probe["groups"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return Configuration{}, ErrNoGroups
	}

	var cfg Configuration
	if err := json.Unmarshal(text, &cfg); err != nil {
		return Configuration{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return Normalize(cfg), nil
}

// DecodeLenient is [Decode] for hand-edited text: any JSON object is
// accepted and a missing, null or non-array "groups" member becomes an
// empty list.
func DecodeLenient(text []byte) (Configuration, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(text, &probe); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Configuration{}, ErrNotObject
		}
		return Configuration{}, err
	}
	if probe == nil {
		return Configuration{}, ErrNotObject
	}

	if raw, ok := probe["groups"]; !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		probe["groups"] = json.RawMessage("[]")
		fixed, err := json.Marshal(probe)
		if err != nil {
			return Configuration{}, err
		}
		text = fixed
	}
	return Decode(text)
}

// DecodeString is [Decode] for string input.
func DecodeString(text string) (Configuration, error) {
	return Decode([]byte(text))
}

// Normalize defaults nil slices throughout c.
func Normalize(c Configuration) Configuration {
	if c.Groups == nil {
		c.Groups = []Group{}
	}
	for i := range c.Groups {
		g := &c.Groups[i]
		if g.Servers == nil {
			g.Servers = []Server{}
		}
		for j := range g.Servers {
			s := &g.Servers[j]
			if s.Tags == nil {
				s.Tags = []string{}
			}
			if s.Links == nil {
				s.Links = []Link{}
			}
			if s.Checks == nil {
				s.Checks = []Check{}
			}
		}
	}
	if c.Grafana != nil && c.Grafana.Panels == nil {
		c.Grafana.Panels = []Panel{}
	}
	return c
}

// Encode returns the canonical two-space indented form of c.
func Encode(c Configuration) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Normalize(c)); err != nil {
		// Configuration holds only strings, ints and slices of them.
		panic("model: encode configuration: " + err.Error())
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Pretty re-indents any JSON document with two spaces.
// It returns the input unchanged and false if text is not valid JSON.
func Pretty(text []byte) (string, bool) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(text), "", "  "); err != nil {
		return string(text), false
	}
	return buf.String(), true
}
