// Package session holds the operator's per-profile state: backend
// credentials and the local configuration override.
//
// A [Session] replaces ambient globals with one explicit object passed to
// every component that talks to the backend or reads the override slot. When
// constructed with a state file path, every update is persisted to that file
// so the values survive restarts of the same profile.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrEmptyValue is returned when a credential update carries no value.
var ErrEmptyValue = errors.New("value cannot be empty")

// state is the on-disk representation of a session.
type state struct {
	APIKey   string `yaml:"api_key,omitempty"`
	Bearer   string `yaml:"bearer,omitempty"`
	Override string `yaml:"override,omitempty"`
}

// Session is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	path  string
	state state
}

// New returns an in-memory session seeded with the given credentials.
func New(apiKey, bearer string) *Session {
	return &Session{state: state{APIKey: apiKey, Bearer: bearer}}
}

// Load reads a session from path. A missing file yields an empty session
// bound to path. Credentials already present in the file take precedence
// over the apiKey/bearer defaults, matching a profile that saved its own.
func Load(path, apiKey, bearer string) (*Session, error) {
	s := &Session{path: path, state: state{APIKey: apiKey, Bearer: bearer}}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var st state
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if st.APIKey != "" {
		s.state.APIKey = st.APIKey
	}
	if st.Bearer != "" {
		s.state.Bearer = st.Bearer
	}
	s.state.Override = st.Override
	return s, nil
}

// Path returns the backing state file, or "" for an in-memory session.
func (s *Session) Path() string {
	return s.path
}

// APIKey returns the current API key.
func (s *Session) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.APIKey
}

// Bearer returns the current bearer token.
func (s *Session) Bearer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Bearer
}

// SetAPIKey stores a new API key.
func (s *Session) SetAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("api key: %w", ErrEmptyValue)
	}
	return s.update(func(st *state) { st.APIKey = key })
}

// SetBearer stores a new bearer token.
func (s *Session) SetBearer(token string) error {
	if token == "" {
		return fmt.Errorf("bearer token: %w", ErrEmptyValue)
	}
	return s.update(func(st *state) { st.Bearer = token })
}

// Override returns the saved local configuration text, if any.
func (s *Session) Override() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Override, s.state.Override != ""
}

// SetOverride replaces the local override slot.
func (s *Session) SetOverride(text string) error {
	return s.update(func(st *state) { st.Override = text })
}

// ClearOverride empties the local override slot.
func (s *Session) ClearOverride() error {
	return s.update(func(st *state) { st.Override = "" })
}

// Headers returns the authentication headers for backend requests.
func (s *Session) Headers() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := make(map[string]string, 2)
	if s.state.APIKey != "" {
		h["X-API-KEY"] = s.state.APIKey
	}
	if s.state.Bearer != "" {
		h["Authorization"] = "Bearer " + s.state.Bearer
	}
	return h
}

func (s *Session) update(fn func(*state)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
	if s.path == "" {
		return nil
	}
	return s.persist()
}

// persist writes the state file atomically. Caller holds s.mu.
func (s *Session) persist() error {
	data, err := yaml.Marshal(&s.state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
