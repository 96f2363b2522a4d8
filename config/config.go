// Package config provides YAML configuration parsing for Labboard.
//
// This package enables running Labboard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Homelab
//	port: 8080
//
//	api:
//	  base: ${LABBOARD_API_BASE:-http://nas.lan:8000/api}
//	  key: ${LABBOARD_API_KEY:-}
//	  timeout: 10s
//
//	sources:
//	  static: ./servers.json
//	  embedded: ./fallback.json
//
//	state_file: ./labboard-state.yaml
//	refresh_interval: 60s
//	discovery_interval: 5m
//
//	health:
//	  extractor: json:status
//
//	editor:
//	  validate_delay: 400ms
//	  filter_delay: 120ms
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort = 8080

	// minInterval keeps periodic refreshes from hammering the backend.
	minInterval = 1 * time.Second
)

// Config is the root configuration structure for Labboard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Labboard" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	API APIConfig `yaml:"api"`

	Sources SourcesConfig `yaml:"sources"`

	// StateFile persists credentials and the local override. Empty keeps
	// the session in memory.
	StateFile string `yaml:"state_file"`

	// RefreshInterval is the time between health rounds. "0s" disables
	// periodic refresh; unset uses the library default.
	RefreshInterval *Duration `yaml:"refresh_interval"`

	// DiscoveryInterval is the time between discovery refreshes. "0s"
	// disables it; unset uses the library default.
	DiscoveryInterval *Duration `yaml:"discovery_interval"`

	Health HealthConfig `yaml:"health"`

	Editor EditorConfig `yaml:"editor"`
}

// APIConfig locates and authenticates the homelab backend.
type APIConfig struct {
	// Base is the backend base URL. Required.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Base string `yaml:"base"`

	// Key is sent as X-API-Key. Supports environment variable substitution.
	Key string `yaml:"key"`

	// Bearer is sent as "Authorization: Bearer". Supports environment
	// variable substitution.
	Bearer string `yaml:"bearer"`

	// Timeout is the per-request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`
}

// SourcesConfig lists the fallback configuration sources.
type SourcesConfig struct {
	// Static is a file path or http(s) URL tried when the backend is
	// unreachable.
	Static string `yaml:"static"`

	// Embedded is a file read at startup and used as the configuration of
	// last resort.
	Embedded string `yaml:"embedded"`
}

// HealthConfig controls how health responses are read.
type HealthConfig struct {
	Extractor ExtractorConfig `yaml:"extractor"`
}

// EditorConfig tunes the editor and search debounce windows.
type EditorConfig struct {
	ValidateDelay Duration `yaml:"validate_delay"`
	FilterDelay   Duration `yaml:"filter_delay"`
}

// ExtractorConfig specifies how to read a verdict from a health response.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	extractor: json:status
//	extractor: json:result.state
//	extractor: contains:reachable
//	extractor: default
//
// Structured object:
//
//	extractor:
//	  type: regex
//	  pattern: 'state=(\w+)'
//	  match: up
type ExtractorConfig struct {
	// Type is the extractor type: "default", "json", "contains", "regex".
	Type string

	// Path is the JSON field path (for type: json).
	Path string

	// Text is the substring to search for (for type: contains).
	Text string

	// Pattern and Match configure type: regex.
	Pattern string
	Match   string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for ExtractorConfig.
func (e *ExtractorConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return e.parseShorthand(s)

	case yaml.MappingNode:
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type    string `yaml:"type"`
			Path    string `yaml:"path"`
			Text    string `yaml:"text"`
			Pattern string `yaml:"pattern"`
			Match   string `yaml:"match"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*e = ExtractorConfig(raw)
		return nil
	}

	return fmt.Errorf("extractor must be a string or object, got %v", node.Kind)
}

// parseShorthand parses extractor shorthand syntax: "default",
// "json:path" or "contains:text". Regex extractors need the structured
// form.
func (e *ExtractorConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if kind, value, ok := strings.Cut(s, ":"); ok {
		e.Type = kind
		switch kind {
		case "json":
			e.Path = value
		case "contains":
			e.Text = value
		default:
			return fmt.Errorf("unknown extractor type %q", kind)
		}
		return nil
	}

	if s != "default" {
		return fmt.Errorf("unknown extractor %q (expected 'default', 'json:path', or 'contains:text')", s)
	}
	e.Type = s
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values. A variable without a default must be set.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, fallback := sub[1], sub[2] != "", sub[3]

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasDefault {
			return fallback
		}
		firstErr = fmt.Errorf("environment variable %q is not set", name)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Relative paths in sources and state_file are resolved against the
// directory of the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the api section and in source
// locations. Port defaults to 8080.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	expand := map[string]*string{
		"api.base":         &c.API.Base,
		"api.key":          &c.API.Key,
		"api.bearer":       &c.API.Bearer,
		"sources.static":   &c.Sources.Static,
		"sources.embedded": &c.Sources.Embedded,
		"state_file":       &c.StateFile,
	}
	for field, v := range expand {
		expanded, err := expandEnvVars(*v)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		*v = strings.TrimSpace(expanded)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.API.Base == "" {
		return errors.New("api.base is required")
	}
	if err := checkHTTPURL(c.API.Base); err != nil {
		return fmt.Errorf("api.base: %w", err)
	}

	if c.API.Timeout != 0 && c.API.Timeout.Duration() < time.Second {
		return fmt.Errorf("api.timeout must be at least 1s if specified, got %s", c.API.Timeout.Duration())
	}

	if isURL(c.Sources.Static) {
		if err := checkHTTPURL(c.Sources.Static); err != nil {
			return fmt.Errorf("sources.static: %w", err)
		}
	}

	intervals := map[string]*Duration{
		"refresh_interval":   c.RefreshInterval,
		"discovery_interval": c.DiscoveryInterval,
	}
	for field, d := range intervals {
		if d == nil || *d == 0 {
			continue
		}
		if d.Duration() < minInterval {
			return fmt.Errorf("%s must be 0 or at least %s, got %s", field, minInterval, d.Duration())
		}
	}

	if c.Editor.ValidateDelay < 0 || c.Editor.FilterDelay < 0 {
		return errors.New("editor delays cannot be negative")
	}

	return validateExtractor(&c.Health.Extractor, "health")
}

// resolvePaths makes relative file locations relative to dir.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Sources.Static, &c.Sources.Embedded, &c.StateFile} {
		if *p == "" || isURL(*p) || filepath.IsAbs(*p) {
			continue
		}
		*p = filepath.Join(dir, *p)
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func checkHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url must have a host")
	}
	return nil
}

// validateExtractor validates an extractor configuration.
func validateExtractor(e *ExtractorConfig, context string) error {
	switch e.Type {
	case "", "default":
	case "json":
		if e.Path == "" {
			return fmt.Errorf("%s: extractor type 'json' requires a path", context)
		}
	case "contains":
		if e.Text == "" {
			return fmt.Errorf("%s: extractor type 'contains' requires text", context)
		}
	case "regex":
		if e.Pattern == "" || e.Match == "" {
			return fmt.Errorf("%s: extractor type 'regex' requires pattern and match", context)
		}
		if _, err := regexp.Compile(e.Pattern); err != nil {
			return fmt.Errorf("%s: invalid regex pattern: %w", context, err)
		}
	default:
		return fmt.Errorf("%s: unknown extractor type %q", context, e.Type)
	}

	return nil
}
