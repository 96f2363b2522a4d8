package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
api:
  base: http://nas.lan:8000/api
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.RefreshInterval != nil || cfg.DiscoveryInterval != nil {
		t.Error("unset intervals should stay nil so the SDK defaults apply")
	}
	if cfg.Health.Extractor.Type != "" {
		t.Errorf("Extractor.Type = %q, want empty", cfg.Health.Extractor.Type)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Homelab
port: 9090
api:
  base: https://nas.lan/api
  key: secret
  bearer: token
  timeout: 5s
sources:
  static: https://example.com/servers.json
  embedded: fallback.json
state_file: state.yaml
refresh_interval: 30s
discovery_interval: 0s
health:
  extractor: json:result.state
editor:
  validate_delay: 250ms
  filter_delay: 80ms
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Homelab" || cfg.Port != 9090 {
		t.Errorf("Title/Port = %q/%d", cfg.Title, cfg.Port)
	}
	if cfg.API.Key != "secret" || cfg.API.Bearer != "token" {
		t.Errorf("credentials = %q/%q", cfg.API.Key, cfg.API.Bearer)
	}
	if cfg.API.Timeout.Duration() != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.API.Timeout.Duration())
	}
	if cfg.RefreshInterval == nil || cfg.RefreshInterval.Duration() != 30*time.Second {
		t.Errorf("RefreshInterval = %v, want 30s", cfg.RefreshInterval)
	}
	if cfg.DiscoveryInterval == nil || *cfg.DiscoveryInterval != 0 {
		t.Errorf("DiscoveryInterval = %v, want explicit 0", cfg.DiscoveryInterval)
	}
	if cfg.Health.Extractor.Type != "json" || cfg.Health.Extractor.Path != "result.state" {
		t.Errorf("Extractor = %+v", cfg.Health.Extractor)
	}
	if cfg.Editor.ValidateDelay.Duration() != 250*time.Millisecond || cfg.Editor.FilterDelay.Duration() != 80*time.Millisecond {
		t.Errorf("Editor = %+v", cfg.Editor)
	}
}

func TestParse_ExtractorShorthand(t *testing.T) {
	tests := []struct {
		input    string
		wantType string
		wantPath string
		wantText string
		wantErr  bool
	}{
		{"default", "default", "", "", false},
		{"json:status", "json", "status", "", false},
		{"json:result.state", "json", "result.state", "", false},
		{"contains:reachable", "contains", "", "reachable", false},
		{"xml:status", "", "", "", true},
		{"http", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			yaml := "api:\n  base: http://nas.lan/api\nhealth:\n  extractor: " + tt.input + "\n"
			cfg, err := Parse([]byte(yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			ex := cfg.Health.Extractor
			if ex.Type != tt.wantType || ex.Path != tt.wantPath || ex.Text != tt.wantText {
				t.Errorf("Extractor = %+v", ex)
			}
		})
	}
}

func TestParse_ExtractorStructured(t *testing.T) {
	yaml := `
api:
  base: http://nas.lan/api
health:
  extractor:
    type: regex
    pattern: 'state=(\w+)'
    match: up
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ex := cfg.Health.Extractor
	if ex.Type != "regex" || ex.Pattern != `state=(\w+)` || ex.Match != "up" {
		t.Errorf("Extractor = %+v", ex)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("LB_TEST_BASE", "http://10.0.0.2:8000/api")
	t.Setenv("LB_TEST_KEY", "from-env")

	yaml := `
api:
  base: ${LB_TEST_BASE}
  key: ${LB_TEST_KEY}
  bearer: ${LB_TEST_UNSET_BEARER:-}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.API.Base != "http://10.0.0.2:8000/api" || cfg.API.Key != "from-env" || cfg.API.Bearer != "" {
		t.Errorf("API = %+v", cfg.API)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yaml := `
api:
  base: ${LB_TEST_DEFINITELY_UNSET}
`
	_, err := Parse([]byte(yaml))
	if err == nil || !strings.Contains(err.Error(), "api.base") {
		t.Errorf("error = %v, want api.base env error", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing base", "port: 8080\n", "api.base is required"},
		{"base without scheme", "api:\n  base: nas.lan/api\n", "scheme"},
		{"base with ftp scheme", "api:\n  base: ftp://nas.lan/api\n", "http or https"},
		{"port out of range", "port: 70000\napi:\n  base: http://nas.lan/api\n", "port"},
		{"short timeout", "api:\n  base: http://nas.lan/api\n  timeout: 500ms\n", "api.timeout"},
		{"short refresh", "api:\n  base: http://nas.lan/api\nrefresh_interval: 200ms\n", "refresh_interval"},
		{"short discovery", "api:\n  base: http://nas.lan/api\ndiscovery_interval: 10ms\n", "discovery_interval"},
		{"bad static url", "api:\n  base: http://nas.lan/api\nsources:\n  static: http://\n", "sources.static"},
		{"negative delay", "api:\n  base: http://nas.lan/api\neditor:\n  filter_delay: -1s\n", "negative"},
		{"json without path", "api:\n  base: http://nas.lan/api\nhealth:\n  extractor:\n    type: json\n", "requires a path"},
		{"regex without match", "api:\n  base: http://nas.lan/api\nhealth:\n  extractor:\n    type: regex\n    pattern: '(x)'\n", "pattern and match"},
		{"invalid regex", "api:\n  base: http://nas.lan/api\nhealth:\n  extractor:\n    type: regex\n    pattern: '('\n    match: up\n", "invalid regex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("api: [unclosed")); err == nil {
		t.Error("Parse() should fail on invalid YAML")
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte("api:\n  base: http://nas.lan/api\nrefresh_interval: soon\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %v, want invalid duration", err)
	}
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labboard.yaml")
	yaml := `
api:
  base: http://nas.lan/api
sources:
  static: servers.json
  embedded: /etc/labboard/fallback.json
state_file: state/session.yaml
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sources.Static != filepath.Join(dir, "servers.json") {
		t.Errorf("Static = %q", cfg.Sources.Static)
	}
	if cfg.Sources.Embedded != "/etc/labboard/fallback.json" {
		t.Errorf("Embedded = %q, absolute paths must be kept", cfg.Sources.Embedded)
	}
	if cfg.StateFile != filepath.Join(dir, "state", "session.yaml") {
		t.Errorf("StateFile = %q", cfg.StateFile)
	}
}

func TestLoad_KeepsStaticURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labboard.yaml")
	yaml := "api:\n  base: http://nas.lan/api\nsources:\n  static: https://example.com/servers.json\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sources.Static != "https://example.com/servers.json" {
		t.Errorf("Static = %q", cfg.Sources.Static)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Setenv("LABBOARD_API_BASE", "http://mock.lan:9999")
	t.Setenv("LABBOARD_MOCK_API_KEY", "")

	path := filepath.Join("..", "example", "labboard.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s) error = %v", path, err)
	}
	if cfg.API.Base != "http://mock.lan:9999" {
		t.Errorf("API.Base = %q", cfg.API.Base)
	}
	if cfg.Sources.Static != filepath.Join("..", "example", "servers.json") {
		t.Errorf("Static = %q", cfg.Sources.Static)
	}
	if cfg.RefreshInterval == nil || cfg.RefreshInterval.Duration() != 15*time.Second {
		t.Errorf("RefreshInterval = %v", cfg.RefreshInterval)
	}
	if cfg.Health.Extractor.Type != "json" || cfg.Health.Extractor.Path != "status" {
		t.Errorf("Extractor = %+v", cfg.Health.Extractor)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"10s", 10 * time.Second},
		{"1m30s", 90 * time.Second},
		{"400ms", 400 * time.Millisecond},
		{"0s", 0},
	}
	for _, tt := range tests {
		cfg, err := Parse([]byte("api:\n  base: http://nas.lan/api\neditor:\n  validate_delay: " + tt.input + "\n"))
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tt.input, err)
		}
		if got := cfg.Editor.ValidateDelay.Duration(); got != tt.want {
			t.Errorf("Duration(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}
