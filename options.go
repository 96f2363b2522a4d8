package labboard

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// lbConfig holds mutable state during Labboard construction.
type lbConfig struct {
	title             string
	apiBase           string
	apiKey            string
	bearer            string
	staticSource      string
	embedded          []byte
	stateFile         string
	port              int
	requestTimeout    time.Duration
	validateDelay     time.Duration
	filterDelay       time.Duration
	refreshInterval   time.Duration
	discoveryInterval time.Duration
	extractor         VerdictExtractor
	logger            *slog.Logger
	verdictCallbacks  []func(VerdictResult)
}

// Option is a function that configures a [Labboard] instance during
// construction. Options return an error if validation fails.
type Option func(*lbConfig) error

// WithAPIBase sets the base URL of the homelab backend, for example
// "http://nas.lan:8000/api". Required.
//
// Returns an error if the URL is not an absolute http(s) URL.
func WithAPIBase(base string) Option {
	return func(cfg *lbConfig) error {
		base = strings.TrimSpace(base)
		u, err := url.Parse(base)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("backend base URL must be an absolute http(s) URL, got %q", base)
		}
		cfg.apiBase = base
		return nil
	}
}

// WithAPIKey sets the API key sent as X-API-Key. A key saved in the state
// file takes precedence.
func WithAPIKey(key string) Option {
	return func(cfg *lbConfig) error {
		cfg.apiKey = strings.TrimSpace(key)
		return nil
	}
}

// WithBearer sets the bearer token sent in the Authorization header. A
// token saved in the state file takes precedence.
func WithBearer(token string) Option {
	return func(cfg *lbConfig) error {
		cfg.bearer = strings.TrimSpace(token)
		return nil
	}
}

// WithStaticSource sets the static configuration tried when the backend is
// unreachable: a file path, or an http(s) URL fetched without credentials.
func WithStaticSource(location string) Option {
	return func(cfg *lbConfig) error {
		cfg.staticSource = strings.TrimSpace(location)
		return nil
	}
}

// WithEmbeddedConfig sets the configuration of last resort, used when every
// other source fails.
//
// Returns an error if the payload is empty.
func WithEmbeddedConfig(payload []byte) Option {
	return func(cfg *lbConfig) error {
		if len(payload) == 0 {
			return errors.New("embedded config cannot be empty")
		}
		cfg.embedded = append([]byte(nil), payload...)
		return nil
	}
}

// WithStateFile sets the file that persists credentials and the local
// configuration override across restarts. Without it the session lives in
// memory only.
func WithStateFile(path string) Option {
	return func(cfg *lbConfig) error {
		cfg.stateFile = path
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *lbConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and
// header. If not specified, defaults to "Labboard".
func WithTitle(title string) Option {
	return func(cfg *lbConfig) error {
		cfg.title = title
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Labboard instance.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *lbConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithRequestTimeout sets the per-request timeout for every backend call,
// health probes included. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *lbConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithValidateDelay sets the idle window between the last editor change and
// the backend validation request. Defaults to 400ms.
//
// Returns an error if the duration is zero or negative.
func WithValidateDelay(d time.Duration) Option {
	return func(cfg *lbConfig) error {
		if d <= 0 {
			return errors.New("validate delay must be positive")
		}
		cfg.validateDelay = d
		return nil
	}
}

// WithFilterDelay sets the idle window between the last search keystroke and
// the filter update. Defaults to 120ms.
//
// Returns an error if the duration is zero or negative.
func WithFilterDelay(d time.Duration) Option {
	return func(cfg *lbConfig) error {
		if d <= 0 {
			return errors.New("filter delay must be positive")
		}
		cfg.filterDelay = d
		return nil
	}
}

// WithRefreshInterval sets how often the current configuration is
// re-rendered, which starts a new health round. Zero disables periodic
// refresh. Defaults to 60 seconds.
//
// Returns an error if the duration is negative or below one second.
func WithRefreshInterval(d time.Duration) Option {
	return func(cfg *lbConfig) error {
		if err := checkInterval("refresh", d); err != nil {
			return err
		}
		cfg.refreshInterval = d
		return nil
	}
}

// WithDiscoveryInterval sets how often pending discoveries are re-read from
// the backend. Zero disables periodic refresh. Defaults to 5 minutes.
//
// Returns an error if the duration is negative or below one second.
func WithDiscoveryInterval(d time.Duration) Option {
	return func(cfg *lbConfig) error {
		if err := checkInterval("discovery", d); err != nil {
			return err
		}
		cfg.discoveryInterval = d
		return nil
	}
}

func checkInterval(name string, d time.Duration) error {
	if d < 0 || (d > 0 && d < time.Second) {
		return fmt.Errorf("%s interval must be zero or at least 1s, got %s", name, d)
	}
	return nil
}

// WithExtractor sets how a verdict is read from health responses.
// Defaults to [DefaultExtractor].
//
// Returns an error if the extractor is nil.
func WithExtractor(extractor VerdictExtractor) Option {
	return func(cfg *lbConfig) error {
		if extractor == nil {
			return errors.New("extractor cannot be nil")
		}
		cfg.extractor = extractor
		return nil
	}
}

// WithVerdictCallback registers a function to be called whenever a server's
// badge resolves.
//
// Multiple callbacks may be registered; they execute in registration order.
// Callbacks are invoked synchronously from a single goroutine and must not
// block. Panics within callbacks are recovered and logged.
//
// Example:
//
//	lb, err := labboard.New(
//	    labboard.WithAPIBase(base),
//	    labboard.WithVerdictCallback(func(r labboard.VerdictResult) {
//	        if r.Verdict == labboard.VerdictOffline {
//	            log.Printf("ALERT: %s is offline", r.Server)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithVerdictCallback(cb func(VerdictResult)) Option {
	return func(cfg *lbConfig) error {
		if cb == nil {
			return nil
		}
		cfg.verdictCallbacks = append(cfg.verdictCallbacks, cb)
		return nil
	}
}
