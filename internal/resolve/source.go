package resolve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jpalmerr/labboard/internal/model"
)

// Source names reported in a [Resolution].
const (
	SourceRemote   = "remote"
	SourceStatic   = "static"
	SourceOverride = "local"
	SourceEmbedded = "embedded"
	SourceEmpty    = "empty"
)

// ErrNotConfigured is returned by a source that has nothing to offer.
var ErrNotConfigured = errors.New("source not configured")

// Source is one candidate origin for the configuration.
type Source interface {
	Name() string
	Load(ctx context.Context) (model.Configuration, error)
}

// Fetcher is the subset of the API client used by the network sources.
type Fetcher interface {
	Servers(ctx context.Context) ([]byte, error)
	Static(ctx context.Context, rawURL string) ([]byte, error)
}

// Overrides exposes the locally saved configuration text.
type Overrides interface {
	Override() (string, bool)
}

type remoteSource struct {
	fetcher Fetcher
}

// Remote loads the authoritative configuration from the backend.
func Remote(f Fetcher) Source {
	return remoteSource{fetcher: f}
}

func (s remoteSource) Name() string { return SourceRemote }

func (s remoteSource) Load(ctx context.Context) (model.Configuration, error) {
	if s.fetcher == nil {
		return model.Configuration{}, ErrNotConfigured
	}
	body, err := s.fetcher.Servers(ctx)
	if err != nil {
		return model.Configuration{}, err
	}
	return model.Decode(body)
}

type staticSource struct {
	fetcher  Fetcher
	location string
}

// Static loads a static configuration file. location is either an http(s)
// URL fetched without credentials or a local file path.
func Static(f Fetcher, location string) Source {
	return staticSource{fetcher: f, location: location}
}

func (s staticSource) Name() string { return SourceStatic }

func (s staticSource) Load(ctx context.Context) (model.Configuration, error) {
	var (
		body []byte
		err  error
	)
	switch {
	case s.location == "":
		return model.Configuration{}, ErrNotConfigured
	case strings.HasPrefix(s.location, "http://"), strings.HasPrefix(s.location, "https://"):
		if s.fetcher == nil {
			return model.Configuration{}, ErrNotConfigured
		}
		body, err = s.fetcher.Static(ctx, s.location)
	default:
		body, err = os.ReadFile(s.location)
	}
	if err != nil {
		return model.Configuration{}, err
	}
	return model.Decode(body)
}

type overrideSource struct {
	overrides Overrides
}

// Override loads the operator's locally saved configuration.
func Override(o Overrides) Source {
	return overrideSource{overrides: o}
}

func (s overrideSource) Name() string { return SourceOverride }

func (s overrideSource) Load(context.Context) (model.Configuration, error) {
	if s.overrides == nil {
		return model.Configuration{}, ErrNotConfigured
	}
	text, ok := s.overrides.Override()
	if !ok {
		return model.Configuration{}, ErrNotConfigured
	}
	return model.DecodeString(text)
}

type embeddedSource struct {
	payload []byte
}

// Embedded loads a configuration compiled into the binary or passed
// inline. An empty payload is treated as absent.
func Embedded(payload []byte) Source {
	return embeddedSource{payload: payload}
}

func (s embeddedSource) Name() string { return SourceEmbedded }

func (s embeddedSource) Load(context.Context) (model.Configuration, error) {
	if len(strings.TrimSpace(string(s.payload))) == 0 {
		return model.Configuration{}, ErrNotConfigured
	}
	cfg, err := model.Decode(s.payload)
	if err != nil {
		return model.Configuration{}, fmt.Errorf("embedded payload: %w", err)
	}
	return cfg, nil
}
