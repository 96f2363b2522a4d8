package config

import (
	"fmt"
	"os"

	"github.com/jpalmerr/labboard"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The embedded source file, if any, is read here. Options for unset fields
// are omitted so the SDK defaults apply.
func BuildOptions(cfg *Config) ([]labboard.Option, error) {
	opts := []labboard.Option{
		labboard.WithAPIBase(cfg.API.Base),
		labboard.WithPort(cfg.Port),
	}

	if cfg.Title != "" {
		opts = append(opts, labboard.WithTitle(cfg.Title))
	}
	if cfg.API.Key != "" {
		opts = append(opts, labboard.WithAPIKey(cfg.API.Key))
	}
	if cfg.API.Bearer != "" {
		opts = append(opts, labboard.WithBearer(cfg.API.Bearer))
	}
	if cfg.API.Timeout != 0 {
		opts = append(opts, labboard.WithRequestTimeout(cfg.API.Timeout.Duration()))
	}
	if cfg.Sources.Static != "" {
		opts = append(opts, labboard.WithStaticSource(cfg.Sources.Static))
	}
	if cfg.Sources.Embedded != "" {
		payload, err := os.ReadFile(cfg.Sources.Embedded)
		if err != nil {
			return nil, fmt.Errorf("sources.embedded: %w", err)
		}
		opts = append(opts, labboard.WithEmbeddedConfig(payload))
	}
	if cfg.StateFile != "" {
		opts = append(opts, labboard.WithStateFile(cfg.StateFile))
	}
	if cfg.RefreshInterval != nil {
		opts = append(opts, labboard.WithRefreshInterval(cfg.RefreshInterval.Duration()))
	}
	if cfg.DiscoveryInterval != nil {
		opts = append(opts, labboard.WithDiscoveryInterval(cfg.DiscoveryInterval.Duration()))
	}
	if cfg.Editor.ValidateDelay != 0 {
		opts = append(opts, labboard.WithValidateDelay(cfg.Editor.ValidateDelay.Duration()))
	}
	if cfg.Editor.FilterDelay != 0 {
		opts = append(opts, labboard.WithFilterDelay(cfg.Editor.FilterDelay.Duration()))
	}

	extractor, err := buildExtractor(cfg.Health.Extractor)
	if err != nil {
		return nil, err
	}
	if extractor != nil {
		opts = append(opts, labboard.WithExtractor(extractor))
	}

	return opts, nil
}

// buildExtractor converts ExtractorConfig to a VerdictExtractor.
// Returns nil for default/empty extractors (SDK uses DefaultExtractor).
func buildExtractor(ec ExtractorConfig) (labboard.VerdictExtractor, error) {
	switch ec.Type {
	case "", "default":
		return nil, nil
	case "json":
		return labboard.JSONFieldExtractor(ec.Path), nil
	case "contains":
		return labboard.ContainsExtractor(ec.Text), nil
	case "regex":
		return labboard.RegexExtractor(ec.Pattern, ec.Match)
	default:
		return nil, fmt.Errorf("unknown extractor type %q", ec.Type)
	}
}
