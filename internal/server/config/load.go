package config

import (
	"fmt"

	"github.com/yndnr/shardmap-go/internal/infra/confloader"
)

// Load layers defaults, the YAML file at path (optional), SHARDMAP_
// environment variables and overrides, then verifies the result. The loader
// is returned so callers can Reload on file changes.
func Load(path string, overrides map[string]any) (*ServerConfig, *confloader.Loader, error) {
	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	cfg := Default()
	if err := loader.Load(cfg); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loader, nil
}

// Reload re-reads every source into a fresh default config.
func Reload(loader *confloader.Loader) (*ServerConfig, error) {
	cfg := Default()
	if err := loader.Reload(cfg); err != nil {
		return nil, fmt.Errorf("reload config: %w", err)
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
