// Package config defines the shardmap-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation (ranges, address formats, port conflicts)
//   - sanitize.go: masks secrets before the config is logged
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// SHARDMAP_ environment variables and command-line overrides.
package config
