// Package config holds shardmap-cli defaults read from a YAML profile,
// by default ~/.shardmap/cli.yaml. Flags and SHARDMAP_* environment
// variables take precedence over the file.
package config
