// Package main provides the entry point for shardmap-server.
//
// The server holds one string-keyed sharded map in memory and exposes it
// over:
//
//   - an HTTP key API with /health, /ready and /metrics
//   - a Redis-compatible (RESP2) protocol listener
//
// Usage:
//
//	shardmap-server [flags]
//	shardmap-server --config /etc/shardmap/server.yaml --buckets 4096
//
// Settings are layered: defaults, the YAML file, SHARDMAP_ environment
// variables, then flags. Editing the file changes the log level at runtime.
package main
