// Package logger provides structured logging for shardmap binaries.
//
// This package wraps log/slog:
//
//   - logger.go: Logger interface, configuration and the process default
//   - context.go: Context-aware logging with request and connection IDs
//   - redact.go: Masking of stored payloads and credentials
//
// The level is held in a shared slog.LevelVar so it can be changed at
// runtime, for example when the config file is reloaded.
package logger
