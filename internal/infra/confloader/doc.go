// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults set on the target struct before Load
//  2. A YAML file
//  3. Environment variables with the SHARDMAP_ prefix
//  4. Values from command-line flags, applied with LoadMap
//
// Environment names use a double underscore between sections so that
// single underscores survive inside key names:
//
//	SHARDMAP_MAP__ENTRY_LIMIT=1000000   ->  map.entry_limit
//
// A Watcher reports writes to the config file so callers can reload the
// settings that are safe to change at runtime.
package confloader
