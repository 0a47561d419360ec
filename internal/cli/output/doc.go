// Package output renders shardmap-cli results.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: tab-aligned tables built from structs, slices and maps
//   - json.go, yaml.go: machine-readable output
//   - progress.go: progress bar for benchmark runs
package output
