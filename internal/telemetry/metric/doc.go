// Package metric provides Prometheus metrics for shardmap.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Registry of operation and request metrics, HTTP handler
//   - collector.go: Collector that reads bucket occupancy from a live map
//
// A Registry implements shardmap.Observer, so passing it to
// shardmap.WithObserver counts every map operation by outcome.
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
