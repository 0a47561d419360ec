package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

// StatsSource is satisfied by *shardmap.Map for any key and value types.
type StatsSource interface {
	Stats() shardmap.Stats
}

// MapCollector reports bucket occupancy of one map at scrape time.
type MapCollector struct {
	source StatsSource

	entries *prometheus.Desc
	buckets *prometheus.Desc
	empty   *prometheus.Desc
	size    *prometheus.Desc
	stddev  *prometheus.Desc
}

// NewMapCollector creates a collector over source. name becomes the "map"
// label so several maps can share one registry.
func NewMapCollector(name string, source StatsSource) *MapCollector {
	labels := prometheus.Labels{"map": name}
	return &MapCollector{
		source:  source,
		entries: prometheus.NewDesc(namespace+"_entries", "Live entries.", nil, labels),
		buckets: prometheus.NewDesc(namespace+"_buckets", "Fixed bucket count.", nil, labels),
		empty:   prometheus.NewDesc(namespace+"_buckets_empty", "Buckets holding no entries.", nil, labels),
		size:    prometheus.NewDesc(namespace+"_bucket_size", "Bucket occupancy summary.", []string{"stat"}, labels),
		stddev:  prometheus.NewDesc(namespace+"_bucket_size_stddev", "Standard deviation of bucket occupancy.", nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *MapCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.buckets
	ch <- c.empty
	ch <- c.size
	ch <- c.stddev
}

// Collect implements prometheus.Collector.
func (c *MapCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Entries))
	ch <- prometheus.MustNewConstMetric(c.buckets, prometheus.GaugeValue, float64(s.Buckets))
	ch <- prometheus.MustNewConstMetric(c.empty, prometheus.GaugeValue, float64(s.Empty))
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Min), "min")
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Max), "max")
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, s.Mean, "mean")
	ch <- prometheus.MustNewConstMetric(c.stddev, prometheus.GaugeValue, s.StdDev)
}
