package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

const namespace = "shardmap"

// Result label values for operations that did not fail with a coded error.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Map operation metrics
	OpsTotal         *prometheus.CounterVec
	InsertContention prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ConnectionsOpen prometheus.Gauge

	// Benchmark metrics
	BenchInsertsTotal *prometheus.CounterVec
	BenchDuration     prometheus.Histogram
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus every shardmap metric.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Map operations by operation and result.",
		}, []string{"op", "result"}),
		InsertContention: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insert_conflicts_total",
			Help:      "Inserts rejected because the key already existed.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Server requests by protocol, method and status.",
		}, []string{"protocol", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Server request latency.",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"protocol", "method"}),
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resp_connections_open",
			Help:      "Open RESP client connections.",
		}),
		BenchInsertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bench_inserts_total",
			Help:      "Benchmark inserts by result.",
		}, []string{"result"}),
		BenchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bench_duration_seconds",
			Help:      "Wall time of benchmark runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}

	reg.MustRegister(
		r.OpsTotal,
		r.InsertContention,
		r.RequestsTotal,
		r.RequestDuration,
		r.ConnectionsOpen,
		r.BenchInsertsTotal,
		r.BenchDuration,
	)
	return r
}

// Observe implements shardmap.Observer.
func (r *Registry) Observe(op shardmap.Op, _ int, err error) {
	result := ResultOK
	if err != nil {
		result = shardmap.Code(err)
		if result == "" {
			result = ResultError
		}
	}
	r.OpsTotal.WithLabelValues(string(op), result).Inc()
	if op == shardmap.OpInsert && err != nil && result == shardmap.ErrAlreadyExists.Code {
		r.InsertContention.Inc()
	}
}

// RecordRequest counts one served request.
func (r *Registry) RecordRequest(protocol, method, status string) {
	r.RequestsTotal.WithLabelValues(protocol, method, status).Inc()
}

// ObserveRequestDuration records request latency in seconds.
func (r *Registry) ObserveRequestDuration(protocol, method string, seconds float64) {
	r.RequestDuration.WithLabelValues(protocol, method).Observe(seconds)
}

// ObserveRequest is RecordRequest plus ObserveRequestDuration since start.
func (r *Registry) ObserveRequest(protocol, method, status string, start time.Time) {
	r.RecordRequest(protocol, method, status)
	r.ObserveRequestDuration(protocol, method, time.Since(start).Seconds())
}

// IncConnections increments the open RESP connection gauge.
func (r *Registry) IncConnections() { r.ConnectionsOpen.Inc() }

// DecConnections decrements the open RESP connection gauge.
func (r *Registry) DecConnections() { r.ConnectionsOpen.Dec() }

// RecordBench adds the outcome counts of one benchmark run.
func (r *Registry) RecordBench(inserted, duplicates, failed int64, elapsed time.Duration) {
	r.BenchInsertsTotal.WithLabelValues(ResultOK).Add(float64(inserted))
	r.BenchInsertsTotal.WithLabelValues("duplicate").Add(float64(duplicates))
	r.BenchInsertsTotal.WithLabelValues(ResultError).Add(float64(failed))
	r.BenchDuration.Observe(elapsed.Seconds())
}

// Register adds an extra collector, such as a MapCollector.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Gatherer exposes the underlying registry for tests and push clients.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
