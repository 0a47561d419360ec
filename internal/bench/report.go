package bench

import (
	"time"

	"github.com/yndnr/shardmap-go/pkg/bucket"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

// Report summarises one benchmark run.
type Report struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	Buckets     int             `json:"buckets" yaml:"buckets"`
	Workers     int             `json:"workers" yaml:"workers"`
	Strategy    bucket.Strategy `json:"strategy" yaml:"strategy"`
	Hash        string          `json:"hash" yaml:"hash"`
	Requested   int64           `json:"requested" yaml:"requested"`
	Completed   int64           `json:"completed" yaml:"completed"`
	Inserted    int64           `json:"inserted" yaml:"inserted"`
	Duplicates  int64           `json:"duplicates" yaml:"duplicates"`
	OutOfMemory int64           `json:"out_of_memory" yaml:"out_of_memory"`
	Stored      int             `json:"stored" yaml:"stored"`
	Elapsed     time.Duration   `json:"elapsed_ns" yaml:"elapsed"`
	Throughput  float64         `json:"inserts_per_sec" yaml:"inserts_per_sec"`
	Spread      shardmap.Stats  `json:"spread" yaml:"spread"`
}

func newReport(runID string, cfg Config, strategy bucket.Strategy, counters []workerCounters, stored int, elapsed time.Duration, stats shardmap.Stats) *Report {
	r := &Report{
		RunID:     runID,
		Buckets:   cfg.Buckets,
		Workers:   cfg.Workers,
		Strategy:  strategy,
		Hash:      cfg.Hash,
		Requested: int64(cfg.Total()),
		Stored:    stored,
		Elapsed:   elapsed,
		Spread:    stats,
	}
	for i := range counters {
		c := &counters[i]
		r.Completed += c.done.Load()
		r.Inserted += c.inserted.Load()
		r.Duplicates += c.duplicates.Load()
		r.OutOfMemory += c.oom.Load()
	}
	if elapsed > 0 {
		r.Throughput = float64(r.Completed) / elapsed.Seconds()
	}
	return r
}

// Consistent reports whether every successful insert is accounted for in
// the map: stored entries equal successful inserts.
func (r *Report) Consistent() bool {
	return int64(r.Stored) == r.Inserted
}
