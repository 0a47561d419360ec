package bench

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/cpu"
	"golang.org/x/time/rate"

	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
	"github.com/yndnr/shardmap-go/internal/telemetry/metric"
	"github.com/yndnr/shardmap-go/pkg/bucket"
	"github.com/yndnr/shardmap-go/pkg/hashfn"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

// checkEvery is how many inserts a worker performs between context checks
// and progress publications.
const checkEvery = 4096

// ProgressFunc receives the number of completed inserts out of total.
// It is called from a single goroutine.
type ProgressFunc func(done, total int64)

// Runner executes benchmark runs.
type Runner struct {
	cfg      Config
	log      logger.Logger
	metrics  *metric.Registry
	progress ProgressFunc
	interval time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// WithMetrics records map operations and run totals in reg.
func WithMetrics(reg *metric.Registry) RunnerOption {
	return func(r *Runner) { r.metrics = reg }
}

// WithProgress reports progress every interval while the run is active.
func WithProgress(fn ProgressFunc, interval time.Duration) RunnerOption {
	return func(r *Runner) {
		r.progress = fn
		r.interval = interval
	}
}

// NewRunner validates cfg and creates a runner.
func NewRunner(cfg Config, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Verify(); err != nil {
		return nil, fmt.Errorf("bench: invalid config: %w", err)
	}
	r := &Runner{
		cfg:      cfg,
		log:      logger.Default(),
		interval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// workerCounters is written by one worker and read by the progress loop.
type workerCounters struct {
	_          cpu.CacheLinePad
	done       atomic.Int64
	inserted   atomic.Int64
	duplicates atomic.Int64
	oom        atomic.Int64
	_          cpu.CacheLinePad
}

// Run generates the workload, builds a fresh map and inserts every key from
// Workers goroutines. Key generation and map construction finish before any
// worker starts; only the insert phase is timed.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	cfg := r.cfg
	runID := ulid.Make().String()
	log := r.log.With("run_id", runID)

	workload, err := NewWorkload(cfg.Workers, cfg.InsertsPerWorker, cfg.Seed)
	if err != nil {
		return nil, err
	}
	m, err := r.newMap()
	if err != nil {
		return nil, err
	}

	log.Info("benchmark starting",
		"buckets", cfg.Buckets,
		"workers", cfg.Workers,
		"inserts_per_worker", cfg.InsertsPerWorker,
		"strategy", m.Strategy(),
		"hash", cfg.Hash,
	)

	counters := make([]workerCounters, cfg.Workers)
	total := int64(workload.Len())

	g, gctx := errgroup.WithContext(ctx)
	stopProgress := r.startProgress(counters, total)

	start := time.Now()
	for i := 0; i < cfg.Workers; i++ {
		keys := workload.Partition(i)
		c := &counters[i]
		g.Go(func() error {
			return r.work(gctx, m, keys, c)
		})
	}
	runErr := g.Wait()
	elapsed := time.Since(start)
	stopProgress()

	report := newReport(runID, cfg, m.Strategy(), counters, m.Len(), elapsed, m.Stats())
	if r.metrics != nil {
		r.metrics.RecordBench(report.Inserted, report.Duplicates, report.OutOfMemory, elapsed)
	}
	if runErr != nil {
		log.Warn("benchmark aborted", "error", runErr, "completed", report.Completed)
		return report, runErr
	}

	log.Info("benchmark finished",
		"elapsed", elapsed,
		"inserts_per_sec", report.Throughput,
		"duplicates", report.Duplicates,
		"out_of_memory", report.OutOfMemory,
	)
	return report, nil
}

func (r *Runner) newMap() (*shardmap.Map[uint32, uint32], error) {
	strategy, err := bucket.ParseStrategy(r.cfg.Strategy)
	if err != nil {
		return nil, err
	}
	hash, err := hashfn.Uint32ByName(r.cfg.Hash)
	if err != nil {
		return nil, err
	}
	opts := []shardmap.Option{
		shardmap.WithStrategy(strategy),
		shardmap.WithEntryLimit(r.cfg.EntryLimit),
	}
	if r.metrics != nil {
		opts = append(opts, shardmap.WithObserver(r.metrics))
	}
	return shardmap.NewFunc[uint32, uint32](r.cfg.Buckets, hash, cmp.Compare[uint32], opts...)
}

// work inserts keys in order. Duplicates and out-of-memory results are
// counted and the worker moves on; any other error aborts the run.
func (r *Runner) work(ctx context.Context, m *shardmap.Map[uint32, uint32], keys []uint32, c *workerCounters) error {
	var limiter *rate.Limiter
	if r.cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.cfg.RateLimit), max(1, int(r.cfg.RateLimit/10)))
	}

	var inserted, duplicates, oom int64
	flush := func(done int) {
		c.inserted.Store(inserted)
		c.duplicates.Store(duplicates)
		c.oom.Store(oom)
		c.done.Store(int64(done))
	}

	for i, key := range keys {
		if i%checkEvery == 0 {
			flush(i)
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				// Wait fails early when the deadline would pass first.
				flush(i)
				<-ctx.Done()
				return ctx.Err()
			}
		}

		err := m.Insert(key, key)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, shardmap.ErrAlreadyExists):
			duplicates++
		case errors.Is(err, shardmap.ErrOutOfMemory):
			oom++
		default:
			flush(i)
			return fmt.Errorf("insert %d: %w", key, err)
		}
	}
	flush(len(keys))
	return nil
}

// startProgress polls worker counters until the returned stop function is
// called. stop reports a final sample and waits for the poller to exit.
func (r *Runner) startProgress(counters []workerCounters, total int64) (stop func()) {
	if r.progress == nil {
		return func() {}
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	sum := func() int64 {
		var n int64
		for i := range counters {
			n += counters[i].done.Load()
		}
		return n
	}

	go func() {
		defer close(exited)
		t := time.NewTicker(r.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				r.progress(sum(), total)
			case <-done:
				r.progress(sum(), total)
				return
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}
