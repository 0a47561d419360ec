package command

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardmap-go/internal/bench"
	"github.com/yndnr/shardmap-go/internal/cli/output"
	"github.com/yndnr/shardmap-go/internal/infra/confloader"
	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
	"github.com/yndnr/shardmap-go/internal/telemetry/metric"
)

// benchEnvPrefix scopes environment overrides for bench settings, e.g.
// SHARDMAP_BENCH_WORKERS=8.
const benchEnvPrefix = "SHARDMAP_BENCH_"

// benchFlags maps flag names to bench.Config koanf keys.
var benchFlags = map[string]string{
	"buckets":     "buckets",
	"workers":     "workers",
	"inserts":     "inserts_per_worker",
	"strategy":    "strategy",
	"hash":        "hash",
	"entry-limit": "entry_limit",
	"seed":        "seed",
	"rate":        "rate_limit",
}

// BenchCommand returns the bench command.
func BenchCommand() *cli.Command {
	def := bench.DefaultConfig()
	return &cli.Command{
		Name:  "bench",
		Usage: "Run the concurrent insert benchmark in-process",
		Description: "Pre-generates workers x inserts keys, then inserts them into a fresh map\n" +
			"from all workers at once and reports throughput and bucket spread.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bench-config", Usage: "YAML `FILE` with bench settings"},
			&cli.IntFlag{Name: "buckets", Aliases: []string{"b"}, Usage: "bucket count", Value: def.Buckets},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "concurrent workers", Value: def.Workers},
			&cli.IntFlag{Name: "inserts", Aliases: []string{"n"}, Usage: "inserts per worker", Value: def.InsertsPerWorker},
			&cli.StringFlag{Name: "strategy", Usage: "bucket collection: btree, lockfree", Value: def.Strategy},
			&cli.StringFlag{Name: "hash", Usage: "key hasher: identity, maphash, murmur3, xxhash", Value: def.Hash},
			&cli.Int64Flag{Name: "entry-limit", Usage: "maximum stored entries (0 = unlimited)"},
			&cli.UintFlag{Name: "seed", Usage: "key generator seed", Value: uint(def.Seed)},
			&cli.Float64Flag{Name: "rate", Usage: "inserts/s per worker (0 = unlimited)"},
			&cli.BoolFlag{Name: "progress", Usage: "draw a progress bar on stderr", Value: true},
			&cli.StringFlag{Name: "log-level", Usage: "log level: debug, info, warn, error", Value: "warn"},
			&cli.BoolFlag{Name: "strict", Usage: "fail when stored entries differ from successful inserts", Value: true},
		},
		Action: runBench,
	}
}

// benchConfig layers defaults, the bench config file, SHARDMAP_BENCH_
// variables and explicitly set flags.
func benchConfig(c *cli.Context) (bench.Config, error) {
	overrides := map[string]any{}
	for name, key := range benchFlags {
		if c.IsSet(name) {
			overrides[key] = c.Value(name)
		}
	}

	opts := []confloader.Option{
		confloader.WithEnvPrefix(benchEnvPrefix),
		confloader.WithOverrides(overrides),
	}
	if path := c.String("bench-config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}

	cfg := bench.DefaultConfig()
	if err := confloader.NewLoader(opts...).Load(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Verify()
}

func runBench(c *cli.Context) error {
	cfg, err := benchConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid bench config: %v", err), 2)
	}

	log, err := logger.New(logger.Config{Level: c.String("log-level"), Format: "text", Output: errWriter(c)})
	if err != nil {
		return err
	}

	opts := []bench.RunnerOption{
		bench.WithLogger(log),
		bench.WithMetrics(metric.NewRegistry()),
	}
	var bar *output.ProgressBar
	if c.Bool("progress") {
		bar = output.NewProgressBar(errWriter(c), "inserting")
		opts = append(opts, bench.WithProgress(bar.Update, 200*time.Millisecond))
	}

	runner, err := bench.NewRunner(cfg, opts...)
	if err != nil {
		return err
	}
	report, runErr := runner.Run(c.Context)
	if bar != nil {
		bar.Finish()
	}
	if report != nil {
		if err := render(c, report, reportTable(report)); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if c.Bool("strict") && !report.Consistent() {
		return cli.Exit(fmt.Sprintf("inconsistent result: %d inserts succeeded but %d entries stored",
			report.Inserted, report.Stored), 1)
	}
	return nil
}

func reportTable(r *bench.Report) *output.Table {
	itoa := func(n int64) string { return strconv.FormatInt(n, 10) }
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("run_id", r.RunID)
	t.AddRow("strategy", string(r.Strategy))
	t.AddRow("hash", r.Hash)
	t.AddRow("buckets", strconv.Itoa(r.Buckets))
	t.AddRow("workers", strconv.Itoa(r.Workers))
	t.AddRow("requested", itoa(r.Requested))
	t.AddRow("completed", itoa(r.Completed))
	t.AddRow("inserted", itoa(r.Inserted))
	t.AddRow("duplicates", itoa(r.Duplicates))
	t.AddRow("out_of_memory", itoa(r.OutOfMemory))
	t.AddRow("stored", strconv.Itoa(r.Stored))
	t.AddRow("elapsed", r.Elapsed.Round(time.Millisecond).String())
	t.AddRow("inserts_per_sec", strconv.FormatFloat(r.Throughput, 'f', 0, 64))
	t.AddRow("bucket_min/max", fmt.Sprintf("%d/%d", r.Spread.Min, r.Spread.Max))
	t.AddRow("bucket_mean", strconv.FormatFloat(r.Spread.Mean, 'f', 2, 64))
	t.AddRow("bucket_stddev", strconv.FormatFloat(r.Spread.StdDev, 'f', 2, 64))
	t.AddRow("empty_buckets", strconv.Itoa(r.Spread.Empty))
	return t
}

func errWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}
