package bench

import (
	"errors"
	"fmt"

	"github.com/yndnr/shardmap-go/pkg/bucket"
	"github.com/yndnr/shardmap-go/pkg/hashfn"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

// Config describes one benchmark run.
type Config struct {
	Buckets          int     `koanf:"buckets" json:"buckets" yaml:"buckets"`
	Workers          int     `koanf:"workers" json:"workers" yaml:"workers"`
	InsertsPerWorker int     `koanf:"inserts_per_worker" json:"inserts_per_worker" yaml:"inserts_per_worker"`
	Strategy         string  `koanf:"strategy" json:"strategy" yaml:"strategy"`
	Hash             string  `koanf:"hash" json:"hash" yaml:"hash"`
	EntryLimit       int64   `koanf:"entry_limit" json:"entry_limit,omitempty" yaml:"entry_limit,omitempty"`
	Seed             uint32  `koanf:"seed" json:"seed" yaml:"seed"`
	RateLimit        float64 `koanf:"rate_limit" json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"` // inserts/s per worker, 0 = unlimited
}

// DefaultConfig returns the reference workload.
func DefaultConfig() Config {
	return Config{
		Buckets:          1024,
		Workers:          16,
		InsertsPerWorker: 1_000_000,
		Strategy:         string(bucket.DefaultStrategy),
		Hash:             hashfn.NameIdentity,
		Seed:             1,
	}
}

// Total returns the number of inserts the run issues.
func (c Config) Total() int {
	return c.Workers * c.InsertsPerWorker
}

// Verify checks the configuration for values the runner cannot honour.
func (c Config) Verify() error {
	var errs []error
	if c.Buckets <= 0 || c.Buckets > shardmap.MaxBucketCount {
		errs = append(errs, fmt.Errorf("buckets must be in [1, %d], got %d", shardmap.MaxBucketCount, c.Buckets))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.InsertsPerWorker <= 0 {
		errs = append(errs, fmt.Errorf("inserts_per_worker must be positive, got %d", c.InsertsPerWorker))
	}
	if c.Workers > 0 && c.InsertsPerWorker > 0 && int64(c.Workers)*int64(c.InsertsPerWorker) > MaxKeys {
		errs = append(errs, fmt.Errorf("workload of %d keys exceeds %d", int64(c.Workers)*int64(c.InsertsPerWorker), int64(MaxKeys)))
	}
	if _, err := bucket.ParseStrategy(c.Strategy); err != nil {
		errs = append(errs, err)
	}
	if _, err := hashfn.Uint32ByName(c.Hash); err != nil {
		errs = append(errs, err)
	}
	if c.EntryLimit < 0 {
		errs = append(errs, fmt.Errorf("entry_limit must not be negative, got %d", c.EntryLimit))
	}
	if c.Seed == 0 || c.Seed >= lehmerModulus {
		errs = append(errs, fmt.Errorf("seed must be in [1, %d), got %d", uint64(lehmerModulus), c.Seed))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %v", c.RateLimit))
	}
	return errors.Join(errs...)
}
