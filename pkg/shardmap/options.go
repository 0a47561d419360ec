package shardmap

import (
	"sync/atomic"

	"github.com/yndnr/shardmap-go/pkg/bucket"
)

// Op names a map operation for observers.
type Op string

const (
	OpInsert  Op = "insert"
	OpGet     Op = "get"
	OpDelete  Op = "delete"
	OpReplace Op = "replace"
)

// Observer is notified after every operation with the bucket the key routed
// to and the operation's result. Observe is called concurrently.
type Observer interface {
	Observe(op Op, bucket int, err error)
}

type options struct {
	strategy   bucket.Strategy
	entryLimit int64
	observer   Observer
}

// Option configures a Map.
type Option func(*options)

// WithStrategy selects the bucket collection implementation.
func WithStrategy(s bucket.Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithEntryLimit caps the number of live entries across all buckets.
// Inserts beyond the cap fail with ErrOutOfMemory. Zero means no cap.
func WithEntryLimit(n int64) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.entryLimit = n
	}
}

// WithObserver installs an operation observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// entryBudget is a bucket.Budget shared by every bucket of one map.
type entryBudget struct {
	limit int64
	used  atomic.Int64
}

func (b *entryBudget) Acquire() bool {
	if b.used.Add(1) > b.limit {
		b.used.Add(-1)
		return false
	}
	return true
}

func (b *entryBudget) Release() {
	b.used.Add(-1)
}
