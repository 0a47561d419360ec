package shardmap

import (
	"cmp"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/yndnr/shardmap-go/pkg/bucket"
	"github.com/yndnr/shardmap-go/pkg/hashfn"
)

// MaxBucketCount bounds the bucket array. Larger requests fail with
// ErrOutOfMemory instead of letting the runtime abort the process.
const MaxBucketCount = 1 << 24

// Map is a fixed-size hash map sharded into independently synchronized
// buckets. The bucket slice is never modified after New returns, so every
// operation touches exactly one bucket and takes no map-wide lock.
type Map[K, V any] struct {
	buckets  []bucket.Collection[K, V]
	hash     hashfn.Hasher[K]
	strategy bucket.Strategy
	observer Observer
	count    atomic.Int64
}

// New creates a map for ordered keys using a seeded runtime hash and the
// natural key order.
func New[K cmp.Ordered, V any](bucketCount int, opts ...Option) (*Map[K, V], error) {
	return NewFunc[K, V](bucketCount, hashfn.Ordered[K](), cmp.Compare[K], opts...)
}

// NewFunc creates a map with an explicit hash function and key order.
//
// NewFunc is not safe to call concurrently with operations on the map it
// returns. Callers must finish construction before handing the map to other
// goroutines (for example by creating it before starting them).
func NewFunc[K, V any](bucketCount int, hash hashfn.Hasher[K], compare bucket.Compare[K], opts ...Option) (*Map[K, V], error) {
	if bucketCount <= 0 {
		return nil, ErrInvalidBucketCount.WithDetails(fmt.Sprintf("got %d", bucketCount))
	}
	if bucketCount > MaxBucketCount {
		return nil, ErrOutOfMemory.WithDetails(fmt.Sprintf("bucket count %d exceeds %d", bucketCount, MaxBucketCount))
	}
	if hash == nil || compare == nil {
		return nil, ErrInvalidConfig.WithDetails("hash and compare functions are required")
	}

	o := options{strategy: bucket.DefaultStrategy}
	for _, opt := range opts {
		opt(&o)
	}

	var budget bucket.Budget = bucket.Unlimited
	if o.entryLimit > 0 {
		budget = &entryBudget{limit: o.entryLimit}
	}

	m := &Map[K, V]{
		buckets:  make([]bucket.Collection[K, V], bucketCount),
		hash:     hash,
		strategy: o.strategy,
		observer: o.observer,
	}
	for i := range m.buckets {
		c, err := bucket.New[K, V](o.strategy, compare, budget)
		if err != nil {
			return nil, ErrInvalidConfig.WithCause(err).WithDetails(err.Error())
		}
		m.buckets[i] = c
	}
	return m, nil
}

// BucketIndex returns the bucket a key routes to: hash(key) mod BucketCount.
func (m *Map[K, V]) BucketIndex(key K) int {
	return int(m.hash(key) % uint64(len(m.buckets)))
}

// BucketCount returns the fixed number of buckets.
func (m *Map[K, V]) BucketCount() int {
	return len(m.buckets)
}

// Strategy returns the bucket collection implementation in use.
func (m *Map[K, V]) Strategy() bucket.Strategy {
	return m.strategy
}

// Insert stores value under key if the key is absent.
//
// Concurrent inserts of the same key have exactly one winner; every other
// caller gets ErrAlreadyExists and the map is unchanged. ErrOutOfMemory
// likewise leaves the map unchanged.
func (m *Map[K, V]) Insert(key K, value V) error {
	idx := m.BucketIndex(key)
	_, err := m.buckets[idx].Insert(key, value)
	if err == nil {
		m.count.Add(1)
	}
	err = translate(err, ErrDoesNotExist)
	m.observe(OpInsert, idx, err)
	return err
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, error) {
	idx := m.BucketIndex(key)
	v, err := m.buckets[idx].Get(key)
	err = translate(err, ErrDoesNotExist)
	m.observe(OpGet, idx, err)
	return v, err
}

// Delete removes the entry for key. Of several concurrent deletes of one
// key, one succeeds and the rest get ErrDropFailed.
func (m *Map[K, V]) Delete(key K) error {
	idx := m.BucketIndex(key)
	err := m.buckets[idx].Delete(key)
	if err == nil {
		m.count.Add(-1)
	}
	err = translate(err, ErrDropFailed)
	m.observe(OpDelete, idx, err)
	return err
}

// Replace overwrites the value of an existing entry and returns the previous
// value. It never inserts: an absent key yields ErrDoesNotExist.
func (m *Map[K, V]) Replace(key K, value V) (V, error) {
	idx := m.BucketIndex(key)
	old, err := m.buckets[idx].Replace(key, value)
	err = translate(err, ErrDoesNotExist)
	m.observe(OpReplace, idx, err)
	return old, err
}

// Len returns the number of live entries. It is exact once all concurrent
// writers have returned.
func (m *Map[K, V]) Len() int {
	return int(m.count.Load())
}

func (m *Map[K, V]) observe(op Op, idx int, err error) {
	if m.observer != nil {
		m.observer.Observe(op, idx, err)
	}
}

// translate maps bucket results onto the map's error taxonomy.
func translate(err error, notFound *Error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bucket.ErrAlreadyExists):
		return ErrAlreadyExists
	case errors.Is(err, bucket.ErrOutOfMemory):
		return ErrOutOfMemory
	case errors.Is(err, bucket.ErrNotFound):
		return notFound
	default:
		return err
	}
}
