package bench

import "fmt"

const (
	lehmerMultiplier = 279470273
	lehmerModulus    = 0xfffffffb // prime
)

// MaxKeys is the generator period; longer workloads would repeat keys.
const MaxKeys = lehmerModulus - 1

// Lehmer is the multiplicative congruential generator used to pre-generate
// benchmark keys. It is not safe for concurrent use.
type Lehmer struct {
	state uint64
}

// NewLehmer seeds a generator. Seed 0 is a fixed point and is replaced by 1.
func NewLehmer(seed uint32) *Lehmer {
	s := uint64(seed) % lehmerModulus
	if s == 0 {
		s = 1
	}
	return &Lehmer{state: s}
}

// Next advances the generator and returns the new state.
func (g *Lehmer) Next() uint32 {
	g.state = g.state * lehmerMultiplier % lehmerModulus
	return uint32(g.state)
}

// Workload holds pre-generated keys split into equal per-worker partitions.
type Workload struct {
	keys      []uint32
	workers   int
	perWorker int
}

// NewWorkload generates workers*perWorker keys from seed.
func NewWorkload(workers, perWorker int, seed uint32) (*Workload, error) {
	if workers <= 0 || perWorker <= 0 {
		return nil, fmt.Errorf("bench: workers and per-worker inserts must be positive (%d, %d)", workers, perWorker)
	}
	total := int64(workers) * int64(perWorker)
	if total > MaxKeys {
		return nil, fmt.Errorf("bench: %d keys exceed generator period", total)
	}

	g := NewLehmer(seed)
	keys := make([]uint32, total)
	for i := range keys {
		keys[i] = g.Next()
	}
	return &Workload{keys: keys, workers: workers, perWorker: perWorker}, nil
}

// Workers returns the number of partitions.
func (w *Workload) Workers() int {
	return w.workers
}

// Len returns the total number of keys.
func (w *Workload) Len() int {
	return len(w.keys)
}

// Partition returns worker i's keys. Partitions are disjoint and share no
// backing memory that another worker writes.
func (w *Workload) Partition(i int) []uint32 {
	start := i * w.perWorker
	return w.keys[start : start+w.perWorker : start+w.perWorker]
}
