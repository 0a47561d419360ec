package shardmap

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/shardmap-go/pkg/bucket"
	"github.com/yndnr/shardmap-go/pkg/hashfn"
)

var strategies = []bucket.Strategy{bucket.StrategyBTree, bucket.StrategyLockFree}

func newIdentityMap(t testing.TB, buckets int, opts ...Option) *Map[uint32, uint32] {
	t.Helper()
	m, err := NewFunc[uint32, uint32](buckets, hashfn.Identity[uint32], cmp.Compare[uint32], opts...)
	if err != nil {
		t.Fatalf("NewFunc(%d) error = %v", buckets, err)
	}
	return m
}

func TestNew(t *testing.T) {
	m, err := New[string, int](8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.BucketCount() != 8 {
		t.Errorf("BucketCount() = %d, want 8", m.BucketCount())
	}
	if m.Strategy() != bucket.DefaultStrategy {
		t.Errorf("Strategy() = %q, want %q", m.Strategy(), bucket.DefaultStrategy)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestNew_BucketCount(t *testing.T) {
	tests := []struct {
		count   int
		wantErr error
	}{
		{-1, ErrInvalidBucketCount},
		{0, ErrInvalidBucketCount},
		{1, nil},
		{3, nil},
		{1024, nil},
		{MaxBucketCount + 1, ErrOutOfMemory},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("buckets=%d", tt.count), func(t *testing.T) {
			m, err := New[int, int](tt.count)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New(%d) error = %v, want %v", tt.count, err, tt.wantErr)
				}
				if m != nil {
					t.Error("New() returned a map alongside an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%d) error = %v", tt.count, err)
			}
			if m.BucketCount() != tt.count {
				t.Errorf("BucketCount() = %d, want %d", m.BucketCount(), tt.count)
			}
		})
	}
}

func TestNewFunc_InvalidConfig(t *testing.T) {
	_, err := NewFunc[int, int](4, nil, cmp.Compare[int])
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil hash error = %v, want ErrInvalidConfig", err)
	}

	_, err = NewFunc[int, int](4, hashfn.Identity[int], nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil compare error = %v, want ErrInvalidConfig", err)
	}

	_, err = NewFunc[int, int](4, hashfn.Identity[int], cmp.Compare[int], WithStrategy("ring"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("unknown strategy error = %v, want ErrInvalidConfig", err)
	}
	if !errors.Is(err, bucket.ErrUnknownStrategy) {
		t.Errorf("unknown strategy error = %v, want wrapped bucket.ErrUnknownStrategy", err)
	}
}

// Four buckets, identity hash: {1,5,9} share bucket 1 and {2,6} share bucket 2.
func TestInsert_FourBucketScenario(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			require := require.New(t)
			m := newIdentityMap(t, 4, WithStrategy(s))

			for _, k := range []uint32{1, 5, 9} {
				require.Equal(1, m.BucketIndex(k))
				require.NoError(m.Insert(k, k*10))
			}
			for _, k := range []uint32{2, 6} {
				require.Equal(2, m.BucketIndex(k))
				require.NoError(m.Insert(k, k*10))
			}

			err := m.Insert(1, 999)
			require.ErrorIs(err, ErrAlreadyExists)
			require.Equal(5, m.Len())

			v, err := m.Get(1)
			require.NoError(err)
			require.Equal(uint32(10), v, "duplicate insert must not overwrite")

			stats := m.Stats()
			require.Equal([]int{0, 3, 2, 0}, stats.Sizes)
			require.Equal(5, stats.Entries)
		})
	}
}

func TestGetDeleteReplace(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			assert := assert.New(t)
			m := newIdentityMap(t, 16, WithStrategy(s))

			_, err := m.Get(3)
			assert.ErrorIs(err, ErrDoesNotExist)

			_, err = m.Replace(3, 30)
			assert.ErrorIs(err, ErrDoesNotExist)
			assert.Equal(0, m.Len(), "Replace must not insert")

			assert.ErrorIs(m.Delete(3), ErrDropFailed)

			assert.NoError(m.Insert(3, 30))
			old, err := m.Replace(3, 31)
			assert.NoError(err)
			assert.Equal(uint32(30), old)

			v, err := m.Get(3)
			assert.NoError(err)
			assert.Equal(uint32(31), v)

			assert.NoError(m.Delete(3))
			assert.Equal(0, m.Len())
			assert.ErrorIs(m.Delete(3), ErrDropFailed)

			assert.NoError(m.Insert(3, 32), "key is insertable again after delete")
		})
	}
}

func TestNew_NaNKeyIsUnique(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			m, err := New[float64, int](64, WithStrategy(s))
			require.NoError(t, err)

			idx := m.BucketIndex(math.NaN())
			for i := 0; i < 100; i++ {
				require.Equal(t, idx, m.BucketIndex(math.NaN()))
			}

			require.NoError(t, m.Insert(math.NaN(), 1))
			for i := 0; i < 100; i++ {
				assert.ErrorIs(t, m.Insert(math.NaN(), i), ErrAlreadyExists)
			}
			assert.Equal(t, 1, m.Len())

			v, err := m.Get(math.NaN())
			require.NoError(t, err)
			assert.Equal(t, 1, v)
			assert.NoError(t, m.Delete(math.NaN()))
			assert.Equal(t, 0, m.Len())
		})
	}
}

func TestInsert_ConcurrentSameKey(t *testing.T) {
	const goroutines = 32

	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			m := newIdentityMap(t, 64, WithStrategy(s))

			var wg sync.WaitGroup
			var wins, dups atomic.Int32
			var winner atomic.Uint32
			start := make(chan struct{})

			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func(v uint32) {
					defer wg.Done()
					<-start
					err := m.Insert(77, v)
					switch {
					case err == nil:
						wins.Add(1)
						winner.Store(v)
					case errors.Is(err, ErrAlreadyExists):
						dups.Add(1)
					default:
						t.Errorf("Insert error = %v", err)
					}
				}(uint32(i + 1))
			}
			close(start)
			wg.Wait()

			if wins.Load() != 1 || dups.Load() != goroutines-1 {
				t.Fatalf("wins = %d, dups = %d, want 1 and %d", wins.Load(), dups.Load(), goroutines-1)
			}
			v, err := m.Get(77)
			if err != nil || v != winner.Load() {
				t.Errorf("Get(77) = (%d, %v), want winner's value %d", v, err, winner.Load())
			}
			if m.Len() != 1 {
				t.Errorf("Len() = %d, want 1", m.Len())
			}
		})
	}
}

func TestInsert_ConcurrentDistinctKeys(t *testing.T) {
	const (
		workers   = 16
		perWorker = 2000
	)

	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			m := newIdentityMap(t, 1024, WithStrategy(s))

			var wg sync.WaitGroup
			var failures atomic.Int64
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						k := uint32(w*perWorker + i)
						if err := m.Insert(k, k); err != nil {
							failures.Add(1)
						}
					}
				}(w)
			}
			wg.Wait()

			if failures.Load() != 0 {
				t.Errorf("failed inserts = %d, want 0", failures.Load())
			}
			if m.Len() != workers*perWorker {
				t.Errorf("Len() = %d, want %d", m.Len(), workers*perWorker)
			}
			if got := m.Stats().Entries; got != workers*perWorker {
				t.Errorf("Stats().Entries = %d, want %d", got, workers*perWorker)
			}
		})
	}
}

func TestInsert_EntryLimit(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			m := newIdentityMap(t, 4, WithStrategy(s), WithEntryLimit(3))

			for k := uint32(0); k < 3; k++ {
				if err := m.Insert(k, k); err != nil {
					t.Fatalf("Insert(%d) error = %v", k, err)
				}
			}
			if err := m.Insert(3, 3); !errors.Is(err, ErrOutOfMemory) {
				t.Fatalf("Insert over limit error = %v, want ErrOutOfMemory", err)
			}
			if _, err := m.Get(3); !errors.Is(err, ErrDoesNotExist) {
				t.Errorf("failed insert left key 3 behind: %v", err)
			}
			if m.Len() != 3 {
				t.Errorf("Len() = %d, want 3", m.Len())
			}

			// A duplicate at the limit is still AlreadyExists, not OutOfMemory.
			if err := m.Insert(1, 1); !errors.Is(err, ErrAlreadyExists) {
				t.Errorf("duplicate at limit error = %v, want ErrAlreadyExists", err)
			}

			if err := m.Delete(0); err != nil {
				t.Fatalf("Delete(0) error = %v", err)
			}
			if err := m.Insert(3, 3); err != nil {
				t.Errorf("Insert after delete error = %v", err)
			}
		})
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) Observe(op Op, bucket int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, fmt.Sprintf("%s/%d/%s", op, bucket, Code(err)))
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	m := newIdentityMap(t, 4, WithObserver(obs))

	m.Insert(5, 5)
	m.Insert(5, 6)
	m.Get(5)
	m.Replace(6, 6)
	m.Delete(5)
	m.Delete(5)

	want := []string{
		"insert/1/",
		"insert/1/SM-MAP-4090",
		"get/1/",
		"replace/2/SM-MAP-4040",
		"delete/1/",
		"delete/1/SM-MAP-4041",
	}
	assert.Equal(t, want, obs.events)
}

func TestStats(t *testing.T) {
	m := newIdentityMap(t, 4)
	for _, k := range []uint32{0, 4, 8, 1, 2, 6} {
		m.Insert(k, k)
	}

	s := m.Stats()
	assert.Equal(t, 4, s.Buckets)
	assert.Equal(t, 6, s.Entries)
	assert.Equal(t, 1, s.Empty)
	assert.Equal(t, 0, s.Min)
	assert.Equal(t, 3, s.Max)
	assert.InDelta(t, 1.5, s.Mean, 1e-9)
	// sizes 3,1,2,0: variance = (2.25+0.25+0.25+2.25)/4 = 1.25
	assert.InDelta(t, 1.1180339887, s.StdDev, 1e-9)
}

// TestInsert_FullScale reproduces the reference benchmark workload: 16
// writers each inserting one million distinct keys into 1024 buckets.
func TestInsert_FullScale(t *testing.T) {
	if os.Getenv("SHARDMAP_FULL_SCALE") != "1" {
		t.Skip("set SHARDMAP_FULL_SCALE=1 to run the 16M insert scenario")
	}

	const (
		workers   = 16
		perWorker = 1_000_000
	)
	m := newIdentityMap(t, 1024)

	keys := make([]uint32, workers*perWorker)
	state := uint64(1)
	for i := range keys {
		state = state * 279470273 % 0xfffffffb
		keys[i] = uint32(state)
	}

	var wg sync.WaitGroup
	var dups atomic.Int64
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(part []uint32) {
			defer wg.Done()
			for _, k := range part {
				if err := m.Insert(k, k); errors.Is(err, ErrAlreadyExists) {
					dups.Add(1)
				} else if err != nil {
					t.Errorf("Insert error = %v", err)
					return
				}
			}
		}(keys[w*perWorker : (w+1)*perWorker])
	}
	wg.Wait()

	require.Equal(t, int64(0), dups.Load())
	require.Equal(t, workers*perWorker, m.Len())
}

func BenchmarkInsert(b *testing.B) {
	for _, s := range strategies {
		b.Run(string(s), func(b *testing.B) {
			m, err := NewFunc[uint64, uint64](1024, hashfn.Murmur3Uint64, cmp.Compare[uint64], WithStrategy(s))
			if err != nil {
				b.Fatal(err)
			}
			var next atomic.Uint64
			b.ReportAllocs()
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					k := next.Add(1)
					m.Insert(k, k)
				}
			})
		})
	}
}
