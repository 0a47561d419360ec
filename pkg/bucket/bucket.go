package bucket

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadyExists is returned by Insert when the key is already stored.
	ErrAlreadyExists = errors.New("bucket: key already exists")

	// ErrOutOfMemory is returned by Insert when the budget refuses a new node.
	ErrOutOfMemory = errors.New("bucket: out of memory")

	// ErrNotFound is returned by Get, Delete and Replace for an absent key.
	ErrNotFound = errors.New("bucket: key not found")

	// ErrUnknownStrategy is returned by ParseStrategy and New.
	ErrUnknownStrategy = errors.New("bucket: unknown strategy")
)

// Compare orders two keys. It returns a negative number when a < b,
// zero when a == b and a positive number when a > b.
type Compare[K any] func(a, b K) int

// Entry is a snapshot of a stored key-value pair.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Collection is an ordered, duplicate-rejecting collection that is safe for
// concurrent use once constructed.
type Collection[K, V any] interface {
	// Insert stores the pair if no entry with an equal key exists.
	// It returns ErrAlreadyExists or ErrOutOfMemory without mutating state.
	Insert(key K, value V) (Entry[K, V], error)

	// Get returns the value stored for key.
	Get(key K) (V, error)

	// Delete removes the entry for key.
	Delete(key K) error

	// Replace swaps the value of an existing entry and returns the old one.
	Replace(key K, value V) (V, error)

	// Len returns the number of live entries.
	Len() int
}

// Budget gates node allocation. Acquire reports whether one more node may be
// allocated; every granted unit is eventually given back with Release.
type Budget interface {
	Acquire() bool
	Release()
}

type unlimited struct{}

func (unlimited) Acquire() bool { return true }
func (unlimited) Release()      {}

// Unlimited is a Budget that always grants.
var Unlimited Budget = unlimited{}

// Strategy selects the synchronization scheme of a collection.
type Strategy string

const (
	// StrategyBTree guards a B-tree with a per-bucket RWMutex.
	StrategyBTree Strategy = "btree"

	// StrategyLockFree uses a CAS-linked sorted list.
	StrategyLockFree Strategy = "lockfree"
)

// DefaultStrategy is used when no strategy is configured.
const DefaultStrategy = StrategyBTree

// ParseStrategy converts a configuration string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(StrategyBTree):
		return StrategyBTree, nil
	case string(StrategyLockFree), "lock-free":
		return StrategyLockFree, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// New creates an empty collection. It is not safe to call concurrently with
// operations on the returned collection; callers publish the result before use.
func New[K, V any](strategy Strategy, compare Compare[K], budget Budget) (Collection[K, V], error) {
	if budget == nil {
		budget = Unlimited
	}
	switch strategy {
	case "", StrategyBTree:
		return NewBTree[K, V](compare, budget), nil
	case StrategyLockFree:
		return NewLockFree[K, V](compare, budget), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}
