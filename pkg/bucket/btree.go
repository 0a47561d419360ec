package bucket

import (
	"sync"

	"github.com/google/btree"
	"golang.org/x/sys/cpu"
)

// btreeDegree keeps nodes around two cache lines of pointers.
const btreeDegree = 16

type item[K, V any] struct {
	key   K
	value V
}

// BTree is a Collection backed by an ordered B-tree under a RWMutex.
type BTree[K, V any] struct {
	_      cpu.CacheLinePad
	mu     sync.RWMutex
	tree   *btree.BTreeG[item[K, V]]
	budget Budget
	_      cpu.CacheLinePad
}

// NewBTree creates an empty B-tree collection.
func NewBTree[K, V any](compare Compare[K], budget Budget) *BTree[K, V] {
	if budget == nil {
		budget = Unlimited
	}
	less := func(a, b item[K, V]) bool {
		return compare(a.key, b.key) < 0
	}
	return &BTree[K, V]{
		tree:   btree.NewG(btreeDegree, less),
		budget: budget,
	}
}

// Insert stores the pair if the key is absent.
func (b *BTree[K, V]) Insert(key K, value V) (Entry[K, V], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.tree.Get(item[K, V]{key: key}); ok {
		return Entry[K, V]{Key: existing.key, Value: existing.value}, ErrAlreadyExists
	}
	if !b.budget.Acquire() {
		return Entry[K, V]{}, ErrOutOfMemory
	}
	b.tree.ReplaceOrInsert(item[K, V]{key: key, value: value})
	return Entry[K, V]{Key: key, Value: value}, nil
}

// Get returns the value stored for key.
func (b *BTree[K, V]) Get(key K) (V, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	it, ok := b.tree.Get(item[K, V]{key: key})
	if !ok {
		var zero V
		return zero, ErrNotFound
	}
	return it.value, nil
}

// Delete removes the entry for key.
func (b *BTree[K, V]) Delete(key K) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.tree.Delete(item[K, V]{key: key}); !ok {
		return ErrNotFound
	}
	b.budget.Release()
	return nil
}

// Replace swaps the value of an existing entry.
func (b *BTree[K, V]) Replace(key K, value V) (V, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old, ok := b.tree.Get(item[K, V]{key: key})
	if !ok {
		var zero V
		return zero, ErrNotFound
	}
	b.tree.ReplaceOrInsert(item[K, V]{key: old.key, value: value})
	return old.value, nil
}

// Len returns the number of entries.
func (b *BTree[K, V]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.Len()
}
