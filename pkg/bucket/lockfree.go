package bucket

import (
	"sync/atomic"
)

// link is an immutable (successor, deleted) pair. A node's next pointer is
// only ever replaced wholesale, so one CompareAndSwap checks both fields.
type link[K, V any] struct {
	node   *node[K, V]
	marked bool
}

type node[K, V any] struct {
	key   K
	value atomic.Pointer[V]
	next  atomic.Pointer[link[K, V]]
}

// LockFree is a Collection backed by a sorted singly-linked list whose links
// are updated with compare-and-swap. Deleted nodes are marked first and
// unlinked afterwards by whichever traversal passes them.
type LockFree[K, V any] struct {
	head    *node[K, V]
	compare Compare[K]
	budget  Budget
	size    atomic.Int64
}

// NewLockFree creates an empty lock-free collection.
func NewLockFree[K, V any](compare Compare[K], budget Budget) *LockFree[K, V] {
	if budget == nil {
		budget = Unlimited
	}
	head := &node[K, V]{}
	head.next.Store(&link[K, V]{})
	return &LockFree[K, V]{
		head:    head,
		compare: compare,
		budget:  budget,
	}
}

// find returns the first live node whose key is >= key together with its
// predecessor and the link read from the predecessor. Marked nodes met on the
// way are unlinked; a failed unlink restarts the search from the head.
func (l *LockFree[K, V]) find(key K) (pred *node[K, V], predLink *link[K, V], curr *node[K, V], found bool) {
retry:
	pred = l.head
	predLink = pred.next.Load()
	curr = predLink.node
	for curr != nil {
		currLink := curr.next.Load()
		if currLink.marked {
			unlinked := &link[K, V]{node: currLink.node}
			if !pred.next.CompareAndSwap(predLink, unlinked) {
				goto retry
			}
			predLink = unlinked
			curr = currLink.node
			continue
		}
		c := l.compare(curr.key, key)
		if c >= 0 {
			return pred, predLink, curr, c == 0
		}
		pred = curr
		predLink = currLink
		curr = currLink.node
	}
	return pred, predLink, nil, false
}

// lookup is the wait-free read path shared by Get and Replace.
func (l *LockFree[K, V]) lookup(key K) *node[K, V] {
	curr := l.head.next.Load().node
	for curr != nil {
		next := curr.next.Load()
		c := l.compare(curr.key, key)
		if c > 0 {
			return nil
		}
		if c == 0 && !next.marked {
			return curr
		}
		curr = next.node
	}
	return nil
}

// Insert stores the pair if the key is absent.
func (l *LockFree[K, V]) Insert(key K, value V) (Entry[K, V], error) {
	// A duplicate is reported as such even when the budget is exhausted.
	if curr := l.lookup(key); curr != nil {
		return Entry[K, V]{Key: curr.key, Value: *curr.value.Load()}, ErrAlreadyExists
	}
	if !l.budget.Acquire() {
		// A concurrent insert of the same key may have taken the last unit.
		if curr := l.lookup(key); curr != nil {
			return Entry[K, V]{Key: curr.key, Value: *curr.value.Load()}, ErrAlreadyExists
		}
		return Entry[K, V]{}, ErrOutOfMemory
	}

	n := &node[K, V]{key: key}
	n.value.Store(&value)
	for {
		pred, predLink, curr, found := l.find(key)
		if found {
			l.budget.Release()
			return Entry[K, V]{Key: curr.key, Value: *curr.value.Load()}, ErrAlreadyExists
		}
		n.next.Store(&link[K, V]{node: curr})
		if pred.next.CompareAndSwap(predLink, &link[K, V]{node: n}) {
			l.size.Add(1)
			return Entry[K, V]{Key: key, Value: value}, nil
		}
	}
}

// Get returns the value stored for key.
func (l *LockFree[K, V]) Get(key K) (V, error) {
	n := l.lookup(key)
	if n == nil {
		var zero V
		return zero, ErrNotFound
	}
	return *n.value.Load(), nil
}

// Delete removes the entry for key. Among concurrent deleters of one key
// exactly one observes success: the one whose mark CAS lands.
func (l *LockFree[K, V]) Delete(key K) error {
	for {
		pred, predLink, curr, found := l.find(key)
		if !found {
			return ErrNotFound
		}
		currLink := curr.next.Load()
		if currLink.marked {
			continue
		}
		if !curr.next.CompareAndSwap(currLink, &link[K, V]{node: currLink.node, marked: true}) {
			continue
		}
		l.size.Add(-1)
		l.budget.Release()
		// Best effort; a later find cleans up if this loses a race.
		pred.next.CompareAndSwap(predLink, &link[K, V]{node: currLink.node})
		return nil
	}
}

// Replace swaps the value of an existing entry and returns the old value.
func (l *LockFree[K, V]) Replace(key K, value V) (V, error) {
	n := l.lookup(key)
	if n == nil {
		var zero V
		return zero, ErrNotFound
	}
	old := n.value.Swap(&value)
	return *old, nil
}

// Len returns the number of live entries.
func (l *LockFree[K, V]) Len() int {
	return int(l.size.Load())
}
