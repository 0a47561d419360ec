// Package bucket provides ordered, duplicate-rejecting collections that are
// safe for concurrent use.
//
// Two strategies implement the Collection contract:
//
//   - StrategyBTree: a google/btree B-tree under a per-bucket RWMutex
//   - StrategyLockFree: a sorted linked list updated with compare-and-swap
//
// Both reject a second entry for an equal key with ErrAlreadyExists without
// changing state, and both report a refused allocation as ErrOutOfMemory.
package bucket
