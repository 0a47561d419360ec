// Package shardmap provides a fixed-size concurrent hash map.
//
// A Map owns an array of buckets chosen at construction. Each key is routed
// to exactly one bucket by hash(key) mod bucket count, and each bucket is an
// ordered collection with its own synchronization (see package bucket):
//
//   - Routing: pluggable hashers from package hashfn
//   - Uniqueness: at most one entry per key, one winner per contested insert
//   - Budget: optional entry cap reported as ErrOutOfMemory
//   - No resize: the bucket count never changes
//
// Usage:
//
//	m, err := shardmap.NewFunc[uint32, uint32](1024, hashfn.Identity[uint32], cmp.Compare[uint32])
//	if err != nil {
//		return err
//	}
//	if err := m.Insert(7, 7); errors.Is(err, shardmap.ErrAlreadyExists) {
//		// another goroutine stored key 7 first
//	}
//
// Thread Safety:
//
// Construction is single-threaded. Insert, Get, Delete, Replace, Len and
// Stats are safe for concurrent use once the map has been published.
package shardmap
