// Package hashfn provides the key hash functions used to route keys to buckets.
//
// Every Hasher is a pure function of its key: the same key always yields the
// same hash for the lifetime of the Hasher value, which is what keeps a key
// pinned to one bucket.
package hashfn

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/maphash"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// Hasher maps a key to a 64-bit hash.
type Hasher[K any] func(key K) uint64

// Integer is the set of key types Identity accepts.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// ErrUnknownHasher is returned by the name lookups.
var ErrUnknownHasher = errors.New("hashfn: unknown hasher")

// Identity returns the key itself. Keys that are already well distributed,
// such as pre-randomized integers, route without any mixing cost.
func Identity[K Integer](key K) uint64 {
	return uint64(key)
}

// Maphash returns a seeded runtime hash over any comparable key.
// The seed is fixed when Maphash is called.
func Maphash[K comparable]() Hasher[K] {
	seed := maphash.MakeSeed()
	return func(key K) uint64 {
		return maphash.Comparable(seed, key)
	}
}

// Ordered is Maphash for keys ordered by cmp.Compare. Every NaN hashes to
// the same value because cmp.Compare treats all NaNs as one key.
func Ordered[K cmp.Ordered]() Hasher[K] {
	hash := Maphash[K]()
	return func(key K) uint64 {
		if key != key {
			return 0
		}
		return hash(key)
	}
}

// Murmur3String hashes a string with MurmurHash3 (x64, 128-bit folded to 64).
func Murmur3String(key string) uint64 {
	return murmur3.Sum64([]byte(key))
}

// Murmur3Bytes hashes a byte slice with MurmurHash3.
func Murmur3Bytes(key []byte) uint64 {
	return murmur3.Sum64(key)
}

// Murmur3Uint32 hashes the little-endian encoding of key.
func Murmur3Uint32(key uint32) uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], key)
	return murmur3.Sum64(buf[:])
}

// Murmur3Uint64 hashes the little-endian encoding of key.
func Murmur3Uint64(key uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return murmur3.Sum64(buf[:])
}

// XXHashString hashes a string with xxHash64.
func XXHashString(key string) uint64 {
	return xxhash.Sum64String(key)
}

// XXHashBytes hashes a byte slice with xxHash64.
func XXHashBytes(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// XXHashUint32 hashes the little-endian encoding of key.
func XXHashUint32(key uint32) uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], key)
	return xxhash.Sum64(buf[:])
}

// XXHashUint64 hashes the little-endian encoding of key.
func XXHashUint64(key uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return xxhash.Sum64(buf[:])
}

// Hasher names accepted in configuration.
const (
	NameIdentity = "identity"
	NameMaphash  = "maphash"
	NameMurmur3  = "murmur3"
	NameXXHash   = "xxhash"
)

var uint32Hashers = map[string]func() Hasher[uint32]{
	NameIdentity: func() Hasher[uint32] { return Identity[uint32] },
	NameMaphash:  Maphash[uint32],
	NameMurmur3:  func() Hasher[uint32] { return Murmur3Uint32 },
	NameXXHash:   func() Hasher[uint32] { return XXHashUint32 },
}

var stringHashers = map[string]func() Hasher[string]{
	NameMaphash: Maphash[string],
	NameMurmur3: func() Hasher[string] { return Murmur3String },
	NameXXHash:  func() Hasher[string] { return XXHashString },
}

// Uint32ByName returns the uint32 hasher registered under name.
func Uint32ByName(name string) (Hasher[uint32], error) {
	mk, ok := uint32Hashers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownHasher, name, strings.Join(Uint32Names(), ", "))
	}
	return mk(), nil
}

// StringByName returns the string hasher registered under name.
func StringByName(name string) (Hasher[string], error) {
	mk, ok := stringHashers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownHasher, name, strings.Join(StringNames(), ", "))
	}
	return mk(), nil
}

// Uint32Names lists the registered uint32 hasher names in sorted order.
func Uint32Names() []string {
	return sortedKeys(uint32Hashers)
}

// StringNames lists the registered string hasher names in sorted order.
func StringNames() []string {
	return sortedKeys(stringHashers)
}

func sortedKeys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
