// Package bench drives concurrent insert workloads against a shardmap.Map
// and reports throughput.
//
// The default configuration reproduces the reference workload: 16 writers
// each inserting one million pre-generated uint32 keys (key == value) into a
// map of 1024 buckets using the identity hash. Keys come from a Lehmer
// generator with prime modulus 0xfffffffb, so the first 2^32-5 values are
// pairwise distinct and a clean run reports zero duplicates.
//
// Each writer owns a disjoint slice of the pre-generated keys; no counter is
// shared on the hot path.
package bench
