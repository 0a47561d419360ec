// Package respserver serves a shardmap.Map over the Redis serialization
// protocol (RESP2).
//
// Supported commands:
//
//	PING [message]          QUIT                  AUTH [user] password
//	SETNX key value         SET key value [NX|XX] GET key
//	DEL key [key ...]       EXISTS key [key ...]  DBSIZE
//	INFO [section]
//
// SETNX and SET NX map onto Map.Insert, so of several clients racing to
// create one key exactly one sees success. SET XX maps onto Map.Replace.
// A plain SET inserts, and replaces when the key already exists.
//
// A refused allocation is reported as "-OOM", matching Redis's reply when
// maxmemory is reached.
package respserver
