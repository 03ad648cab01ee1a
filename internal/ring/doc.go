// Package ring implements a consistent-hash ring that assigns opaque string
// keys to shard identifiers.
//
// Each member is given a fixed number of virtual points on the ring so that
// adding or removing a member only remaps the fraction of keyspace owned by
// that member's points, rather than rehashing the whole keyspace. Lookups
// walk the sorted point list with binary search and wrap to the lowest point
// when a key hashes past the last one.
package ring
