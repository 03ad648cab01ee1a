// Package bloom implements a fixed-size Bloom filter used by a shard to
// approximate the set of keys it has ever reified, so that a repeat key can
// be dropped in O(1) without retaining every candidate ever seen.
//
// Ported from the bit-array-and-k-probes design of Raymond Hettinger's
// public-domain Bloom filter recipe, adapted to derive all k probe indices
// from two 64-bit xxhash values of the key via double hashing instead of a
// per-key-seeded PRNG.
package bloom
