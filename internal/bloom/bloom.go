package bloom

import (
	"fmt"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// KeySet is a thread-safe Bloom filter over string keys.
//
// It is parameterized by the bit-array size m (in bits) and the probe count
// k. Add flips k deterministic bit positions for a key; Contains reports
// true iff all k of them are set. False positives are possible by
// construction; false negatives are not.
type KeySet struct {
	mu   sync.RWMutex
	bits []uint64 // m bits packed 64 per word
	m    uint64
	k    uint
}

// NewKeySet builds an empty KeySet with an m-bit array and k probes per
// key. Both must be positive.
func NewKeySet(m uint64, k uint) (*KeySet, error) {
	if m == 0 {
		return nil, fmt.Errorf("bloom: m must be positive")
	}
	if k == 0 {
		return nil, fmt.Errorf("bloom: k must be positive")
	}
	words := (m + 63) / 64
	return &KeySet{
		bits: make([]uint64, words),
		m:    m,
		k:    k,
	}, nil
}

// NewKeySetForCapacity sizes m and k for an expected element count n and a
// target false-positive rate p using the standard Bloom filter formulas:
//
//	m = ceil(-n*ln(p) / ln(2)^2)
//	k = round(m/n * ln(2))
func NewKeySetForCapacity(n int, p float64) (*KeySet, error) {
	if n <= 0 {
		return nil, fmt.Errorf("bloom: n must be positive")
	}
	if p <= 0 || p >= 1 {
		return nil, fmt.Errorf("bloom: p must be in (0,1)")
	}
	m, k := optimalParams(n, p)
	return NewKeySet(m, k)
}

// Add flips the k deterministic bit positions derived from key.
func (ks *KeySet) Add(key string) {
	h1, h2 := probeHashes(key)
	ks.mu.Lock()
	defer ks.mu.Unlock()
	for i := uint(0); i < ks.k; i++ {
		idx := probeIndex(h1, h2, i, ks.m)
		ks.bits[idx/64] |= 1 << (idx % 64)
	}
}

// Contains reports whether every one of the k probe bits for key is set.
// A true result may be a false positive; a false result is never a false
// negative.
func (ks *KeySet) Contains(key string) bool {
	h1, h2 := probeHashes(key)
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	for i := uint(0); i < ks.k; i++ {
		idx := probeIndex(h1, h2, i, ks.m)
		if ks.bits[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}

// probeHashes derives two independent 64-bit hashes from a key; the k
// probe indices are then h1 + i*h2 (mod m), the Kirsch-Mitzenmacher
// double-hashing scheme, which needs only these two underlying hashes
// regardless of k.
func probeHashes(key string) (uint64, uint64) {
	h1 := xxhash.Sum64String(key)
	h2 := xxhash.Sum64String(key + "\x00bloom-probe")
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

func probeIndex(h1, h2 uint64, i uint, m uint64) uint64 {
	return (h1 + uint64(i)*h2) % m
}

func optimalParams(n int, p float64) (m uint64, k uint) {
	const ln2 = math.Ln2
	mf := -float64(n) * math.Log(p) / (ln2 * ln2)
	m = uint64(mf) + 1
	k = uint(mf/float64(n)*ln2 + 0.5)
	if k == 0 {
		k = 1
	}
	return m, k
}
