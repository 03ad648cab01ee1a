package ring

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func members(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("shard/%03d", i)
	}
	return out
}

func TestGetNodeDeterministic(t *testing.T) {
	r, err := New(members(8), 64)
	require.NoError(t, err)

	first, ok := r.GetNode("some-candidate-key")
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		again, ok := r.GetNode("some-candidate-key")
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestGetNodeEmptyRing(t *testing.T) {
	r, err := New(nil, 64)
	require.NoError(t, err)
	_, ok := r.GetNode("anything")
	assert.False(t, ok)
}

func TestRingBalance(t *testing.T) {
	const n = 100
	r, err := New(members(n), 128)
	require.NoError(t, err)

	counts := make(map[string]int, n)
	const keys = 200000
	for i := 0; i < keys; i++ {
		owner, ok := r.GetNode(fmt.Sprintf("key-%d", i))
		require.True(t, ok)
		counts[owner]++
	}

	expected := float64(keys) / float64(n)
	for m, c := range counts {
		delta := math.Abs(float64(c)-expected) / expected
		assert.Lessf(t, delta, 0.30, "member %s share off by %.2f%%", m, delta*100)
	}
}

func TestRingStabilityOnRemoval(t *testing.T) {
	const n = 50
	ms := members(n)
	before, err := New(ms, 128)
	require.NoError(t, err)

	const keys = 20000
	beforeOwners := make(map[string]string, keys)
	for i := 0; i < keys; i++ {
		k := fmt.Sprintf("stability-%d", i)
		owner, _ := before.GetNode(k)
		beforeOwners[k] = owner
	}

	after, err := New(ms, 128)
	require.NoError(t, err)
	after.Remove(ms[0])

	remapped := 0
	for i := 0; i < keys; i++ {
		k := fmt.Sprintf("stability-%d", i)
		owner, ok := after.GetNode(k)
		require.True(t, ok)
		if owner != beforeOwners[k] {
			remapped++
		}
	}

	// Expect ~1/n remapped; the bound is 3x slack over 1.2/n, i.e. 3.6/n.
	got := float64(remapped) / float64(keys)
	want := 1.0 / float64(n)
	assert.LessOrEqualf(t, got, want*3.6, "remapped fraction %.4f exceeds 3.6x of %.4f", got, want)
}

func TestAddPreservesOtherPoints(t *testing.T) {
	ms := members(10)
	r, err := New(ms, 64)
	require.NoError(t, err)

	const keys = 5000
	before := make(map[string]string, keys)
	for i := 0; i < keys; i++ {
		k := fmt.Sprintf("k-%d", i)
		owner, _ := r.GetNode(k)
		before[k] = owner
	}

	require.NoError(t, r.Add("shard/999"))

	changed := 0
	for i := 0; i < keys; i++ {
		k := fmt.Sprintf("k-%d", i)
		owner, _ := r.GetNode(k)
		if owner != before[k] {
			changed++
			assert.Equal(t, "shard/999", owner, "key %s moved to an unexpected owner", k)
		}
	}
	assert.Greater(t, changed, 0)
}

func TestRoutingAgainstFourShardRing(t *testing.T) {
	ms := members(4)
	r, err := New(ms, 128)
	require.NoError(t, err)

	for i := 0; i < 10000; i++ {
		k := fmt.Sprintf("synthetic-%d", i)
		owner, ok := r.GetNode(k)
		require.True(t, ok)
		assert.Contains(t, ms, owner)
	}
}
