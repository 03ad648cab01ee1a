package bloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddThenContains(t *testing.T) {
	ks, err := NewKeySetForCapacity(1000, 1e-3)
	require.NoError(t, err)

	ks.Add("candidate-key-1")
	assert.True(t, ks.Contains("candidate-key-1"))
	assert.False(t, ks.Contains("never-added"))
}

func TestFalsePositiveRateBound(t *testing.T) {
	const capacity = 2000
	const target = 1e-3
	ks, err := NewKeySetForCapacity(capacity, target)
	require.NoError(t, err)

	for i := 0; i < capacity; i++ {
		ks.Add(fmt.Sprintf("member-%d", i))
	}

	falsePositives := 0
	const trials = capacity * 10
	for i := 0; i < trials; i++ {
		k := fmt.Sprintf("absent-%d", i)
		if ks.Contains(k) {
			falsePositives++
		}
	}

	rate := float64(falsePositives) / float64(trials)
	// Sized for 1e-3 at design capacity; allow headroom since we probe at
	// 10x the sizing capacity.
	assert.LessOrEqual(t, rate, target*5)
}

func TestKeySetRejectsInvalidParams(t *testing.T) {
	_, err := NewKeySet(0, 4)
	assert.Error(t, err)

	_, err = NewKeySet(1024, 0)
	assert.Error(t, err)

	_, err = NewKeySetForCapacity(0, 1e-3)
	assert.Error(t, err)

	_, err = NewKeySetForCapacity(100, 1.5)
	assert.Error(t, err)
}
