package ga

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/exelixi/internal/uow"
)

func targetSumParams() uow.Params {
	return uow.Params{
		NPop:            20,
		NGen:            5,
		SelectionRate:   0.2,
		MutationRate:    0.02,
		HistGranularity: 3,
		TermLimit:       1e-3,
	}
}

func TestKeyOfIsPureAndOrderInsensitive(t *testing.T) {
	u, err := NewTargetSum(TargetSumConfig{Length: 5, Min: 0, Max: 100, Target: 231}, targetSumParams())
	require.NoError(t, err)

	a := encodeFeatures([]int{10, 20, 30, 40, 50})
	b := encodeFeatures([]int{50, 40, 30, 20, 10})

	assert.Equal(t, u.KeyOf(a), u.KeyOf(a))
	assert.Equal(t, u.KeyOf(a), u.KeyOf(b), "KeyOf should be a function of the sorted feature set")
}

func TestEvaluateRewardsTarget(t *testing.T) {
	u, err := NewTargetSum(TargetSumConfig{Length: 5, Min: 0, Max: 100, Target: 231}, targetSumParams())
	require.NoError(t, err)

	exact := encodeFeatures([]int{50, 50, 50, 50, 31})
	assert.InDelta(t, 1.0, u.Evaluate(exact), 1e-9)

	off := encodeFeatures([]int{0, 0, 0, 0, 0})
	assert.Less(t, u.Evaluate(off), 1.0)
}

func TestCrossoverProducesSortedChildFromHalves(t *testing.T) {
	u, err := NewTargetSum(TargetSumConfig{Length: 4, Min: 0, Max: 10, Target: 10}, targetSumParams())
	require.NoError(t, err)

	father := encodeFeatures([]int{1, 2, 3, 4})
	mother := encodeFeatures([]int{5, 6, 7, 8})

	child := decodeFeatures(u.Crossover(father, mother))
	require.Len(t, child, 4)
	assert.True(t, sortedInts(child))
	// father[2:] = {3,4}, mother[:2] = {5,6}
	assert.ElementsMatch(t, []int{3, 4, 5, 6}, child)
}

func TestMutateChangesAtMostOneValue(t *testing.T) {
	u, err := NewTargetSum(TargetSumConfig{Length: 5, Min: 0, Max: 100, Target: 231}, targetSumParams())
	require.NoError(t, err)

	original := []int{10, 20, 30, 40, 50}
	mutant := decodeFeatures(u.Mutate(encodeFeatures(original)))
	require.Len(t, mutant, len(original))
	assert.True(t, sortedInts(mutant))

	// One replaced position leaves at most one value of the mutant outside
	// the original's multiset (none if the fresh value equals the old one).
	remaining := map[int]int{}
	for _, v := range original {
		remaining[v]++
	}
	foreign := 0
	for _, v := range mutant {
		if remaining[v] > 0 {
			remaining[v]--
		} else {
			foreign++
		}
	}
	assert.LessOrEqual(t, foreign, 1)
}

func TestShouldTerminateOnMSE(t *testing.T) {
	u, err := NewTargetSum(TargetSumConfig{Length: 5, Min: 0, Max: 100, Target: 231}, targetSumParams())
	require.NoError(t, err)

	// A histogram entirely at fitness 1.0 has MSE 0 <= term_limit.
	perfect := uow.Histogram{"1.000": 20}
	assert.True(t, u.ShouldTerminate(3, perfect, 100))

	// A histogram far from 1.0 should not terminate under a tight limit.
	poor := uow.Histogram{"0.100": 20}
	assert.False(t, u.ShouldTerminate(3, poor, 100))
}

func TestShouldTerminateOnMaxTotalIndivCap(t *testing.T) {
	params := targetSumParams()
	params.MaxTotalIndiv = 50
	u, err := NewTargetSum(TargetSumConfig{Length: 5, Min: 0, Max: 100, Target: 231}, params)
	require.NoError(t, err)

	poor := uow.Histogram{"0.100": 20}
	assert.True(t, u.ShouldTerminate(3, poor, 50), "total_seen reaching the cap should force termination")
	assert.False(t, u.ShouldTerminate(3, poor, 49))
}

func sortedInts(xs []int) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i-1] > xs[i] {
			return false
		}
	}
	return true
}

// --- E6: TSP fixture -------------------------------------------------
//
// Test-only reference for a permutation-valued UnitOfWork (not a shipped
// sample-problem package; the out-of-scope TSP/lawnmower sample problem
// definitions are never part of the public API). Route metadata is the
// 6-city table from the original TSP sample.

var tspRouteCost = [6][6]int{
	{0, 7, 11, 12, 14, 8},
	{7, 0, 18, 18, 19, 5},
	{14, 19, 0, 2, 3, 19},
	{12, 20, 3, 0, 1, 19},
	{12, 18, 3, 1, 0, 18},
	{8, 5, 18, 18, 19, 0},
}

func tspFitness(route []int) float64 {
	expected := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	observed := map[int]bool{}
	for _, c := range route {
		observed[c] = true
	}
	missing := 0
	for c := range expected {
		if !observed[c] {
			missing++
		}
	}
	cost1 := float64(missing) / float64(len(expected))

	worstCase := 0.0
	for _, c := range tspRouteCost[0] {
		worstCase += float64(c)
	}
	worstCase *= 2.0

	totalCost := 0
	x0 := 0
	for _, x1 := range route {
		totalCost += tspRouteCost[x0][x1]
		x0 = x1
	}
	totalCost += tspRouteCost[x0][0]
	cost2 := math.Min(1.0, float64(totalCost)/worstCase)

	estimate := 1.0 - (cost1+cost2)/2.0
	if cost1 > 0.0 {
		estimate /= 2.0
	}
	return estimate
}

func TestTSPFitnessRewardsCompleteCheapRoute(t *testing.T) {
	// A permutation visiting every city with a cheap path out-scores an
	// incomplete route that skips cities.
	complete := []int{1, 3, 4, 2, 5}
	incomplete := []int{1, 1, 1, 1, 1}

	full := tspFitness(complete)
	partial := tspFitness(incomplete)

	assert.Greater(t, full, partial)
	assert.LessOrEqual(t, full, 1.0)
	assert.GreaterOrEqual(t, partial, 0.0)
}

func TestTSPBestKnownRouteMeetsE6Bound(t *testing.T) {
	// A complete route scores 1 - cost/208 (the worst case is twice the sum
	// of row 0, 104, and the cost term is averaged with a zero
	// missing-city term). 1 -> 4 -> 3 -> 2 -> 5, with the legs from and back
	// to city 0, costs 7+19+1+3+19+8 = 57, so it scores about 0.73. We
	// search the small permutation space directly rather than hand-picking
	// one.
	best := math.Inf(-1)
	var bestRoute []int
	cities := []int{1, 2, 3, 4, 5}
	permute(cities, func(route []int) {
		f := tspFitness(route)
		if f > best {
			best = f
			bestRoute = append([]int(nil), route...)
		}
	})

	require.NotNil(t, bestRoute)
	assert.Greater(t, best, 0.5, "best route over all permutations should clear the E6 fitness bound")

	seen := map[int]bool{}
	for _, c := range bestRoute {
		seen[c] = true
	}
	assert.Len(t, seen, 5, "best route should visit each of cities 1..5 exactly once")
}

func permute(xs []int, visit func([]int)) {
	var helper func([]int, int)
	helper = func(arr []int, k int) {
		if k == len(arr) {
			cp := append([]int(nil), arr...)
			visit(cp)
			return
		}
		for i := k; i < len(arr); i++ {
			arr[k], arr[i] = arr[i], arr[k]
			helper(arr, k+1)
			arr[k], arr[i] = arr[i], arr[k]
		}
	}
	cp := append([]int(nil), xs...)
	helper(cp, 0)
}
