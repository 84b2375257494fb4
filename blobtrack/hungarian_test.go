package blobtrack

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// bruteForceCost returns minimal total cost over all injective row to column maps (rows <= columns)
func bruteForceCost(cost [][]float64) float64 {
	m := len(cost[0])
	used := make([]bool, m)
	best := math.Inf(1)
	var rec func(row int, acc float64)
	rec = func(row int, acc float64) {
		if row == len(cost) {
			best = math.Min(best, acc)
			return
		}
		for j := 0; j < m; j++ {
			if used[j] {
				continue
			}
			used[j] = true
			rec(row+1, acc+cost[row][j])
			used[j] = false
		}
	}
	rec(0, 0)
	return best
}

func randomCost(rng *rand.Rand, n, m int) [][]float64 {
	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, m)
		for j := range cost[i] {
			cost[i][j] = float64(rng.Intn(100))
		}
	}
	return cost
}

func requireValidAssignment(t *testing.T, assignment []int, n, m int) {
	t.Helper()
	require.Len(t, assignment, n)
	seen := make(map[int]bool)
	assigned := 0
	for _, j := range assignment {
		if j < 0 {
			continue
		}
		require.Less(t, j, m)
		require.False(t, seen[j], "column %d used twice", j)
		seen[j] = true
		assigned++
	}
	require.Equal(t, minInt(n, m), assigned)
}

func TestKuhnMunkresOptimal(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for n := 1; n <= 5; n++ {
		for trial := 0; trial < 50; trial++ {
			cost := randomCost(rng, n, n)
			assignment := kuhnMunkres(cost)
			requireValidAssignment(t, assignment, n, n)
			require.InDelta(t, bruteForceCost(cost), AssignmentCost(cost, assignment), 1e-9, "n=%d trial=%d cost=%v", n, trial, cost)
		}
	}
}

func TestKuhnMunkresRectangular(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	for trial := 0; trial < 30; trial++ {
		cost := randomCost(rng, 3, 5)
		assignment := kuhnMunkres(cost)
		requireValidAssignment(t, assignment, 3, 5)
		require.InDelta(t, bruteForceCost(cost), AssignmentCost(cost, assignment), 1e-9)
	}
	for trial := 0; trial < 30; trial++ {
		cost := randomCost(rng, 5, 3)
		assignment := kuhnMunkres(cost)
		requireValidAssignment(t, assignment, 5, 3)
		// Transposed problem has the same optimum
		transposed := make([][]float64, 3)
		for j := range transposed {
			transposed[j] = make([]float64, 5)
			for i := 0; i < 5; i++ {
				transposed[j][i] = cost[i][j]
			}
		}
		require.InDelta(t, bruteForceCost(transposed), AssignmentCost(cost, assignment), 1e-9)
	}
	require.Nil(t, kuhnMunkres(nil))
	require.Equal(t, []int{-1, -1}, kuhnMunkres([][]float64{{}, {}}))
}
