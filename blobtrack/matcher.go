package blobtrack

import (
	"math"

	"github.com/arthurkushman/go-hungarian"
)

// IdentityMatcher assigns this frame's blobs to tracked objects by minimal total cost
type IdentityMatcher struct {
	algorithm MatchingAlgorithm
}

// NewIdentityMatcher creates matcher using given algorithm
func NewIdentityMatcher(algorithm MatchingAlgorithm) *IdentityMatcher {
	return &IdentityMatcher{
		algorithm: algorithm,
	}
}

// Algorithm returns matching algorithm in use
func (im *IdentityMatcher) Algorithm() MatchingAlgorithm {
	return im.algorithm
}

// SquaredDistanceCost returns cost[i][j] = squared distance between blob i and position j
func SquaredDistanceCost(blobs []Blob, positions []Point) [][]float64 {
	cost := make([][]float64, len(blobs))
	for i, b := range blobs {
		cost[i] = make([]float64, len(positions))
		for j, p := range positions {
			cost[i][j] = squaredDistance(b.Center(), p)
		}
	}
	return cost
}

// AssignmentCost sums cost of assigned cells
func AssignmentCost(cost [][]float64, assignment []int) float64 {
	total := 0.0
	for i, j := range assignment {
		if j >= 0 {
			total += cost[i][j]
		}
	}
	return total
}

// Match returns assignment[i] = column matched to row i, or -1 if the row stays unmatched.
// Rows are blobs, columns are tracked objects. Every row is matched when rows <= columns.
func (im *IdentityMatcher) Match(cost [][]float64) []int {
	if len(cost) == 0 {
		return nil
	}
	switch im.algorithm {
	case MatchingKuhnMunkres:
		return kuhnMunkres(cost)
	case MatchingHungarian:
		return matchHungarianLib(cost)
	case MatchingGreedy:
		return matchGreedy(cost)
	default:
		return kuhnMunkres(cost)
	}
}

// assignmentCostTolerance is relative slack when comparing assignment costs
const assignmentCostTolerance = 1e-9

// matchHungarianLib maximizes (max cost - cost) with go-hungarian. Falls back to
// kuhnMunkres if the solver output is not a valid assignment or costs more than
// the Kuhn-Munkres one.
func matchHungarianLib(cost [][]float64) []int {
	n := len(cost)
	m := len(cost[0])
	if m == 0 {
		return kuhnMunkres(cost)
	}
	maxCost := 0.0
	for i := range cost {
		for j := range cost[i] {
			maxCost = math.Max(maxCost, cost[i][j])
		}
	}
	// Rectangular matrix - pad to make it square. Padding is done with 0.0 values (lowest score)
	size := maxInt(n, m)
	scores := make([][]float64, size)
	for i := 0; i < size; i++ {
		scores[i] = make([]float64, size)
		if i >= n {
			continue
		}
		for j := 0; j < m; j++ {
			scores[i][j] = maxCost - cost[i][j] + 1
		}
	}
	assignmentsMap := hungarian.SolveMax(scores)

	result := make([]int, n)
	for i := range result {
		result[i] = -1
	}
	usedCols := make(map[int]struct{}, m)
	for row, rowMap := range assignmentsMap {
		if row < 0 || row >= n {
			continue
		}
		for col := range rowMap {
			if col < 0 || col >= m {
				continue
			}
			if _, ok := usedCols[col]; ok || result[row] != -1 {
				Logf("blobtrack: go-hungarian returned conflicting assignment, falling back to Kuhn-Munkres")
				return kuhnMunkres(cost)
			}
			usedCols[col] = struct{}{}
			result[row] = col
		}
	}
	if len(usedCols) != minInt(n, m) {
		Logf("blobtrack: go-hungarian returned incomplete assignment (%d of %d), falling back to Kuhn-Munkres", len(usedCols), minInt(n, m))
		return kuhnMunkres(cost)
	}
	// SolveMax is not guaranteed to find the optimum
	optimal := kuhnMunkres(cost)
	if got, want := AssignmentCost(cost, result), AssignmentCost(cost, optimal); got > want+assignmentCostTolerance*math.Max(1, math.Abs(want)) {
		Logf("blobtrack: go-hungarian assignment costs %v, optimum is %v, falling back to Kuhn-Munkres", got, want)
		return optimal
	}
	return result
}

// matchGreedy pairs the cheapest free row/column first
func matchGreedy(cost [][]float64) []int {
	n := len(cost)
	result := make([]int, n)
	for i := range result {
		result[i] = -1
	}
	priorityQueue := make(distanceHeap, 0, n*len(cost[0]))
	for i := range cost {
		for j := range cost[i] {
			priorityQueue.Push(candidatePair{row: i, col: j, distance: cost[i][j]})
		}
	}
	// We need to prevent double use of columns
	reservedCols := make(map[int]struct{})
	for priorityQueue.Len() > 0 {
		pair := priorityQueue.Pop()
		if result[pair.row] != -1 {
			continue
		}
		if _, ok := reservedCols[pair.col]; ok {
			continue
		}
		result[pair.row] = pair.col
		reservedCols[pair.col] = struct{}{}
	}
	return result
}
