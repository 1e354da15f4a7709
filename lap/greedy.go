package lap

import (
	"container/heap"

	"github.com/viam-modules/motmetrics/distance"
)

// Greedy repeatedly takes the cheapest feasible cell whose row and column are both free.
// It is fast but not globally optimal and is only used when selected explicitly.
type Greedy struct{}

// Name implements Solver.
func (Greedy) Name() string { return GreedyName }

// Solve implements Solver.
func (Greedy) Solve(m *distance.Matrix) (Assignment, error) {
	if m.Empty() {
		return emptyAssignment(m), nil
	}
	rows, cols := m.Dims()
	pq := make(cellHeap, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if m.Feasible(i, j) {
				pq = append(pq, cell{row: i, col: j, cost: m.At(i, j)})
			}
		}
	}
	heap.Init(&pq)

	rowToCol := make([]int, rows)
	for i := range rowToCol {
		rowToCol[i] = -1
	}
	usedCol := make([]bool, cols)
	for pq.Len() > 0 {
		c := heap.Pop(&pq).(cell)
		if rowToCol[c.row] >= 0 || usedCol[c.col] {
			continue
		}
		rowToCol[c.row] = c.col
		usedCol[c.col] = true
	}
	return newAssignment(rowToCol, m, m), nil
}

type cell struct {
	row, col int
	cost     float64
}

// cellHeap is a min-heap by cost; ties resolve by row then column so results are reproducible.
type cellHeap []cell

func (h cellHeap) Len() int { return len(h) }

func (h cellHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	if h[i].row != h[j].row {
		return h[i].row < h[j].row
	}
	return h[i].col < h[j].col
}

func (h cellHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cellHeap) Push(x any) { *h = append(*h, x.(cell)) }

func (h *cellHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
