package lap

import (
	"math"

	"github.com/viam-modules/motmetrics/distance"
)

// Hungarian is the exact Kuhn-Munkres solver with row and column potentials
// (Jonker-Volgenant shortest augmenting path variant), O(n³) on the padded square matrix.
type Hungarian struct{}

// Name implements Solver.
func (Hungarian) Name() string { return HungarianName }

// Solve implements Solver.
func (Hungarian) Solve(m *distance.Matrix) (Assignment, error) {
	if m.Empty() {
		return emptyAssignment(m), nil
	}
	c, _ := paddedCosts(m)
	return sortPairs(newAssignment(hungarian(c), m, m)), nil
}

// hungarian returns assignments[i] = column of row i for a square cost table.
func hungarian(c [][]float64) []int {
	dim := len(c)
	const inf = math.MaxFloat64 / 2

	// 1-indexed internally, index 0 is the virtual column.
	u := make([]float64, dim+1) // row potentials
	v := make([]float64, dim+1) // column potentials
	p := make([]int, dim+1)     // p[j] = row assigned to column j
	way := make([]int, dim+1)   // way[j] = previous column on the augmenting path
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0
		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 < 0 {
				break
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// Augment along the path.
		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	rowAssign := make([]int, dim)
	for i := range rowAssign {
		rowAssign[i] = -1
	}
	for j := 1; j <= dim; j++ {
		if p[j] > 0 {
			rowAssign[p[j]-1] = j - 1
		}
	}
	return rowAssign
}
