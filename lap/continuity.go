package lap

import (
	"github.com/viam-modules/motmetrics/distance"
)

// continuityScale bounds the total perturbation applied by SolveWithContinuity relative to the
// largest distance in the matrix.
const continuityScale = 1e-9

// SolveWithContinuity solves m while preferring cells for which keep returns true, typically
// the ground truth/hypothesis pairs matched in the previous frame. Each preferred cell is
// lowered by eps = 1e-9*(1+max|d|)/(min(rows, cols)+1), so the chosen assignment costs at most
// 1e-9*(1+max|d|) more than the optimum and exact ties resolve towards the previous pairing.
// Pair costs in the result are the unperturbed distances.
func SolveWithContinuity(s Solver, m *distance.Matrix, keep func(row, col int) bool) (Assignment, error) {
	if m.Empty() || keep == nil {
		return s.Solve(m)
	}
	rows, cols := m.Dims()
	k := rows
	if cols < k {
		k = cols
	}
	eps := continuityScale * (1 + m.MaxAbs()) / float64(k+1)

	perturbed := m.Clone()
	touched := false
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if m.Feasible(i, j) && keep(i, j) {
				perturbed.Set(i, j, m.At(i, j)-eps)
				touched = true
			}
		}
	}
	if !touched {
		return s.Solve(m)
	}

	a, err := s.Solve(perturbed)
	if err != nil {
		return Assignment{}, err
	}
	for i := range a.Pairs {
		a.Pairs[i].Cost = m.At(a.Pairs[i].Row, a.Pairs[i].Col)
	}
	return a, nil
}
