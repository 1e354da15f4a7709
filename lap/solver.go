// Package lap solves the linear assignment problem on per-frame distance matrices.
//
// Every exact backend returns a matching with the largest possible number of feasible pairs
// and, among those, the smallest total distance. Infeasible cells are never paired.
package lap

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/viam-modules/motmetrics/distance"
)

// Names of the built-in solvers.
const (
	HungarianName = "hungarian"
	MunkresName   = "munkres"
	GreedyName    = "greedy"
)

// DefaultName is the solver used when none is configured.
const DefaultName = MunkresName

// ErrUnknownSolver is returned by Lookup for names outside the built-in set.
var ErrUnknownSolver = errors.New("unknown assignment solver")

// Pair is one matched (row, column) cell together with its unperturbed distance.
type Pair struct {
	Row  int
	Col  int
	Cost float64
}

// Assignment is the result of solving one matrix.
type Assignment struct {
	Pairs         []Pair
	UnmatchedRows []int
	UnmatchedCols []int
}

// TotalCost sums the distances of all pairs.
func (a Assignment) TotalCost() float64 {
	total := 0.0
	for _, p := range a.Pairs {
		total += p.Cost
	}
	return total
}

// Solver computes an assignment for a distance matrix.
type Solver interface {
	Name() string
	Solve(m *distance.Matrix) (Assignment, error)
}

// Lookup returns the solver registered under name. An empty name selects the default.
func Lookup(name string) (Solver, error) {
	switch name {
	case "", MunkresName:
		return Munkres{}, nil
	case HungarianName:
		return Hungarian{}, nil
	case GreedyName:
		return Greedy{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownSolver, "%q (available: %v)", name, Names())
	}
}

// Names lists the built-in solvers.
func Names() []string {
	return []string{GreedyName, HungarianName, MunkresName}
}

// newAssignment turns a row -> column table (-1 for unassigned) into an Assignment,
// dropping anything that points to an infeasible cell. Costs are read from orig.
func newAssignment(rowToCol []int, solved, orig *distance.Matrix) Assignment {
	rows, cols := orig.Dims()
	usedCol := make([]bool, cols)
	var out Assignment
	for row := 0; row < rows; row++ {
		col := -1
		if row < len(rowToCol) {
			col = rowToCol[row]
		}
		if col < 0 || col >= cols || usedCol[col] || !solved.Feasible(row, col) {
			out.UnmatchedRows = append(out.UnmatchedRows, row)
			continue
		}
		usedCol[col] = true
		out.Pairs = append(out.Pairs, Pair{Row: row, Col: col, Cost: orig.At(row, col)})
	}
	for col, used := range usedCol {
		if !used {
			out.UnmatchedCols = append(out.UnmatchedCols, col)
		}
	}
	return out
}

// emptyAssignment reports every row and column as unmatched.
func emptyAssignment(m *distance.Matrix) Assignment {
	rows, cols := m.Dims()
	var out Assignment
	for i := 0; i < rows; i++ {
		out.UnmatchedRows = append(out.UnmatchedRows, i)
	}
	for j := 0; j < cols; j++ {
		out.UnmatchedCols = append(out.UnmatchedCols, j)
	}
	return out
}

// paddedCosts builds a square cost table of size max(rows, cols). Infeasible cells get a
// penalty larger than any sum of feasible costs so that one more feasible pair always wins.
// Padding cells cost nothing: a real row on a padding column is simply unassigned.
func paddedCosts(m *distance.Matrix) ([][]float64, float64) {
	rows, cols := m.Dims()
	penalty := 1.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if m.Feasible(i, j) {
				penalty += 2 * abs(m.At(i, j))
			}
		}
	}
	dim := rows
	if cols > dim {
		dim = cols
	}
	c := make([][]float64, dim)
	for i := range c {
		c[i] = make([]float64, dim)
		for j := range c[i] {
			if i < rows && j < cols {
				if m.Feasible(i, j) {
					c[i][j] = m.At(i, j)
				} else {
					c[i][j] = penalty
				}
			}
		}
	}
	return c, penalty
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// sortPairs orders pairs by row so that every backend reports the same shape.
func sortPairs(a Assignment) Assignment {
	sort.Slice(a.Pairs, func(i, j int) bool { return a.Pairs[i].Row < a.Pairs[j].Row })
	return a
}
