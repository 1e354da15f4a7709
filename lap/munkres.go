package lap

import (
	hg "github.com/charles-haynes/munkres"
	"github.com/pkg/errors"

	"github.com/viam-modules/motmetrics/distance"
)

// Munkres solves the assignment with github.com/charles-haynes/munkres and is the default
// backend. The library rejects non-finite costs, so infeasible cells are replaced by a penalty
// in a square table.
type Munkres struct{}

// Name implements Solver.
func (Munkres) Name() string { return MunkresName }

// Solve implements Solver.
func (Munkres) Solve(m *distance.Matrix) (Assignment, error) {
	if m.Empty() {
		return emptyAssignment(m), nil
	}
	c, _ := paddedCosts(m)
	// Build and solve cost matrix via Munkres' method
	HA, err := hg.NewHungarianAlgorithm(c)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "munkres")
	}
	// matches come out as a []int where the idx is the row and value is the column,
	// -1 means the row stayed unassigned
	matches := HA.Execute()
	return sortPairs(newAssignment(matches, m, m)), nil
}
