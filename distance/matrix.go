package distance

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a rows x cols table of distances between the ground truth (rows) and hypotheses
// (columns) of one frame. Infeasible cells are stored as NaN so that they can never be
// confused with a zero distance.
type Matrix struct {
	rows, cols int
	// nil when either dimension is zero, mat.Dense cannot hold empty shapes.
	data *mat.Dense
}

// NewMatrix returns a rows x cols matrix with every cell infeasible.
func NewMatrix(rows, cols int) *Matrix {
	m := &Matrix{rows: rows, cols: cols}
	if rows == 0 || cols == 0 {
		return m
	}
	backing := make([]float64, rows*cols)
	for i := range backing {
		backing[i] = math.NaN()
	}
	m.data = mat.NewDense(rows, cols, backing)
	return m
}

// FromRows builds a matrix from plain rows. NaN and infinite values mark infeasible cells.
// All rows must have the same length.
func FromRows(rows [][]float64) *Matrix {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	m := NewMatrix(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			panic("distance: ragged rows")
		}
		for j, v := range row {
			m.Set(i, j, v)
		}
	}
	return m
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (int, int) {
	return m.rows, m.cols
}

// Empty reports whether the matrix has no rows or no columns.
func (m *Matrix) Empty() bool {
	return m.rows == 0 || m.cols == 0
}

// At returns the distance at (i, j), NaN when the cell is infeasible.
func (m *Matrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

// Feasible reports whether (i, j) holds a distance.
func (m *Matrix) Feasible(i, j int) bool {
	return !math.IsNaN(m.data.At(i, j))
}

// Set stores d at (i, j). NaN or infinite values make the cell infeasible.
func (m *Matrix) Set(i, j int, d float64) {
	if math.IsInf(d, 0) {
		d = math.NaN()
	}
	m.data.Set(i, j, d)
}

// SetInfeasible marks (i, j) as infeasible.
func (m *Matrix) SetInfeasible(i, j int) {
	m.data.Set(i, j, math.NaN())
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{rows: m.rows, cols: m.cols}
	if m.data != nil {
		out.data = mat.DenseCopyOf(m.data)
	}
	return out
}

// MaxAbs returns the largest absolute feasible distance, 0 when there is none.
func (m *Matrix) MaxAbs() float64 {
	best := 0.0
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if v := m.data.At(i, j); !math.IsNaN(v) && math.Abs(v) > best {
				best = math.Abs(v)
			}
		}
	}
	return best
}
