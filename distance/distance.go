package distance

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Func returns the distance between a ground truth box and a hypothesis box.
// ok is false when the distance is undefined for the given geometry.
type Func func(gt, hyp Box) (d float64, ok bool)

// Names of the built-in distance functions.
const (
	IoUName       = "iou"
	EuclideanName = "euclidean"
)

// DefaultName is the distance used when none is configured.
const DefaultName = IoUName

// ErrUnknownMetric is returned by Lookup for names outside the built-in set.
var ErrUnknownMetric = errors.New("unknown distance metric")

var builtin = map[string]Func{
	IoUName:       IoUDistance,
	EuclideanName: CenterDistance,
}

// Lookup returns the distance function registered under name. An empty name selects the default.
func Lookup(name string) (Func, error) {
	if name == "" {
		name = DefaultName
	}
	fn, ok := builtin[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMetric, "%q (available: %v)", name, Names())
	}
	return fn, nil
}

// Names lists the built-in distance functions in sorted order.
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IoUDistance is 1 - IoU. Degenerate boxes have no defined overlap.
func IoUDistance(gt, hyp Box) (float64, bool) {
	if !gt.Valid() || !hyp.Valid() {
		return 0, false
	}
	return 1 - IoU(gt, hyp), true
}

// CenterDistance is the euclidean distance between box centers.
func CenterDistance(gt, hyp Box) (float64, bool) {
	if !gt.Valid() || !hyp.Valid() {
		return 0, false
	}
	gx, gy := gt.Center()
	hx, hy := hyp.Center()
	return math.Hypot(gx-hx, gy-hy), true
}

// Compute builds the distance matrix for one frame. Rows follow gt order and columns follow
// hyp order. A cell is infeasible when fn reports no distance or the distance exceeds threshold.
func Compute(gt, hyp []Box, fn Func, threshold float64) *Matrix {
	m := NewMatrix(len(gt), len(hyp))
	for i, g := range gt {
		for j, h := range hyp {
			d, ok := fn(g, h)
			if !ok || math.IsNaN(d) || d > threshold {
				continue
			}
			m.Set(i, j, d)
		}
	}
	return m
}
