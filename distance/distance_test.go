package distance

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestIoU(t *testing.T) {
	a := Box{X: 0, Y: 0, W: 10, H: 10}
	test.That(t, IoU(a, a), test.ShouldAlmostEqual, 1.0)
	test.That(t, IoU(a, Box{X: 5, Y: 0, W: 10, H: 10}), test.ShouldAlmostEqual, 50.0/150.0)
	test.That(t, IoU(a, Box{X: 20, Y: 20, W: 5, H: 5}), test.ShouldEqual, 0.0)
	// touching edges share no area
	test.That(t, IoU(a, Box{X: 10, Y: 0, W: 10, H: 10}), test.ShouldEqual, 0.0)
}

func TestDistanceFuncs(t *testing.T) {
	a := Box{X: 0, Y: 0, W: 10, H: 10}
	b := Box{X: 3, Y: 4, W: 10, H: 10}

	d, ok := IoUDistance(a, a)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d, test.ShouldAlmostEqual, 0.0)

	d, ok = CenterDistance(a, b)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d, test.ShouldAlmostEqual, 5.0)

	t.Run("degenerate boxes are undefined", func(t *testing.T) {
		for _, bad := range []Box{
			{X: 0, Y: 0, W: 0, H: 10},
			{X: 0, Y: 0, W: 10, H: -1},
			{X: math.NaN(), Y: 0, W: 10, H: 10},
			{X: 0, Y: math.Inf(1), W: 10, H: 10},
		} {
			_, ok := IoUDistance(a, bad)
			test.That(t, ok, test.ShouldBeFalse)
			_, ok = CenterDistance(bad, a)
			test.That(t, ok, test.ShouldBeFalse)
		}
	})
}

func TestLookup(t *testing.T) {
	fn, err := Lookup("")
	test.That(t, err, test.ShouldBeNil)
	d, _ := fn(Box{W: 1, H: 1}, Box{W: 1, H: 1})
	test.That(t, d, test.ShouldAlmostEqual, 0.0)

	_, err = Lookup(EuclideanName)
	test.That(t, err, test.ShouldBeNil)

	_, err = Lookup("mahalanobis")
	test.That(t, errors.Is(err, ErrUnknownMetric), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "mahalanobis")
}

func TestCompute(t *testing.T) {
	gt := []Box{
		{X: 0, Y: 0, W: 10, H: 10},
		{X: 100, Y: 100, W: 10, H: 10},
		{X: 0, Y: 0, W: 0, H: 0},
	}
	hyp := []Box{
		{X: 0, Y: 0, W: 10, H: 10},
		{X: 5, Y: 0, W: 10, H: 10},
	}
	m := Compute(gt, hyp, IoUDistance, 0.5)
	rows, cols := m.Dims()
	test.That(t, rows, test.ShouldEqual, 3)
	test.That(t, cols, test.ShouldEqual, 2)

	// exact overlap is a feasible zero, not an infeasible cell
	test.That(t, m.Feasible(0, 0), test.ShouldBeTrue)
	test.That(t, m.At(0, 0), test.ShouldEqual, 0.0)
	// 1 - 1/3 exceeds the threshold
	test.That(t, m.Feasible(0, 1), test.ShouldBeFalse)
	test.That(t, math.IsNaN(m.At(0, 1)), test.ShouldBeTrue)
	test.That(t, m.Feasible(1, 0), test.ShouldBeFalse)
	// degenerate geometry only poisons its own cells
	test.That(t, m.Feasible(2, 0), test.ShouldBeFalse)
	test.That(t, m.Feasible(2, 1), test.ShouldBeFalse)

	t.Run("threshold is inclusive", func(t *testing.T) {
		m := Compute(gt[:1], hyp[1:], IoUDistance, 1-1.0/3.0)
		test.That(t, m.Feasible(0, 0), test.ShouldBeTrue)
	})

	t.Run("empty sides", func(t *testing.T) {
		m := Compute(nil, hyp, IoUDistance, 0.5)
		rows, cols := m.Dims()
		test.That(t, rows, test.ShouldEqual, 0)
		test.That(t, cols, test.ShouldEqual, 2)
		test.That(t, m.Empty(), test.ShouldBeTrue)

		m = Compute(gt, nil, IoUDistance, 0.5)
		test.That(t, m.Empty(), test.ShouldBeTrue)
	})
}

func TestMatrix(t *testing.T) {
	m := FromRows([][]float64{
		{1, math.NaN()},
		{math.Inf(1), 0.25},
	})
	test.That(t, m.Feasible(0, 0), test.ShouldBeTrue)
	test.That(t, m.Feasible(0, 1), test.ShouldBeFalse)
	test.That(t, m.Feasible(1, 0), test.ShouldBeFalse)
	test.That(t, m.MaxAbs(), test.ShouldEqual, 1.0)

	c := m.Clone()
	c.SetInfeasible(0, 0)
	test.That(t, c.Feasible(0, 0), test.ShouldBeFalse)
	test.That(t, m.Feasible(0, 0), test.ShouldBeTrue)

	empty := FromRows(nil)
	test.That(t, empty.Empty(), test.ShouldBeTrue)
	test.That(t, empty.Clone().Empty(), test.ShouldBeTrue)
}
