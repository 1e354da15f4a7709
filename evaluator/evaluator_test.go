package evaluator

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"github.com/viam-modules/motmetrics/accumulator"
	"github.com/viam-modules/motmetrics/distance"
	"github.com/viam-modules/motmetrics/lap"
	"github.com/viam-modules/motmetrics/metrics"
	"github.com/viam-modules/motmetrics/trajectory"
)

var unitBox = distance.Box{X: 10, Y: 10, W: 20, H: 40}

func obs(frame int, id int64, box distance.Box) trajectory.Observation {
	return trajectory.Observation{Frame: frame, ID: id, Box: box, Confidence: 1, Class: -1, Visibility: 1}
}

// switchSequences is one object seen for three frames, tracked by hypothesis 10 for two
// frames and by hypothesis 11 in the last one.
func switchSequences(name string) (trajectory.Sequence, trajectory.Sequence) {
	gt := trajectory.NewSequence(name, []trajectory.Observation{
		obs(1, 1, unitBox), obs(2, 1, unitBox), obs(3, 1, unitBox),
	})
	hyp := trajectory.NewSequence(name, []trajectory.Observation{
		obs(1, 10, unitBox), obs(2, 10, unitBox), obs(3, 11, unitBox),
	})
	return gt, hyp
}

func newEvaluator(t *testing.T, mutate func(*Config)) *Evaluator {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return e
}

func TestSwitchScenario(t *testing.T) {
	e := newEvaluator(t, nil)
	gt, hyp := switchSequences("A")
	report, err := e.Evaluate(context.Background(), []trajectory.Sequence{gt}, []trajectory.Sequence{hyp})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Failed, test.ShouldBeEmpty)
	test.That(t, report.Summary.Rows, test.ShouldHaveLength, 2)

	row := report.Summary.Rows[0]
	test.That(t, row.Name, test.ShouldEqual, "A")
	test.That(t, row.Values[metrics.NumSwitches], test.ShouldEqual, 1.0)
	test.That(t, row.Values[metrics.NumMisses], test.ShouldEqual, 0.0)
	test.That(t, row.Values[metrics.NumFalsePositives], test.ShouldEqual, 0.0)
	test.That(t, row.Values[metrics.MOTA], test.ShouldAlmostEqual, 1-1.0/3.0)
	test.That(t, row.Values[metrics.MOTP], test.ShouldAlmostEqual, 0.0)

	overall := report.Summary.Rows[1]
	test.That(t, overall.Name, test.ShouldEqual, metrics.OverallName)
	test.That(t, overall.Values[metrics.MOTA], test.ShouldAlmostEqual, 1-1.0/3.0)

	log := report.Sequences[0].Log
	test.That(t, log.Count(accumulator.Switch), test.ShouldEqual, 1)
	test.That(t, log.Count(accumulator.Raw), test.ShouldEqual, 3)
}

func TestFalsePositiveScenario(t *testing.T) {
	e := newEvaluator(t, nil)
	gt := trajectory.NewSequence("B", nil)
	hyp := trajectory.NewSequence("B", []trajectory.Observation{
		obs(1, 7, unitBox), obs(2, 7, unitBox), obs(3, 7, unitBox),
	})
	log, err := e.Accumulate(context.Background(), gt, hyp)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, log.Events(), test.ShouldHaveLength, 3)
	for _, ev := range log.Events() {
		test.That(t, ev.Type, test.ShouldEqual, accumulator.FalsePositive)
	}

	report, err := e.Evaluate(context.Background(), []trajectory.Sequence{gt}, []trajectory.Sequence{hyp})
	test.That(t, err, test.ShouldBeNil)
	v := report.Summary.Rows[0].Values
	test.That(t, v[metrics.Precision], test.ShouldEqual, 0.0)
	test.That(t, math.IsNaN(v[metrics.Recall]), test.ShouldBeTrue)
}

func TestUnmatchedSequencesAreSkipped(t *testing.T) {
	e := newEvaluator(t, nil)
	gtA, hypA := switchSequences("A")
	gtOnly, _ := switchSequences("gt-only")
	_, hypOnly := switchSequences("hyp-only")

	report, err := e.Evaluate(context.Background(),
		[]trajectory.Sequence{gtA, gtOnly}, []trajectory.Sequence{hypOnly, hypA})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.MissingHypotheses, test.ShouldResemble, []string{"gt-only"})
	test.That(t, report.MissingGroundTruth, test.ShouldResemble, []string{"hyp-only"})
	test.That(t, report.Summary.Rows, test.ShouldHaveLength, 2)
	test.That(t, report.Summary.Rows[0].Name, test.ShouldEqual, "A")

	alone, err := e.Evaluate(context.Background(), []trajectory.Sequence{gtA}, []trajectory.Sequence{hypA})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Summary.Rows[1].Values, test.ShouldResemble, alone.Summary.Rows[1].Values)
}

func TestOverallMatchesSingleBatch(t *testing.T) {
	e := newEvaluator(t, func(c *Config) { c.Workers = 2 })
	shifted := distance.Box{X: 14, Y: 10, W: 20, H: 40}
	far := distance.Box{X: 500, Y: 500, W: 20, H: 40}

	gtA, hypA := switchSequences("A")
	gtB := trajectory.NewSequence("B", []trajectory.Observation{
		obs(1, 2, unitBox), obs(2, 2, unitBox), obs(3, 2, unitBox), obs(4, 3, far),
	})
	hypB := trajectory.NewSequence("B", []trajectory.Observation{
		obs(1, 20, shifted), obs(2, 20, far), obs(3, 20, shifted), obs(4, 21, shifted),
	})
	report, err := e.Evaluate(context.Background(),
		[]trajectory.Sequence{gtA, gtB}, []trajectory.Sequence{hypA, hypB})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Summary.Rows, test.ShouldHaveLength, 3)
	overall := report.Summary.Rows[2].Values

	// The same data as one sequence: B shifted past A's frames, with disjoint ids.
	var gtObs, hypObs []trajectory.Observation
	for _, s := range []struct {
		seq    trajectory.Sequence
		offset int
		out    *[]trajectory.Observation
	}{
		{gtA, 0, &gtObs}, {hypA, 0, &hypObs}, {gtB, 10, &gtObs}, {hypB, 10, &hypObs},
	} {
		for _, f := range s.seq.Frames {
			for _, o := range f.Observations {
				o.Frame += s.offset
				*s.out = append(*s.out, o)
			}
		}
	}
	batch, err := e.Evaluate(context.Background(),
		[]trajectory.Sequence{trajectory.NewSequence("AB", gtObs)},
		[]trajectory.Sequence{trajectory.NewSequence("AB", hypObs)})
	test.That(t, err, test.ShouldBeNil)
	single := batch.Summary.Rows[0].Values

	for _, name := range e.Plan().Metrics() {
		test.That(t, overall[name], test.ShouldAlmostEqual, single[name], 1e-12)
	}
}

func TestDuplicateIDsAreDropped(t *testing.T) {
	e := newEvaluator(t, nil)
	gt := trajectory.NewSequence("D", []trajectory.Observation{obs(1, 1, unitBox), obs(1, 1, unitBox)})
	hyp := trajectory.NewSequence("D", []trajectory.Observation{obs(1, 5, unitBox)})
	log, err := e.Accumulate(context.Background(), gt, hyp)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, log.Counts().Objects, test.ShouldEqual, 1)
	test.That(t, log.Count(accumulator.Match), test.ShouldEqual, 1)
}

func TestThresholdAndMetricChoice(t *testing.T) {
	gt := trajectory.NewSequence("T", []trajectory.Observation{obs(1, 1, unitBox)})
	hyp := trajectory.NewSequence("T", []trajectory.Observation{
		obs(1, 9, distance.Box{X: 13, Y: 14, W: 20, H: 40}),
	})

	iou := newEvaluator(t, func(c *Config) { c.DistanceThreshold = 0.1 })
	log, err := iou.Accumulate(context.Background(), gt, hyp)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, log.Count(accumulator.Miss), test.ShouldEqual, 1)
	test.That(t, log.Count(accumulator.FalsePositive), test.ShouldEqual, 1)

	centers := newEvaluator(t, func(c *Config) {
		c.DistanceMetric = distance.EuclideanName
		c.DistanceThreshold = 5
		c.Solver = lap.GreedyName
	})
	log, err = centers.Accumulate(context.Background(), gt, hyp)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, log.Count(accumulator.Match), test.ShouldEqual, 1)
	test.That(t, log.Counts().TotalDistance, test.ShouldAlmostEqual, 5.0)
}

func TestCancelledContext(t *testing.T) {
	e := newEvaluator(t, nil)
	gt, hyp := switchSequences("A")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Evaluate(ctx, []trajectory.Sequence{gt}, []trajectory.Sequence{hyp})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestDuplicateSequenceNames(t *testing.T) {
	e := newEvaluator(t, nil)
	gt, hyp := switchSequences("A")
	_, err := e.Evaluate(context.Background(), []trajectory.Sequence{gt, gt}, []trajectory.Sequence{hyp})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = e.Evaluate(context.Background(), []trajectory.Sequence{gt}, []trajectory.Sequence{hyp, hyp})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadDirectory(t *testing.T) {
	root := t.TempDir()
	test.That(t, os.MkdirAll(filepath.Join(root, "gt", "gt"), 0o755), test.ShouldBeNil)
	test.That(t, os.MkdirAll(filepath.Join(root, "tst"), 0o755), test.ShouldBeNil)
	gtText := "1,1,10,10,20,40,1,-1,-1,-1\n" +
		"1,2,100,100,20,40,0,-1,-1,-1\n" + // ignored by confidence
		"2,1,10,10,20,40,1,-1,-1,-1\n" +
		"3,1,10,10,20,40,1,-1,-1,-1\n"
	tstText := "1,10,10,10,20,40,0.9,-1,-1,-1\n" +
		"2,10,10,10,20,40,0.9,-1,-1,-1\n" +
		"3,11,10,10,20,40,0.9,-1,-1,-1\n" +
		"not,a,row\n"
	test.That(t, os.WriteFile(filepath.Join(root, "gt", "gt", "A.txt"), []byte(gtText), 0o600), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(root, "tst", "A.txt"), []byte(tstText), 0o600), test.ShouldBeNil)

	e := newEvaluator(t, nil)
	gts, hyps, err := e.LoadDirectory(root)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gts, test.ShouldHaveLength, 1)
	test.That(t, hyps, test.ShouldHaveLength, 1)
	test.That(t, gts[0].NumObservations(), test.ShouldEqual, 3)
	test.That(t, hyps[0].NumObservations(), test.ShouldEqual, 3)

	report, err := e.Evaluate(context.Background(), gts, hyps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Summary.Rows[0].Values[metrics.MOTA], test.ShouldAlmostEqual, 1-1.0/3.0)
}
