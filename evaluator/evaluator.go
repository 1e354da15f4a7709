// Package evaluator runs the frame-by-frame evaluation of tracker output against ground truth
// and summarizes the resulting metrics over a set of sequences.
package evaluator

import (
	"context"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"golang.org/x/sync/errgroup"

	"github.com/viam-modules/motmetrics/accumulator"
	"github.com/viam-modules/motmetrics/distance"
	"github.com/viam-modules/motmetrics/lap"
	"github.com/viam-modules/motmetrics/metrics"
	"github.com/viam-modules/motmetrics/trajectory"
)

// Evaluator evaluates sequences under one validated configuration. It holds no per-sequence
// state and is safe for concurrent use.
type Evaluator struct {
	cfg      Config
	logger   logging.Logger
	distance distance.Func
	solver   lap.Solver
	plan     *metrics.Plan
}

// New validates cfg and resolves every named component up front, so that a bad option fails
// here rather than halfway through a run.
func New(cfg Config, logger logging.Logger) (*Evaluator, error) {
	if err := cfg.Validate("evaluator"); err != nil {
		return nil, err
	}
	e := &Evaluator{cfg: cfg, logger: logger}

	var err error
	if e.distance, err = distance.Lookup(cfg.DistanceMetric); err != nil {
		return nil, err
	}
	if e.solver, err = lap.Lookup(cfg.Solver); err != nil {
		return nil, err
	}
	idSolver, err := lap.Lookup(cfg.idSolverName())
	if err != nil {
		return nil, err
	}
	e.plan, err = metrics.Standard().Plan(cfg.MetricNames(), metrics.WithIDSolver(idSolver))
	if err != nil {
		return nil, err
	}
	logger.Debugw("evaluator ready",
		"distance", cfg.DistanceMetric, "threshold", cfg.DistanceThreshold,
		"solver", e.solver.Name(), "id_solver", idSolver.Name(), "metrics", e.plan.Metrics())
	return e, nil
}

// Config returns the configuration the evaluator was built with.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Plan returns the metric plan.
func (e *Evaluator) Plan() *metrics.Plan {
	return e.plan
}

// Accumulate matches hyp against gt frame by frame, over the union of their frame indices,
// and returns the frozen event log.
func (e *Evaluator) Accumulate(ctx context.Context, gt, hyp trajectory.Sequence) (*accumulator.Log, error) {
	logger := e.logger.Sublogger(gt.Name)
	acc := accumulator.New()
	for _, index := range trajectory.MergeIndices(gt, hyp) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gtObs := uniqueIDs(gt.Frame(index).Observations, "ground truth", index, logger)
		hypObs := uniqueIDs(hyp.Frame(index).Observations, "hypothesis", index, logger)
		gtFrame := trajectory.Frame{Index: index, Observations: gtObs}
		hypFrame := trajectory.Frame{Index: index, Observations: hypObs}
		gtIDs, hypIDs := gtFrame.IDs(), hypFrame.IDs()

		dists := distance.Compute(gtFrame.Boxes(), hypFrame.Boxes(), e.distance, e.cfg.DistanceThreshold)
		keep := func(row, col int) bool {
			current, ok := acc.Current(gtIDs[row])
			return ok && current == hypIDs[col]
		}
		assignment, err := lap.SolveWithContinuity(e.solver, dists, keep)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", index)
		}
		if err := acc.Update(index, gtIDs, hypIDs, dists, assignment); err != nil {
			return nil, err
		}
	}
	return acc.Freeze()
}

// uniqueIDs drops repeated ids within one frame, keeping the first occurrence.
func uniqueIDs(obs []trajectory.Observation, side string, frame int, logger logging.Logger) []trajectory.Observation {
	seen := make(map[int64]struct{}, len(obs))
	out := obs[:0:0]
	for _, o := range obs {
		if _, dup := seen[o.ID]; dup {
			logger.Warnw("dropping duplicate id", "side", side, "frame", frame, "id", o.ID)
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	return out
}

// SequenceResult is the outcome of one evaluated sequence.
type SequenceResult struct {
	Name   string
	Log    *accumulator.Log
	Values metrics.Values
}

// Report is the outcome of Evaluate.
type Report struct {
	Summary   metrics.Summary
	Sequences []SequenceResult
	// MissingHypotheses lists ground truth sequences without tracker output.
	MissingHypotheses []string
	// MissingGroundTruth lists tracker sequences without ground truth.
	MissingGroundTruth []string
	// Failed holds sequences discarded because their evaluation failed.
	Failed map[string]error
}

// Evaluate pairs sequences by name, in ground truth order, and evaluates the pairs in
// parallel. Sequences present on one side only are skipped with a warning. A sequence whose
// evaluation fails is left out of the summary and reported in Failed; only cancellation of ctx
// aborts the whole run.
func (e *Evaluator) Evaluate(ctx context.Context, gts, hyps []trajectory.Sequence) (*Report, error) {
	report := &Report{Failed: make(map[string]error)}

	byName := make(map[string]trajectory.Sequence, len(hyps))
	for _, h := range hyps {
		if _, dup := byName[h.Name]; dup {
			return nil, errors.Errorf("duplicate tracker sequence %q", h.Name)
		}
		byName[h.Name] = h
	}
	type job struct {
		gt, hyp trajectory.Sequence
	}
	var jobs []job
	gtNames := make(map[string]struct{}, len(gts))
	for _, gt := range gts {
		if _, dup := gtNames[gt.Name]; dup {
			return nil, errors.Errorf("duplicate ground truth sequence %q", gt.Name)
		}
		gtNames[gt.Name] = struct{}{}
		hyp, ok := byName[gt.Name]
		if !ok {
			e.logger.Warnw("no tracker output for sequence, skipping", "sequence", gt.Name)
			report.MissingHypotheses = append(report.MissingHypotheses, gt.Name)
			continue
		}
		jobs = append(jobs, job{gt: gt, hyp: hyp})
	}
	for _, h := range hyps {
		if _, ok := gtNames[h.Name]; !ok {
			e.logger.Warnw("no ground truth for sequence, skipping", "sequence", h.Name)
			report.MissingGroundTruth = append(report.MissingGroundTruth, h.Name)
		}
	}

	results := make([]*SequenceResult, len(jobs))
	failures := make([]error, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.workers())
	for i, j := range jobs {
		g.Go(func() error {
			res, err := e.evaluateOne(gctx, j.gt, j.hyp)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var names []string
	var rows []metrics.Values
	for i, res := range results {
		if res == nil {
			name := jobs[i].gt.Name
			e.logger.Errorw("discarding sequence", "sequence", name, "error", failures[i])
			report.Failed[name] = failures[i]
			continue
		}
		report.Sequences = append(report.Sequences, *res)
		names = append(names, res.Name)
		rows = append(rows, res.Values)
	}
	summary, err := e.plan.Summary(names, rows, e.cfg.GenerateOverall && len(rows) > 0)
	if err != nil {
		return nil, err
	}
	report.Summary = summary
	e.logger.Infof("evaluated %d of %d sequences", len(report.Sequences), len(jobs))
	return report, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, gt, hyp trajectory.Sequence) (*SequenceResult, error) {
	e.logger.Debugw("evaluating sequence", "sequence", gt.Name,
		"gt_observations", gt.NumObservations(), "hyp_observations", hyp.NumObservations())
	log, err := e.Accumulate(ctx, gt, hyp)
	if err != nil {
		return nil, errors.Wrapf(err, "sequence %s", gt.Name)
	}
	values, err := e.plan.Compute(log)
	if err != nil {
		return nil, errors.Wrapf(err, "sequence %s", gt.Name)
	}
	return &SequenceResult{Name: gt.Name, Log: log, Values: values}, nil
}

// LoadDirectory discovers and loads the ground truth and tracker files under root. Ground
// truth is filtered by MinConfidence, both sides by Classes.
func (e *Evaluator) LoadDirectory(root string) (gts, hyps []trajectory.Sequence, err error) {
	gtFiles, tstFiles, err := trajectory.Discover(root)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Infof("found %d ground truth files and %d test files", len(gtFiles), len(tstFiles))

	classes := trajectory.NewClassFilter(e.cfg.Classes...)
	gtFilter := trajectory.Chain(trajectory.NewConfidenceFilter(e.cfg.MinConfidence), classes)
	load := func(files []trajectory.File, filter trajectory.Filter) ([]trajectory.Sequence, error) {
		out := make([]trajectory.Sequence, 0, len(files))
		for _, f := range files {
			seq, stats, err := trajectory.Load(f.Path, f.Name, e.cfg.Format, filter, e.logger)
			if err != nil {
				return nil, err
			}
			if stats.Dropped > 0 {
				e.logger.Warnw("malformed rows dropped", "file", f.Path, "dropped", stats.Dropped)
			}
			out = append(out, seq)
		}
		return out, nil
	}
	if gts, err = load(gtFiles, gtFilter); err != nil {
		return nil, nil, err
	}
	if hyps, err = load(tstFiles, classes); err != nil {
		return nil, nil, err
	}
	return gts, hyps, nil
}
