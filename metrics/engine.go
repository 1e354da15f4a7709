package metrics

import (
	"math"

	"github.com/pkg/errors"

	"github.com/viam-modules/motmetrics/accumulator"
	"github.com/viam-modules/motmetrics/lap"
)

// OverallName names the aggregated summary row.
const OverallName = "OVERALL"

// ErrIncompleteRow is returned when a row handed to Aggregate lacks a planned metric.
var ErrIncompleteRow = errors.New("row is missing planned metrics")

// Plan is an evaluation order over a subset of a registry. It is immutable and safe for
// concurrent use.
type Plan struct {
	requested []string
	order     []*Definition
	idSolver  lap.Solver
}

// Metrics returns the requested metric names in request order.
func (p *Plan) Metrics() []string {
	return append([]string(nil), p.requested...)
}

// Closure returns every metric the plan evaluates, dependencies included, in evaluation order.
func (p *Plan) Closure() []string {
	out := make([]string, len(p.order))
	for i, d := range p.order {
		out[i] = d.Name
	}
	return out
}

// Compute evaluates the plan on one log. The result holds every metric of the closure.
func (p *Plan) Compute(log *accumulator.Log) (Values, error) {
	if log == nil {
		return nil, errors.New("nil log")
	}
	ctx := p.newContext(log, make(Values, len(p.order)))
	for _, d := range p.order {
		v, err := d.Compute(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "compute %s", d.Name)
		}
		ctx.values[d.Name] = v
	}
	return ctx.values, nil
}

// Aggregate combines closure rows, as returned by Compute or by Aggregate itself, into one
// overall row. Sums are added, weighted averages are weighted by their per-row weight and
// everything else is recomputed from the aggregated dependencies, so ratios are never
// averaged. Aggregation is associative.
func (p *Plan) Aggregate(rows ...Values) (Values, error) {
	for i, row := range rows {
		for _, d := range p.order {
			if _, ok := row[d.Name]; !ok {
				return nil, errors.Wrapf(ErrIncompleteRow, "row %d lacks %q", i, d.Name)
			}
		}
	}

	ctx := p.newContext(nil, make(Values, len(p.order)))
	for _, d := range p.order {
		switch d.Aggregate {
		case Sum:
			total := 0.0
			for _, row := range rows {
				total += row[d.Name]
			}
			ctx.values[d.Name] = total
		case WeightedAverage:
			var num, den float64
			for _, row := range rows {
				v, w := row[d.Name], row[d.Weight]
				if w <= 0 || math.IsNaN(v) || math.IsNaN(w) {
					continue
				}
				num += v * w
				den += w
			}
			ctx.values[d.Name] = quietDivide(num, den)
		case Recompute:
			v, err := d.Compute(ctx)
			if err != nil {
				return nil, errors.Wrapf(err, "recompute %s", d.Name)
			}
			ctx.values[d.Name] = v
		default:
			return nil, errors.Wrapf(ErrInvalidDefinition, "%q has unknown aggregation %d", d.Name, d.Aggregate)
		}
	}
	return ctx.values, nil
}

// Row is one line of a summary: a sequence name, or OverallName, and its requested metrics.
type Row struct {
	Name   string
	Values Values
}

// Summary is a renderer-agnostic table of metric values.
type Summary struct {
	Metrics []string
	Rows    []Row
}

// Summary builds a summary from closure rows computed for the named sequences. With overall
// set, an OverallName row aggregated from all rows is appended.
func (p *Plan) Summary(names []string, rows []Values, overall bool) (Summary, error) {
	if len(names) != len(rows) {
		return Summary{}, errors.Errorf("%d names for %d rows", len(names), len(rows))
	}
	s := Summary{Metrics: p.Metrics()}
	for i, row := range rows {
		s.Rows = append(s.Rows, Row{Name: names[i], Values: p.project(row)})
	}
	if overall {
		agg, err := p.Aggregate(rows...)
		if err != nil {
			return Summary{}, err
		}
		s.Rows = append(s.Rows, Row{Name: OverallName, Values: p.project(agg)})
	}
	return s, nil
}

// Summarize computes every log and builds the summary.
func (p *Plan) Summarize(names []string, logs []*accumulator.Log, overall bool) (Summary, error) {
	rows := make([]Values, len(logs))
	for i, log := range logs {
		v, err := p.Compute(log)
		if err != nil {
			return Summary{}, err
		}
		rows[i] = v
	}
	return p.Summary(names, rows, overall)
}

// project keeps the requested metrics of a closure row.
func (p *Plan) project(row Values) Values {
	out := make(Values, len(p.requested))
	for _, name := range p.requested {
		out[name] = row[name]
	}
	return out
}

func (p *Plan) newContext(log *accumulator.Log, values Values) *Context {
	return &Context{log: log, values: values, idSolver: p.idSolver}
}

// quietDivide returns NaN instead of dividing by zero.
func quietDivide(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}
