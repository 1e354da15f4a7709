// Package metrics turns frozen accumulator logs into named tracking metrics. Metrics form a
// dependency graph that is validated and topologically ordered once, when the registry is
// built; evaluation then runs each metric exactly once per log in that order.
package metrics

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/viam-modules/motmetrics/accumulator"
	"github.com/viam-modules/motmetrics/lap"
)

var (
	// ErrUnknownMetric is returned for metric names that are not registered.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrCyclicDependency is returned when metric dependencies form a cycle.
	ErrCyclicDependency = errors.New("cyclic metric dependency")
	// ErrInvalidDefinition is returned for malformed metric definitions.
	ErrInvalidDefinition = errors.New("invalid metric definition")
)

// Aggregation says how per-sequence values combine into the overall value.
type Aggregation int

const (
	// Sum adds the per-sequence values.
	Sum Aggregation = iota
	// Recompute derives the overall value from the already aggregated dependencies.
	Recompute
	// WeightedAverage averages per-sequence values weighted by another metric.
	WeightedAverage
)

// Kind hints how a value is meant to be presented.
type Kind int

// Value kinds.
const (
	Count Kind = iota
	Ratio
	Distance
)

// Values maps metric names to values.
type Values map[string]float64

// ComputeFunc evaluates a metric. Functions of Recompute metrics must only read dependency
// values, since they also run on aggregated rows that have no log.
type ComputeFunc func(c *Context) (float64, error)

// Definition describes one metric.
type Definition struct {
	Name      string
	Label     string
	Deps      []string
	Compute   ComputeFunc
	Aggregate Aggregation
	// Weight names the metric weighting a WeightedAverage.
	Weight string
	Kind   Kind
	// Identity marks metrics that need the whole-track identity assignment.
	Identity bool
}

// deps returns the direct dependencies including an implicit weight.
func (d *Definition) deps() []string {
	if d.Aggregate != WeightedAverage || d.Weight == "" {
		return d.Deps
	}
	for _, dep := range d.Deps {
		if dep == d.Weight {
			return d.Deps
		}
	}
	return append(append([]string(nil), d.Deps...), d.Weight)
}

// Registry is an immutable, validated catalog of metrics. It is safe for concurrent use.
type Registry struct {
	defs  map[string]*Definition
	order []*Definition // topological, ties broken by registration order
	rank  map[string]int
}

// NewRegistry validates defs and orders them topologically. Duplicate names, unknown
// dependencies and cycles are reported here, before anything is computed.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		defs: make(map[string]*Definition, len(defs)),
		rank: make(map[string]int, len(defs)),
	}
	list := make([]*Definition, len(defs))
	index := make(map[string]int, len(defs))
	for i := range defs {
		d := defs[i]
		switch {
		case d.Name == "":
			return nil, errors.Wrapf(ErrInvalidDefinition, "definition %d has no name", i)
		case d.Compute == nil:
			return nil, errors.Wrapf(ErrInvalidDefinition, "%q has no compute function", d.Name)
		case d.Aggregate == WeightedAverage && d.Weight == "":
			return nil, errors.Wrapf(ErrInvalidDefinition, "%q is a weighted average without weight", d.Name)
		}
		if _, dup := index[d.Name]; dup {
			return nil, errors.Wrapf(ErrInvalidDefinition, "%q registered twice", d.Name)
		}
		d.Deps = append([]string(nil), d.Deps...)
		list[i] = &d
		index[d.Name] = i
		r.defs[d.Name] = &d
	}

	g := simple.NewDirectedGraph()
	for i := range list {
		g.AddNode(simple.Node(i))
	}
	for i, d := range list {
		for _, dep := range d.deps() {
			j, ok := index[dep]
			if !ok {
				return nil, errors.Wrapf(ErrUnknownMetric, "%q depends on %q", d.Name, dep)
			}
			if j == i {
				return nil, errors.Wrapf(ErrCyclicDependency, "%q depends on itself", d.Name)
			}
			g.SetEdge(g.NewEdge(simple.Node(j), simple.Node(i)))
		}
	}

	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		sort.Slice(nodes, func(a, b int) bool { return nodes[a].ID() < nodes[b].ID() })
	})
	if err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) {
			var parts []string
			for _, component := range cycles {
				var names []string
				for _, n := range component {
					names = append(names, list[n.ID()].Name)
				}
				sort.Strings(names)
				parts = append(parts, strings.Join(names, " -> "))
			}
			return nil, errors.Wrapf(ErrCyclicDependency, "%s", strings.Join(parts, "; "))
		}
		return nil, errors.Wrap(err, "order metrics")
	}
	for rank, n := range sorted {
		d := list[n.ID()]
		r.order = append(r.order, d)
		r.rank[d.Name] = rank
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error, for static catalogs.
func MustRegistry(defs ...Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Names returns all metric names in evaluation order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	for i, d := range r.order {
		out[i] = d.Name
	}
	return out
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	d, ok := r.defs[name]
	if !ok {
		return Definition{}, false
	}
	return *d, true
}

// PlanOption configures a Plan.
type PlanOption func(*Plan)

// WithIDSolver selects the solver used for the whole-track identity assignment.
func WithIDSolver(s lap.Solver) PlanOption {
	return func(p *Plan) {
		p.idSolver = s
	}
}

// Plan resolves names and their transitive dependencies into an evaluation order. Unknown
// names fail here, before any computation starts.
func (r *Registry) Plan(names []string, opts ...PlanOption) (*Plan, error) {
	if len(names) == 0 {
		return nil, errors.Wrap(ErrUnknownMetric, "no metrics requested")
	}
	needed := make(map[string]struct{})
	var visit func(name string)
	visit = func(name string) {
		if _, ok := needed[name]; ok {
			return
		}
		needed[name] = struct{}{}
		for _, dep := range r.defs[name].deps() {
			visit(dep)
		}
	}
	requested := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := r.defs[name]; !ok {
			return nil, errors.Wrapf(ErrUnknownMetric, "%q", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		requested = append(requested, name)
		visit(name)
	}

	p := &Plan{requested: requested, idSolver: lap.Munkres{}}
	for _, d := range r.order {
		if _, ok := needed[d.Name]; ok {
			p.order = append(p.order, d)
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Context is handed to compute functions. It memoizes metric values for one log or one
// aggregated row.
type Context struct {
	log      *accumulator.Log
	values   Values
	idSolver lap.Solver
	ids      *IDAssignment
}

// Log returns the log being evaluated, nil while recomputing an aggregated row.
func (c *Context) Log() *accumulator.Log {
	return c.log
}

// Value returns an already evaluated dependency.
func (c *Context) Value(name string) float64 {
	return c.values[name]
}

// IDAssignment returns the whole-track identity assignment of the log, computed at most once.
func (c *Context) IDAssignment() (IDAssignment, error) {
	if c.ids != nil {
		return *c.ids, nil
	}
	if c.log == nil {
		return IDAssignment{}, errors.New("identity assignment needs a sequence log")
	}
	ids, err := AssignIdentities(c.log, c.idSolver)
	if err != nil {
		return IDAssignment{}, err
	}
	c.ids = &ids
	return ids, nil
}
