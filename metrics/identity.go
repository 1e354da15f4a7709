package metrics

import (
	"github.com/pkg/errors"

	"github.com/viam-modules/motmetrics/accumulator"
	"github.com/viam-modules/motmetrics/distance"
	"github.com/viam-modules/motmetrics/lap"
)

// IDAssignment is the result of matching whole ground truth tracks to whole hypothesis
// tracks so that identity false positives plus false negatives are minimal.
type IDAssignment struct {
	FP float64
	FN float64
	TP float64
	// Matches maps matched object ids to hypothesis ids.
	Matches map[int64]int64
}

// AssignIdentities solves the sequence-level identity assignment over the log's
// co-occurrence table. The cost table is (no+nh) x (nh+no): object rows against hypothesis
// columns cost the frames they do not share, each object also has a private "unmatched"
// column costing all its frames, each hypothesis a private "unmatched" row costing all its
// frames, and the dummy-dummy block is free.
func AssignIdentities(log *accumulator.Log, solver lap.Solver) (IDAssignment, error) {
	objects := log.Objects()
	hyps := log.Hypotheses()
	no, nh := len(objects), len(hyps)
	out := IDAssignment{Matches: make(map[int64]int64)}

	oc := make([]float64, no)
	row := make(map[int64]int, no)
	for i, o := range objects {
		oc[i] = float64(o.Frames)
		row[o.ID] = i
	}
	hc := make([]float64, nh)
	col := make(map[int64]int, nh)
	for j, h := range hyps {
		hc[j] = float64(h.Frames)
		col[h.ID] = j
	}
	tp := make([][]float64, no)
	for i := range tp {
		tp[i] = make([]float64, nh)
	}
	for _, c := range log.CoOccurrences() {
		tp[row[c.GT]][col[c.Hyp]] = float64(c.Frames)
	}

	totalObjects := 0.0
	for _, v := range oc {
		totalObjects += v
	}
	if no == 0 || nh == 0 {
		totalHyps := 0.0
		for _, v := range hc {
			totalHyps += v
		}
		out.FN, out.FP = totalObjects, totalHyps
		return out, nil
	}

	n := no + nh
	m := distance.NewMatrix(n, n)
	for r := 0; r < no; r++ {
		for c := 0; c < nh; c++ {
			m.Set(r, c, oc[r]+hc[c]-2*tp[r][c])
		}
		m.Set(r, nh+r, oc[r])
	}
	for c := 0; c < nh; c++ {
		m.Set(no+c, c, hc[c])
	}
	for r := no; r < n; r++ {
		for c := nh; c < n; c++ {
			m.Set(r, c, 0)
		}
	}

	a, err := solver.Solve(m)
	if err != nil {
		return IDAssignment{}, errors.Wrap(err, "identity assignment")
	}
	matchedRow := make([]bool, n)
	matchedCol := make([]bool, n)
	for _, p := range a.Pairs {
		matchedRow[p.Row], matchedCol[p.Col] = true, true
		switch {
		case p.Row < no && p.Col < nh:
			shared := tp[p.Row][p.Col]
			out.FN += oc[p.Row] - shared
			out.FP += hc[p.Col] - shared
			if shared > 0 {
				out.Matches[objects[p.Row].ID] = hyps[p.Col].ID
			}
		case p.Row < no:
			out.FN += oc[p.Row]
		case p.Col < nh:
			out.FP += hc[p.Col]
		}
	}
	// Only a non-exact solver leaves tracks out; they are then entirely unmatched.
	for r := 0; r < no; r++ {
		if !matchedRow[r] {
			out.FN += oc[r]
		}
	}
	for c := 0; c < nh; c++ {
		if !matchedCol[c] {
			out.FP += hc[c]
		}
	}
	out.TP = totalObjects - out.FN
	return out, nil
}
