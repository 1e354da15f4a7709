package accumulator

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/viam-modules/motmetrics/distance"
	"github.com/viam-modules/motmetrics/lap"
)

var (
	// ErrFrameOrder is returned when Update receives a frame index that is not strictly
	// greater than the previous one.
	ErrFrameOrder = errors.New("frame index is not increasing")
	// ErrInvalidUpdate is returned when the ids, matrix and assignment of an update disagree.
	ErrInvalidUpdate = errors.New("invalid accumulator update")
	// ErrFrozen is returned by Update once the accumulator has been frozen.
	ErrFrozen = errors.New("accumulator is frozen")
)

// Counts are the running totals of an accumulator.
type Counts struct {
	Frames         int
	Matches        int
	Switches       int
	Transfers      int
	Ascends        int
	Migrates       int
	FalsePositives int
	Misses         int
	// Objects and Predictions count ground truth and hypothesis observations.
	Objects     int
	Predictions int
	// TotalDistance sums the distances of MATCH and SWITCH pairs.
	TotalDistance float64
}

// Detections is the number of matched pairs, switches included.
func (c Counts) Detections() int {
	return c.Matches + c.Switches
}

type objectState struct {
	stats   ObjectStats
	tracked bool // matched at least once
	gap     bool // missed since the last match
}

type pairKey struct {
	gt, hyp int64
}

// Accumulator consumes the frames of one sequence in increasing order. It is not safe for
// concurrent use and must not be shared between sequences.
type Accumulator struct {
	events []Event
	counts Counts

	lastFrame int
	started   bool
	frozen    *Log
	err       error

	gtToHyp     map[int64]int64
	hypToGT     map[int64]int64
	everMatched map[int64]struct{}

	objects     map[int64]*objectState
	objectOrder []int64
	hyps        map[int64]*HypothesisStats
	hypOrder    []int64
	coOccur     map[pairKey]int
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{
		gtToHyp:     make(map[int64]int64),
		hypToGT:     make(map[int64]int64),
		everMatched: make(map[int64]struct{}),
		objects:     make(map[int64]*objectState),
		hyps:        make(map[int64]*HypothesisStats),
		coOccur:     make(map[pairKey]int),
	}
}

// Current returns the hypothesis last matched to gt.
func (a *Accumulator) Current(gt int64) (int64, bool) {
	h, ok := a.gtToHyp[gt]
	return h, ok
}

// Counts returns the running totals.
func (a *Accumulator) Counts() Counts {
	return a.counts
}

// Err returns the error that failed the accumulator, if any.
func (a *Accumulator) Err() error {
	return a.err
}

func (a *Accumulator) fail(err error) error {
	a.err = err
	return err
}

// Update records the outcome of one frame. gtIDs and hypIDs label the rows and columns of
// dists and assignment pairs rows with columns; rows and columns not paired are misses and
// false positives. Any error is fatal: the accumulator rejects all further calls.
func (a *Accumulator) Update(frame int, gtIDs, hypIDs []int64, dists *distance.Matrix, assignment lap.Assignment) error {
	if a.err != nil {
		return a.err
	}
	if a.frozen != nil {
		return ErrFrozen
	}
	if a.started && frame <= a.lastFrame {
		return a.fail(errors.Wrapf(ErrFrameOrder, "frame %d after %d", frame, a.lastFrame))
	}
	pairs, err := validate(gtIDs, hypIDs, dists, assignment)
	if err != nil {
		return a.fail(errors.Wrapf(err, "frame %d", frame))
	}
	a.started = true
	a.lastFrame = frame
	a.counts.Frames++
	a.counts.Objects += len(gtIDs)
	a.counts.Predictions += len(hypIDs)

	matchedRow := make([]bool, len(gtIDs))
	matchedCol := make([]bool, len(hypIDs))

	// Classify every pair against the state left by the previous frame, then apply the
	// new pairings, so the outcome does not depend on pair order.
	for _, p := range pairs {
		gt, hyp := gtIDs[p.Row], hypIDs[p.Col]
		d := dists.At(p.Row, p.Col)
		matchedRow[p.Row], matchedCol[p.Col] = true, true

		prevHyp, hadHyp := a.gtToHyp[gt]
		isSwitch := hadHyp && prevHyp != hyp
		if isSwitch {
			a.emit(frame, Switch, gt, hyp, d)
			a.counts.Switches++
			if _, seen := a.everMatched[hyp]; !seen {
				a.emit(frame, Ascend, gt, hyp, d)
				a.counts.Ascends++
			}
		} else {
			a.emit(frame, Match, gt, hyp, d)
			a.counts.Matches++
		}
		a.counts.TotalDistance += d

		if prevGT, hadGT := a.hypToGT[hyp]; hadGT && prevGT != gt {
			a.emit(frame, Transfer, gt, hyp, d)
			a.counts.Transfers++
			if !hadHyp {
				a.emit(frame, Migrate, gt, hyp, d)
				a.counts.Migrates++
			}
		}
	}
	for _, p := range pairs {
		gt, hyp := gtIDs[p.Row], hypIDs[p.Col]
		a.gtToHyp[gt] = hyp
		a.hypToGT[hyp] = gt
		a.everMatched[hyp] = struct{}{}
	}

	for row, gt := range gtIDs {
		if !matchedRow[row] {
			a.emit(frame, Miss, gt, NoID, math.NaN())
			a.counts.Misses++
		}
		a.observeObject(gt, matchedRow[row])
	}
	for col, hyp := range hypIDs {
		if !matchedCol[col] {
			a.emit(frame, FalsePositive, NoID, hyp, math.NaN())
			a.counts.FalsePositives++
		}
		a.observeHypothesis(hyp)
	}

	for row, gt := range gtIDs {
		for col, hyp := range hypIDs {
			d := dists.At(row, col)
			a.emit(frame, Raw, gt, hyp, d)
			if !math.IsNaN(d) {
				a.coOccur[pairKey{gt, hyp}]++
			}
		}
	}
	return nil
}

func (a *Accumulator) emit(frame int, t EventType, gt, hyp int64, d float64) {
	a.events = append(a.events, Event{Frame: frame, Type: t, GT: gt, Hyp: hyp, Distance: d})
}

// observeObject advances the per-object track history. A fragmentation is counted when an
// object is matched again after having been missed since its previous match.
func (a *Accumulator) observeObject(gt int64, matched bool) {
	st, ok := a.objects[gt]
	if !ok {
		st = &objectState{stats: ObjectStats{ID: gt}}
		a.objects[gt] = st
		a.objectOrder = append(a.objectOrder, gt)
	}
	st.stats.Frames++
	if !matched {
		if st.tracked {
			st.gap = true
		}
		return
	}
	if st.gap {
		st.stats.Fragmentations++
	}
	st.gap = false
	st.tracked = true
	st.stats.Matched++
}

func (a *Accumulator) observeHypothesis(hyp int64) {
	st, ok := a.hyps[hyp]
	if !ok {
		st = &HypothesisStats{ID: hyp}
		a.hyps[hyp] = st
		a.hypOrder = append(a.hypOrder, hyp)
	}
	st.Frames++
}

// validate checks an update and returns its pairs ordered by row.
func validate(gtIDs, hypIDs []int64, dists *distance.Matrix, assignment lap.Assignment) ([]lap.Pair, error) {
	if dists == nil {
		return nil, errors.Wrap(ErrInvalidUpdate, "missing distance matrix")
	}
	rows, cols := dists.Dims()
	if rows != len(gtIDs) || cols != len(hypIDs) {
		return nil, errors.Wrapf(ErrInvalidUpdate, "matrix is %dx%d for %d objects and %d hypotheses",
			rows, cols, len(gtIDs), len(hypIDs))
	}
	if err := checkUnique("object", gtIDs); err != nil {
		return nil, err
	}
	if err := checkUnique("hypothesis", hypIDs); err != nil {
		return nil, err
	}

	pairs := append([]lap.Pair(nil), assignment.Pairs...)
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Row < pairs[j].Row })
	usedCol := make(map[int]struct{}, len(pairs))
	for i, p := range pairs {
		if p.Row < 0 || p.Row >= rows || p.Col < 0 || p.Col >= cols {
			return nil, errors.Wrapf(ErrInvalidUpdate, "pair (%d, %d) outside %dx%d matrix", p.Row, p.Col, rows, cols)
		}
		if i > 0 && pairs[i-1].Row == p.Row {
			return nil, errors.Wrapf(ErrInvalidUpdate, "row %d paired twice", p.Row)
		}
		if _, dup := usedCol[p.Col]; dup {
			return nil, errors.Wrapf(ErrInvalidUpdate, "column %d paired twice", p.Col)
		}
		usedCol[p.Col] = struct{}{}
		if !dists.Feasible(p.Row, p.Col) {
			return nil, errors.Wrapf(ErrInvalidUpdate, "pair (%d, %d) is infeasible", p.Row, p.Col)
		}
	}
	return pairs, nil
}

func checkUnique(kind string, ids []int64) error {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id == NoID {
			return errors.Wrapf(ErrInvalidUpdate, "reserved %s id %d", kind, id)
		}
		if _, dup := seen[id]; dup {
			return errors.Wrapf(ErrInvalidUpdate, "duplicate %s id %d", kind, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Freeze ends the sequence and returns its read-only log. Freeze may be called more than once
// and always returns the same log. A failed accumulator returns its error instead, so partial
// state never reaches the metrics.
func (a *Accumulator) Freeze() (*Log, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.frozen != nil {
		return a.frozen, nil
	}
	log := &Log{
		events: a.events,
		counts: a.counts,
	}
	for _, id := range a.objectOrder {
		log.objects = append(log.objects, a.objects[id].stats)
	}
	for _, id := range a.hypOrder {
		log.hypotheses = append(log.hypotheses, *a.hyps[id])
	}
	for k, n := range a.coOccur {
		log.coOccurrences = append(log.coOccurrences, CoOccurrence{GT: k.gt, Hyp: k.hyp, Frames: n})
	}
	sort.Slice(log.coOccurrences, func(i, j int) bool {
		ci, cj := log.coOccurrences[i], log.coOccurrences[j]
		if ci.GT != cj.GT {
			return ci.GT < cj.GT
		}
		return ci.Hyp < cj.Hyp
	})
	a.frozen = log
	return log, nil
}
