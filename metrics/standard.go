package metrics

import (
	"github.com/viam-modules/motmetrics/accumulator"
)

// Track ratio bounds for the mostly tracked / mostly lost classification.
const (
	MostlyTrackedRatio = 0.8
	MostlyLostRatio    = 0.2
)

// Standard metric names.
const (
	NumFrames         = "num_frames"
	NumMatches        = "num_matches"
	NumSwitches       = "num_switches"
	NumTransfer       = "num_transfer"
	NumAscend         = "num_ascend"
	NumMigrate        = "num_migrate"
	NumFalsePositives = "num_false_positives"
	NumMisses         = "num_misses"
	NumDetections     = "num_detections"
	NumObjects        = "num_objects"
	NumPredictions    = "num_predictions"
	NumUniqueObjects  = "num_unique_objects"
	MostlyTracked     = "mostly_tracked"
	PartiallyTracked  = "partially_tracked"
	MostlyLost        = "mostly_lost"
	NumFragmentations = "num_fragmentations"
	MOTP              = "motp"
	MOTA              = "mota"
	Precision         = "precision"
	Recall            = "recall"
	IDFP              = "idfp"
	IDFN              = "idfn"
	IDTP              = "idtp"
	IDP               = "idp"
	IDR               = "idr"
	IDF1              = "idf1"
)

// MOTChallengeMetrics is the metric set reported by the MOTChallenge benchmark, in column order.
var MOTChallengeMetrics = []string{
	IDF1, IDP, IDR, Recall, Precision, NumUniqueObjects, MostlyTracked, PartiallyTracked,
	MostlyLost, NumFalsePositives, NumMisses, NumSwitches, NumFragmentations, MOTA, MOTP,
	NumTransfer, NumAscend, NumMigrate,
}

// MOTChallengeNames maps metric names to MOTChallenge column headers.
var MOTChallengeNames = map[string]string{
	IDF1:              "IDF1",
	IDP:               "IDP",
	IDR:               "IDR",
	Recall:            "Rcll",
	Precision:         "Prcn",
	NumUniqueObjects:  "GT",
	MostlyTracked:     "MT",
	PartiallyTracked:  "PT",
	MostlyLost:        "ML",
	NumFalsePositives: "FP",
	NumMisses:         "FN",
	NumSwitches:       "IDs",
	NumFragmentations: "FM",
	MOTA:              "MOTA",
	MOTP:              "MOTP",
	NumTransfer:       "IDt",
	NumAscend:         "IDa",
	NumMigrate:        "IDm",
}

func fromCounts(get func(accumulator.Counts) int) ComputeFunc {
	return func(c *Context) (float64, error) {
		return float64(get(c.Log().Counts())), nil
	}
}

func countObjects(keep func(accumulator.ObjectStats) bool) ComputeFunc {
	return func(c *Context) (float64, error) {
		n := 0
		for _, o := range c.Log().Objects() {
			if keep(o) {
				n++
			}
		}
		return float64(n), nil
	}
}

func fromIdentities(get func(IDAssignment) float64) ComputeFunc {
	return func(c *Context) (float64, error) {
		ids, err := c.IDAssignment()
		if err != nil {
			return 0, err
		}
		return get(ids), nil
	}
}

// StandardDefinitions returns the built-in metric catalog.
func StandardDefinitions() []Definition {
	return []Definition{
		{Name: NumFrames, Label: "Frames", Compute: fromCounts(func(c accumulator.Counts) int { return c.Frames })},
		{Name: NumMatches, Label: "Matches", Compute: fromCounts(func(c accumulator.Counts) int { return c.Matches })},
		{Name: NumSwitches, Label: "Switches", Compute: fromCounts(func(c accumulator.Counts) int { return c.Switches })},
		{Name: NumTransfer, Label: "Transfer", Compute: fromCounts(func(c accumulator.Counts) int { return c.Transfers })},
		{Name: NumAscend, Label: "Ascend", Compute: fromCounts(func(c accumulator.Counts) int { return c.Ascends })},
		{Name: NumMigrate, Label: "Migrate", Compute: fromCounts(func(c accumulator.Counts) int { return c.Migrates })},
		{
			Name: NumFalsePositives, Label: "False Pos.",
			Compute: fromCounts(func(c accumulator.Counts) int { return c.FalsePositives }),
		},
		{Name: NumMisses, Label: "Misses", Compute: fromCounts(func(c accumulator.Counts) int { return c.Misses })},
		{
			Name: NumDetections, Label: "Detected",
			Deps: []string{NumMatches, NumSwitches},
			Compute: func(c *Context) (float64, error) {
				return c.Value(NumMatches) + c.Value(NumSwitches), nil
			},
		},
		{Name: NumObjects, Label: "Objects", Compute: fromCounts(func(c accumulator.Counts) int { return c.Objects })},
		{
			Name: NumPredictions, Label: "Predicted",
			Compute: fromCounts(func(c accumulator.Counts) int { return c.Predictions }),
		},
		{
			Name: NumUniqueObjects, Label: "Unique objects",
			Compute: countObjects(func(accumulator.ObjectStats) bool { return true }),
		},
		{
			Name: MostlyTracked, Label: "Mostly tracked",
			Compute: countObjects(func(o accumulator.ObjectStats) bool { return o.TrackRatio() >= MostlyTrackedRatio }),
		},
		{
			Name: PartiallyTracked, Label: "Partially tracked",
			Compute: countObjects(func(o accumulator.ObjectStats) bool {
				r := o.TrackRatio()
				return r > MostlyLostRatio && r < MostlyTrackedRatio
			}),
		},
		{
			Name: MostlyLost, Label: "Mostly lost",
			Compute: countObjects(func(o accumulator.ObjectStats) bool { return o.TrackRatio() <= MostlyLostRatio }),
		},
		{
			Name: NumFragmentations, Label: "Fragmentations",
			Compute: func(c *Context) (float64, error) {
				n := 0
				for _, o := range c.Log().Objects() {
					n += o.Fragmentations
				}
				return float64(n), nil
			},
		},
		{
			Name: MOTP, Label: "MOTP", Kind: Distance,
			Deps:      []string{NumDetections},
			Aggregate: WeightedAverage, Weight: NumDetections,
			Compute: func(c *Context) (float64, error) {
				return quietDivide(c.Log().Counts().TotalDistance, c.Value(NumDetections)), nil
			},
		},
		{
			Name: MOTA, Label: "MOTA", Kind: Ratio,
			Deps:      []string{NumMisses, NumSwitches, NumFalsePositives, NumObjects},
			Aggregate: Recompute,
			Compute: func(c *Context) (float64, error) {
				errs := c.Value(NumMisses) + c.Value(NumSwitches) + c.Value(NumFalsePositives)
				return 1 - quietDivide(errs, c.Value(NumObjects)), nil
			},
		},
		{
			Name: Precision, Label: "Prcn", Kind: Ratio,
			Deps:      []string{NumDetections, NumFalsePositives},
			Aggregate: Recompute,
			Compute: func(c *Context) (float64, error) {
				d := c.Value(NumDetections)
				return quietDivide(d, d+c.Value(NumFalsePositives)), nil
			},
		},
		{
			Name: Recall, Label: "Rcll", Kind: Ratio,
			Deps:      []string{NumDetections, NumObjects},
			Aggregate: Recompute,
			Compute: func(c *Context) (float64, error) {
				return quietDivide(c.Value(NumDetections), c.Value(NumObjects)), nil
			},
		},
		{
			Name: IDFP, Label: "ID False Pos.", Identity: true,
			Compute: fromIdentities(func(a IDAssignment) float64 { return a.FP }),
		},
		{
			Name: IDFN, Label: "ID False Neg.", Identity: true,
			Compute: fromIdentities(func(a IDAssignment) float64 { return a.FN }),
		},
		{
			Name: IDTP, Label: "ID True Pos.", Identity: true,
			Compute: fromIdentities(func(a IDAssignment) float64 { return a.TP }),
		},
		{
			Name: IDP, Label: "ID Precision", Kind: Ratio, Identity: true,
			Deps:      []string{IDTP, IDFP},
			Aggregate: Recompute,
			Compute: func(c *Context) (float64, error) {
				tp := c.Value(IDTP)
				return quietDivide(tp, tp+c.Value(IDFP)), nil
			},
		},
		{
			Name: IDR, Label: "ID Recall", Kind: Ratio, Identity: true,
			Deps:      []string{IDTP, IDFN},
			Aggregate: Recompute,
			Compute: func(c *Context) (float64, error) {
				tp := c.Value(IDTP)
				return quietDivide(tp, tp+c.Value(IDFN)), nil
			},
		},
		{
			Name: IDF1, Label: "ID F1", Kind: Ratio, Identity: true,
			Deps:      []string{IDTP, NumObjects, NumPredictions},
			Aggregate: Recompute,
			Compute: func(c *Context) (float64, error) {
				return quietDivide(2*c.Value(IDTP), c.Value(NumObjects)+c.Value(NumPredictions)), nil
			},
		},
	}
}

var standard = MustRegistry(StandardDefinitions()...)

// Standard returns the shared registry of built-in metrics.
func Standard() *Registry {
	return standard
}
