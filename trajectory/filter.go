package trajectory

// Filter maps observations to the subset that should be evaluated.
type Filter func([]Observation) []Observation

// NewConfidenceFilter returns a filter removing observations whose confidence is below
// minConfidence. Ground truth files mark ignored entries with confidence 0, so ground truth is
// loaded with a minimum of 1.
func NewConfidenceFilter(minConfidence float64) Filter {
	return func(obs []Observation) []Observation {
		out := make([]Observation, 0, len(obs))
		for _, o := range obs {
			if o.Confidence >= minConfidence {
				out = append(out, o)
			}
		}
		return out
	}
}

// NewClassFilter keeps observations whose class is one of classes. An empty set keeps all.
func NewClassFilter(classes ...int) Filter {
	return func(obs []Observation) []Observation {
		// If it's empty, return the input.
		if len(classes) < 1 {
			return obs
		}
		keep := make(map[int]struct{}, len(classes))
		for _, c := range classes {
			keep[c] = struct{}{}
		}
		out := make([]Observation, 0, len(obs))
		for _, o := range obs {
			if _, ok := keep[o.Class]; ok {
				out = append(out, o)
			}
		}
		return out
	}
}

// Chain applies filters in order. Nil filters are skipped.
func Chain(filters ...Filter) Filter {
	return func(obs []Observation) []Observation {
		for _, f := range filters {
			if f != nil {
				obs = f(obs)
			}
		}
		return obs
	}
}
