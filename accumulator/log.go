package accumulator

// ObjectStats summarises one ground truth object over the sequence.
type ObjectStats struct {
	ID             int64
	Frames         int // frames in which the object is present
	Matched        int // frames in which it was matched
	Fragmentations int
}

// TrackRatio is the fraction of the object's frames in which it was matched.
func (o ObjectStats) TrackRatio() float64 {
	if o.Frames == 0 {
		return 0
	}
	return float64(o.Matched) / float64(o.Frames)
}

// HypothesisStats summarises one hypothesis identity over the sequence.
type HypothesisStats struct {
	ID     int64
	Frames int
}

// CoOccurrence counts the frames in which an object and a hypothesis were both present at a
// feasible distance.
type CoOccurrence struct {
	GT     int64
	Hyp    int64
	Frames int
}

// Log is the frozen result of an accumulator. It must be treated as read-only; it is safe for
// concurrent readers.
type Log struct {
	events        []Event
	counts        Counts
	objects       []ObjectStats
	hypotheses    []HypothesisStats
	coOccurrences []CoOccurrence
}

// Events returns the event log in emission order. Callers must not modify it.
func (l *Log) Events() []Event {
	return l.events
}

// Count returns the number of events of type t.
func (l *Log) Count(t EventType) int {
	n := 0
	for _, e := range l.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Counts returns the totals of the sequence.
func (l *Log) Counts() Counts {
	return l.counts
}

// Objects returns per-object statistics in order of first appearance.
func (l *Log) Objects() []ObjectStats {
	return l.objects
}

// Hypotheses returns per-hypothesis statistics in order of first appearance.
func (l *Log) Hypotheses() []HypothesisStats {
	return l.hypotheses
}

// CoOccurrences returns the feasible co-occurrence table ordered by object then hypothesis.
func (l *Log) CoOccurrences() []CoOccurrence {
	return l.coOccurrences
}
