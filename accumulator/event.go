// Package accumulator records, frame by frame, how hypotheses were matched to ground truth
// objects in one sequence and keeps the identity state needed to detect switches.
package accumulator

import (
	"math"
)

// EventType classifies an event.
type EventType int

// Event kinds. MATCH and SWITCH are the primary outcome of a pair; ASCEND, TRANSFER and MIGRATE
// annotate a pair in addition to its primary event. RAW records every matrix cell.
const (
	Match EventType = iota
	Switch
	Transfer
	Ascend
	Migrate
	FalsePositive
	Miss
	Raw
)

var eventNames = [...]string{
	Match:         "MATCH",
	Switch:        "SWITCH",
	Transfer:      "TRANSFER",
	Ascend:        "ASCEND",
	Migrate:       "MIGRATE",
	FalsePositive: "FP",
	Miss:          "MISS",
	Raw:           "RAW",
}

func (t EventType) String() string {
	if t < 0 || int(t) >= len(eventNames) {
		return "UNKNOWN"
	}
	return eventNames[t]
}

// NoID marks the absent side of an event, e.g. the hypothesis of a MISS.
const NoID int64 = math.MinInt64

// Event is one immutable outcome of a frame.
type Event struct {
	Frame    int
	Type     EventType
	GT       int64
	Hyp      int64
	Distance float64 // NaN when there is no realized distance
}

// HasGT reports whether the event refers to a ground truth object.
func (e Event) HasGT() bool { return e.GT != NoID }

// HasHyp reports whether the event refers to a hypothesis.
func (e Event) HasHyp() bool { return e.Hyp != NoID }
