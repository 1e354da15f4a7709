// Package trajectory holds ground truth and hypothesis tracks grouped by frame, and loads them
// from MOTChallenge text files.
package trajectory

import (
	"sort"

	"github.com/viam-modules/motmetrics/distance"
)

// Observation is one ground truth or hypothesis detection of an identity at a frame.
type Observation struct {
	Frame      int
	ID         int64
	Box        distance.Box
	Confidence float64
	Class      int
	Visibility float64
}

// Frame is the set of observations sharing one frame index, in input order.
type Frame struct {
	Index        int
	Observations []Observation
}

// IDs returns the identities of the frame's observations in order.
func (f Frame) IDs() []int64 {
	out := make([]int64, len(f.Observations))
	for i, o := range f.Observations {
		out[i] = o.ID
	}
	return out
}

// Boxes returns the geometries of the frame's observations in order.
func (f Frame) Boxes() []distance.Box {
	out := make([]distance.Box, len(f.Observations))
	for i, o := range f.Observations {
		out[i] = o.Box
	}
	return out
}

// Sequence is a named, frame-ordered track set.
type Sequence struct {
	Name   string
	Frames []Frame
}

// NewSequence groups observations into a sequence.
func NewSequence(name string, obs []Observation) Sequence {
	return Sequence{Name: name, Frames: Group(obs)}
}

// Group buckets observations by frame. Frames come out in increasing index order and
// observations keep their relative input order inside a frame.
func Group(obs []Observation) []Frame {
	byIndex := make(map[int]int)
	var frames []Frame
	for _, o := range obs {
		idx, ok := byIndex[o.Frame]
		if !ok {
			idx = len(frames)
			byIndex[o.Frame] = idx
			frames = append(frames, Frame{Index: o.Frame})
		}
		frames[idx].Observations = append(frames[idx].Observations, o)
	}
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].Index < frames[j].Index })
	return frames
}

// NumObservations counts observations over all frames.
func (s Sequence) NumObservations() int {
	n := 0
	for _, f := range s.Frames {
		n += len(f.Observations)
	}
	return n
}

// Frame returns the frame with the given index, or an empty frame when there is none.
func (s Sequence) Frame(index int) Frame {
	i := sort.Search(len(s.Frames), func(i int) bool { return s.Frames[i].Index >= index })
	if i < len(s.Frames) && s.Frames[i].Index == index {
		return s.Frames[i]
	}
	return Frame{Index: index}
}

// FrameIndices returns the sequence's frame indices in increasing order.
func (s Sequence) FrameIndices() []int {
	out := make([]int, len(s.Frames))
	for i, f := range s.Frames {
		out[i] = f.Index
	}
	return out
}

// MergeIndices returns the sorted union of the frame indices of a and b.
func MergeIndices(a, b Sequence) []int {
	ai, bi := a.FrameIndices(), b.FrameIndices()
	out := make([]int, 0, len(ai)+len(bi))
	i, j := 0, 0
	for i < len(ai) || j < len(bi) {
		switch {
		case j == len(bi) || (i < len(ai) && ai[i] < bi[j]):
			out = append(out, ai[i])
			i++
		case i == len(ai) || bi[j] < ai[i]:
			out = append(out, bi[j])
			j++
		default:
			out = append(out, ai[i])
			i++
			j++
		}
	}
	return out
}
