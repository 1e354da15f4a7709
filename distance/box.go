// Package distance computes per-frame distance tables between ground truth
// and hypothesis geometries.
package distance

import (
	"math"
)

// Box is an axis-aligned bounding box given as its top-left corner plus width and height,
// the layout used by MOTChallenge files.
type Box struct {
	X, Y, W, H float64
}

// Valid reports whether the box has finite coordinates and a positive extent.
func (b Box) Valid() bool {
	for _, v := range [4]float64{b.X, b.Y, b.W, b.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.W > 0 && b.H > 0
}

// XYXY returns the box as [x1, y1, x2, y2].
func (b Box) XYXY() [4]float64 {
	return [4]float64{b.X, b.Y, b.X + b.W, b.Y + b.H}
}

// Center returns the center point of the box.
func (b Box) Center() (float64, float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// IoU returns the intersection over union of two boxes. Disjoint boxes give 0.
func IoU(a, b Box) float64 {
	return iouXYXY(a.XYXY(), b.XYXY())
}

// iouXYXY returns the IoU assuming bounding boxes are [x1, y1, x2, y2].
func iouXYXY(r1, r2 [4]float64) float64 {
	// Find intersection
	intx1, intx2 := math.Max(r1[0], r2[0]), math.Min(r1[2], r2[2])
	inty1, inty2 := math.Max(r1[1], r2[1]), math.Min(r1[3], r2[3])
	if intx2 <= intx1 || inty2 <= inty1 {
		return 0
	}

	// Calculate areas
	areaInt := (intx2 - intx1) * (inty2 - inty1)
	area1 := (r1[2] - r1[0]) * (r1[3] - r1[1])
	area2 := (r2[2] - r2[0]) * (r2[3] - r2[1])

	return areaInt / (area1 + area2 - areaInt)
}
