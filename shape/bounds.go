package shape

import "math"

// Bounds is an axis aligned box over the x, y, z and m dimensions.
//
// Index 0 is x, 1 is y, 2 is z and 3 is m.
type Bounds struct {
	Min [4]float64
	Max [4]float64
}

// NewBounds2D creates a box over x and y with zero z and m ranges.
func NewBounds2D(minX, minY, maxX, maxY float64) Bounds {
	return Bounds{
		Min: [4]float64{minX, minY, 0, 0},
		Max: [4]float64{maxX, maxY, 0, 0},
	}
}

// EmptyBounds returns a box that any Extend call replaces.
func EmptyBounds() Bounds {
	inf := math.Inf(1)

	return Bounds{
		Min: [4]float64{inf, inf, inf, inf},
		Max: [4]float64{-inf, -inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box was never extended.
func (b Bounds) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1]
}

// IsZero reports whether the x and y ranges are all zero.
func (b Bounds) IsZero() bool {
	return b.Min[0] == 0 && b.Min[1] == 0 && b.Max[0] == 0 && b.Max[1] == 0
}

// Contains reports whether other lies fully inside b on the first dims dimensions.
//
// dims is clamped to [2, 4]; x and y are always tested.
func (b Bounds) Contains(other Bounds, dims int) bool {
	dims = clampDims(dims)
	for i := range dims {
		if other.Min[i] < b.Min[i] || other.Max[i] > b.Max[i] {
			return false
		}
	}

	return true
}

// Overlaps reports whether b and other intersect on the first dims dimensions.
// Touching edges count as overlap.
func (b Bounds) Overlaps(other Bounds, dims int) bool {
	dims = clampDims(dims)
	for i := range dims {
		if other.Max[i] < b.Min[i] || other.Min[i] > b.Max[i] {
			return false
		}
	}

	return true
}

// Extend grows b to cover other.
func (b *Bounds) Extend(other Bounds) {
	for i := range 4 {
		b.Min[i] = math.Min(b.Min[i], other.Min[i])
		b.Max[i] = math.Max(b.Max[i], other.Max[i])
	}
}

// Center returns the x/y midpoint.
func (b Bounds) Center() (float64, float64) {
	return (b.Min[0] + b.Max[0]) / 2, (b.Min[1] + b.Max[1]) / 2
}

func (b Bounds) Width() float64 {
	return b.Max[0] - b.Min[0]
}

func (b Bounds) Height() float64 {
	return b.Max[1] - b.Min[1]
}

func clampDims(dims int) int {
	if dims < 2 {
		return 2
	}
	if dims > 4 {
		return 4
	}

	return dims
}
