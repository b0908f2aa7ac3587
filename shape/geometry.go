package shape

import (
	"fmt"
	"math"
	"slices"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
)

// Merge modes for MergeLine.
const (
	MergeAppend         = 1 // other follows s
	MergeAppendReversed = 2 // reversed other follows s
	MergePrepend        = 3 // other precedes s
	MergePrependReverse = 4 // reversed other precedes s
)

// segments calls fn for every segment inside a part, in vertex order.
// fn returns false to stop.
func (s *Shape) segments(fn func(i int) bool) {
	for p := range s.PartCount() {
		start, end, err := s.PartRange(p)
		if err != nil {
			return
		}
		for i := start; i+1 < end; i++ {
			if !fn(i) {
				return
			}
		}
	}
}

func (s *Shape) segmentLength(i int) float64 {
	return math.Hypot(s.X[i+1]-s.X[i], s.Y[i+1]-s.Y[i])
}

// Length returns the planar length of all parts. Parts are not joined to each other.
func (s *Shape) Length() float64 {
	total := 0.0
	s.segments(func(i int) bool {
		total += s.segmentLength(i)
		return true
	})

	return total
}

// NorthBasedAngle converts a direction vector into a bearing in whole degrees:
// 0 is north (+y), 90 is east (+x). A zero vector returns 0.
func NorthBasedAngle(vx, vy float64) int {
	if vx == 0 && vy == 0 {
		return 0
	}

	ang := math.Atan(vy/vx) * 180 / math.Pi
	bearing := 90 - ang + 360
	if vx < 0 {
		bearing += 180
	}

	return int(bearing) % 360
}

// CenterOfLine returns the point at half of the line length, the bearing of the segment
// holding it and that segment's start vertex index.
//
// Returns:
//   - x, y: The midpoint along the line
//   - angle: North based bearing of the segment, see NorthBasedAngle
//   - segment: Index of the first vertex of the segment
//   - error: ErrInvalidArgument when the shape has fewer than two vertices
func (s *Shape) CenterOfLine() (float64, float64, int, int, error) {
	if len(s.X) < 2 {
		return 0, 0, 0, 0, fmt.Errorf("%w: line needs at least 2 vertices, got %d", errs.ErrInvalidArgument, len(s.X))
	}

	half := s.Length() / 2
	walked := 0.0
	x, y, angle, segment := s.X[0], s.Y[0], 0, -1

	s.segments(func(i int) bool {
		l := s.segmentLength(i)
		segment = i
		vx, vy := s.X[i+1]-s.X[i], s.Y[i+1]-s.Y[i]
		angle = NorthBasedAngle(vx, vy)
		if half < walked+l || (l == 0 && half == walked) {
			ratio := 0.0
			if l > 0 {
				ratio = (half - walked) / l
			}
			x = s.X[i] + vx*ratio
			y = s.Y[i] + vy*ratio

			return false
		}
		walked += l
		x, y = s.X[i+1], s.Y[i+1]

		return true
	})

	if segment < 0 {
		return 0, 0, 0, 0, fmt.Errorf("%w: line has no segments", errs.ErrInvalidArgument)
	}

	return x, y, angle, segment, nil
}

// ReverseVertexOrder reverses the vertices of a single part shape in place.
func (s *Shape) ReverseVertexOrder() error {
	if len(s.Parts) > 1 {
		return fmt.Errorf("%w: cannot reverse a %d part shape", errs.ErrInvalidArgument, len(s.Parts))
	}

	slices.Reverse(s.X)
	slices.Reverse(s.Y)
	slices.Reverse(s.Z)
	slices.Reverse(s.M)

	return nil
}

// MergeLine joins other onto s and returns a new single part polyline. The vertex shared by
// both lines appears once. other is not modified.
//
// Parameters:
//   - other: The line to attach
//   - mode: One of MergeAppend, MergeAppendReversed, MergePrepend, MergePrependReverse
//
// Returns:
//   - *Shape: New polyline with id -1
//   - error: ErrInvalidArgument for an unknown mode or empty input
func (s *Shape) MergeLine(other *Shape, mode int) (*Shape, error) {
	if len(s.X) == 0 || other == nil || len(other.X) == 0 {
		return nil, fmt.Errorf("%w: cannot merge empty lines", errs.ErrInvalidArgument)
	}

	o := other.Clone()
	if mode == MergeAppendReversed || mode == MergePrependReverse {
		o.Parts = nil
		if err := o.ReverseVertexOrder(); err != nil {
			return nil, err
		}
	}

	var first, second *Shape
	switch mode {
	case MergeAppend, MergeAppendReversed:
		first, second = s, o
	case MergePrepend, MergePrependReverse:
		first, second = o, s
	default:
		return nil, fmt.Errorf("%w: merge mode %d", errs.ErrInvalidArgument, mode)
	}

	n := len(first.X) + len(second.X) - 1
	x := make([]float64, 0, n)
	y := make([]float64, 0, n)
	x = append(append(x, first.X...), second.X[1:]...)
	y = append(append(y, first.Y...), second.Y[1:]...)

	return NewSimple(format.ShapePolyLine, -1, x, y, nil, nil)
}

func cross(x1, y1, x2, y2, x3, y3 float64) float64 {
	return (x2-x1)*(y3-y2) - (y2-y1)*(x3-x2)
}

// ringCross calls fn with the cross product at every vertex of the ring [start, end),
// wrapping around at both ends.
func (s *Shape) ringCross(start, end int, fn func(c float64) bool) {
	n := end - start
	for k := range n {
		prev := start + (k-1+n)%n
		cur := start + k
		next := start + (k+1)%n
		if !fn(cross(s.X[prev], s.Y[prev], s.X[cur], s.Y[cur], s.X[next], s.Y[next])) {
			return
		}
	}
}

// IsConvex reports whether every non-zero turn of the part has the same direction.
func (s *Shape) IsConvex(part int) (bool, error) {
	start, end, err := s.PartRange(part)
	if err != nil {
		return false, err
	}

	convex := true
	initialized, positive := false, false
	s.ringCross(start, end, func(c float64) bool {
		if c == 0 {
			return true
		}
		if !initialized {
			positive = c > 0
			initialized = true

			return true
		}
		if positive != (c > 0) {
			convex = false
			return false
		}

		return true
	})

	return convex, nil
}

// IsClockwise reports whether the part winds clockwise. Convex rings are decided by the first
// non-zero turn, other rings by the sign of the shoelace area.
func (s *Shape) IsClockwise(part int) (bool, error) {
	convex, err := s.IsConvex(part)
	if err != nil {
		return false, err
	}

	start, end, _ := s.PartRange(part)

	if convex {
		clockwise := false
		s.ringCross(start, end, func(c float64) bool {
			if c == 0 {
				return true
			}
			clockwise = c < 0

			return false
		})

		return clockwise, nil
	}

	area := 0.0
	for i := start; i < end; i++ {
		j := i + 1
		if j == end {
			j = start
		}
		area += s.X[i]*s.Y[j] - s.Y[i]*s.X[j]
	}

	return area < 0, nil
}

// OuterRingFlags classifies each polygon part: clockwise parts are outer rings, the rest are
// holes. Non-polygon shapes return nil.
func (s *Shape) OuterRingFlags() []format.PartType {
	if !s.Type.IsPolygon() {
		return nil
	}

	flags := make([]format.PartType, s.PartCount())
	for i := range flags {
		cw, err := s.IsClockwise(i)
		if err == nil && cw {
			flags[i] = format.PartOuterRing
		} else {
			flags[i] = format.PartInnerRing
		}
	}

	return flags
}

// ApplyOuterRingFlags stores OuterRingFlags in the part table. It is a no-op for non-polygons.
func (s *Shape) ApplyOuterRingFlags() {
	flags := s.OuterRingFlags()
	for i := range flags {
		if i < len(s.Parts) {
			s.Parts[i].Type = flags[i]
		}
	}
}

// PointOnLine describes the projection of a point onto a line.
type PointOnLine struct {
	X, Y float64
	// Distance is the distance from the query point to (X, Y).
	Distance float64
	// Along is the line length from the first vertex to (X, Y).
	Along float64
	// Right is true when the query point lies on the right of the segment direction.
	Right bool
	// Angle is the north based bearing of the matched segment.
	Angle   int
	Segment int
}

// NearestPointOnLine projects (x, y) onto the closest segment of the line.
//
// Returns:
//   - PointOnLine: The projection
//   - bool: false when no segment lies closer than limit
func (s *Shape) NearestPointOnLine(x, y, limit float64) (PointOnLine, bool) {
	best := PointOnLine{Distance: math.Inf(1), Segment: -1}
	walked := 0.0

	s.segments(func(i int) bool {
		x1, y1 := s.X[i], s.Y[i]
		vx, vy := s.X[i+1]-x1, s.Y[i+1]-y1
		l2 := vx*vx + vy*vy
		l := math.Sqrt(l2)

		t := 0.0
		if l2 > 0 {
			t = ((x-x1)*vx + (y-y1)*vy) / l2
			t = math.Max(0, math.Min(1, t))
		}
		px, py := x1+t*vx, y1+t*vy
		d := math.Hypot(x-px, y-py)

		if d < limit && d < best.Distance {
			best = PointOnLine{
				X:        px,
				Y:        py,
				Distance: d,
				Along:    walked + t*l,
				Right:    cross(x1, y1, s.X[i+1], s.Y[i+1], x, y) <= 0,
				Angle:    NorthBasedAngle(vx, vy),
				Segment:  i,
			}
		}
		walked += l

		return true
	})

	return best, best.Segment >= 0
}
