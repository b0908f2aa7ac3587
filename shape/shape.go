// Package shape holds the in-memory geometry of one shapefile record and its binary codec.
//
// A Shape stores its vertices as parallel coordinate slices. Z is only present for the Z
// shape types and MultiPatch, M only for the M and Z shape types; readers that need a
// value regardless use ZAt and MAt.
package shape

import (
	"fmt"
	"math"
	"slices"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
)

// Part marks where a ring or line starts within the vertex arrays.
type Part struct {
	Start int
	Type  format.PartType
}

// Shape is one decoded record.
type Shape struct {
	Type format.ShapeType
	// ID is the zero-based record ordinal, or -1 for a shape that was never stored.
	ID     int
	X      []float64
	Y      []float64
	Z      []float64
	M      []float64
	Parts  []Part
	Bounds Bounds
}

// New creates a shape and computes its extents.
//
// Polyline, polygon and multipatch shapes always get at least one part starting at vertex 0.
// A nil partTypes slice means every part is a ring. z and m may be nil; they are
// copied only when the type carries the dimension and zero-filled otherwise.
//
// Parameters:
//   - shapeType: Geometry type of the record
//   - id: Record ordinal, -1 when not yet stored
//   - starts: First vertex of each part
//   - partTypes: Part types, parallel to starts (optional)
//   - x, y: Planar coordinates, same length
//   - z, m: Optional measure arrays, at least as long as x when given
//
// Returns:
//   - *Shape: The new shape
//   - error: ErrUnsupportedShapeType or ErrInvalidArgument on malformed input
func New(shapeType format.ShapeType, id int, starts []int, partTypes []format.PartType,
	x, y, z, m []float64,
) (*Shape, error) {
	if !shapeType.IsValid() {
		return nil, fmt.Errorf("%w: %d", errs.ErrUnsupportedShapeType, int32(shapeType))
	}

	n := len(x)
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d x values but %d y values", errs.ErrInvalidArgument, n, len(y))
	}
	if z != nil && len(z) < n {
		return nil, fmt.Errorf("%w: z has %d values, need %d", errs.ErrInvalidArgument, len(z), n)
	}
	if m != nil && len(m) < n {
		return nil, fmt.Errorf("%w: m has %d values, need %d", errs.ErrInvalidArgument, len(m), n)
	}
	if partTypes != nil && len(partTypes) < len(starts) {
		return nil, fmt.Errorf("%w: %d part types for %d parts", errs.ErrInvalidArgument, len(partTypes), len(starts))
	}

	s := &Shape{
		Type: shapeType,
		ID:   id,
		X:    slices.Clone(x),
		Y:    slices.Clone(y),
	}
	if s.X == nil {
		s.X = []float64{}
		s.Y = []float64{}
	}

	if shapeType.HasZ() {
		s.Z = make([]float64, n)
		if z != nil {
			copy(s.Z, z[:n])
		}
	}
	if shapeType.HasM() {
		s.M = make([]float64, n)
		if m != nil {
			copy(s.M, m[:n])
		}
	}

	if shapeType.HasParts() {
		count := max(1, len(starts))
		s.Parts = make([]Part, count)
		s.Parts[0] = Part{Start: 0, Type: format.PartRing}
		for i, start := range starts {
			if start < 0 || start > n {
				return nil, fmt.Errorf("%w: part %d starts at %d of %d vertices", errs.ErrInvalidArgument, i, start, n)
			}
			if i > 0 && start < starts[i-1] {
				return nil, fmt.Errorf("%w: part starts are not ascending", errs.ErrInvalidArgument)
			}
			pt := format.PartRing
			if partTypes != nil {
				pt = partTypes[i]
			}
			s.Parts[i] = Part{Start: start, Type: pt}
		}
	}

	s.ComputeExtents()

	return s, nil
}

// NewSimple creates a shape without parts, the usual form for points and multipoints.
func NewSimple(shapeType format.ShapeType, id int, x, y, z, m []float64) (*Shape, error) {
	return New(shapeType, id, nil, nil, x, y, z, m)
}

// NewNull creates an empty NULL record.
func NewNull(id int) *Shape {
	return &Shape{Type: format.ShapeNull, ID: id, X: []float64{}, Y: []float64{}}
}

// Clone returns a deep copy.
func (s *Shape) Clone() *Shape {
	if s == nil {
		return nil
	}

	c := *s
	c.X = slices.Clone(s.X)
	c.Y = slices.Clone(s.Y)
	c.Z = slices.Clone(s.Z)
	c.M = slices.Clone(s.M)
	c.Parts = slices.Clone(s.Parts)

	return &c
}

// VertexCount returns the number of vertices.
func (s *Shape) VertexCount() int {
	return len(s.X)
}

// PartCount returns the number of parts. Shapes without a parts table count as one part
// when they hold vertices.
func (s *Shape) PartCount() int {
	if len(s.Parts) > 0 {
		return len(s.Parts)
	}
	if len(s.X) > 0 {
		return 1
	}

	return 0
}

// PartRange returns the half-open vertex range [start, end) of part i.
func (s *Shape) PartRange(i int) (int, int, error) {
	if len(s.Parts) == 0 {
		if i == 0 && len(s.X) > 0 {
			return 0, len(s.X), nil
		}

		return 0, 0, fmt.Errorf("%w: part %d of %d", errs.ErrInvalidArgument, i, s.PartCount())
	}
	if i < 0 || i >= len(s.Parts) {
		return 0, 0, fmt.Errorf("%w: part %d of %d", errs.ErrInvalidArgument, i, len(s.Parts))
	}

	start := s.Parts[i].Start
	end := len(s.X)
	if i+1 < len(s.Parts) {
		end = s.Parts[i+1].Start
	}

	return start, end, nil
}

// ZAt returns the z value of vertex i, or 0 when the shape has no z dimension.
func (s *Shape) ZAt(i int) float64 {
	if i < len(s.Z) {
		return s.Z[i]
	}

	return 0
}

// MAt returns the measure of vertex i, or 0 when the shape has no measures.
func (s *Shape) MAt(i int) float64 {
	if i < len(s.M) {
		return s.M[i]
	}

	return 0
}

// ComputeExtents recomputes Bounds from the vertices. A shape without vertices gets zero bounds.
// Mutating the coordinate slices does not update Bounds; call this afterwards.
func (s *Shape) ComputeExtents() {
	s.Bounds = Bounds{}
	if len(s.X) == 0 {
		return
	}

	b := EmptyBounds()
	for i := range s.X {
		b.Min[0] = math.Min(b.Min[0], s.X[i])
		b.Max[0] = math.Max(b.Max[0], s.X[i])
		b.Min[1] = math.Min(b.Min[1], s.Y[i])
		b.Max[1] = math.Max(b.Max[1], s.Y[i])
		b.Min[2] = math.Min(b.Min[2], s.ZAt(i))
		b.Max[2] = math.Max(b.Max[2], s.ZAt(i))
		b.Min[3] = math.Min(b.Min[3], s.MAt(i))
		b.Max[3] = math.Max(b.Max[3], s.MAt(i))
	}
	s.Bounds = b
}

// String returns a short description for logs.
func (s *Shape) String() string {
	return fmt.Sprintf("%s#%d(%d parts, %d vertices)", s.Type, s.ID, s.PartCount(), s.VertexCount())
}
