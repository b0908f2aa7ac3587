package shape

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
)

func (s *Shape) layout() geom.Layout {
	switch {
	case s.Type.HasZ():
		return geom.XYZM
	case s.Type.HasM():
		return geom.XYM
	default:
		return geom.XY
	}
}

func (s *Shape) flatCoords(layout geom.Layout) []float64 {
	stride := layout.Stride()
	flat := make([]float64, 0, stride*len(s.X))
	for i := range s.X {
		flat = append(flat, s.X[i], s.Y[i])
		if layout.ZIndex() >= 0 {
			flat = append(flat, s.ZAt(i))
		}
		if layout.MIndex() >= 0 {
			flat = append(flat, s.MAt(i))
		}
	}

	return flat
}

func (s *Shape) flatEnds(stride int) []int {
	ends := make([]int, 0, s.PartCount())
	for i := range s.PartCount() {
		_, end, err := s.PartRange(i)
		if err != nil {
			break
		}
		ends = append(ends, end*stride)
	}

	return ends
}

// ToGeom converts the shape into a go-geom geometry. Z types map to XYZM, M types to XYM.
// Polygons become multipolygons: every clockwise ring after the first starts a new polygon
// and counter-clockwise rings are holes of the preceding polygon. NULL shapes become an
// empty geometry collection.
func (s *Shape) ToGeom() (geom.T, error) {
	layout := s.layout()
	stride := layout.Stride()

	switch {
	case s.Type == format.ShapeNull:
		return geom.NewGeometryCollection(), nil
	case s.Type.IsPoint():
		if len(s.X) == 0 {
			return geom.NewPointEmpty(layout), nil
		}

		return geom.NewPointFlat(layout, s.flatCoords(layout)[:stride]), nil
	case s.Type.IsMultiPoint():
		return geom.NewMultiPointFlat(layout, s.flatCoords(layout)), nil
	case s.Type.IsPolyLine():
		return geom.NewMultiLineStringFlat(layout, s.flatCoords(layout), s.flatEnds(stride)), nil
	case s.Type.IsPolygon() || s.Type == format.ShapeMultiPatch:
		flat := s.flatCoords(layout)
		ends := s.flatEnds(stride)

		return geom.NewMultiPolygonFlat(layout, flat, polygonEndss(flat, ends, stride)), nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedShapeType, s.Type)
	}
}

// polygonEndss groups ring ends into polygons by orientation.
func polygonEndss(flat []float64, ends []int, stride int) [][]int {
	var endss [][]int

	first, offset := 0, 0
	for i, end := range ends {
		if i != 0 && doubleArea(flat, offset, end, stride) < 0 {
			endss = append(endss, ends[first:i])
			first = i
		}
		offset = end
	}
	if len(ends) > 0 {
		endss = append(endss, ends[first:])
	}

	return endss
}

// doubleArea is twice the signed ring area, negative for clockwise rings.
func doubleArea(flat []float64, offset, end, stride int) float64 {
	var area float64
	for i := offset + stride; i < end; i += stride {
		area += (flat[i+1] - flat[i+1-stride]) * (flat[i] + flat[i-stride])
	}

	return area
}

// WKT returns the well-known text form of the shape.
func (s *Shape) WKT() (string, error) {
	g, err := s.ToGeom()
	if err != nil {
		return "", err
	}

	return wkt.Marshal(g)
}

// FromGeom builds a shape from a go-geom geometry.
//
// Points, multipoints, line strings, polygons and their multi forms are supported. An XYZ or
// XYZM layout yields a Z shape type, XYM an M shape type.
//
// Parameters:
//   - g: Source geometry
//   - id: Record id of the result, -1 for a new shape
//
// Returns:
//   - *Shape: The converted shape with computed extents
//   - error: ErrUnsupportedShapeType for other geometry kinds
func FromGeom(g geom.T, id int) (*Shape, error) {
	var (
		base   format.ShapeType
		starts []int
	)

	stride := g.Stride()
	switch t := g.(type) {
	case *geom.Point:
		base = format.ShapePoint
	case *geom.MultiPoint:
		base = format.ShapeMultiPoint
	case *geom.LineString:
		base = format.ShapePolyLine
		starts = []int{0}
	case *geom.MultiLineString:
		base = format.ShapePolyLine
		starts = startsFromEnds(t.Ends(), stride)
	case *geom.Polygon:
		base = format.ShapePolygon
		starts = startsFromEnds(t.Ends(), stride)
	case *geom.MultiPolygon:
		base = format.ShapePolygon
		var ends []int
		for _, polygon := range t.Endss() {
			ends = append(ends, polygon...)
		}
		starts = startsFromEnds(ends, stride)
	default:
		return nil, fmt.Errorf("%w: %T", errs.ErrUnsupportedShapeType, g)
	}

	layout := g.Layout()
	flat := g.FlatCoords()
	n := 0
	if stride > 0 {
		n = len(flat) / stride
	}

	x := make([]float64, n)
	y := make([]float64, n)
	var z, m []float64
	zi, mi := layout.ZIndex(), layout.MIndex()
	if zi >= 0 {
		z = make([]float64, n)
	}
	if mi >= 0 {
		m = make([]float64, n)
	}
	for i := range n {
		p := i * stride
		x[i], y[i] = flat[p], flat[p+1]
		if zi >= 0 {
			z[i] = flat[p+zi]
		}
		if mi >= 0 {
			m[i] = flat[p+mi]
		}
	}

	shapeType := withLayout(base, layout)
	if len(starts) == 0 {
		starts = nil
	}

	return New(shapeType, id, starts, nil, x, y, z, m)
}

// startsFromEnds turns flat coordinate end offsets into vertex start indexes.
func startsFromEnds(ends []int, stride int) []int {
	starts := make([]int, 0, len(ends))
	prev := 0
	for _, end := range ends {
		starts = append(starts, prev/stride)
		prev = end
	}

	return starts
}

func withLayout(base format.ShapeType, layout geom.Layout) format.ShapeType {
	switch layout {
	case geom.XYZ, geom.XYZM:
		return base + 10
	case geom.XYM:
		return base + 20
	default:
		return base
	}
}
