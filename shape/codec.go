package shape

import (
	"fmt"

	"github.com/arloliu/geoshape/endian"
	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
)

// Record content layout (offsets relative to the content start, after the 8 byte record header):
//
//	0      shape type                  int32
//	point:       4 x, 12 y, [z], [m]
//	multipoint:  4 bbox(32), 36 nPoints, 40 xy pairs, [zmin zmax z...], [mmin mmax m...]
//	poly:        4 bbox(32), 36 nParts, 40 nPoints, 44 part starts, [part types],
//	             xy pairs, [zmin zmax z...], [mmin mmax m...]
//
// Everything in the content is little-endian.
const (
	offType    = 0
	offBBox    = 4
	offCount   = 36
	offPoints  = 40
	offParts   = 44
	pointSize  = 16
	rangeSize  = 16
	scalarSize = 8

	maxDecodeParts    = 10_000_000
	maxDecodeVertices = 50_000_000
)

var le = endian.GetLittleEndianEngine()

// EncodedSize returns the content length in bytes of the record Encode produces for s.
func EncodedSize(s *Shape) int {
	n := len(s.X)

	switch {
	case s.Type == format.ShapeNull:
		return 4
	case s.Type.IsPoint():
		size := 4 + pointSize
		if s.Type.HasZ() {
			size += scalarSize
		}
		if s.Type.HasM() {
			size += scalarSize
		}

		return size
	case s.Type.IsMultiPoint():
		return offPoints + pointSize*n + measureBlocks(s.Type, n)
	case s.Type.HasParts():
		np := max(1, len(s.Parts))
		size := offParts + 4*np + pointSize*n
		if s.Type == format.ShapeMultiPatch {
			size += 4 * np
		}

		return size + measureBlocks(s.Type, n)
	default:
		return 4
	}
}

func measureBlocks(t format.ShapeType, n int) int {
	size := 0
	if t.HasZ() {
		size += rangeSize + scalarSize*n
	}
	if t.HasM() {
		size += rangeSize + scalarSize*n
	}

	return size
}

// Encode appends the record content of s to dst and returns the extended slice.
//
// The stored bounding box comes from s.Bounds; call ComputeExtents first if the
// coordinates were modified after construction.
//
// Parameters:
//   - dst: Destination buffer (may be nil)
//   - s: Shape to encode
//
// Returns:
//   - []byte: dst with the encoded content appended
//   - error: ErrUnsupportedShapeType for unknown types, ErrInvalidArgument for mismatched arrays
func Encode(dst []byte, s *Shape) ([]byte, error) {
	if !s.Type.IsValid() {
		return dst, fmt.Errorf("%w: %d", errs.ErrUnsupportedShapeType, int32(s.Type))
	}
	if len(s.Y) != len(s.X) {
		return dst, fmt.Errorf("%w: %d x values but %d y values", errs.ErrInvalidArgument, len(s.X), len(s.Y))
	}

	dst = endian.AppendInt32(le, dst, int32(s.Type))

	switch {
	case s.Type == format.ShapeNull:
		return dst, nil

	case s.Type.IsPoint():
		x, y := 0.0, 0.0
		if len(s.X) > 0 {
			x, y = s.X[0], s.Y[0]
		}
		dst = endian.AppendFloat64(le, dst, x)
		dst = endian.AppendFloat64(le, dst, y)
		if s.Type.HasZ() {
			dst = endian.AppendFloat64(le, dst, s.ZAt(0))
		}
		if s.Type.HasM() {
			dst = endian.AppendFloat64(le, dst, s.MAt(0))
		}

		return dst, nil

	case s.Type.IsMultiPoint():
		dst = appendBBox(dst, s.Bounds)
		dst = endian.AppendInt32(le, dst, int32(len(s.X))) //nolint: gosec
		dst = appendVertices(dst, s)

		return appendMeasures(dst, s), nil

	default:
		parts := s.Parts
		if len(parts) == 0 {
			parts = []Part{{Start: 0, Type: format.PartRing}}
		}

		dst = appendBBox(dst, s.Bounds)
		dst = endian.AppendInt32(le, dst, int32(len(parts))) //nolint: gosec
		dst = endian.AppendInt32(le, dst, int32(len(s.X)))   //nolint: gosec
		for _, p := range parts {
			dst = endian.AppendInt32(le, dst, int32(p.Start)) //nolint: gosec
		}
		if s.Type == format.ShapeMultiPatch {
			for _, p := range parts {
				dst = endian.AppendInt32(le, dst, int32(p.Type))
			}
		}
		dst = appendVertices(dst, s)

		return appendMeasures(dst, s), nil
	}
}

func appendBBox(dst []byte, b Bounds) []byte {
	dst = endian.AppendFloat64(le, dst, b.Min[0])
	dst = endian.AppendFloat64(le, dst, b.Min[1])
	dst = endian.AppendFloat64(le, dst, b.Max[0])

	return endian.AppendFloat64(le, dst, b.Max[1])
}

func appendVertices(dst []byte, s *Shape) []byte {
	for i := range s.X {
		dst = endian.AppendFloat64(le, dst, s.X[i])
		dst = endian.AppendFloat64(le, dst, s.Y[i])
	}

	return dst
}

func appendMeasures(dst []byte, s *Shape) []byte {
	if s.Type.HasZ() {
		dst = endian.AppendFloat64(le, dst, s.Bounds.Min[2])
		dst = endian.AppendFloat64(le, dst, s.Bounds.Max[2])
		for i := range s.X {
			dst = endian.AppendFloat64(le, dst, s.ZAt(i))
		}
	}
	if s.Type.HasM() {
		dst = endian.AppendFloat64(le, dst, s.Bounds.Min[3])
		dst = endian.AppendFloat64(le, dst, s.Bounds.Max[3])
		for i := range s.X {
			dst = endian.AppendFloat64(le, dst, s.MAt(i))
		}
	}

	return dst
}

// RecordType returns the shape type stored at the start of a record content.
func RecordType(content []byte) (format.ShapeType, error) {
	if len(content) < 4 {
		return format.ShapeNull, fmt.Errorf("%w: %d byte record", errs.ErrTruncatedRecord, len(content))
	}

	return format.ShapeType(endian.Int32(le, content[offType:offType+4])), nil
}

// Decode decodes one record content into a Shape with the given id.
//
// Short or inconsistent input returns ErrTruncatedRecord; Decode never reads past content.
// A measure block that the writer omitted leaves M zero-filled.
func Decode(content []byte, id int) (*Shape, error) {
	t, err := RecordType(content)
	if err != nil {
		return nil, err
	}
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %d in record %d", errs.ErrUnsupportedShapeType, int32(t), id)
	}

	switch {
	case t == format.ShapeNull:
		return NewNull(id), nil
	case t.IsPoint():
		return decodePoint(content, t, id)
	case t.IsMultiPoint():
		return decodeMultiPoint(content, t, id)
	default:
		return decodePoly(content, t, id)
	}
}

func decodePoint(content []byte, t format.ShapeType, id int) (*Shape, error) {
	if len(content) < 4+pointSize {
		return nil, truncated(id, len(content), 4+pointSize)
	}

	s := &Shape{
		Type: t,
		ID:   id,
		X:    []float64{endian.Float64(le, content[4:12])},
		Y:    []float64{endian.Float64(le, content[12:20])},
	}

	off := 4 + pointSize
	if t.HasZ() {
		s.Z = []float64{0}
		if len(content) >= off+scalarSize {
			s.Z[0] = endian.Float64(le, content[off:off+scalarSize])
			off += scalarSize
		}
	}
	if t.HasM() {
		s.M = []float64{0}
		if len(content) >= off+scalarSize {
			s.M[0] = endian.Float64(le, content[off:off+scalarSize])
		}
	}
	s.ComputeExtents()

	return s, nil
}

func decodeMultiPoint(content []byte, t format.ShapeType, id int) (*Shape, error) {
	if len(content) < offPoints {
		return nil, truncated(id, len(content), offPoints)
	}

	n := int(endian.Int32(le, content[offCount:offCount+4]))
	if n < 0 || n > maxDecodeVertices {
		return nil, fmt.Errorf("%w: record %d claims %d vertices", errs.ErrTruncatedRecord, id, n)
	}

	need := offPoints + pointSize*n
	if len(content) < need {
		return nil, truncated(id, len(content), need)
	}

	s := &Shape{Type: t, ID: id}
	s.Bounds = readBBox(content)
	readVertices(s, content[offPoints:], n)
	readMeasures(s, content, need, n)

	return s, nil
}

func decodePoly(content []byte, t format.ShapeType, id int) (*Shape, error) {
	if len(content) < offParts {
		return nil, truncated(id, len(content), offParts)
	}

	np := int(endian.Int32(le, content[offCount:offCount+4]))
	n := int(endian.Int32(le, content[offPoints:offPoints+4]))
	if np < 0 || np > maxDecodeParts || n < 0 || n > maxDecodeVertices {
		return nil, fmt.Errorf("%w: record %d claims %d parts and %d vertices", errs.ErrTruncatedRecord, id, np, n)
	}

	off := offParts + 4*np
	if t == format.ShapeMultiPatch {
		off += 4 * np
	}

	need := off + pointSize*n
	if len(content) < need {
		return nil, truncated(id, len(content), need)
	}

	s := &Shape{Type: t, ID: id, Parts: make([]Part, np)}
	for i := range np {
		p := offParts + 4*i
		start := int(endian.Int32(le, content[p:p+4]))
		if start < 0 || start > n {
			return nil, fmt.Errorf("%w: record %d part %d starts at %d of %d vertices",
				errs.ErrTruncatedRecord, id, i, start, n)
		}
		s.Parts[i] = Part{Start: start, Type: format.PartRing}
	}
	if t == format.ShapeMultiPatch {
		base := offParts + 4*np
		for i := range np {
			p := base + 4*i
			s.Parts[i].Type = format.PartType(endian.Int32(le, content[p:p+4]))
		}
	}

	s.Bounds = readBBox(content)
	readVertices(s, content[off:], n)
	readMeasures(s, content, need, n)

	return s, nil
}

func readBBox(content []byte) Bounds {
	var b Bounds
	b.Min[0] = endian.Float64(le, content[offBBox:offBBox+8])
	b.Min[1] = endian.Float64(le, content[offBBox+8:offBBox+16])
	b.Max[0] = endian.Float64(le, content[offBBox+16:offBBox+24])
	b.Max[1] = endian.Float64(le, content[offBBox+24:offBBox+32])

	return b
}

func readVertices(s *Shape, data []byte, n int) {
	s.X = make([]float64, n)
	s.Y = make([]float64, n)
	for i := range n {
		p := i * pointSize
		s.X[i] = endian.Float64(le, data[p:p+8])
		s.Y[i] = endian.Float64(le, data[p+8:p+16])
	}
}

// readMeasures fills Z and M from the blocks that follow the vertices at off.
// A block is read only when the record is long enough to hold all of it.
func readMeasures(s *Shape, content []byte, off, n int) {
	block := rangeSize + scalarSize*n

	if s.Type.HasZ() {
		s.Z = make([]float64, n)
		if len(content) >= off+block {
			s.Bounds.Min[2] = endian.Float64(le, content[off:off+8])
			s.Bounds.Max[2] = endian.Float64(le, content[off+8:off+16])
			for i := range n {
				p := off + rangeSize + scalarSize*i
				s.Z[i] = endian.Float64(le, content[p:p+8])
			}
			off += block
		}
	}

	if s.Type.HasM() {
		s.M = make([]float64, n)
		if len(content) >= off+block {
			s.Bounds.Min[3] = endian.Float64(le, content[off:off+8])
			s.Bounds.Max[3] = endian.Float64(le, content[off+8:off+16])
			for i := range n {
				p := off + rangeSize + scalarSize*i
				s.M[i] = endian.Float64(le, content[p:p+8])
			}
		}
	}
}

// DecodeBounds reads only the bounding box of a record content. Point records return the
// point itself; NULL records return zero bounds.
func DecodeBounds(content []byte) (Bounds, error) {
	t, err := RecordType(content)
	if err != nil {
		return Bounds{}, err
	}

	switch {
	case t == format.ShapeNull:
		return Bounds{}, nil
	case t.IsPoint():
		s, err := decodePoint(content, t, -1)
		if err != nil {
			return Bounds{}, err
		}

		return s.Bounds, nil
	case t.IsMultiPoint() || t.HasParts():
		if len(content) < offCount {
			return Bounds{}, truncated(-1, len(content), offCount)
		}

		return readBBox(content), nil
	default:
		return Bounds{}, fmt.Errorf("%w: %d", errs.ErrUnsupportedShapeType, int32(t))
	}
}

func truncated(id, got, want int) error {
	return fmt.Errorf("%w: record %d has %d bytes, need %d", errs.ErrTruncatedRecord, id, got, want)
}
