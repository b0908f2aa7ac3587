package format

type (
	ShapeType       int32
	PartType        int32
	FieldType       uint8
	GeometryKind    uint8
	CompressionType uint8
)

const (
	ShapeNull        ShapeType = 0  // ShapeNull represents a record without geometry.
	ShapePoint       ShapeType = 1  // ShapePoint represents a single XY vertex.
	ShapePolyLine    ShapeType = 3  // ShapePolyLine represents one or more XY line parts.
	ShapePolygon     ShapeType = 5  // ShapePolygon represents one or more XY rings.
	ShapeMultiPoint  ShapeType = 8  // ShapeMultiPoint represents a set of XY vertices.
	ShapePointZ      ShapeType = 11 // ShapePointZ represents a single XYZM vertex.
	ShapePolyLineZ   ShapeType = 13 // ShapePolyLineZ represents XYZM line parts.
	ShapePolygonZ    ShapeType = 15 // ShapePolygonZ represents XYZM rings.
	ShapeMultiPointZ ShapeType = 18 // ShapeMultiPointZ represents a set of XYZM vertices.
	ShapePointM      ShapeType = 21 // ShapePointM represents a single XYM vertex.
	ShapePolyLineM   ShapeType = 23 // ShapePolyLineM represents XYM line parts.
	ShapePolygonM    ShapeType = 25 // ShapePolygonM represents XYM rings.
	ShapeMultiPointM ShapeType = 28 // ShapeMultiPointM represents a set of XYM vertices.
	ShapeMultiPatch  ShapeType = 31 // ShapeMultiPatch represents XYZM surface patches.
)

const (
	PartTriangleStrip PartType = 0 // PartTriangleStrip is a linked strip of triangles.
	PartTriangleFan   PartType = 1 // PartTriangleFan is a fan of triangles around the first vertex.
	PartOuterRing     PartType = 2 // PartOuterRing is the outer ring of a polygon.
	PartInnerRing     PartType = 3 // PartInnerRing is a hole of a polygon.
	PartFirstRing     PartType = 4 // PartFirstRing is the first ring of a polygon of unknown type.
	PartRing          PartType = 5 // PartRing is a ring of unknown type; the default for every non-patch shape.
)

const (
	FieldString  FieldType = 0x1 // FieldString is a space padded character field.
	FieldInteger FieldType = 0x2 // FieldInteger is a numeric field without decimals.
	FieldDouble  FieldType = 0x3 // FieldDouble is a numeric field with decimals.
	FieldInvalid FieldType = 0x4 // FieldInvalid marks an unknown field index.
)

const (
	KindUnknown  GeometryKind = 0x0
	KindPoint    GeometryKind = 0x1
	KindPolyline GeometryKind = 0x2
	KindPolygon  GeometryKind = 0x3
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

// IsValid reports whether t is one of the shape type codes defined by the format.
func (t ShapeType) IsValid() bool {
	switch t {
	case ShapeNull, ShapePoint, ShapePolyLine, ShapePolygon, ShapeMultiPoint,
		ShapePointZ, ShapePolyLineZ, ShapePolygonZ, ShapeMultiPointZ,
		ShapePointM, ShapePolyLineM, ShapePolygonM, ShapeMultiPointM,
		ShapeMultiPatch:
		return true
	default:
		return false
	}
}

// HasZ reports whether records of this type carry a Z block.
func (t ShapeType) HasZ() bool {
	switch t {
	case ShapePointZ, ShapePolyLineZ, ShapePolygonZ, ShapeMultiPointZ, ShapeMultiPatch:
		return true
	default:
		return false
	}
}

// HasM reports whether records of this type carry an M block.
// Z types carry measures as well.
func (t ShapeType) HasM() bool {
	switch t {
	case ShapePointM, ShapePolyLineM, ShapePolygonM, ShapeMultiPointM,
		ShapePointZ, ShapePolyLineZ, ShapePolygonZ, ShapeMultiPointZ, ShapeMultiPatch:
		return true
	default:
		return false
	}
}

// IsPoint reports whether t is a single vertex type.
func (t ShapeType) IsPoint() bool {
	return t == ShapePoint || t == ShapePointZ || t == ShapePointM
}

// IsMultiPoint reports whether t is a vertex set type.
func (t ShapeType) IsMultiPoint() bool {
	return t == ShapeMultiPoint || t == ShapeMultiPointZ || t == ShapeMultiPointM
}

// IsPolyLine reports whether t is a line type.
func (t ShapeType) IsPolyLine() bool {
	return t == ShapePolyLine || t == ShapePolyLineZ || t == ShapePolyLineM
}

// IsPolygon reports whether t is a polygon type.
func (t ShapeType) IsPolygon() bool {
	return t == ShapePolygon || t == ShapePolygonZ || t == ShapePolygonM
}

// HasParts reports whether records of this type carry a part table.
func (t ShapeType) HasParts() bool {
	return t.IsPolyLine() || t.IsPolygon() || t == ShapeMultiPatch
}

// Kind maps the shape type onto the coarse geometry kind used by callers.
func (t ShapeType) Kind() GeometryKind {
	switch {
	case t.IsPoint():
		return KindPoint
	case t.IsPolyLine():
		return KindPolyline
	case t.IsPolygon():
		return KindPolygon
	default:
		return KindUnknown
	}
}

func (t ShapeType) String() string {
	switch t {
	case ShapeNull:
		return "Null"
	case ShapePoint:
		return "Point"
	case ShapePolyLine:
		return "PolyLine"
	case ShapePolygon:
		return "Polygon"
	case ShapeMultiPoint:
		return "MultiPoint"
	case ShapePointZ:
		return "PointZ"
	case ShapePolyLineZ:
		return "PolyLineZ"
	case ShapePolygonZ:
		return "PolygonZ"
	case ShapeMultiPointZ:
		return "MultiPointZ"
	case ShapePointM:
		return "PointM"
	case ShapePolyLineM:
		return "PolyLineM"
	case ShapePolygonM:
		return "PolygonM"
	case ShapeMultiPointM:
		return "MultiPointM"
	case ShapeMultiPatch:
		return "MultiPatch"
	default:
		return "Unknown"
	}
}

func (p PartType) String() string {
	switch p {
	case PartTriangleStrip:
		return "TriangleStrip"
	case PartTriangleFan:
		return "TriangleFan"
	case PartOuterRing:
		return "OuterRing"
	case PartInnerRing:
		return "InnerRing"
	case PartFirstRing:
		return "FirstRing"
	case PartRing:
		return "Ring"
	default:
		return "Unknown"
	}
}

func (f FieldType) String() string {
	switch f {
	case FieldString:
		return "String"
	case FieldInteger:
		return "Integer"
	case FieldDouble:
		return "Double"
	default:
		return "Invalid"
	}
}

func (k GeometryKind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindPolyline:
		return "Polyline"
	case KindPolygon:
		return "Polygon"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
