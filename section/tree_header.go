package section

import (
	"github.com/arloliu/geoshape/endian"
	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
)

// TreeHeader is the 32 byte header of a .idx quadtree file.
//
// Layout:
//
//	0-1    options: bits 4-15 magic, bit 1 endianness (always little-endian)
//	2      dimension count
//	3      payload compression
//	4-7    node count
//	8-11   shape count
//	12-15  max depth
//	16-23  xxHash64 of the uncompressed payload
//	24-27  uncompressed payload length
//	28-31  stored payload length
//
// Fields after the options use the byte order selected by the endianness bit.
type TreeHeader struct {
	Options      uint16
	Dimensions   uint8
	Compression  format.CompressionType
	NodeCount    uint32
	ShapeCount   uint32
	MaxDepth     uint32
	Checksum     uint64
	RawLength    uint32
	StoredLength uint32
}

// NewTreeHeader creates a little-endian header without compression.
func NewTreeHeader(dimensions int) *TreeHeader {
	return &TreeHeader{
		Options:     MagicTreeV1Opt,
		Dimensions:  uint8(dimensions),
		Compression: format.CompressionNone,
	}
}

// IsLittleEndian returns whether the payload is little-endian.
func (h *TreeHeader) IsLittleEndian() bool {
	return (h.Options & EndiannessMask) == 0
}

// WithLittleEndian sets little-endian byte order.
func (h *TreeHeader) WithLittleEndian() {
	h.Options &^= EndiannessMask
}

// WithBigEndian sets big-endian byte order.
func (h *TreeHeader) WithBigEndian() {
	h.Options |= EndiannessMask
}

// GetEndianEngine returns the engine matching the endianness bit.
func (h *TreeHeader) GetEndianEngine() endian.EndianEngine {
	if h.IsLittleEndian() {
		return endian.GetLittleEndianEngine()
	}

	return endian.GetBigEndianEngine()
}

// IsValidMagicNumber checks if the magic number is valid.
func (h *TreeHeader) IsValidMagicNumber() bool {
	return h.Options&MagicNumberMask == MagicTreeV1Opt
}

// Validate checks if the header contains valid values.
func (h *TreeHeader) Validate() error {
	if !h.IsValidMagicNumber() {
		return errs.ErrInvalidMagicNumber
	}

	if h.Dimensions < 2 || h.Dimensions > 4 {
		return errs.ErrInvalidTreeFile
	}

	switch h.Compression {
	case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
	default:
		return errs.ErrInvalidTreeFile
	}

	return nil
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing header (must be exactly 32 bytes)
//
// Returns:
//   - error: ErrInvalidHeaderSize, ErrInvalidMagicNumber or ErrInvalidTreeFile
func (h *TreeHeader) Parse(data []byte) error {
	if len(data) != TreeHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	// The options field is always little-endian so the endianness bit can be read first.
	h.Options = uint16(data[0]) | (uint16(data[1]) << 8)
	h.Dimensions = data[2]
	h.Compression = format.CompressionType(data[3])

	engine := h.GetEndianEngine()
	h.NodeCount = engine.Uint32(data[4:8])
	h.ShapeCount = engine.Uint32(data[8:12])
	h.MaxDepth = engine.Uint32(data[12:16])
	h.Checksum = engine.Uint64(data[16:24])
	h.RawLength = engine.Uint32(data[24:28])
	h.StoredLength = engine.Uint32(data[28:32])

	return h.Validate()
}

// Bytes serializes the TreeHeader into a 32 byte slice.
func (h *TreeHeader) Bytes() []byte {
	b := make([]byte, TreeHeaderSize)

	b[0] = byte(h.Options)
	b[1] = byte(h.Options >> 8)
	b[2] = h.Dimensions
	b[3] = byte(h.Compression)

	engine := h.GetEndianEngine()
	engine.PutUint32(b[4:8], h.NodeCount)
	engine.PutUint32(b[8:12], h.ShapeCount)
	engine.PutUint32(b[12:16], h.MaxDepth)
	engine.PutUint64(b[16:24], h.Checksum)
	engine.PutUint32(b[24:28], h.RawLength)
	engine.PutUint32(b[28:32], h.StoredLength)

	return b
}

// HasMagic reports whether data starts with the .idx magic number.
// Headerless legacy files start with a double and are expected to fail this check.
func HasMagic(data []byte) bool {
	if len(data) < 2 {
		return false
	}

	opts := uint16(data[0]) | (uint16(data[1]) << 8)

	return opts&MagicNumberMask == MagicTreeV1Opt
}
