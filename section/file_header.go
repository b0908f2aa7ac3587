package section

import (
	"github.com/arloliu/geoshape/endian"
	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
)

// FileHeader is the 100 byte header shared by .shp and .shx files.
//
// Layout:
//
//	0-3    file code 9994        big-endian
//	4-23   unused
//	24-27  file length (words)   big-endian
//	28-31  version 1000          little-endian
//	32-35  shape type            little-endian
//	36-99  xmin ymin xmax ymax zmin zmax mmin mmax, little-endian doubles
type FileHeader struct {
	// FileLength is the total file length in 16-bit words, header included.
	FileLength int32
	// Version is always FileVersion for files written by this package.
	Version int32
	// ShapeType is the single geometry type every non-null record must carry.
	ShapeType format.ShapeType
	// BoundsMin holds the x, y, z, m minimums.
	BoundsMin [4]float64
	// BoundsMax holds the x, y, z, m maximums.
	BoundsMax [4]float64
}

// NewFileHeader creates the header of an empty file of the given type.
func NewFileHeader(shapeType format.ShapeType) *FileHeader {
	return &FileHeader{
		FileLength: FileHeaderSize / 2,
		Version:    FileVersion,
		ShapeType:  shapeType,
	}
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing the header (must be exactly 100 bytes)
//
// Returns:
//   - error: ErrInvalidHeaderSize if data is not 100 bytes, ErrInvalidMagicNumber if the file code is wrong
func (h *FileHeader) Parse(data []byte) error {
	if len(data) != FileHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	// Some writers emit 0x0d instead of 0x0a as the last file code byte.
	if data[2] != 0x27 || (data[3] != 0x0a && data[3] != 0x0d) {
		return errs.ErrInvalidMagicNumber
	}

	be := endian.GetBigEndianEngine()
	le := endian.GetLittleEndianEngine()

	h.FileLength = endian.Int32(be, data[24:28])
	h.Version = endian.Int32(le, data[28:32])
	h.ShapeType = format.ShapeType(endian.Int32(le, data[32:36]))

	h.BoundsMin[0] = endian.Float64(le, data[36:44])
	h.BoundsMin[1] = endian.Float64(le, data[44:52])
	h.BoundsMax[0] = endian.Float64(le, data[52:60])
	h.BoundsMax[1] = endian.Float64(le, data[60:68])
	h.BoundsMin[2] = endian.Float64(le, data[68:76])
	h.BoundsMax[2] = endian.Float64(le, data[76:84])
	h.BoundsMin[3] = endian.Float64(le, data[84:92])
	h.BoundsMax[3] = endian.Float64(le, data[92:100])

	return nil
}

// Bytes serializes the FileHeader into a 100 byte slice.
func (h *FileHeader) Bytes() []byte {
	b := make([]byte, FileHeaderSize)

	be := endian.GetBigEndianEngine()
	le := endian.GetLittleEndianEngine()

	endian.PutInt32(be, b[0:4], FileCode)
	endian.PutInt32(be, b[24:28], h.FileLength)
	endian.PutInt32(le, b[28:32], h.Version)
	endian.PutInt32(le, b[32:36], int32(h.ShapeType))

	endian.PutFloat64(le, b[36:44], h.BoundsMin[0])
	endian.PutFloat64(le, b[44:52], h.BoundsMin[1])
	endian.PutFloat64(le, b[52:60], h.BoundsMax[0])
	endian.PutFloat64(le, b[60:68], h.BoundsMax[1])
	endian.PutFloat64(le, b[68:76], h.BoundsMin[2])
	endian.PutFloat64(le, b[76:84], h.BoundsMax[2])
	endian.PutFloat64(le, b[84:92], h.BoundsMin[3])
	endian.PutFloat64(le, b[92:100], h.BoundsMax[3])

	return b
}

// FileLengthBytes returns the file length in bytes.
func (h *FileHeader) FileLengthBytes() int64 {
	return int64(h.FileLength) * 2
}

// RecordCountFromIndexLength derives the record count of a .shx file from its header.
// The result may be negative or absurd for a corrupt file; callers validate it.
func (h *FileHeader) RecordCountFromIndexLength() int64 {
	return (h.FileLengthBytes() - FileHeaderSize) / IndexEntrySize
}

// ParseFileHeader parses a FileHeader from a byte slice.
//
// Parameters:
//   - data: Byte slice containing header (must be at least 100 bytes)
//
// Returns:
//   - FileHeader: Parsed header struct
//   - error: ErrInvalidHeaderSize or ErrInvalidMagicNumber
func ParseFileHeader(data []byte) (FileHeader, error) {
	if len(data) < FileHeaderSize {
		return FileHeader{}, errs.ErrInvalidHeaderSize
	}

	h := FileHeader{}
	if err := h.Parse(data[:FileHeaderSize]); err != nil {
		return FileHeader{}, err
	}

	return h, nil
}
