package section

import (
	"time"

	"github.com/arloliu/geoshape/endian"
	"github.com/arloliu/geoshape/errs"
)

// TableHeader is the 32 byte header at the start of a .dbf file.
//
// Layout (little-endian):
//
//	0      version
//	1-3    last update YY MM DD, YY counted from 1900
//	4-7    record count
//	8-9    header length, descriptors and terminator included
//	10-11  record length, deletion flag included
//	29     language driver id
type TableHeader struct {
	Version        byte
	Year           byte
	Month          byte
	Day            byte
	RecordCount    uint32
	HeaderLength   uint16
	RecordLength   uint16
	LanguageDriver byte
}

// NewTableHeader creates the header of a table without fields or records.
func NewTableHeader() *TableHeader {
	return &TableHeader{
		Version:      TableVersion,
		HeaderLength: TableHeaderSize + 1,
		RecordLength: DeletedFlagSize,
	}
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing header (must be exactly 32 bytes)
//
// Returns:
//   - error: ErrInvalidHeaderSize if data is not 32 bytes
func (h *TableHeader) Parse(data []byte) error {
	if len(data) != TableHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	le := endian.GetLittleEndianEngine()

	h.Version = data[0]
	h.Year = data[1]
	h.Month = data[2]
	h.Day = data[3]
	h.RecordCount = le.Uint32(data[4:8])
	h.HeaderLength = le.Uint16(data[8:10])
	h.RecordLength = le.Uint16(data[10:12])
	h.LanguageDriver = data[29]

	if h.HeaderLength < TableHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	return nil
}

// Bytes serializes the TableHeader into a 32 byte slice.
func (h *TableHeader) Bytes() []byte {
	b := make([]byte, TableHeaderSize)

	le := endian.GetLittleEndianEngine()

	b[0] = h.Version
	b[1] = h.Year
	b[2] = h.Month
	b[3] = h.Day
	le.PutUint32(b[4:8], h.RecordCount)
	le.PutUint16(b[8:10], h.HeaderLength)
	le.PutUint16(b[10:12], h.RecordLength)
	b[29] = h.LanguageDriver

	return b
}

// FieldCount derives the number of field descriptors from the header length.
func (h *TableHeader) FieldCount() int {
	return (int(h.HeaderLength) - TableHeaderSize) / FieldDescriptorSize
}

// SetModTime stores t as the last update date.
func (h *TableHeader) SetModTime(t time.Time) {
	h.Year = byte(t.Year() - 1900)
	h.Month = byte(t.Month())
	h.Day = byte(t.Day())
}

// ModTime returns the last update date.
func (h *TableHeader) ModTime() time.Time {
	return time.Date(1900+int(h.Year), time.Month(h.Month), int(h.Day), 0, 0, 0, 0, time.UTC)
}
