package section

import (
	"github.com/arloliu/geoshape/endian"
	"github.com/arloliu/geoshape/errs"
)

// RecordHeader is the big-endian prefix of every .shp record.
type RecordHeader struct {
	// Number is the 1-based record number (shape id + 1).
	Number int32
	// ContentLength is the record content length in 16-bit words, prefix excluded.
	ContentLength int32
}

// Parse parses the record header from the first 8 bytes of data.
func (h *RecordHeader) Parse(data []byte) error {
	if len(data) < RecordHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	be := endian.GetBigEndianEngine()
	h.Number = endian.Int32(be, data[0:4])
	h.ContentLength = endian.Int32(be, data[4:8])

	return nil
}

// AppendTo appends the serialized header to b.
func (h RecordHeader) AppendTo(b []byte) []byte {
	be := endian.GetBigEndianEngine()
	b = endian.AppendInt32(be, b, h.Number)

	return endian.AppendInt32(be, b, h.ContentLength)
}

// PutTo writes the serialized header into the first 8 bytes of b.
func (h RecordHeader) PutTo(b []byte) {
	be := endian.GetBigEndianEngine()
	endian.PutInt32(be, b[0:4], h.Number)
	endian.PutInt32(be, b[4:8], h.ContentLength)
}
