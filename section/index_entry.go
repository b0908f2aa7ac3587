package section

import (
	"github.com/arloliu/geoshape/endian"
	"github.com/arloliu/geoshape/errs"
)

// IndexEntry is one .shx entry locating a record inside the .shp file.
// Both values are stored big-endian in 16-bit words; the in-memory fields are bytes.
type IndexEntry struct {
	// Offset is the byte offset of the record header in the .shp file.
	Offset int64
	// Length is the record content length in bytes, record header excluded.
	Length int64
}

// Parse parses the entry from the first 8 bytes of data.
func (e *IndexEntry) Parse(data []byte) error {
	if len(data) < IndexEntrySize {
		return errs.ErrInvalidIndexFile
	}

	be := endian.GetBigEndianEngine()
	e.Offset = int64(endian.Int32(be, data[0:4])) * 2
	e.Length = int64(endian.Int32(be, data[4:8])) * 2

	return nil
}

// AppendTo appends the serialized entry to b.
func (e IndexEntry) AppendTo(b []byte) []byte {
	be := endian.GetBigEndianEngine()
	b = endian.AppendInt32(be, b, int32(e.Offset/2))

	return endian.AppendInt32(be, b, int32(e.Length/2))
}

// End returns the byte offset just past the record.
func (e IndexEntry) End() int64 {
	return e.Offset + RecordHeaderSize + e.Length
}

// ParseIndexEntries parses count consecutive entries from data.
//
// Returns:
//   - []IndexEntry: Parsed entries
//   - error: ErrInvalidIndexFile if data is too short
func ParseIndexEntries(data []byte, count int) ([]IndexEntry, error) {
	if count < 0 || len(data) < count*IndexEntrySize {
		return nil, errs.ErrInvalidIndexFile
	}

	entries := make([]IndexEntry, count)
	for i := range entries {
		off := i * IndexEntrySize
		if err := entries[i].Parse(data[off : off+IndexEntrySize]); err != nil {
			return nil, err
		}
	}

	return entries, nil
}
