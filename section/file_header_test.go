package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
)

func TestNewFileHeader(t *testing.T) {
	h := NewFileHeader(format.ShapePolyLine)

	require.Equal(t, int32(50), h.FileLength)
	require.Equal(t, int64(FileHeaderSize), h.FileLengthBytes())
	require.Equal(t, int32(FileVersion), h.Version)
	require.Equal(t, format.ShapePolyLine, h.ShapeType)
}

func TestFileHeader_Parse(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		original := NewFileHeader(format.ShapePolygonZ)
		original.FileLength = 1234
		original.BoundsMin = [4]float64{126.5, 33.1, -10, 0}
		original.BoundsMax = [4]float64{129.9, 38.6, 870.25, 42}

		data := original.Bytes()
		require.Len(t, data, FileHeaderSize)

		parsed := &FileHeader{}
		require.NoError(t, parsed.Parse(data))
		require.Equal(t, *original, *parsed)
	})

	t.Run("Byte layout", func(t *testing.T) {
		h := NewFileHeader(format.ShapePoint)
		h.FileLength = 0x0102
		h.BoundsMin[0] = 1

		data := h.Bytes()
		require.Equal(t, []byte{0x00, 0x00, 0x27, 0x0a}, data[0:4])
		require.Equal(t, []byte{0x00, 0x00, 0x01, 0x02}, data[24:28])
		require.Equal(t, []byte{0xe8, 0x03, 0x00, 0x00}, data[28:32])
		require.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, data[32:36])
		// 1.0 as a little-endian double
		require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}, data[36:44])
	})

	t.Run("Alternate file code terminator", func(t *testing.T) {
		data := NewFileHeader(format.ShapePoint).Bytes()
		data[3] = 0x0d

		_, err := ParseFileHeader(data)
		require.NoError(t, err)
	})

	t.Run("Invalid size", func(t *testing.T) {
		h := &FileHeader{}
		require.ErrorIs(t, h.Parse([]byte{1, 2, 3}), errs.ErrInvalidHeaderSize)

		_, err := ParseFileHeader(make([]byte, 99))
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("Invalid magic number", func(t *testing.T) {
		data := NewFileHeader(format.ShapePoint).Bytes()
		data[2] = 0x28

		_, err := ParseFileHeader(data)
		require.ErrorIs(t, err, errs.ErrInvalidMagicNumber)
	})
}

func TestFileHeader_RecordCountFromIndexLength(t *testing.T) {
	h := NewFileHeader(format.ShapePoint)
	h.FileLength = int32((FileHeaderSize + 3*IndexEntrySize) / 2)
	require.Equal(t, int64(3), h.RecordCountFromIndexLength())

	h.FileLength = 10
	require.Negative(t, h.RecordCountFromIndexLength())
}

func TestRecordHeader(t *testing.T) {
	h := RecordHeader{Number: 7, ContentLength: 0x0a0b}

	b := h.AppendTo(nil)
	require.Equal(t, []byte{0, 0, 0, 7, 0, 0, 0x0a, 0x0b}, b)

	var parsed RecordHeader
	require.NoError(t, parsed.Parse(b))
	require.Equal(t, h, parsed)

	put := make([]byte, RecordHeaderSize)
	h.PutTo(put)
	require.Equal(t, b, put)

	require.ErrorIs(t, parsed.Parse(b[:4]), errs.ErrInvalidHeaderSize)
}

func TestIndexEntries(t *testing.T) {
	entries := []IndexEntry{
		{Offset: 100, Length: 20},
		{Offset: 128, Length: 56},
	}

	var data []byte
	for _, e := range entries {
		data = e.AppendTo(data)
	}
	require.Len(t, data, 2*IndexEntrySize)
	// offsets and lengths are stored in 16-bit words
	require.Equal(t, []byte{0, 0, 0, 50, 0, 0, 0, 10}, data[:8])

	parsed, err := ParseIndexEntries(data, 2)
	require.NoError(t, err)
	require.Equal(t, entries, parsed)
	require.Equal(t, int64(128), parsed[0].End())

	_, err = ParseIndexEntries(data, 3)
	require.ErrorIs(t, err, errs.ErrInvalidIndexFile)

	_, err = ParseIndexEntries(data, -1)
	require.ErrorIs(t, err, errs.ErrInvalidIndexFile)
}
