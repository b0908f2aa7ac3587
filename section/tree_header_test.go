package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/geoshape/endian"
	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
)

func TestTreeHeader(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		h := NewTreeHeader(2)
		require.True(t, h.IsValidMagicNumber())
		require.True(t, h.IsLittleEndian())
		require.Equal(t, endian.GetLittleEndianEngine(), h.GetEndianEngine())
		require.NoError(t, h.Validate())
	})

	for _, big := range []bool{false, true} {
		name := "Little endian"
		if big {
			name = "Big endian"
		}

		t.Run(name, func(t *testing.T) {
			h := NewTreeHeader(4)
			if big {
				h.WithBigEndian()
			}
			h.Compression = format.CompressionZstd
			h.NodeCount = 85
			h.ShapeCount = 1200
			h.MaxDepth = 7
			h.Checksum = 0x0123456789abcdef
			h.RawLength = 9000
			h.StoredLength = 1500

			data := h.Bytes()
			require.True(t, HasMagic(data))

			parsed := &TreeHeader{}
			require.NoError(t, parsed.Parse(data))
			require.Equal(t, *h, *parsed)
			require.Equal(t, !big, parsed.IsLittleEndian())
		})
	}

	t.Run("Invalid", func(t *testing.T) {
		h := &TreeHeader{}
		require.ErrorIs(t, h.Parse(make([]byte, 5)), errs.ErrInvalidHeaderSize)
		require.ErrorIs(t, h.Parse(make([]byte, TreeHeaderSize)), errs.ErrInvalidMagicNumber)

		bad := NewTreeHeader(5)
		require.ErrorIs(t, h.Parse(bad.Bytes()), errs.ErrInvalidTreeFile)

		bad = NewTreeHeader(2)
		bad.Compression = 9
		require.ErrorIs(t, h.Parse(bad.Bytes()), errs.ErrInvalidTreeFile)
	})

	require.False(t, HasMagic([]byte{0x10}))
	require.False(t, HasMagic(make([]byte, 8)))
}
