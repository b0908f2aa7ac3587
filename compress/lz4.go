package compress

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Compressor stores an LZ4 block prefixed with its decompressed length as a uvarint.
// It loads fastest of the compressed .idx layouts.
type LZ4Compressor struct{}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor creates a new LZ4 compressor.
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

// Compress returns the length-prefixed LZ4 block of data, nil for empty input.
func (c LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dst := make([]byte, binary.MaxVarintLen64+lz4.CompressBlockBound(len(data)))
	head := binary.PutUvarint(dst, uint64(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[head:])
	if err != nil {
		return nil, err
	}

	return dst[:head+n], nil
}

// Decompress expands a block written by Compress.
//
// Returns:
//   - []byte: Decompressed data (nil if input is empty)
//   - error: A malformed prefix, a corrupt block, or a block shorter than its prefix claims
func (c LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	size, head := binary.Uvarint(data)
	if head <= 0 || size > uint64(maxBlockSize) {
		return nil, fmt.Errorf("lz4: invalid length prefix")
	}

	buf := make([]byte, size)
	n, err := lz4.UncompressBlock(data[head:], buf)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	if uint64(n) != size {
		return nil, fmt.Errorf("lz4: block holds %d bytes, prefix says %d", n, size)
	}

	return buf, nil
}
