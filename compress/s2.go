package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// S2Compressor stores an S2 block. Index files are written once and read often, so it
// encodes with the better-ratio mode; decoding speed is unaffected.
type S2Compressor struct{}

var _ Codec = (*S2Compressor)(nil)

// NewS2Compressor creates a new S2 compressor.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Compress returns the S2 block of data, nil for empty input.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.EncodeBetter(nil, data), nil
}

// Decompress expands an S2 block after checking its declared length.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("s2: %w", err)
	}
	if n > maxBlockSize {
		return nil, fmt.Errorf("s2: block claims %d bytes", n)
	}

	return s2.Decode(make([]byte, n), data)
}
