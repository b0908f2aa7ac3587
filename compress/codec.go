package compress

import (
	"errors"
	"fmt"

	"github.com/arloliu/geoshape/format"
)

// Compressor compresses a serialized quadtree payload.
//
// Memory management:
//   - The returned slice is owned by the caller, except for the no-op codec which returns its input
//   - The input slice is not modified
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor.
//
// Implementations return an error when the input is corrupted or was produced by another
// algorithm. They must be safe for concurrent use.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// maxBlockSize bounds the output a codec allocates from a length stored in the data.
const maxBlockSize = 1 << 30

// ErrSizeMismatch is returned by DecompressSized when the output length differs from the expected size.
var ErrSizeMismatch = errors.New("decompressed size mismatch")

// DecompressSized decompresses data that must expand to exactly size bytes.
//
// Parameters:
//   - d: Decompressor matching the algorithm that produced data
//   - data: Compressed bytes
//   - size: Expected decompressed length, usually taken from a file header
//
// Returns:
//   - []byte: Decompressed data
//   - error: Decompression error, or ErrSizeMismatch if the length is wrong
func DecompressSized(d Decompressor, data []byte, size int) ([]byte, error) {
	if size < 0 || size > maxBlockSize {
		return nil, fmt.Errorf("%w: declared size %d", ErrSizeMismatch, size)
	}

	out, err := d.Decompress(data)
	if err != nil {
		return nil, err
	}

	if len(out) != size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(out), size)
	}

	return out, nil
}

// CreateCodec creates a Codec for the specified compression type.
//
// Parameters:
//   - compressionType: Type of compression (None, Zstd, S2, or LZ4)
//   - target: Description of target usage (for error messages)
//
// Returns:
//   - Codec: Codec instance for the specified type
//   - error: Invalid compression type error
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a shared built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
