// Package compress provides the payload codecs of quadtree index (.idx) files.
//
// A serialized quadtree is a long run of float64 bounds and int32 shape ids. Neighbouring
// nodes share most of their bound bytes, so general purpose compressors shrink it well.
// The .idx header records which codec was used; readers pick it with GetCodec.
//
// Supported algorithms:
//   - None: payload stored as is (default)
//   - Zstd: best ratio, pooled klauspost/compress encoders and decoders
//   - S2: klauspost/compress S2, balanced
//   - LZ4: pierrec/lz4 block format, fastest to decode
//
// Example:
//
//	codec, err := compress.GetCodec(format.CompressionZstd)
//	if err != nil {
//	    return err
//	}
//	packed, err := codec.Compress(payload)
//
// All codecs are safe for concurrent use.
package compress
