package compress

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/geoshape/format"
)

func getAllCodecs() map[string]Codec {
	return map[string]Codec{
		"NoOp": NewNoOpCompressor(),
		"LZ4":  NewLZ4Compressor(),
		"S2":   NewS2Compressor(),
		"Zstd": NewZstdCompressor(),
	}
}

// treeLikePayload mimics a serialized quadtree: nested bounds followed by id lists.
func treeLikePayload(nodes int) []byte {
	buf := make([]byte, 0, nodes*80)
	for i := range nodes {
		scale := math.Pow(0.55, float64(i%8))
		for _, v := range []float64{126.5, 37.1, 0, 0, 126.5 + scale, 37.1 + scale, 0, 0} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
		buf = binary.LittleEndian.AppendUint32(buf, 2)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(i*2))   //nolint: gosec
		buf = binary.LittleEndian.AppendUint32(buf, uint32(i*2+1)) //nolint: gosec
		buf = binary.LittleEndian.AppendUint32(buf, uint32(i%4))   //nolint: gosec
	}

	return buf
}

func TestCreateCodec(t *testing.T) {
	for _, ct := range []format.CompressionType{
		format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4,
	} {
		codec, err := CreateCodec(ct, "index")
		require.NoError(t, err)
		require.NotNil(t, codec)

		shared, err := GetCodec(ct)
		require.NoError(t, err)
		require.IsType(t, codec, shared)
	}

	_, err := CreateCodec(format.CompressionType(0x9), "index")
	require.ErrorContains(t, err, "invalid index compression")

	_, err = GetCodec(format.CompressionType(0x9))
	require.Error(t, err)
}

func TestAllCodecs_EmptyData(t *testing.T) {
	for name, codec := range getAllCodecs() {
		t.Run(name, func(t *testing.T) {
			compressed, err := codec.Compress(nil)
			require.NoError(t, err)
			require.Empty(t, compressed)

			decompressed, err := codec.Decompress(nil)
			require.NoError(t, err)
			require.Empty(t, decompressed)
		})
	}
}

func TestAllCodecs_RoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{name: "single_byte", data: []byte{0x42}},
		{name: "one_node", data: treeLikePayload(1)},
		{name: "small_tree", data: treeLikePayload(85)},
		{name: "large_tree", data: treeLikePayload(21845)},
		{name: "zeros", data: make([]byte, 1024*1024)},
	}

	for codecName, codec := range getAllCodecs() {
		t.Run(codecName, func(t *testing.T) {
			for _, tc := range testCases {
				t.Run(tc.name, func(t *testing.T) {
					compressed, err := codec.Compress(tc.data)
					require.NoError(t, err)
					require.NotNil(t, compressed)

					decompressed, err := codec.Decompress(compressed)
					require.NoError(t, err)
					require.Equal(t, tc.data, decompressed)

					sized, err := DecompressSized(codec, compressed, len(tc.data))
					require.NoError(t, err)
					require.True(t, bytes.Equal(tc.data, sized))
				})
			}
		})
	}
}

func TestAllCodecs_Ratio(t *testing.T) {
	data := treeLikePayload(4096)

	for codecName, codec := range getAllCodecs() {
		if codecName == "NoOp" {
			continue
		}

		t.Run(codecName, func(t *testing.T) {
			compressed, err := codec.Compress(data)
			require.NoError(t, err)
			require.Less(t, len(compressed), len(data)/2, "tree payloads are highly repetitive")
		})
	}
}

func TestDecompressSized_Mismatch(t *testing.T) {
	data := treeLikePayload(10)

	for codecName, codec := range getAllCodecs() {
		t.Run(codecName, func(t *testing.T) {
			compressed, err := codec.Compress(data)
			require.NoError(t, err)

			_, err = DecompressSized(codec, compressed, len(data)+8)
			require.ErrorIs(t, err, ErrSizeMismatch)
		})
	}
}

func TestAllCodecs_InvalidData(t *testing.T) {
	invalidInputs := []struct {
		name string
		data []byte
	}{
		{name: "random_bytes", data: []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{name: "text_as_compressed", data: []byte("this is not compressed data")},
	}

	for codecName, codec := range getAllCodecs() {
		if codecName == "NoOp" {
			continue
		}

		t.Run(codecName, func(t *testing.T) {
			for _, input := range invalidInputs {
				t.Run(input.name, func(t *testing.T) {
					_, err := codec.Decompress(input.data)
					require.Error(t, err)
				})
			}
		})
	}
}

func TestAllCodecs_ConcurrentUsage(t *testing.T) {
	const numGoroutines = 16
	data := treeLikePayload(200)

	for codecName, codec := range getAllCodecs() {
		t.Run(codecName, func(t *testing.T) {
			compressed, err := codec.Compress(data)
			require.NoError(t, err)

			done := make(chan error, numGoroutines*2)
			for range numGoroutines {
				go func() {
					_, err := codec.Compress(data)
					done <- err
				}()
				go func() {
					out, err := codec.Decompress(compressed)
					if err == nil && !bytes.Equal(data, out) {
						err = fmt.Errorf("data mismatch")
					}
					done <- err
				}()
			}

			for range numGoroutines * 2 {
				require.NoError(t, <-done)
			}
		})
	}
}

func BenchmarkAllCodecs_Decompress(b *testing.B) {
	data := treeLikePayload(21845)

	for codecName, codec := range getAllCodecs() {
		compressed, err := codec.Compress(data)
		require.NoError(b, err)

		b.Run(codecName, func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for b.Loop() {
				if _, err := DecompressSized(codec, compressed, len(data)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func TestLZ4_LengthPrefix(t *testing.T) {
	data := treeLikePayload(50)
	codec := NewLZ4Compressor()

	compressed, err := codec.Compress(data)
	require.NoError(t, err)

	size, n := binary.Uvarint(compressed)
	require.Positive(t, n)
	require.Equal(t, uint64(len(data)), size)

	_, err = codec.Decompress(compressed[:len(compressed)/2])
	require.Error(t, err)

	// a prefix larger than the block content
	bad := binary.AppendUvarint(nil, uint64(len(data)+100))
	bad = append(bad, compressed[n:]...)
	_, err = codec.Decompress(bad)
	require.Error(t, err)
}
