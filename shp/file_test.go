package shp

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
	"github.com/arloliu/geoshape/section"
	"github.com/arloliu/geoshape/shape"
)

func mustShape(t *testing.T) func(*shape.Shape, error) *shape.Shape {
	t.Helper()

	return func(s *shape.Shape, err error) *shape.Shape {
		require.NoError(t, err)
		return s
	}
}

func line(t *testing.T, xy ...float64) *shape.Shape {
	t.Helper()

	x := make([]float64, 0, len(xy)/2)
	y := make([]float64, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		x = append(x, xy[i])
		y = append(y, xy[i+1])
	}

	return mustShape(t)(shape.New(format.ShapePolyLine, -1, nil, nil, x, y, nil, nil))
}

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "layer.shp")
}

func requireSameGeometry(t *testing.T, want, got *shape.Shape) {
	t.Helper()

	require.Equal(t, want.Type, got.Type)
	require.Equal(t, want.X, got.X)
	require.Equal(t, want.Y, got.Y)
	require.Equal(t, want.Z, got.Z)
	require.Equal(t, want.M, got.M)
	require.Equal(t, want.Parts, got.Parts)
}

func TestWriteRead_RoundTripPerType(t *testing.T) {
	must := mustShape(t)
	ring := []float64{0, 0, 10, 10, 0}
	ringY := []float64{0, 10, 10, 0, 0}

	samples := map[format.ShapeType]*shape.Shape{
		format.ShapePoint: must(shape.NewSimple(format.ShapePoint, -1, []float64{1.5}, []float64{-2.5}, nil, nil)),
		format.ShapePointZ: must(shape.NewSimple(format.ShapePointZ, -1,
			[]float64{1}, []float64{2}, []float64{3}, []float64{4})),
		format.ShapePointM: must(shape.NewSimple(format.ShapePointM, -1,
			[]float64{1}, []float64{2}, nil, []float64{4})),
		format.ShapeMultiPoint: must(shape.NewSimple(format.ShapeMultiPoint, -1,
			[]float64{1, 2, 3}, []float64{4, 5, 6}, nil, nil)),
		format.ShapeMultiPointZ: must(shape.NewSimple(format.ShapeMultiPointZ, -1,
			[]float64{1, 2}, []float64{4, 5}, []float64{7, 8}, []float64{9, 10})),
		format.ShapeMultiPointM: must(shape.NewSimple(format.ShapeMultiPointM, -1,
			[]float64{1, 2}, []float64{4, 5}, nil, []float64{9, 10})),
		format.ShapePolyLine: must(shape.New(format.ShapePolyLine, -1, []int{0, 2}, nil,
			[]float64{0, 1, 5, 6}, []float64{0, 1, 5, 6}, nil, nil)),
		format.ShapePolyLineZ: must(shape.New(format.ShapePolyLineZ, -1, nil, nil,
			[]float64{0, 1}, []float64{0, 1}, []float64{5, 6}, []float64{0, 1})),
		format.ShapePolyLineM: must(shape.New(format.ShapePolyLineM, -1, nil, nil,
			[]float64{0, 1}, []float64{0, 1}, nil, []float64{0, 1.5})),
		format.ShapePolygon: must(shape.New(format.ShapePolygon, -1, nil, nil, ring, ringY, nil, nil)),
		format.ShapePolygonZ: must(shape.New(format.ShapePolygonZ, -1, nil, nil, ring, ringY,
			[]float64{1, 2, 3, 4, 1}, []float64{0, 0, 0, 0, 0})),
		format.ShapePolygonM: must(shape.New(format.ShapePolygonM, -1, nil, nil, ring, ringY,
			nil, []float64{5, 6, 7, 8, 5})),
	}

	for typ, s := range samples {
		t.Run(typ.String(), func(t *testing.T) {
			path := tempPath(t)

			f, err := Create(path, typ)
			require.NoError(t, err)
			id, err := f.Write(Append, s)
			require.NoError(t, err)
			require.Equal(t, 0, id)
			require.NoError(t, f.Close())

			f, err = Open(path, WithReadOnly())
			require.NoError(t, err)
			defer f.Close()

			require.Equal(t, typ, f.ShapeType())
			require.Equal(t, 1, f.Count())

			got, err := f.Read(0)
			require.NoError(t, err)
			require.Equal(t, 0, got.ID)
			requireSameGeometry(t, s, got)
			require.Equal(t, s.Bounds.Min[:2], got.Bounds.Min[:2])
			require.Equal(t, s.Bounds.Max[:2], got.Bounds.Max[:2])
		})
	}
}

func TestWrite_OffsetMonotonicity(t *testing.T) {
	f, err := Create(tempPath(t), format.ShapePolyLine)
	require.NoError(t, err)
	defer f.Close()

	const n = 20
	for i := range n {
		xy := make([]float64, 0, 2*(i+2))
		for v := range i + 2 {
			xy = append(xy, float64(v), float64(i))
		}
		id, err := f.Write(Append, line(t, xy...))
		require.NoError(t, err)
		require.Equal(t, i, id)
	}

	require.Equal(t, n, f.Count())

	entries := f.Entries()
	require.Len(t, entries, n)
	require.Equal(t, int64(section.FileHeaderSize), entries[0].Offset)
	for i := 1; i < n; i++ {
		require.Greater(t, entries[i].Offset, entries[i-1].Offset)
		require.LessOrEqual(t, entries[i-1].End(), entries[i].Offset)
	}
}

func TestWrite_BoundsAccumulation(t *testing.T) {
	shapes := [][]float64{
		{3, 4, 5, 6},
		{-10, 2, 0, 0},
		{7, -8, 1, 20},
	}
	want := shape.Bounds{
		Min: [4]float64{-10, -8, 0, 0},
		Max: [4]float64{7, 20, 0, 0},
	}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	for _, order := range orders {
		path := tempPath(t)
		f, err := Create(path, format.ShapePolyLine)
		require.NoError(t, err)

		for _, i := range order {
			_, err := f.Write(Append, line(t, shapes[i]...))
			require.NoError(t, err)
		}
		require.Equal(t, want, f.Bounds())
		require.NoError(t, f.Close())

		f, err = Open(path)
		require.NoError(t, err)
		require.Equal(t, want, f.Bounds())
		require.NoError(t, f.Close())
	}
}

func TestWrite_SeedsBoundsAwayFromOrigin(t *testing.T) {
	f, err := Create(tempPath(t), format.ShapePolyLine)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(Append, line(t, 100, 200, 110, 210))
	require.NoError(t, err)

	b := f.Bounds()
	require.Equal(t, 100.0, b.Min[0])
	require.Equal(t, 200.0, b.Min[1])
	require.Equal(t, 110.0, b.Max[0])
	require.Equal(t, 210.0, b.Max[1])
}

func TestWrite_OverwriteInPlaceAndRelocate(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, format.ShapePolyLine)
	require.NoError(t, err)

	_, err = f.Write(Append, line(t, 0, 0, 1, 1, 2, 2))
	require.NoError(t, err)
	_, err = f.Write(Append, line(t, 5, 5, 6, 6))
	require.NoError(t, err)

	before := f.Entries()

	// Smaller content fits the existing slot.
	id, err := f.Write(0, line(t, 9, 9, 8, 8))
	require.NoError(t, err)
	require.Equal(t, 0, id)
	after := f.Entries()
	require.Equal(t, before[0].Offset, after[0].Offset)
	require.Less(t, after[0].Length, before[0].Length)

	// Larger content moves to the end of the file.
	id, err = f.Write(1, line(t, 1, 2, 3, 4, 5, 6, 7, 8))
	require.NoError(t, err)
	require.Equal(t, 1, id)
	after = f.Entries()
	require.Greater(t, after[1].Offset, before[1].Offset)
	require.Equal(t, 2, f.Count())

	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.Read(0)
	require.NoError(t, err)
	require.Equal(t, []float64{9, 8}, got.X)

	got, err = f.Read(1)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 3, 5, 7}, got.X)
}

func TestWrite_IDBeyondCountAppends(t *testing.T) {
	f, err := Create(tempPath(t), format.ShapePolyLine)
	require.NoError(t, err)
	defer f.Close()

	id, err := f.Write(42, line(t, 0, 0, 1, 1))
	require.NoError(t, err)
	require.Equal(t, 0, id)

	_, err = f.Write(-2, line(t, 0, 0, 1, 1))
	require.ErrorIs(t, err, errs.ErrShapeIDOutOfRange)
}

func TestWrite_TypeMismatch(t *testing.T) {
	f, err := Create(tempPath(t), format.ShapePolygon)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(Append, line(t, 0, 0, 1, 1))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	var mismatch *errs.ShapeTypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, format.ShapePolygon, mismatch.Want)
	require.Equal(t, format.ShapePolyLine, mismatch.Got)
	require.Zero(t, f.Count())

	id, err := f.Write(Append, shape.NewNull(-1))
	require.NoError(t, err)
	require.Equal(t, 0, id)

	got, err := f.Read(0)
	require.NoError(t, err)
	require.Equal(t, format.ShapeNull, got.Type)
	require.Empty(t, got.X)
}

func TestRead_OutOfRange(t *testing.T) {
	f, err := Create(tempPath(t), format.ShapePolyLine)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(Append, line(t, 0, 0, 1, 1))
	require.NoError(t, err)

	for _, id := range []int{-1, 1, math.MaxInt32} {
		_, err := f.Read(id)
		require.ErrorIs(t, err, errs.ErrShapeIDOutOfRange)

		_, err = f.Extent(id)
		require.ErrorIs(t, err, errs.ErrShapeIDOutOfRange)
	}
}

func TestExtent(t *testing.T) {
	f, err := Create(tempPath(t), format.ShapePolyLine)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(Append, line(t, 1, 2, 3, -4))
	require.NoError(t, err)

	b, err := f.Extent(0)
	require.NoError(t, err)
	require.Equal(t, shape.NewBounds2D(1, -4, 3, 2), b)
}

func TestExtent_NullRecord(t *testing.T) {
	for _, typ := range []format.ShapeType{format.ShapePolyLine, format.ShapePointZ} {
		t.Run(typ.String(), func(t *testing.T) {
			f, err := Create(tempPath(t), typ, WithShapeCache(16))
			require.NoError(t, err)
			defer f.Close()

			_, err = f.Write(Append, shape.NewNull(-1))
			require.NoError(t, err)

			b, err := f.Extent(0)
			require.NoError(t, err)
			require.True(t, b.IsEmpty())

			// same answer once the record is cached
			_, err = f.Read(0)
			require.NoError(t, err)
			f.cache.wait()
			b, err = f.Extent(0)
			require.NoError(t, err)
			require.True(t, b.IsEmpty())
		})
	}
}

func TestExtent_ZType(t *testing.T) {
	f, err := Create(tempPath(t), format.ShapePolyLineZ)
	require.NoError(t, err)
	defer f.Close()

	s, err := shape.New(format.ShapePolyLineZ, -1, nil, nil,
		[]float64{0, 1}, []float64{0, 1}, []float64{-5, 5}, nil)
	require.NoError(t, err)
	_, err = f.Write(Append, s)
	require.NoError(t, err)

	b, err := f.Extent(0)
	require.NoError(t, err)
	require.Equal(t, -5.0, b.Min[2])
	require.Equal(t, 5.0, b.Max[2])
}

func TestShapeCache_InvalidatedOnWrite(t *testing.T) {
	f, err := Create(tempPath(t), format.ShapePolyLine, WithShapeCache(16))
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(Append, line(t, 0, 0, 1, 1))
	require.NoError(t, err)

	first, err := f.Read(0)
	require.NoError(t, err)
	f.cache.wait()

	// Mutating the returned shape must not leak into the cache.
	first.X[0] = 99

	again, err := f.Read(0)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1}, again.X)

	_, err = f.Write(0, line(t, 7, 7, 8, 8))
	require.NoError(t, err)
	f.cache.wait()

	got, err := f.Read(0)
	require.NoError(t, err)
	require.Equal(t, []float64{7, 8}, got.X)
}

func TestOpen_Errors(t *testing.T) {
	t.Run("missing files", func(t *testing.T) {
		_, err := Open(tempPath(t))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad magic", func(t *testing.T) {
		path := tempPath(t)
		f, err := Create(path, format.ShapePoint)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		data[2] = 0
		require.NoError(t, os.WriteFile(path, data, 0o600))

		_, err = Open(path)
		require.ErrorIs(t, err, errs.ErrInvalidMagicNumber)
	})

	t.Run("negative record count", func(t *testing.T) {
		path := tempPath(t)
		f, err := Create(path, format.ShapePoint)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		shx := filepath.Join(filepath.Dir(path), "layer.shx")
		data, err := os.ReadFile(shx)
		require.NoError(t, err)
		// File length of 10 words is shorter than the header.
		data[24], data[25], data[26], data[27] = 0, 0, 0, 10
		require.NoError(t, os.WriteFile(shx, data, 0o600))

		_, err = Open(path)
		require.ErrorIs(t, err, errs.ErrInvalidRecordCount)
	})

	t.Run("truncated offset table", func(t *testing.T) {
		path := tempPath(t)
		f, err := Create(path, format.ShapePoint)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		shx := filepath.Join(filepath.Dir(path), "layer.shx")
		data, err := os.ReadFile(shx)
		require.NoError(t, err)
		// Claim 4 records while the table is empty.
		data[27] = byte((section.FileHeaderSize + 4*section.IndexEntrySize) / 2)
		require.NoError(t, os.WriteFile(shx, data, 0o600))

		_, err = Open(path)
		require.ErrorIs(t, err, errs.ErrInvalidIndexFile)
	})

	t.Run("corrupt offset entry", func(t *testing.T) {
		tests := []struct {
			name  string
			patch func(entry []byte)
		}{
			// lengths and offsets are 16-bit words, big-endian
			{name: "negative length", patch: func(e []byte) { copy(e[4:8], []byte{0xff, 0xff, 0xff, 0x9c}) }},
			{name: "length past end of file", patch: func(e []byte) { copy(e[4:8], []byte{0, 0, 0x10, 0}) }},
			{name: "shorter than shape type", patch: func(e []byte) { copy(e[4:8], []byte{0, 0, 0, 1}) }},
			{name: "offset inside header", patch: func(e []byte) { copy(e[0:4], []byte{0, 0, 0, 10}) }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				path := tempPath(t)
				f, err := Create(path, format.ShapePolyLine)
				require.NoError(t, err)
				_, err = f.Write(Append, line(t, 0, 0, 1, 1))
				require.NoError(t, err)
				require.NoError(t, f.Close())

				shx := filepath.Join(filepath.Dir(path), "layer.shx")
				data, err := os.ReadFile(shx)
				require.NoError(t, err)
				tt.patch(data[section.FileHeaderSize : section.FileHeaderSize+section.IndexEntrySize])
				require.NoError(t, os.WriteFile(shx, data, 0o600))

				_, err = Open(path)
				require.ErrorIs(t, err, errs.ErrInvalidIndexFile)
			})
		}
	})
}

func TestReadOnly(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, format.ShapePolyLine)
	require.NoError(t, err)
	_, err = f.Write(Append, line(t, 0, 0, 1, 1))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path, WithReadOnly())
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(Append, line(t, 0, 0, 1, 1))
	require.ErrorIs(t, err, errs.ErrReadOnly)

	_, err = Create(path, format.ShapePoint, WithReadOnly())
	require.ErrorIs(t, err, errs.ErrReadOnly)
}

func TestClose_Idempotent(t *testing.T) {
	f, err := Create(tempPath(t), format.ShapePoint)
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Read(0)
	require.ErrorIs(t, err, errs.ErrClosed)
}

func TestFlush(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, format.ShapePolyLine)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(Append, line(t, 0, 0, 1, 1))
	require.NoError(t, err)
	require.NoError(t, f.Flush())

	// A second handle sees the flushed record without closing the writer.
	r, err := Open(path, WithReadOnly())
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, 1, r.Count())
}

func TestRead_Concurrent(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, format.ShapePolyLine)
	require.NoError(t, err)

	const n = 50
	for i := range n {
		_, err := f.Write(Append, line(t, float64(i), 0, float64(i), 1))
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	f, err = Open(path, WithReadOnly(), WithShapeCache(8))
	require.NoError(t, err)
	defer f.Close()

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range n {
				id := (i + g) % n
				s, err := f.Read(id)
				if err != nil {
					t.Errorf("read %d: %v", id, err)
					return
				}
				if s.X[0] != float64(id) {
					t.Errorf("read %d: got x %v", id, s.X[0])
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestOptions(t *testing.T) {
	_, err := Create(tempPath(t), format.ShapePoint, WithShapeCache(-1))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = Create(tempPath(t), format.ShapeType(2))
	require.ErrorIs(t, err, errs.ErrUnsupportedShapeType)

	f, err := Create(tempPath(t), format.ShapePoint, WithLogger(nil))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
