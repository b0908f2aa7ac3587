package shape

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
)

func TestNew(t *testing.T) {
	t.Run("polyline without parts gets one ring part", func(t *testing.T) {
		s, err := New(format.ShapePolyLine, 3, nil, nil, []float64{0, 10}, []float64{0, 5}, nil, nil)
		require.NoError(t, err)
		require.Equal(t, []Part{{Start: 0, Type: format.PartRing}}, s.Parts)
		require.Equal(t, 3, s.ID)
		require.Nil(t, s.Z)
		require.Nil(t, s.M)
		require.Equal(t, NewBounds2D(0, 0, 10, 5), s.Bounds)
	})

	t.Run("z type zero fills missing arrays", func(t *testing.T) {
		s, err := New(format.ShapePolygonZ, -1, []int{0}, nil,
			[]float64{0, 1, 1, 0}, []float64{0, 0, 1, 0}, nil, nil)
		require.NoError(t, err)
		require.Equal(t, []float64{0, 0, 0, 0}, s.Z)
		require.Equal(t, []float64{0, 0, 0, 0}, s.M)
	})

	t.Run("m type drops z", func(t *testing.T) {
		s, err := NewSimple(format.ShapePointM, -1, []float64{1}, []float64{2}, []float64{9}, []float64{4})
		require.NoError(t, err)
		require.Nil(t, s.Z)
		require.Equal(t, []float64{4}, s.M)
		require.Equal(t, 0.0, s.ZAt(0))
		require.Equal(t, 4.0, s.MAt(0))
		require.Equal(t, 4.0, s.Bounds.Min[3])
	})

	t.Run("part types are copied", func(t *testing.T) {
		s, err := New(format.ShapeMultiPatch, -1, []int{0, 3},
			[]format.PartType{format.PartTriangleStrip, format.PartTriangleFan},
			[]float64{0, 1, 2, 3, 4, 5}, []float64{0, 1, 0, 1, 0, 1}, nil, nil)
		require.NoError(t, err)
		require.Equal(t, format.PartTriangleFan, s.Parts[1].Type)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := New(format.ShapeType(99), -1, nil, nil, nil, nil, nil, nil)
		require.ErrorIs(t, err, errs.ErrUnsupportedShapeType)

		_, err = New(format.ShapePolyLine, -1, nil, nil, []float64{0, 1}, []float64{0}, nil, nil)
		require.ErrorIs(t, err, errs.ErrInvalidArgument)

		_, err = New(format.ShapePolyLine, -1, []int{0, 5}, nil, []float64{0, 1}, []float64{0, 1}, nil, nil)
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("copies inputs", func(t *testing.T) {
		x := []float64{1, 2}
		s, err := NewSimple(format.ShapeMultiPoint, -1, x, []float64{1, 2}, nil, nil)
		require.NoError(t, err)
		x[0] = 100
		require.Equal(t, 1.0, s.X[0])
	})
}

func TestClone(t *testing.T) {
	s, err := New(format.ShapePolyLineZ, 1, []int{0, 2}, nil,
		[]float64{0, 1, 2, 3}, []float64{0, 1, 2, 3}, []float64{5, 6, 7, 8}, nil)
	require.NoError(t, err)

	c := s.Clone()
	require.Equal(t, s, c)

	c.X[0] = 42
	c.Z[0] = 42
	c.Parts[1].Start = 1
	require.Equal(t, 0.0, s.X[0])
	require.Equal(t, 5.0, s.Z[0])
	require.Equal(t, 2, s.Parts[1].Start)
}

func TestPartRange(t *testing.T) {
	s, err := New(format.ShapePolygon, 0, []int{0, 4}, nil,
		[]float64{0, 1, 1, 0, 5, 6, 6}, []float64{0, 0, 1, 0, 5, 5, 6}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, s.PartCount())

	start, end, err := s.PartRange(0)
	require.NoError(t, err)
	require.Equal(t, 0, start)
	require.Equal(t, 4, end)

	start, end, err = s.PartRange(1)
	require.NoError(t, err)
	require.Equal(t, 4, start)
	require.Equal(t, 7, end)

	_, _, err = s.PartRange(2)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	pt, err := NewSimple(format.ShapeMultiPoint, 0, []float64{1, 2}, []float64{1, 2}, nil, nil)
	require.NoError(t, err)
	start, end, err = pt.PartRange(0)
	require.NoError(t, err)
	require.Equal(t, 0, start)
	require.Equal(t, 2, end)
}

func TestComputeExtents(t *testing.T) {
	s, err := NewSimple(format.ShapeMultiPointZ, 0,
		[]float64{3, -1, 2}, []float64{7, 4, -2}, []float64{1, 9, 5}, []float64{0, -3, 2})
	require.NoError(t, err)
	require.Equal(t, [4]float64{-1, -2, 1, -3}, s.Bounds.Min)
	require.Equal(t, [4]float64{3, 7, 9, 2}, s.Bounds.Max)

	s.X[0] = 10
	require.Equal(t, 3.0, s.Bounds.Max[0])
	s.ComputeExtents()
	require.Equal(t, 10.0, s.Bounds.Max[0])

	empty := NewNull(4)
	require.Equal(t, Bounds{}, empty.Bounds)
}

func TestBounds(t *testing.T) {
	outer := NewBounds2D(0, 0, 10, 10)

	require.True(t, outer.Contains(NewBounds2D(1, 1, 2, 2), 2))
	require.True(t, outer.Contains(outer, 2))
	require.False(t, outer.Contains(NewBounds2D(5, 5, 11, 6), 2))

	require.True(t, outer.Overlaps(NewBounds2D(10, 10, 20, 20), 2), "touching edges overlap")
	require.False(t, outer.Overlaps(NewBounds2D(10.5, 0, 20, 20), 2))

	z := outer
	z.Min[2], z.Max[2] = 0, 5
	inner := NewBounds2D(1, 1, 2, 2)
	inner.Min[2], inner.Max[2] = 4, 6
	require.True(t, z.Contains(inner, 2), "z ignored for two dimensions")
	require.False(t, z.Contains(inner, 3))
	require.True(t, z.Overlaps(inner, 3))

	b := EmptyBounds()
	require.True(t, b.IsEmpty())
	b.Extend(NewBounds2D(1, 2, 3, 4))
	b.Extend(NewBounds2D(-1, 0, 0, 8))
	require.Equal(t, -1.0, b.Min[0])
	require.Equal(t, 8.0, b.Max[1])
	require.Equal(t, 4.0, b.Width())
	require.Equal(t, 8.0, b.Height())

	cx, cy := b.Center()
	require.Equal(t, 1.0, cx)
	require.Equal(t, 4.0, cy)
}
