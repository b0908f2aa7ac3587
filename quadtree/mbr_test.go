package quadtree

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/geoshape/endian"
	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/section"
	"github.com/arloliu/geoshape/shape"
)

func writeMBRFile(t *testing.T, tree *Tree, src Source) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, WriteMBR(&buf, tree, src))

	path := filepath.Join(t.TempDir(), "data.mbr")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	return path
}

func TestWriteMBR_Layout(t *testing.T) {
	src := newBoxSource(
		shape.NewBounds2D(0.5, 1.5, 2.5, 3.5),
		shape.NewBounds2D(-1.5, -2.5, -0.5, 0),
	)
	tree, err := Build(src, WithMaxDepth(1))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteMBR(&buf, tree, src))
	require.Equal(t, 2*section.MBREntrySize, buf.Len())

	le := endian.GetLittleEndianEngine()
	var got []int32
	for pos := 0; pos < buf.Len(); pos += 4 {
		got = append(got, endian.Int32(le, buf.Bytes()[pos:]))
	}
	require.Equal(t, []int32{0, 1, 3, 4, -2, -3, 0, 0}, got)
}

func TestClampInt32(t *testing.T) {
	require.Equal(t, int32(-2147483648), floorInt32(-1e12))
	require.Equal(t, int32(2147483647), ceilInt32(1e12))
	require.Equal(t, int32(3), ceilInt32(2.0001))
	require.Equal(t, int32(-3), floorInt32(-2.0001))
}

func TestMBRScan_Superset(t *testing.T) {
	src := randomSource(21, 400)
	tree, err := Build(src)
	require.NoError(t, err)

	mbr, err := OpenMBR(writeMBRFile(t, tree, src))
	require.NoError(t, err)
	defer mbr.Close()
	require.Equal(t, 400, mbr.Len())

	queries := []shape.Bounds{
		shape.NewBounds2D(100.25, 100.25, 180.75, 260.5),
		shape.NewBounds2D(0, 0, 1000, 1000),
		point(333.3, 777.7),
	}
	for _, q := range queries {
		got, err := mbr.Scan(tree, q, false)
		require.NoError(t, err)

		for _, id := range bruteForce(src, q) {
			require.Contains(t, got, id)
		}
		for i := 1; i < len(got); i++ {
			require.Less(t, got[i-1], got[i])
		}
	}
}

func TestMBRScan_SortByBottom(t *testing.T) {
	src := newBoxSource(
		shape.NewBounds2D(0, 10, 5, 20),
		shape.NewBounds2D(0, 30, 5, 40),
		shape.NewBounds2D(0, 10, 5, 12),
		shape.NewBounds2D(0, 50, 5, 60),
		shape.NewBounds2D(90, 90, 95, 95),
	)
	tree, err := Build(src, WithMaxDepth(3))
	require.NoError(t, err)

	mbr, err := OpenMBR(writeMBRFile(t, tree, src))
	require.NoError(t, err)
	defer mbr.Close()

	q := shape.NewBounds2D(0, 0, 10, 70)

	byBottom, err := mbr.Scan(tree, q, true)
	require.NoError(t, err)
	require.Equal(t, []int{3, 1, 0, 2}, byBottom)

	byID, err := mbr.Scan(tree, q, false)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, byID)
}

func TestMBRScan_Stale(t *testing.T) {
	src := gridSource(3)
	tree, err := Build(src)
	require.NoError(t, err)

	path := writeMBRFile(t, tree, src)

	// a tree with more ids than the side-file holds
	bigger, err := Build(gridSource(4))
	require.NoError(t, err)

	mbr, err := OpenMBR(path)
	require.NoError(t, err)

	_, err = mbr.Scan(bigger, shape.NewBounds2D(0, 0, 3, 3), false)
	require.ErrorIs(t, err, errs.ErrInvalidMBRFile)

	require.NoError(t, mbr.Close())
	_, err = mbr.Scan(tree, shape.NewBounds2D(0, 0, 3, 3), false)
	require.ErrorIs(t, err, errs.ErrInvalidMBRFile)
}

func TestOpenMBR_BadLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mbr")
	require.NoError(t, os.WriteFile(path, make([]byte, 20), 0o600))

	_, err := OpenMBR(path)
	require.ErrorIs(t, err, errs.ErrInvalidMBRFile)

	_, err = OpenMBR(filepath.Join(t.TempDir(), "missing.mbr"))
	require.Error(t, err)
}
