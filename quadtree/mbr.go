package quadtree

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/arloliu/geoshape/endian"
	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/internal/mmap"
	"github.com/arloliu/geoshape/internal/pool"
	"github.com/arloliu/geoshape/section"
	"github.com/arloliu/geoshape/shape"
)

// WriteMBR writes the .mbr side-file of t: one tuple per stored id, in the pre-order of
// the tree, so the tuples of a node start at tuple Offset(). Coordinates are rounded
// outward to int32 (floor for the minimum, ceil for the maximum), which makes the file a
// lossy pre-filter that never drops a matching shape.
//
// Parameters:
//   - w: Destination, usually the .mbr file
//   - t: Tree with filled offsets
//   - src: Source of the shape extents
//
// Returns:
//   - error: Extent or write errors
func WriteMBR(w io.Writer, t *Tree, src Source) error {
	le := endian.GetLittleEndianEngine()

	bb := pool.GetIndexBuffer()
	defer pool.PutIndexBuffer(bb)

	var walkErr error
	t.Walk(func(n *Node, _ int) bool {
		for _, id := range n.IDs {
			ext, err := src.Extent(id)
			if err != nil {
				walkErr = fmt.Errorf("extent of shape %d: %w", id, err)
				return false
			}

			bb.B = endian.AppendInt32(le, bb.B, floorInt32(ext.Min[0]))
			bb.B = endian.AppendInt32(le, bb.B, floorInt32(ext.Min[1]))
			bb.B = endian.AppendInt32(le, bb.B, ceilInt32(ext.Max[0]))
			bb.B = endian.AppendInt32(le, bb.B, ceilInt32(ext.Max[1]))
		}

		return walkErr == nil
	})
	if walkErr != nil {
		return walkErr
	}

	_, err := w.Write(bb.B)

	return err
}

func floorInt32(v float64) int32 {
	return clampInt32(math.Floor(v))
}

func ceilInt32(v float64) int32 {
	return clampInt32(math.Ceil(v))
}

func clampInt32(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v <= math.MinInt32:
		return math.MinInt32
	case v >= math.MaxInt32:
		return math.MaxInt32
	default:
		return int32(v)
	}
}

// MBRFile is a memory-mapped .mbr side-file.
type MBRFile struct {
	file *mmap.File
}

// OpenMBR maps an .mbr file read-only.
func OpenMBR(path string) (*MBRFile, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	if f.Len()%section.MBREntrySize != 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of tuples", errs.ErrInvalidMBRFile, f.Len())
	}

	return &MBRFile{file: f}, nil
}

// Len returns the number of tuples.
func (m *MBRFile) Len() int {
	return m.file.Len() / section.MBREntrySize
}

// Close unmaps the file.
func (m *MBRFile) Close() error {
	return m.file.Close()
}

func readTuple(b []byte) (left, bottom, right, top int32) {
	le := endian.GetLittleEndianEngine()

	return endian.Int32(le, b), endian.Int32(le, b[4:]), endian.Int32(le, b[8:]), endian.Int32(le, b[12:])
}

type mbrHit struct {
	id     int
	bottom int32
}

// Scan returns the ids of nodes overlapping q whose stored tuple overlaps q as well.
// Touching boxes count. With sortByBottom the ids are ordered by their tuple bottom,
// highest first, ties by id; otherwise ascending by id.
//
// Parameters:
//   - t: The tree the file was written from, with filled offsets
//   - q: Search box; only x and y are tested
//   - sortByBottom: Order by bottom coordinate instead of id
//
// Returns:
//   - []int: Candidate ids, a superset of the shapes whose extent overlaps q
//   - error: ErrInvalidMBRFile when the file does not cover the tree, for example after Close
func (m *MBRFile) Scan(t *Tree, q shape.Bounds, sortByBottom bool) ([]int, error) {
	data := m.file.Bytes()

	spans, err := t.overlappingSpans(q)
	if err != nil {
		return nil, err
	}

	var hits []mbrHit
	for _, span := range spans {
		end := (span.offset + len(span.ids)) * section.MBREntrySize
		if end > len(data) {
			return nil, fmt.Errorf("%w: tuple %d beyond %d tuples",
				errs.ErrInvalidMBRFile, span.offset+len(span.ids), len(data)/section.MBREntrySize)
		}

		pos := span.offset * section.MBREntrySize
		for _, id := range span.ids {
			left, bottom, right, top := readTuple(data[pos:])
			pos += section.MBREntrySize

			if float64(right) >= q.Min[0] && float64(top) >= q.Min[1] &&
				q.Max[0] >= float64(left) && q.Max[1] >= float64(bottom) {
				hits = append(hits, mbrHit{id: id, bottom: bottom})
			}
		}
	}

	if sortByBottom {
		slices.SortFunc(hits, func(a, b mbrHit) int {
			if c := cmp.Compare(b.bottom, a.bottom); c != 0 {
				return c
			}

			return cmp.Compare(a.id, b.id)
		})
	} else {
		slices.SortFunc(hits, func(a, b mbrHit) int {
			return cmp.Compare(a.id, b.id)
		})
	}

	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}

	return ids, nil
}
