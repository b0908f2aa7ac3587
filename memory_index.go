package geoshape

import (
	"slices"

	"github.com/dhconnelly/rtreego"

	"github.com/arloliu/geoshape/format"
	"github.com/arloliu/geoshape/shape"
)

// Zero-extent boxes (points, axis aligned lines) are padded so the R-tree accepts them.
const rectEpsilon = 1e-9

// indexedShape stores one shape id in the R-tree.
type indexedShape struct {
	id     int
	bounds shape.Bounds
}

// Bounds implements rtreego.Spatial.
func (s *indexedShape) Bounds() rtreego.Rect {
	return toRect(s.bounds)
}

func toRect(b shape.Bounds) rtreego.Rect {
	lengths := []float64{
		max(b.Width(), rectEpsilon),
		max(b.Height(), rectEpsilon),
	}
	rect, _ := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, lengths)

	return rect
}

// MemoryIndex is an R-tree over shapes already loaded into memory. It answers x/y box
// and nearest-neighbour queries without touching the dataset files.
type MemoryIndex struct {
	rtree  *rtreego.Rtree
	shapes []*indexedShape
}

// NewMemoryIndex indexes shapes by their Bounds. Nil and null shapes are skipped; ids
// are the slice positions, matching LoadShapes.
func NewMemoryIndex(shapes []*shape.Shape) *MemoryIndex {
	idx := &MemoryIndex{
		rtree: rtreego.NewTree(2, 25, 50),
	}

	for id, s := range shapes {
		if s == nil || s.Type == format.ShapeNull || s.Bounds.IsEmpty() {
			continue
		}

		item := &indexedShape{id: id, bounds: s.Bounds}
		idx.shapes = append(idx.shapes, item)
		idx.rtree.Insert(item)
	}

	return idx
}

// Len returns the number of indexed shapes.
func (m *MemoryIndex) Len() int {
	return len(m.shapes)
}

// Search returns the ascending ids of shapes whose x/y bounds overlap q, edges included.
func (m *MemoryIndex) Search(q shape.Bounds) []int {
	// widen by the padding so boxes that only touch q are found
	rect, _ := rtreego.NewRect(
		rtreego.Point{q.Min[0] - rectEpsilon, q.Min[1] - rectEpsilon},
		[]float64{max(q.Width(), 0) + 2*rectEpsilon, max(q.Height(), 0) + 2*rectEpsilon},
	)

	var ids []int
	for _, sp := range m.rtree.SearchIntersect(rect) {
		item := sp.(*indexedShape)
		// padded rects can over-report
		if item.bounds.Overlaps(q, 2) {
			ids = append(ids, item.id)
		}
	}
	slices.Sort(ids)

	return ids
}

// Nearest returns up to k ids ordered by the distance from (x, y) to their bounds.
func (m *MemoryIndex) Nearest(x, y float64, k int) []int {
	if k <= 0 {
		return nil
	}

	ids := make([]int, 0, k)
	for _, sp := range m.rtree.NearestNeighbors(k, rtreego.Point{x, y}) {
		if sp == nil {
			continue
		}
		ids = append(ids, sp.(*indexedShape).id)
	}

	return ids
}
