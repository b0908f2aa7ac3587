// Package quadtree is the spatial index of a shapefile.
//
// The tree partitions the file bounds by repeatedly cutting a node along its longer
// axis; each half keeps 55% of the range so neighbours overlap and small shapes near a
// cut still fit in one child. A shape is stored at the deepest node that fully contains
// its extent. Queries return every id stored at a node overlapping the search box: a
// superset of the shapes that actually intersect it.
//
// Node offsets (the number of ids stored before a node in pre-order) are derived data.
// They are recomputed by Build, Trim, FillOffsets and Decode and never read from disk.
//
// A Tree is not safe for concurrent mutation. Once built or decoded, concurrent queries
// are safe.
package quadtree

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/internal/options"
	"github.com/arloliu/geoshape/internal/pool"
	"github.com/arloliu/geoshape/shape"
)

// splitRatio is the share of the parent range each half keeps.
const splitRatio = 0.55

var (
	idPool   = pool.NewSlicePool[int](256)
	nodePool = pool.NewSlicePool[*Node](64)
)

// Source provides the extents a tree is built from. shp.File satisfies it.
// Extent returns an empty box for a record without geometry.
type Source interface {
	Count() int
	Bounds() shape.Bounds
	Extent(id int) (shape.Bounds, error)
}

// Node is one region of the tree.
type Node struct {
	Bounds   shape.Bounds
	IDs      []int
	Children []*Node
	offset   int
}

// Offset returns the number of ids stored before this node in pre-order.
func (n *Node) Offset() int {
	return n.offset
}

// Tree is a quadtree over shape extents.
type Tree struct {
	root       *Node
	cfg        *Config
	maxDepth   int
	stale      bool
	shapeCount int
}

// DefaultDepth picks a depth for n shapes: the smallest depth whose node budget, doubling
// per level, reaches a quarter of the shapes.
func DefaultDepth(n int) int {
	depth := 0
	for nodes := 1; nodes*4 < n; nodes *= 2 {
		depth++
	}

	return depth
}

// New creates an empty tree covering bounds.
//
// Parameters:
//   - bounds: Region of the root node
//   - opts: WithMaxDepth, WithDimensions, WithSplitMode and the encoding options
//
// Returns:
//   - *Tree: The empty tree
//   - error: Option errors
func New(bounds shape.Bounds, opts ...Option) (*Tree, error) {
	cfg, err := options.Build(defaultConfig, opts...)
	if err != nil {
		return nil, err
	}

	return &Tree{
		root:     &Node{Bounds: bounds},
		cfg:      cfg,
		maxDepth: cfg.maxDepth,
	}, nil
}

// Build inserts the extent of every shape of src into a new tree covering src.Bounds,
// then trims empty nodes and fills the offsets. Without WithMaxDepth the depth comes
// from DefaultDepth.
func Build(src Source, opts ...Option) (*Tree, error) {
	t, err := New(src.Bounds(), opts...)
	if err != nil {
		return nil, err
	}

	n := src.Count()
	if t.maxDepth == 0 {
		t.maxDepth = DefaultDepth(n)
	}

	for id := range n {
		ext, err := src.Extent(id)
		if err != nil {
			return nil, fmt.Errorf("extent of shape %d: %w", id, err)
		}
		t.Insert(id, ext)
	}

	t.Trim()

	return t, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Dimensions returns how many dimensions the tests use.
func (t *Tree) Dimensions() int {
	return t.cfg.dims
}

// MaxDepth returns the depth limit.
func (t *Tree) MaxDepth() int {
	return t.maxDepth
}

// ShapeCount returns the number of ids stored.
func (t *Tree) ShapeCount() int {
	return t.shapeCount
}

// NodeCount returns the number of nodes, root included.
func (t *Tree) NodeCount() int {
	count := 0
	t.Walk(func(*Node, int) bool {
		count++
		return true
	})

	return count
}

// Insert stores id at the deepest node whose region contains ext. An empty ext, the
// extent of a NULL record, is stored at the root. Offsets are stale until the next
// FillOffsets or Trim.
func (t *Tree) Insert(id int, ext shape.Bounds) {
	switch {
	case ext.IsEmpty():
		// NULL records overlap nothing
		t.root.IDs = append(t.root.IDs, id)
	case !t.root.Bounds.Contains(ext, t.cfg.dims):
		// kept at the root, which must then cover it for queries
		t.insert(t.root, id, ext, t.maxDepth)
		t.root.Bounds.Extend(ext)
	default:
		t.insert(t.root, id, ext, t.maxDepth)
	}
	t.shapeCount++
	t.stale = true
}

func (t *Tree) insert(n *Node, id int, ext shape.Bounds, depth int) {
	for depth > 1 {
		if len(n.Children) > 0 {
			child := t.containing(n.Children, ext)
			if child == nil {
				break
			}
			n, depth = child, depth-1

			continue
		}

		candidates := t.split(n.Bounds)
		if t.containing(candidates, ext) == nil {
			break
		}
		n.Children = candidates
	}

	n.IDs = append(n.IDs, id)
}

func (t *Tree) containing(nodes []*Node, ext shape.Bounds) *Node {
	for _, c := range nodes {
		if c.Bounds.Contains(ext, t.cfg.dims) {
			return c
		}
	}

	return nil
}

func (t *Tree) split(b shape.Bounds) []*Node {
	h1, h2 := splitBounds(b)
	if t.cfg.split == SplitBinary {
		return []*Node{{Bounds: h1}, {Bounds: h2}}
	}

	q1, q2 := splitBounds(h1)
	q3, q4 := splitBounds(h2)

	return []*Node{{Bounds: q1}, {Bounds: q2}, {Bounds: q3}, {Bounds: q4}}
}

// splitBounds cuts b along x when it is wider than tall, otherwise along y.
func splitBounds(b shape.Bounds) (shape.Bounds, shape.Bounds) {
	axis := 1
	if b.Width() > b.Height() {
		axis = 0
	}

	lo, hi := b, b
	span := b.Max[axis] - b.Min[axis]
	lo.Max[axis] = b.Min[axis] + span*splitRatio
	hi.Min[axis] = b.Max[axis] - span*splitRatio

	return lo, hi
}

// Trim removes child nodes that hold no ids and have no children, then fills the
// offsets. The root is kept even when empty. Trimming twice changes nothing.
func (t *Tree) Trim() {
	trimNode(t.root)
	t.FillOffsets()
}

func trimNode(n *Node) bool {
	for i := 0; i < len(n.Children); i++ {
		if !trimNode(n.Children[i]) {
			continue
		}

		last := len(n.Children) - 1
		n.Children[i] = n.Children[last]
		n.Children[last] = nil
		n.Children = n.Children[:last]
		i--
	}
	if len(n.Children) == 0 {
		n.Children = nil
	}

	return len(n.Children) == 0 && len(n.IDs) == 0
}

// FillOffsets recomputes the pre-order id offset of every node.
func (t *Tree) FillOffsets() {
	sum := 0
	t.Walk(func(n *Node, _ int) bool {
		n.offset = sum
		sum += len(n.IDs)

		return true
	})
	t.shapeCount = sum
	t.stale = false
}

// Walk visits nodes in pre-order with their level, the root being level 1.
// Returning false from fn skips the children of that node.
func (t *Tree) Walk(fn func(n *Node, level int) bool) {
	walk(t.root, 1, fn)
}

func walk(n *Node, level int, fn func(*Node, int) bool) {
	if !fn(n, level) {
		return
	}
	for _, c := range n.Children {
		walk(c, level+1, fn)
	}
}

// Query returns the ids stored at every node overlapping q, ascending. The result is a
// superset of the shapes whose extent overlaps q.
func (t *Tree) Query(q shape.Bounds) []int {
	ids, release := idPool.Get()
	defer func() { release(ids) }()

	t.visit(q, func(n *Node) {
		ids = append(ids, n.IDs...)
	})

	out := slices.Clone(ids)
	slices.Sort(out)

	return out
}

// CollectBitmap adds the ids Query would return to bm.
func (t *Tree) CollectBitmap(q shape.Bounds, bm *roaring.Bitmap) {
	t.visit(q, func(n *Node) {
		for _, id := range n.IDs {
			bm.Add(uint32(id)) //nolint: gosec
		}
	})
}

// visit calls fn for every node overlapping q, using an explicit stack.
func (t *Tree) visit(q shape.Bounds, fn func(*Node)) {
	stack, release := nodePool.Get()
	defer func() { release(stack) }()

	stack = append(stack, t.root)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !n.Bounds.Overlaps(q, t.cfg.dims) {
			continue
		}
		fn(n)

		// push in reverse so children are visited in order
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// nodeSpan is the run of .mbr tuples belonging to one node.
type nodeSpan struct {
	ids    []int
	offset int
}

func (t *Tree) overlappingSpans(q shape.Bounds) ([]nodeSpan, error) {
	if t.stale {
		return nil, fmt.Errorf("%w: node offsets are stale, call FillOffsets", errs.ErrInvalidArgument)
	}

	var spans []nodeSpan
	t.visit(q, func(n *Node) {
		if len(n.IDs) > 0 {
			spans = append(spans, nodeSpan{ids: n.IDs, offset: n.offset})
		}
	})

	return spans, nil
}
