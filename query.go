package geoshape

import (
	"cmp"
	"context"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
	"github.com/arloliu/geoshape/shape"
)

// Query returns the index candidates for box q, ascending: every record whose extent
// overlaps q, plus possibly some that do not.
func (d *Dataset) Query(q shape.Bounds) ([]int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.tree == nil {
		return nil, errs.ErrNoIndex
	}

	return d.tree.Query(q), nil
}

// QueryBitmap returns the Query candidates as a bitmap, convenient for combining the
// results of several boxes.
func (d *Dataset) QueryBitmap(q shape.Bounds) (*roaring.Bitmap, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.tree == nil {
		return nil, errs.ErrNoIndex
	}

	bm := roaring.New()
	d.tree.CollectBitmap(q, bm)

	return bm, nil
}

// QueryMBR narrows the index candidates with the .mbr side-file. When the side-file is
// disabled, missing or out of date, the candidates are confirmed against their stored
// extents instead.
//
// Parameters:
//   - ctx: Cancels the confirm reads
//   - q: Search box
//   - sortByBottom: Order by bottom coordinate, highest first, instead of by id
//
// Returns:
//   - []int: Matching ids; MBR results may include shapes within one unit of q
//   - error: ErrNoIndex, ErrInvalidMBRFile or read errors
func (d *Dataset) QueryMBR(ctx context.Context, q shape.Bounds, sortByBottom bool) ([]int, error) {
	d.mu.RLock()
	if d.tree == nil {
		d.mu.RUnlock()
		return nil, errs.ErrNoIndex
	}

	if d.mbr != nil && !d.indexDirty {
		defer d.mu.RUnlock()
		return d.mbr.Scan(d.tree, q, sortByBottom)
	}

	ids := d.tree.Query(q)
	d.mu.RUnlock()

	return d.Confirm(ctx, ids, q, sortByBottom)
}

type hit struct {
	id     int
	bottom float64
	keep   bool
}

// Confirm reads the extent of every id in parallel and keeps those overlapping q.
// The result is ordered like QueryMBR.
func (d *Dataset) Confirm(ctx context.Context, ids []int, q shape.Bounds, sortByBottom bool) ([]int, error) {
	dims := 2
	if tree := d.Tree(); tree != nil {
		dims = tree.Dimensions()
	}

	hits := make([]hit, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ext, err := d.shapes.Extent(id)
			if err != nil {
				return err
			}
			hits[i] = hit{id: id, bottom: ext.Min[1], keep: ext.Overlaps(q, dims)}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits = slices.DeleteFunc(hits, func(h hit) bool { return !h.keep })

	return orderHits(hits, sortByBottom), nil
}

func orderHits(hits []hit, sortByBottom bool) []int {
	if sortByBottom {
		slices.SortFunc(hits, func(a, b hit) int {
			if c := cmp.Compare(b.bottom, a.bottom); c != 0 {
				return c
			}

			return cmp.Compare(a.id, b.id)
		})
	} else {
		slices.SortFunc(hits, func(a, b hit) int {
			return cmp.Compare(a.id, b.id)
		})
	}

	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}

	return ids
}

// QueryShapes filters preloaded shapes, indexed by id as LoadShapes returns them, by
// their bounds. The index narrows the scan when present.
func (d *Dataset) QueryShapes(q shape.Bounds, shapes []*shape.Shape) []int {
	d.mu.RLock()
	tree := d.tree
	var candidates []int
	if tree != nil {
		candidates = tree.Query(q)
	}
	d.mu.RUnlock()

	dims := 2
	if tree != nil {
		dims = tree.Dimensions()
	} else {
		candidates = make([]int, len(shapes))
		for i := range candidates {
			candidates[i] = i
		}
	}

	var ids []int
	for _, id := range candidates {
		if id < 0 || id >= len(shapes) || shapes[id] == nil || shapes[id].Type == format.ShapeNull {
			continue
		}
		if shapes[id].Bounds.Overlaps(q, dims) {
			ids = append(ids, id)
		}
	}

	return ids
}

// LoadShapes reads every record into memory, in id order.
func (d *Dataset) LoadShapes() ([]*shape.Shape, error) {
	n := d.Count()
	shapes := make([]*shape.Shape, n)
	for id := range n {
		s, err := d.ReadShape(id)
		if err != nil {
			return nil, err
		}
		shapes[id] = s
	}

	return shapes, nil
}
