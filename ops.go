package geoshape

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/internal/options"
	"github.com/arloliu/geoshape/shp"
)

// Merge appends every record of other, copying attribute values of fields that exist
// in both tables by name. Fields only one side has are skipped.
func (d *Dataset) Merge(other *Dataset) error {
	if other == d {
		return fmt.Errorf("%w: merging a dataset into itself", errs.ErrInvalidArgument)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// other field index -> name used for the append
	names := map[int]string{}
	if d.table != nil && other.table != nil {
		for i, f := range other.table.Fields() {
			if _, err := d.table.FieldIndex(f.Name); err == nil {
				names[i] = f.Name
			}
		}
	}

	for id := range other.Count() {
		s, err := other.shapes.Read(id)
		if err != nil {
			return fmt.Errorf("merge record %d: %w", id, err)
		}

		attrs := make(map[string]any, len(names))
		for field, name := range names {
			v, err := other.table.Read(id, field)
			if err != nil {
				return fmt.Errorf("merge record %d: %w", id, err)
			}
			attrs[name] = v
		}

		if _, err := d.appendLocked(s, attrs); err != nil {
			return fmt.Errorf("merge record %d: %w", id, err)
		}
	}

	return nil
}

// SortByColumn returns all record ids ordered by the text of field, ascending; equal
// values keep id order.
func (d *Dataset) SortByColumn(field string) ([]int, error) {
	if d.table == nil {
		return nil, fmt.Errorf("%w: %q, dataset has no attribute table", errs.ErrFieldNotFound, field)
	}

	idx, err := d.table.FieldIndex(field)
	if err != nil {
		return nil, err
	}

	n := d.table.RecordCount()
	values := make([]string, n)
	ids := make([]int, n)
	for id := range n {
		if values[id], err = d.table.ReadString(id, idx); err != nil {
			return nil, err
		}
		ids[id] = id
	}

	slices.SortStableFunc(ids, func(a, b int) int {
		return cmp.Compare(values[a], values[b])
	})

	return ids, nil
}

// NaviIndexAt returns the navigation mesh code of a longitude/latitude.
//
// The primary mesh is 40 minutes of latitude by 1 degree of longitude; its row and its
// column offset by 100 degrees form the first four digits. The secondary mesh splits it
// into 8 rows of 5 minutes and 8 columns of 7.5 minutes.
func NaviIndexAt(lon, lat float64) int {
	xm := lon * 60
	ym := lat * 60

	row := int(math.Floor(ym / 40))
	col := int(math.Floor(xm / 60))

	dy := ym - float64(row*40)
	dx := xm - float64(col*60)
	sub := int(math.Floor(dy/5)*10 + math.Floor(dx/7.5))

	return row*10000 + (col-100)*100 + sub
}

// NaviIndex returns the navigation mesh code of the boundary center.
func (d *Dataset) NaviIndex() int {
	return NaviIndexAt(d.Boundary().Center())
}

// NaviIndexFromFile reads only the .shp/.shx headers of path and returns the navigation
// mesh code of their boundary center.
func NaviIndexFromFile(path string) (int, error) {
	f, err := shp.Open(path, shp.WithReadOnly())
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return NaviIndexAt(f.Bounds().Center()), nil
}

// OpenAll opens several datasets concurrently. When any open fails, the datasets already
// opened are closed and the first error is returned.
func OpenAll(ctx context.Context, paths []string, opts ...Option) ([]*Dataset, error) {
	cfg, err := options.Build(defaultConfig, opts...)
	if err != nil {
		return nil, err
	}

	datasets := make([]*Dataset, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ds, err := Open(path, opts...)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			datasets[i] = ds

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var closeErrs []error
		for _, ds := range datasets {
			if ds != nil {
				closeErrs = append(closeErrs, ds.Close())
			}
		}

		return nil, errors.Join(append([]error{err}, closeErrs...)...)
	}

	return datasets, nil
}
