// Package geoshape reads, writes and spatially indexes ESRI shapefile datasets.
//
// A dataset is a family of sibling files sharing one base name:
//
//   - .shp and .shx: the geometry records and their offset index (package shp)
//   - .dbf: one attribute row per record (package dbf)
//   - .idx: a persisted quadtree over the record extents (package quadtree)
//   - .mbr: integer bounding boxes in quadtree order, for a flat pre-filter scan
//
// # Core Features
//
//   - Random access to records of every ESRI shape type, Z and M variants included
//   - Attribute tables with NULL sentinels, charset decoding and a visible single-row cache
//   - Quadtree index saved with a portable header, optional compression and a checksum
//   - Memory-mapped MBR scan with an exact extent confirm step
//   - In-memory R-tree over preloaded shapes with nearest-neighbour lookup
//
// # Basic Usage
//
// Opening a dataset and querying a box:
//
//	ds, err := geoshape.Open("roads.shp")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ds.Close()
//
//	box := shape.NewBounds2D(126.9, 37.4, 127.1, 37.6)
//	ids, err := ds.QueryMBR(ctx, box, false)
//	for _, id := range ids {
//	    s, _ := ds.ReadShape(id)
//	    name, _ := ds.Table().ReadString(id, 0)
//	    fmt.Println(name, s.Length())
//	}
//
// Creating one:
//
//	ds, err := geoshape.Create("out.shp", format.ShapePolyLine, []geoshape.Field{
//	    {Name: "NAME", Type: format.FieldString, Width: 32},
//	})
//	id, err := ds.Append(line, map[string]any{"NAME": "Main St"})
//	err = ds.BuildIndex()
//	err = ds.Close()
//
// # Thread Safety
//
// Reads and queries may run concurrently. Append, Merge and BuildIndex take the dataset
// write lock and wait for running queries.
package geoshape

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/arloliu/geoshape/dbf"
	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
	"github.com/arloliu/geoshape/internal/options"
	"github.com/arloliu/geoshape/internal/pathutil"
	"github.com/arloliu/geoshape/logging"
	"github.com/arloliu/geoshape/quadtree"
	"github.com/arloliu/geoshape/shape"
	"github.com/arloliu/geoshape/shp"
)

// Field describes an attribute column passed to Create.
type Field struct {
	Name     string
	Type     format.FieldType
	Width    int
	Decimals int
}

// Dataset is an open shapefile dataset. It owns its files; Close releases all of them.
type Dataset struct {
	mu         sync.RWMutex
	path       string
	cfg        *Config
	log        *logging.Logger
	shapes     *shp.File
	table      *dbf.Table
	tree       *quadtree.Tree
	mbr        *quadtree.MBRFile
	indexDirty bool
	closed     bool
}

// SHPPath returns path with its extension replaced by shp.
func SHPPath(path string) string { return pathutil.ReplaceExt(path, "shp") }

// SHXPath returns path with its extension replaced by shx.
func SHXPath(path string) string { return pathutil.ReplaceExt(path, "shx") }

// DBFPath returns path with its extension replaced by dbf.
func DBFPath(path string) string { return pathutil.ReplaceExt(path, "dbf") }

// QuadtreePath returns path with its extension replaced by idx.
func QuadtreePath(path string) string { return pathutil.ReplaceExt(path, "idx") }

// MBRPath returns path with its extension replaced by mbr.
func MBRPath(path string) string { return pathutil.ReplaceExt(path, "mbr") }

// Open opens an existing dataset.
//
// The .shp/.shx pair is required. A missing .dbf leaves Table nil. Unless WithTree(false)
// is given, the .idx index is loaded when present and consistent with the record count,
// and otherwise built and, for writable datasets, saved. With the MBR file enabled the
// .mbr side-file is then opened, and rewritten first when missing or stale.
//
// Parameters:
//   - path: Path of the .shp file or any sibling
//   - opts: Dataset options
//
// Returns:
//   - *Dataset: The open dataset
//   - error: Open errors of any file; a broken index is rebuilt rather than reported
func Open(path string, opts ...Option) (*Dataset, error) {
	cfg, err := options.Build(defaultConfig, opts...)
	if err != nil {
		return nil, err
	}

	shpPath := pathutil.Resolve(path, "shp")
	d := &Dataset{
		path: shpPath,
		cfg:  cfg,
		log:  cfg.logger.WithComponent("dataset").WithPath(shpPath),
	}

	d.shapes, err = shp.Open(shpPath, d.shpOptions()...)
	if err != nil {
		return nil, err
	}

	dbfPath := pathutil.Resolve(shpPath, "dbf")
	if pathutil.Exists(dbfPath) {
		d.table, err = dbf.Open(dbfPath, d.dbfOptions()...)
		if err != nil {
			d.shapes.Close()
			return nil, err
		}
	} else {
		d.log.Debug("no attribute table", logging.KeyPath, dbfPath)
	}

	if cfg.tree {
		if err := d.loadIndex(); err != nil {
			d.closeFiles()
			return nil, err
		}
	}

	return d, nil
}

// Create creates an empty dataset with the given attribute schema, truncating existing
// files. The index is built by BuildIndex or on Close once shapes were appended.
func Create(path string, shapeType format.ShapeType, fields []Field, opts ...Option) (*Dataset, error) {
	cfg, err := options.Build(defaultConfig, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.readOnly {
		return nil, fmt.Errorf("%w: cannot create %s", errs.ErrReadOnly, path)
	}

	shpPath := SHPPath(path)
	d := &Dataset{
		path: shpPath,
		cfg:  cfg,
		log:  cfg.logger.WithComponent("dataset").WithPath(shpPath),
	}

	d.shapes, err = shp.Create(shpPath, shapeType, d.shpOptions()...)
	if err != nil {
		return nil, err
	}

	d.table, err = dbf.Create(DBFPath(shpPath), d.dbfOptions()...)
	if err != nil {
		d.shapes.Close()
		return nil, err
	}

	for _, f := range fields {
		if _, err := d.table.AddField(f.Name, f.Type, f.Width, f.Decimals); err != nil {
			d.closeFiles()
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
	}

	return d, nil
}

func (d *Dataset) shpOptions() []shp.Option {
	opts := []shp.Option{shp.WithLogger(d.cfg.logger), shp.WithShapeCache(d.cfg.cacheSize)}
	if d.cfg.readOnly {
		opts = append(opts, shp.WithReadOnly())
	}

	return opts
}

func (d *Dataset) dbfOptions() []dbf.Option {
	opts := []dbf.Option{dbf.WithLogger(d.cfg.logger), dbf.WithCharset(d.cfg.charset)}
	if d.cfg.readOnly {
		opts = append(opts, dbf.WithReadOnly())
	}

	return opts
}

// Path returns the path of the .shp file.
func (d *Dataset) Path() string {
	return d.path
}

// Count returns the number of records.
func (d *Dataset) Count() int {
	return d.shapes.Count()
}

// ShapeType returns the geometry type of the records.
func (d *Dataset) ShapeType() format.ShapeType {
	return d.shapes.ShapeType()
}

// Kind returns the broad geometry family: point, polyline, polygon or unknown.
func (d *Dataset) Kind() format.GeometryKind {
	return d.shapes.ShapeType().Kind()
}

// Boundary returns the bounds of every record.
func (d *Dataset) Boundary() shape.Bounds {
	return d.shapes.Bounds()
}

// Shapes returns the geometry store.
func (d *Dataset) Shapes() *shp.File {
	return d.shapes
}

// Table returns the attribute table, nil when the dataset has none.
func (d *Dataset) Table() *dbf.Table {
	return d.table
}

// Tree returns the spatial index, nil when disabled or not yet built.
func (d *Dataset) Tree() *quadtree.Tree {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.tree
}

// ReadShape reads record id. With WithOuterRingFlags polygon parts are classified as
// outer or inner rings.
func (d *Dataset) ReadShape(id int) (*shape.Shape, error) {
	s, err := d.shapes.Read(id)
	if err != nil {
		return nil, err
	}

	if d.cfg.outerRingFlags {
		s.ApplyOuterRingFlags()
	}

	return s, nil
}

// Append adds s and its attribute row, keeping record numbers of both files aligned.
// attrs maps field names, matched as FieldIndex does, to values accepted by dbf.Table.Write;
// fields missing from attrs are written as NULL.
//
// Parameters:
//   - s: Shape of the dataset type or NULL
//   - attrs: Attribute values by field name; may be nil
//
// Returns:
//   - int: The id of the new record
//   - error: ErrFieldNotFound for unknown names, write errors of either file
func (d *Dataset) Append(s *shape.Shape, attrs map[string]any) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.appendLocked(s, attrs)
}

func (d *Dataset) appendLocked(s *shape.Shape, attrs map[string]any) (int, error) {
	if d.closed {
		return -1, errs.ErrClosed
	}

	fields := make(map[int]any, len(attrs))
	for name, v := range attrs {
		if d.table == nil {
			return -1, fmt.Errorf("%w: %q, dataset has no attribute table", errs.ErrFieldNotFound, name)
		}

		idx, err := d.table.FieldIndex(name)
		if err != nil {
			return -1, err
		}
		fields[idx] = v
	}

	id := d.shapes.Count()
	if d.table != nil && d.table.RecordCount() != id {
		return -1, fmt.Errorf("%w: %d shapes but %d attribute rows",
			errs.ErrInvalidArgument, id, d.table.RecordCount())
	}

	id, err := d.shapes.Write(shp.Append, s)
	if err != nil {
		return -1, err
	}

	if d.table != nil {
		if err := d.table.WriteTuple(id, bytes.Repeat([]byte{' '}, d.table.RecordLength())); err != nil {
			return -1, err
		}
		for idx := range d.table.FieldCount() {
			// a missing entry is nil and stored as NULL
			if err := d.table.Write(id, idx, fields[idx]); err != nil {
				return -1, err
			}
		}
	}

	if d.tree != nil {
		ext, err := d.shapes.Extent(id)
		if err != nil {
			return -1, err
		}
		d.tree.Insert(id, ext)
	}
	d.indexDirty = d.cfg.tree

	return id, nil
}

// Close saves an index changed by Append, then closes every file. Calling Close again is a no-op.
func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var indexErr error
	if d.indexDirty && !d.cfg.readOnly {
		indexErr = d.persistIndex()
	}

	return errors.Join(indexErr, d.closeFiles())
}

func (d *Dataset) closeFiles() error {
	var errList []error
	if d.mbr != nil {
		errList = append(errList, d.mbr.Close())
		d.mbr = nil
	}
	if d.table != nil {
		errList = append(errList, d.table.Close())
	}
	errList = append(errList, d.shapes.Close())

	return errors.Join(errList...)
}
