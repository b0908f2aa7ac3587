// Package shp reads and writes the geometry half of a shapefile: the .shp record file and
// its .shx offset index.
//
// A File keeps the whole offset table in memory, so reading record n is one positioned read.
// Writes either overwrite a record in place or append it at the end of the .shp file; the
// headers and the .shx file are rewritten by Close.
package shp

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sync"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
	"github.com/arloliu/geoshape/internal/options"
	"github.com/arloliu/geoshape/internal/pathutil"
	"github.com/arloliu/geoshape/internal/pool"
	"github.com/arloliu/geoshape/logging"
	"github.com/arloliu/geoshape/section"
	"github.com/arloliu/geoshape/shape"
)

// Append is the id passed to Write to add a record at the end of the file.
const Append = -1

// boundsPrefix is the content length holding the shape type and the xy bounding box of
// multipoint and poly records.
const boundsPrefix = 36

// minContentLength is the content of a NULL record: the shape type alone.
const minContentLength = 4

// File is an open .shp/.shx pair.
//
// Read and Write are safe for concurrent use on one handle: a mutex guards every
// seek+read and seek+write pair. Concurrent appends are serialized as well, but callers
// that interleave Count with Append must coordinate externally to learn the assigned ids.
type File struct {
	mu       sync.Mutex
	path     string
	shp      *os.File
	shx      *os.File
	cfg      *Config
	log      *logging.Logger
	header   section.FileHeader
	entries  []section.IndexEntry
	fileSize int64
	seeded   bool
	updated  bool
	closed   bool
	cache    *shapeCache
}

// Open opens an existing .shp/.shx pair. path may name either file or use another extension;
// the siblings are derived from it.
//
// Parameters:
//   - path: Path of the dataset, usually the .shp file
//   - opts: WithReadOnly, WithLogger, WithShapeCache
//
// Returns:
//   - *File: The open handle
//   - error: I/O errors, ErrInvalidMagicNumber, ErrInvalidHeaderSize, ErrInvalidRecordCount or ErrInvalidIndexFile
func Open(path string, opts ...Option) (*File, error) {
	cfg, err := options.Build(defaultConfig, opts...)
	if err != nil {
		return nil, err
	}

	shpPath := pathutil.Resolve(path, "shp")
	shxPath := pathutil.Resolve(path, "shx")
	log := cfg.logger.WithComponent("shp").WithPath(shpPath)

	flag := os.O_RDWR
	if cfg.readOnly {
		flag = os.O_RDONLY
	}

	shpFile, err := os.OpenFile(shpPath, flag, 0)
	if err != nil {
		log.LogIOError("open", err)
		return nil, err
	}

	shxFile, err := os.OpenFile(shxPath, flag, 0)
	if err != nil {
		shpFile.Close()
		log.LogIOError("open", err)

		return nil, err
	}

	f := &File{
		path: shpPath,
		shp:  shpFile,
		shx:  shxFile,
		cfg:  cfg,
		log:  log,
	}

	if err := f.load(); err != nil {
		shpFile.Close()
		shxFile.Close()
		log.Warn("rejecting shapefile", logging.KeyError, err)

		return nil, err
	}

	if err := f.initCache(); err != nil {
		shpFile.Close()
		shxFile.Close()

		return nil, err
	}

	log.Debug("opened shapefile", "records", len(f.entries), "type", f.header.ShapeType.String())

	return f, nil
}

// Create creates an empty .shp/.shx pair, truncating existing files.
//
// Parameters:
//   - path: Path of the dataset, usually the .shp file
//   - shapeType: The single geometry type of every non-null record
//   - opts: WithLogger, WithShapeCache
//
// Returns:
//   - *File: The open handle
//   - error: ErrUnsupportedShapeType or I/O errors
func Create(path string, shapeType format.ShapeType, opts ...Option) (*File, error) {
	if !shapeType.IsValid() {
		return nil, fmt.Errorf("%w: %d", errs.ErrUnsupportedShapeType, int32(shapeType))
	}

	cfg, err := options.Build(defaultConfig, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.readOnly {
		return nil, fmt.Errorf("%w: cannot create %s", errs.ErrReadOnly, path)
	}

	shpPath := pathutil.ReplaceExt(path, "shp")
	shxPath := pathutil.ReplaceExt(path, "shx")
	log := cfg.logger.WithComponent("shp").WithPath(shpPath)

	shpFile, err := os.OpenFile(shpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint: gosec
	if err != nil {
		log.LogIOError("create", err)
		return nil, err
	}

	shxFile, err := os.OpenFile(shxPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint: gosec
	if err != nil {
		shpFile.Close()
		log.LogIOError("create", err)

		return nil, err
	}

	f := &File{
		path:     shpPath,
		shp:      shpFile,
		shx:      shxFile,
		cfg:      cfg,
		log:      log,
		header:   *section.NewFileHeader(shapeType),
		fileSize: section.FileHeaderSize,
		updated:  true,
	}

	if err := f.initCache(); err != nil {
		shpFile.Close()
		shxFile.Close()

		return nil, err
	}

	// Write the headers right away so a crashed writer still leaves parseable files.
	if err := f.flushHeaders(); err != nil {
		shpFile.Close()
		shxFile.Close()
		log.LogIOError("write header", err)

		return nil, err
	}

	return f, nil
}

func (f *File) initCache() error {
	if f.cfg.cacheSize == 0 {
		return nil
	}

	c, err := newShapeCache(f.cfg.cacheSize)
	if err != nil {
		return fmt.Errorf("create shape cache: %w", err)
	}
	f.cache = c

	return nil
}

// load parses both headers and the offset table.
func (f *File) load() error {
	buf := make([]byte, section.FileHeaderSize)

	if _, err := f.shp.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("%w: read .shp header: %w", errs.ErrInvalidHeaderSize, err)
	}
	if err := f.header.Parse(buf); err != nil {
		return err
	}

	if _, err := f.shx.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("%w: read .shx header: %w", errs.ErrInvalidIndexFile, err)
	}

	var shxHeader section.FileHeader
	if err := shxHeader.Parse(buf); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidIndexFile, err)
	}

	count := shxHeader.RecordCountFromIndexLength()
	if count < 0 || count > section.MaxRecordCount {
		return fmt.Errorf("%w: %d", errs.ErrInvalidRecordCount, count)
	}

	table := make([]byte, count*section.IndexEntrySize)
	if _, err := f.shx.ReadAt(table, section.FileHeaderSize); err != nil {
		return fmt.Errorf("%w: read offset table: %w", errs.ErrInvalidIndexFile, err)
	}

	entries, err := section.ParseIndexEntries(table, int(count))
	if err != nil {
		return err
	}

	info, err := f.shp.Stat()
	if err != nil {
		return err
	}
	if err := checkEntries(entries, info.Size()); err != nil {
		return err
	}
	f.entries = entries
	f.fileSize = max(info.Size(), f.header.FileLengthBytes())
	f.seeded = count > 0 || !f.headerBounds().IsZero()

	return nil
}

// checkEntries rejects offset table entries that do not locate a whole record inside
// the first shpSize bytes of the .shp file.
func checkEntries(entries []section.IndexEntry, shpSize int64) error {
	for i, e := range entries {
		switch {
		case e.Offset < section.FileHeaderSize:
			return fmt.Errorf("%w: record %d offset %d inside the header", errs.ErrInvalidIndexFile, i, e.Offset)
		case e.Length < minContentLength:
			return fmt.Errorf("%w: record %d length %d", errs.ErrInvalidIndexFile, i, e.Length)
		case e.End() > shpSize:
			return fmt.Errorf("%w: record %d ends at %d past .shp size %d",
				errs.ErrInvalidIndexFile, i, e.End(), shpSize)
		}
	}

	return nil
}

// Path returns the path of the .shp file.
func (f *File) Path() string {
	return f.path
}

// ShapeType returns the geometry type declared in the header.
func (f *File) ShapeType() format.ShapeType {
	return f.header.ShapeType
}

// Count returns the number of records.
func (f *File) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.entries)
}

// Bounds returns the file-wide bounds over x, y, z and m.
func (f *File) Bounds() shape.Bounds {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.headerBounds()
}

func (f *File) headerBounds() shape.Bounds {
	return shape.Bounds{Min: f.header.BoundsMin, Max: f.header.BoundsMax}
}

// Entries returns a copy of the offset table.
func (f *File) Entries() []section.IndexEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.entries)
}

// Read decodes record id.
//
// Returns:
//   - *shape.Shape: A shape owned by the caller
//   - error: ErrShapeIDOutOfRange, ErrClosed, ErrTruncatedRecord or I/O errors
func (f *File) Read(id int) (*shape.Shape, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, errs.ErrClosed
	}
	if s, ok := f.cache.get(id); ok {
		return s, nil
	}

	bb := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(bb)

	content, err := f.readContent(bb, id, -1)
	if err != nil {
		return nil, err
	}

	s, err := shape.Decode(content, id)
	if err != nil {
		f.log.WithShapeID(id).Warn("corrupt record", logging.KeyError, err)
		return nil, err
	}

	f.cache.put(id, s)

	return s, nil
}

// Extent returns the stored bounding box of record id without decoding the vertices
// when the file type has no z or m dimension. NULL records report shape.EmptyBounds().
func (f *File) Extent(id int) (shape.Bounds, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return shape.Bounds{}, errs.ErrClosed
	}
	if s, ok := f.cache.get(id); ok {
		return extentOf(s.Type, s.Bounds), nil
	}

	bb := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(bb)

	t := f.header.ShapeType
	if t.HasZ() || t.HasM() {
		content, err := f.readContent(bb, id, -1)
		if err != nil {
			return shape.Bounds{}, err
		}

		s, err := shape.Decode(content, id)
		if err != nil {
			return shape.Bounds{}, err
		}

		return extentOf(s.Type, s.Bounds), nil
	}

	content, err := f.readContent(bb, id, boundsPrefix)
	if err != nil {
		return shape.Bounds{}, err
	}

	rt, err := shape.RecordType(content)
	if err != nil {
		return shape.Bounds{}, err
	}
	b, err := shape.DecodeBounds(content)
	if err != nil {
		return shape.Bounds{}, err
	}

	return extentOf(rt, b), nil
}

// extentOf maps NULL records to an empty box so they never overlap a query and never
// count as a shape at the origin.
func extentOf(t format.ShapeType, b shape.Bounds) shape.Bounds {
	if t == format.ShapeNull {
		return shape.EmptyBounds()
	}

	return b
}

// readContent reads the content of record id into bb and returns it.
// limit caps the number of content bytes read; a negative limit reads the whole record.
// The caller must hold f.mu.
func (f *File) readContent(bb *pool.ByteBuffer, id, limit int) ([]byte, error) {
	if f.closed {
		return nil, errs.ErrClosed
	}
	if id < 0 || id >= len(f.entries) {
		return nil, fmt.Errorf("%w: %d of %d", errs.ErrShapeIDOutOfRange, id, len(f.entries))
	}

	entry := f.entries[id]
	n := int(entry.Length)
	if limit >= 0 && n > limit {
		n = limit
	}
	size := section.RecordHeaderSize + n

	bb.Reset()
	bb.Grow(size)
	buf := bb.B[:size]

	read, err := f.shp.ReadAt(buf, entry.Offset)
	if err != nil && !(errors.Is(err, io.EOF) && read == size) {
		f.log.WithShapeID(id).LogIOError("read", err)
		return nil, fmt.Errorf("read record %d: %w", id, err)
	}

	var rh section.RecordHeader
	if err := rh.Parse(buf); err != nil {
		return nil, err
	}

	return buf[section.RecordHeaderSize:], nil
}

// Write stores s as record id and returns the id it was stored under.
//
// id == Append, or id >= Count, appends a new record. Otherwise the record is overwritten
// in place when the new content fits the stored slot and relocated to the end of the file
// when it does not. The file-wide bounds grow to cover every vertex of s.
//
// Parameters:
//   - id: Target record, or Append
//   - s: Shape to store; its Type must match the file or be NULL
//
// Returns:
//   - int: The id of the stored record
//   - error: *errs.ShapeTypeMismatchError, ErrShapeIDOutOfRange, ErrReadOnly, ErrClosed or I/O errors
func (f *File) Write(id int, s *shape.Shape) (int, error) {
	if s == nil {
		return -1, fmt.Errorf("%w: nil shape", errs.ErrInvalidArgument)
	}
	if f.cfg.readOnly {
		return -1, errs.ErrReadOnly
	}
	if s.Type != f.header.ShapeType && s.Type != format.ShapeNull {
		return -1, &errs.ShapeTypeMismatchError{Want: f.header.ShapeType, Got: s.Type}
	}
	if id < Append {
		return -1, fmt.Errorf("%w: %d", errs.ErrShapeIDOutOfRange, id)
	}

	bb := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(bb)

	bb.Reset()
	bb.Grow(section.RecordHeaderSize + shape.EncodedSize(s))
	bb.B = bb.B[:section.RecordHeaderSize]

	record, err := shape.Encode(bb.B, s)
	if err != nil {
		return -1, err
	}
	bb.B = record
	contentLen := len(record) - section.RecordHeaderSize

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return -1, errs.ErrClosed
	}

	appending := id == Append || id >= len(f.entries)
	if appending {
		id = len(f.entries)
	}

	offset := f.fileSize
	if !appending && f.entries[id].Length >= int64(contentLen) {
		offset = f.entries[id].Offset
	}

	rh := section.RecordHeader{Number: int32(id + 1), ContentLength: int32(contentLen / 2)} //nolint: gosec
	rh.PutTo(record)

	if _, err := f.shp.WriteAt(record, offset); err != nil {
		f.log.WithShapeID(id).LogIOError("write", err)
		return -1, fmt.Errorf("write record %d: %w", id, err)
	}

	entry := section.IndexEntry{Offset: offset, Length: int64(contentLen)}
	if appending {
		f.entries = append(f.entries, entry)
	} else {
		f.entries[id] = entry
	}
	if offset == f.fileSize {
		f.fileSize += int64(len(record))
	}

	f.extendBounds(s)
	f.updated = true
	f.cache.invalidate(id)

	return id, nil
}

// extendBounds grows the header bounds over every vertex of s. The first shape with
// vertices seeds the bounds.
func (f *File) extendBounds(s *shape.Shape) {
	if len(s.X) == 0 {
		return
	}

	h := &f.header
	if !f.seeded {
		h.BoundsMin = [4]float64{s.X[0], s.Y[0], s.ZAt(0), s.MAt(0)}
		h.BoundsMax = h.BoundsMin
		f.seeded = true
	}

	for i := range s.X {
		v := [4]float64{s.X[i], s.Y[i], s.ZAt(i), s.MAt(i)}
		for d := range 4 {
			h.BoundsMin[d] = math.Min(h.BoundsMin[d], v[d])
			h.BoundsMax[d] = math.Max(h.BoundsMax[d], v[d])
		}
	}
}

// Flush rewrites both headers and the offset table if anything was written.
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errs.ErrClosed
	}
	if !f.updated {
		return nil
	}

	if err := f.flushHeaders(); err != nil {
		f.log.LogIOError("flush", err)
		return err
	}
	f.updated = false

	return nil
}

// flushHeaders writes the .shp header, the .shx header and the .shx table.
// The caller must hold f.mu or own f exclusively.
func (f *File) flushHeaders() error {
	f.header.FileLength = int32(f.fileSize / 2) //nolint: gosec
	if _, err := f.shp.WriteAt(f.header.Bytes(), 0); err != nil {
		return fmt.Errorf("write .shp header: %w", err)
	}

	shxSize := int64(section.FileHeaderSize + len(f.entries)*section.IndexEntrySize)
	shxHeader := f.header
	shxHeader.FileLength = int32(shxSize / 2) //nolint: gosec

	buf := make([]byte, 0, shxSize)
	buf = append(buf, shxHeader.Bytes()...)
	for _, e := range f.entries {
		buf = e.AppendTo(buf)
	}

	if _, err := f.shx.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("write .shx: %w", err)
	}

	return f.shx.Truncate(shxSize)
}

// Close flushes pending header changes and releases the files. It is safe to call twice.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	var err error
	if f.updated && !f.cfg.readOnly {
		if ferr := f.flushHeaders(); ferr != nil {
			f.log.LogIOError("close", ferr)
			err = ferr
		}
	}

	f.cache.close()
	f.entries = nil

	return errors.Join(err, f.shp.Close(), f.shx.Close())
}
