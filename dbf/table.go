// Package dbf reads and writes the attribute half of a shapefile: a dBASE III table with
// one row per shape.
//
// A Table holds at most one row in memory. Reads and writes address that cached row;
// moving to another row writes the cached one back first when it is dirty. Close rewrites
// the header with the final record count and date.
package dbf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
	"github.com/arloliu/geoshape/internal/options"
	"github.com/arloliu/geoshape/internal/pathutil"
	"github.com/arloliu/geoshape/logging"
	"github.com/arloliu/geoshape/section"
)

// maxNumericWidth is the widest N field the one-byte width slot can describe.
const maxNumericWidth = 255

// RowCache is the single row a Table keeps in memory.
type RowCache struct {
	rec   int
	dirty bool
	buf   []byte
}

// Table is an open .dbf file. All methods are safe for concurrent use.
type Table struct {
	mu            sync.Mutex
	path          string
	file          *os.File
	cfg           *Config
	log           *logging.Logger
	codec         codec
	header        section.TableHeader
	fields        []Field
	row           RowCache
	headerPending bool // header must be written before the first row
	updated       bool
	closed        bool
}

// Open opens an existing .dbf file. path may use any extension; the .dbf sibling is used.
//
// Parameters:
//   - path: Path of the table or of any sibling file of the dataset
//   - opts: WithReadOnly, WithLogger, WithCharset, WithTrimSpace
//
// Returns:
//   - *Table: The open handle
//   - error: I/O errors, ErrInvalidHeaderSize or ErrInvalidFieldWidth
func Open(path string, opts ...Option) (*Table, error) {
	cfg, err := options.Build(defaultConfig, opts...)
	if err != nil {
		return nil, err
	}

	dbfPath := pathutil.Resolve(path, "dbf")
	log := cfg.logger.WithComponent("dbf").WithPath(dbfPath)

	flag := os.O_RDWR
	if cfg.readOnly {
		flag = os.O_RDONLY
	}

	file, err := os.OpenFile(dbfPath, flag, 0)
	if err != nil {
		log.LogIOError("open", err)
		return nil, err
	}

	t := &Table{
		path: dbfPath,
		file: file,
		cfg:  cfg,
		log:  log,
		row:  RowCache{rec: -1},
	}

	if err := t.load(); err != nil {
		file.Close()
		log.Warn("rejecting table", logging.KeyError, err)

		return nil, err
	}

	t.codec = codec{enc: cfg.charset}
	if t.codec.enc == nil {
		if enc, ok := LanguageDriverEncoding(t.header.LanguageDriver); ok {
			t.codec.enc = enc
		}
	}

	log.Debug("opened table", "records", t.header.RecordCount, "fields", len(t.fields))

	return t, nil
}

func (t *Table) load() error {
	hb := make([]byte, section.TableHeaderSize)
	if _, err := io.ReadFull(t.file, hb); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidHeaderSize, err)
	}
	if err := t.header.Parse(hb); err != nil {
		return err
	}

	desc := make([]byte, int(t.header.HeaderLength)-section.TableHeaderSize)
	if _, err := io.ReadFull(t.file, desc); err != nil {
		return fmt.Errorf("%w: field descriptors: %w", errs.ErrInvalidHeaderSize, err)
	}

	offset := section.DeletedFlagSize
	for pos := 0; pos+section.FieldDescriptorSize <= len(desc); pos += section.FieldDescriptorSize {
		if desc[pos] == section.HeaderTerminator {
			break
		}

		var d section.FieldDescriptor
		if err := d.Parse(desc[pos:]); err != nil {
			return err
		}

		t.fields = append(t.fields, fieldFromDescriptor(d, offset))
		offset += d.Width
	}

	if offset > int(t.header.RecordLength) {
		return fmt.Errorf("%w: fields span %d bytes, record length is %d",
			errs.ErrInvalidFieldWidth, offset, t.header.RecordLength)
	}

	return nil
}

// Create creates an empty table without fields, truncating an existing file.
//
// Parameters:
//   - path: Path of the table; the extension is replaced with .dbf
//   - opts: WithLogger, WithCharset
//
// Returns:
//   - *Table: The open handle
//   - error: ErrReadOnly or I/O errors
func Create(path string, opts ...Option) (*Table, error) {
	cfg, err := options.Build(defaultConfig, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.readOnly {
		return nil, fmt.Errorf("%w: cannot create %s", errs.ErrReadOnly, path)
	}

	dbfPath := pathutil.ReplaceExt(path, "dbf")
	log := cfg.logger.WithComponent("dbf").WithPath(dbfPath)

	file, err := os.OpenFile(dbfPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint: gosec
	if err != nil {
		log.LogIOError("create", err)
		return nil, err
	}

	t := &Table{
		path:    dbfPath,
		file:    file,
		cfg:     cfg,
		log:     log,
		codec:   codec{enc: cfg.charset},
		header:  *section.NewTableHeader(),
		row:     RowCache{rec: -1},
		updated: true,
	}
	t.header.LanguageDriver = languageDriverID(cfg.charset)
	t.header.SetModTime(time.Now())

	if err := t.writeHeader(); err != nil {
		file.Close()
		log.LogIOError("write header", err)

		return nil, err
	}

	return t, nil
}

// CloneEmpty creates a table at path with the same fields, language driver and charset
// but no rows.
func (t *Table) CloneEmpty(path string, opts ...Option) (*Table, error) {
	t.mu.Lock()
	fields := make([]Field, len(t.fields))
	copy(fields, t.fields)
	enc := t.codec.enc
	driver := t.header.LanguageDriver
	t.mu.Unlock()

	all := append([]Option{WithLogger(t.cfg.logger), WithCharset(enc)}, opts...)
	clone, err := Create(path, all...)
	if err != nil {
		return nil, err
	}
	clone.header.LanguageDriver = driver

	for _, f := range fields {
		if _, err := clone.addField(f.Name, f.Native, f.Width, f.Decimals); err != nil {
			clone.Close()
			return nil, err
		}
	}

	if err := clone.writeHeader(); err != nil {
		clone.Close()
		return nil, err
	}

	return clone, nil
}

// Path returns the path of the .dbf file.
func (t *Table) Path() string {
	return t.path
}

// Charset returns the encoding applied to string fields, nil when bytes pass through.
func (t *Table) Charset() encoding.Encoding {
	return t.codec.enc
}

// FieldCount returns the number of fields.
func (t *Table) FieldCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.fields)
}

// RecordCount returns the number of rows, appended rows included.
func (t *Table) RecordCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return int(t.header.RecordCount)
}

// RecordLength returns the size of one row in bytes, deletion flag included.
func (t *Table) RecordLength() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return int(t.header.RecordLength)
}

// Field returns the description of field i.
func (t *Table) Field(i int) (Field, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkField(i); err != nil {
		return Field{}, err
	}

	return t.fields[i], nil
}

// Fields returns a copy of all field descriptions.
func (t *Table) Fields() []Field {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Field, len(t.fields))
	copy(out, t.fields)

	return out
}

// NativeType returns the native type character of field i.
func (t *Table) NativeType(i int) (byte, error) {
	f, err := t.Field(i)
	if err != nil {
		return 0, err
	}

	return f.Native, nil
}

// FieldIndex finds a field by name. The comparison ignores case and looks at the first
// 10 characters only, which is all a descriptor stores.
func (t *Table) FieldIndex(name string) (int, error) {
	want := strings.ToUpper(significant(name))

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, f := range t.fields {
		if strings.ToUpper(significant(f.Name)) == want {
			return i, nil
		}
	}

	return -1, fmt.Errorf("%w: %q", errs.ErrFieldNotFound, name)
}

func significant(name string) string {
	if len(name) > section.FieldNameMaxLen {
		return name[:section.FieldNameMaxLen]
	}

	return name
}

// AddField appends a field to the schema.
//
// Parameters:
//   - name: Field name; only the first 10 bytes are stored
//   - typ: FieldString creates a C field, FieldInteger and FieldDouble create N fields
//   - width: Field width in bytes
//   - decimals: Digits after the decimal point; only allowed for FieldDouble
//
// Returns:
//   - int: Index of the new field
//   - error: ErrSchemaFrozen once rows exist, ErrInvalidDecimals, ErrInvalidFieldWidth, ErrInvalidArgument
func (t *Table) AddField(name string, typ format.FieldType, width, decimals int) (int, error) {
	var native byte
	switch typ {
	case format.FieldString:
		native = 'C'
	case format.FieldInteger, format.FieldDouble:
		native = 'N'
	default:
		return -1, fmt.Errorf("%w: field type %s", errs.ErrInvalidArgument, typ)
	}

	if typ != format.FieldDouble && decimals != 0 {
		return -1, fmt.Errorf("%w: %s field %q has %d decimals", errs.ErrInvalidDecimals, typ, name, decimals)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.addField(name, native, width, decimals)
}

func (t *Table) addField(name string, native byte, width, decimals int) (int, error) {
	if err := t.checkWritable(); err != nil {
		return -1, err
	}
	if t.header.RecordCount > 0 {
		return -1, fmt.Errorf("%w: %d records exist", errs.ErrSchemaFrozen, t.header.RecordCount)
	}
	if name == "" {
		return -1, fmt.Errorf("%w: empty field name", errs.ErrInvalidArgument)
	}

	limit := math.MaxUint16
	if native != 'C' {
		limit = maxNumericWidth
	}
	if width < 1 || width > limit {
		return -1, fmt.Errorf("%w: %q width %d", errs.ErrInvalidFieldWidth, name, width)
	}
	if decimals < 0 || decimals > maxNumericWidth {
		return -1, fmt.Errorf("%w: %q decimals %d", errs.ErrInvalidDecimals, name, decimals)
	}
	if int(t.header.RecordLength)+width > math.MaxUint16 ||
		int(t.header.HeaderLength)+section.FieldDescriptorSize > math.MaxUint16 {
		return -1, fmt.Errorf("%w: row or header too long", errs.ErrInvalidFieldWidth)
	}

	t.fields = append(t.fields, Field{
		Name:     significant(name),
		Native:   native,
		Width:    width,
		Decimals: decimals,
		offset:   int(t.header.RecordLength),
	})
	t.header.RecordLength += uint16(width) //nolint: gosec
	t.header.HeaderLength += section.FieldDescriptorSize
	t.headerPending = true
	t.updated = true

	return len(t.fields) - 1, nil
}

// Cached reports the row held in memory (-1 when none) and whether it has unwritten changes.
func (t *Table) Cached() (rec int, dirty bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.row.rec, t.row.dirty
}

// Flush writes the cached row when dirty, then the header.
func (t *Table) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errs.ErrClosed
	}
	if t.cfg.readOnly {
		return nil
	}

	if err := t.flushRow(); err != nil {
		return err
	}
	if !t.updated && !t.headerPending {
		return nil
	}

	return t.writeHeader()
}

// ReadString returns the text of a field decoded with the table charset. Blanks are
// trimmed unless WithTrimSpace(false) was given.
func (t *Table) ReadString(rec, field int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := t.fieldBytes(rec, field)
	if err != nil {
		return "", err
	}

	raw = cutNUL(raw)
	if t.cfg.trimSpace {
		raw = bytes.TrimSpace(raw)
	}

	return t.codec.decode(raw), nil
}

// ReadInt returns a numeric field as int. Blank and malformed values read as 0;
// use IsNull to tell NULL apart.
func (t *Table) ReadInt(rec, field int) (int, error) {
	v, err := t.ReadInt64(rec, field)
	return int(v), err
}

// ReadInt64 returns a numeric field as int64. Fractions are truncated.
func (t *Table) ReadInt64(rec, field int) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := t.fieldBytes(rec, field)
	if err != nil {
		return 0, err
	}

	return parseInt(raw), nil
}

// ReadDouble returns a numeric field as float64.
func (t *Table) ReadDouble(rec, field int) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := t.fieldBytes(rec, field)
	if err != nil {
		return 0, err
	}

	return parseFloat(raw), nil
}

// Read returns a field as nil when NULL, otherwise as int64, float64 or string following
// the field's logical type.
func (t *Table) Read(rec, field int) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := t.fieldBytes(rec, field)
	if err != nil {
		return nil, err
	}

	f := t.fields[field]
	if isNullValue(f.Native, raw) {
		return nil, nil
	}

	switch f.Type() {
	case format.FieldInteger:
		return parseInt(raw), nil
	case format.FieldDouble:
		return parseFloat(raw), nil
	default:
		raw = cutNUL(raw)
		if t.cfg.trimSpace {
			raw = bytes.TrimSpace(raw)
		}

		return t.codec.decode(raw), nil
	}
}

// IsNull reports whether a field holds the NULL marker of its type.
func (t *Table) IsNull(rec, field int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := t.fieldBytes(rec, field)
	if err != nil {
		return false, err
	}

	return isNullValue(t.fields[field].Native, raw), nil
}

// ReadTuple returns a copy of the raw row, deletion flag included.
func (t *Table) ReadTuple(rec int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.loadRow(rec); err != nil {
		return nil, err
	}

	out := make([]byte, len(t.row.buf))
	copy(out, t.row.buf)

	return out, nil
}

// WriteTuple replaces a whole row with raw, which must be exactly one record long.
// rec may equal RecordCount to append.
func (t *Table) WriteTuple(rec int, raw []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(raw) != int(t.header.RecordLength) {
		return fmt.Errorf("%w: tuple of %d bytes, record length is %d",
			errs.ErrInvalidArgument, len(raw), t.header.RecordLength)
	}

	if err := t.prepareWrite(rec); err != nil {
		return err
	}
	copy(t.row.buf, raw)

	return nil
}

// WriteInt stores v in a field.
func (t *Table) WriteInt(rec, field, v int) error {
	return t.WriteInt64(rec, field, int64(v))
}

// WriteInt64 stores v in a field. Numeric fields without decimals keep every digit.
func (t *Table) WriteInt64(rec, field int, v int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.writeField(rec, field, func(f Field) []byte {
		if f.isNumeric() {
			return formatInt(f, v)
		}

		return fitLeft(t.codec.encode(strconv.FormatInt(v, 10)), f.Width)
	})
}

// WriteDouble stores v in a field using the field's decimals.
func (t *Table) WriteDouble(rec, field int, v float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.writeField(rec, field, func(f Field) []byte {
		if f.isNumeric() {
			return formatFloat(f, v)
		}

		return fitLeft(t.codec.encode(strconv.FormatFloat(v, 'f', -1, 64)), f.Width)
	})
}

// WriteString stores s encoded with the table charset, blank padded and cut to the width.
func (t *Table) WriteString(rec, field int, s string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.writeField(rec, field, func(f Field) []byte {
		if f.Native == 'L' && s != "" {
			return fitLeft([]byte(s[:1]), f.Width)
		}

		return fitLeft(t.codec.encode(s), f.Width)
	})
}

// WriteNull fills a field with the NULL marker of its type.
func (t *Table) WriteNull(rec, field int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.writeField(rec, field, func(f Field) []byte {
		return bytes.Repeat([]byte{nullFill(f.Native)}, f.Width)
	})
}

// Write stores a Go value: nil writes NULL, integers and floats go through the numeric
// writers, bool writes T or F, and strings are written as text.
func (t *Table) Write(rec, field int, value any) error {
	switch v := value.(type) {
	case nil:
		return t.WriteNull(rec, field)
	case int:
		return t.WriteInt64(rec, field, int64(v))
	case int8:
		return t.WriteInt64(rec, field, int64(v))
	case int16:
		return t.WriteInt64(rec, field, int64(v))
	case int32:
		return t.WriteInt64(rec, field, int64(v))
	case int64:
		return t.WriteInt64(rec, field, v)
	case uint8:
		return t.WriteInt64(rec, field, int64(v))
	case uint16:
		return t.WriteInt64(rec, field, int64(v))
	case uint32:
		return t.WriteInt64(rec, field, int64(v))
	case float32:
		return t.WriteDouble(rec, field, float64(v))
	case float64:
		return t.WriteDouble(rec, field, v)
	case bool:
		if v {
			return t.WriteString(rec, field, "T")
		}

		return t.WriteString(rec, field, "F")
	case string:
		return t.WriteString(rec, field, v)
	default:
		return fmt.Errorf("%w: unsupported value type %T", errs.ErrInvalidArgument, value)
	}
}

// Close flushes the cached row, rewrites the header when the table changed and closes
// the file. Calling Close again is a no-op.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	var flushErr error
	if !t.cfg.readOnly {
		flushErr = t.flushRow()
		if flushErr == nil && t.updated {
			t.header.SetModTime(time.Now())
			flushErr = t.writeHeader()
		}
		if flushErr != nil {
			t.log.LogIOError("close", flushErr)
		}
	}

	return errors.Join(flushErr, t.file.Close())
}

func (t *Table) checkWritable() error {
	if t.closed {
		return errs.ErrClosed
	}
	if t.cfg.readOnly {
		return fmt.Errorf("%w: %s", errs.ErrReadOnly, t.path)
	}

	return nil
}

func (t *Table) checkField(i int) error {
	if i < 0 || i >= len(t.fields) {
		return fmt.Errorf("%w: field %d of %d", errs.ErrFieldOutOfRange, i, len(t.fields))
	}

	return nil
}

// fieldBytes returns the bytes of a field inside the cached row. The slice aliases the cache.
func (t *Table) fieldBytes(rec, field int) ([]byte, error) {
	if err := t.checkField(field); err != nil {
		return nil, err
	}
	if err := t.loadRow(rec); err != nil {
		return nil, err
	}

	f := t.fields[field]

	return t.row.buf[f.offset : f.offset+f.Width], nil
}

func (t *Table) writeField(rec, field int, render func(Field) []byte) error {
	if err := t.checkField(field); err != nil {
		return err
	}
	if err := t.prepareWrite(rec); err != nil {
		return err
	}

	f := t.fields[field]
	copy(t.row.buf[f.offset:f.offset+f.Width], render(f))

	return nil
}

// loadRow makes rec the cached row, writing back a dirty row first.
func (t *Table) loadRow(rec int) error {
	if t.closed {
		return errs.ErrClosed
	}
	if rec < 0 || rec >= int(t.header.RecordCount) {
		return fmt.Errorf("%w: record %d of %d", errs.ErrRecordOutOfRange, rec, t.header.RecordCount)
	}
	if t.row.rec == rec {
		return nil
	}

	if err := t.flushRow(); err != nil {
		return err
	}

	buf := t.rowBuffer()
	if _, err := t.file.ReadAt(buf, t.rowOffset(rec)); err != nil {
		t.row.rec = -1
		t.log.LogIOError("read row", err)

		return fmt.Errorf("%w: record %d: %w", errs.ErrTruncatedRecord, rec, err)
	}
	t.row.rec = rec

	return nil
}

// prepareWrite makes rec the cached, dirty row. rec == RecordCount appends a blank row.
func (t *Table) prepareWrite(rec int) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if rec < 0 || rec > int(t.header.RecordCount) {
		return fmt.Errorf("%w: record %d of %d", errs.ErrRecordOutOfRange, rec, t.header.RecordCount)
	}

	if t.headerPending {
		if err := t.writeHeader(); err != nil {
			return err
		}
	}

	if rec == int(t.header.RecordCount) {
		if err := t.flushRow(); err != nil {
			return err
		}

		buf := t.rowBuffer()
		for i := range buf {
			buf[i] = ' '
		}
		t.header.RecordCount++
		t.row.rec = rec
	} else if err := t.loadRow(rec); err != nil {
		return err
	}

	t.row.dirty = true
	t.updated = true

	return nil
}

func (t *Table) rowBuffer() []byte {
	n := int(t.header.RecordLength)
	if cap(t.row.buf) < n {
		t.row.buf = make([]byte, n)
	}
	t.row.buf = t.row.buf[:n]

	return t.row.buf
}

func (t *Table) rowOffset(rec int) int64 {
	return int64(t.header.HeaderLength) + int64(rec)*int64(t.header.RecordLength)
}

func (t *Table) flushRow() error {
	if !t.row.dirty {
		return nil
	}

	if _, err := t.file.WriteAt(t.row.buf, t.rowOffset(t.row.rec)); err != nil {
		t.log.LogIOError("write row", err)
		return err
	}
	t.row.dirty = false

	return nil
}

// writeHeader writes the table header, the field descriptors and the terminator.
func (t *Table) writeHeader() error {
	buf := make([]byte, 0, int(t.header.HeaderLength))
	buf = append(buf, t.header.Bytes()...)
	for _, f := range t.fields {
		d := f.descriptor()
		buf = append(buf, d.Bytes()...)
	}
	buf = append(buf, section.HeaderTerminator)

	// Opened tables may reserve more or less header space than the descriptors need.
	for len(buf) < int(t.header.HeaderLength) {
		buf = append(buf, 0)
	}
	buf = buf[:t.header.HeaderLength]

	if _, err := t.file.WriteAt(buf, 0); err != nil {
		t.log.LogIOError("write header", err)
		return err
	}
	t.headerPending = false

	return nil
}
