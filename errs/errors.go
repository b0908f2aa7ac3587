// Package errs defines the errors returned by geoshape packages.
//
// Call sites wrap these sentinels with context, so callers should test with errors.Is:
//
//	if errors.Is(err, errs.ErrShapeIDOutOfRange) { ... }
package errs

import (
	"errors"
	"fmt"

	"github.com/arloliu/geoshape/format"
)

// Format errors.
var (
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrInvalidMagicNumber = errors.New("invalid magic number")
	ErrInvalidRecordCount = errors.New("invalid record count")
	ErrInvalidIndexFile   = errors.New("invalid shape index file")
	ErrTruncatedRecord    = errors.New("truncated record")
	ErrInvalidTreeFile    = errors.New("invalid quadtree file")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
	ErrInvalidMBRFile     = errors.New("invalid mbr file")
)

// Range errors.
var (
	ErrShapeIDOutOfRange = errors.New("shape id out of range")
	ErrRecordOutOfRange  = errors.New("record index out of range")
	ErrFieldOutOfRange   = errors.New("field index out of range")
	ErrFieldNotFound     = errors.New("field not found")
)

// Schema and argument errors.
var (
	ErrSchemaFrozen         = errors.New("fields cannot be added once records exist")
	ErrInvalidDecimals      = errors.New("decimals are only allowed on double fields")
	ErrInvalidFieldWidth    = errors.New("invalid field width")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnsupportedShapeType = errors.New("unsupported shape type")
)

// State errors.
var (
	ErrReadOnly = errors.New("handle is read-only")
	ErrClosed   = errors.New("handle is closed")
	ErrNoIndex  = errors.New("spatial index is not available")
)

// ShapeTypeMismatchError is returned when a shape is written to a file of another type.
// It matches ErrInvalidArgument.
type ShapeTypeMismatchError struct {
	Want format.ShapeType
	Got  format.ShapeType
}

func (e *ShapeTypeMismatchError) Error() string {
	return fmt.Sprintf("shape type mismatch: file holds %s, got %s", e.Want, e.Got)
}

// Is reports whether target is ErrInvalidArgument.
func (e *ShapeTypeMismatchError) Is(target error) bool {
	return target == ErrInvalidArgument
}
