package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/geoshape/format"
)

func TestShapeTypeMismatchError(t *testing.T) {
	var err error = &ShapeTypeMismatchError{Want: format.ShapePolygon, Got: format.ShapePoint}

	require.ErrorIs(t, err, ErrInvalidArgument)
	require.NotErrorIs(t, err, ErrInvalidMagicNumber)
	require.Equal(t, "shape type mismatch: file holds Polygon, got Point", err.Error())

	wrapped := fmt.Errorf("write shape 3: %w", err)
	require.ErrorIs(t, wrapped, ErrInvalidArgument)

	var mismatch *ShapeTypeMismatchError
	require.True(t, errors.As(wrapped, &mismatch))
	require.Equal(t, format.ShapePoint, mismatch.Got)
}

func TestSentinelWrapping(t *testing.T) {
	err := fmt.Errorf("%w: id 12 not in [0, 10)", ErrShapeIDOutOfRange)
	require.ErrorIs(t, err, ErrShapeIDOutOfRange)
	require.NotErrorIs(t, err, ErrRecordOutOfRange)
}
