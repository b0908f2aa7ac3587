package quadtree

import (
	"fmt"

	"github.com/arloliu/geoshape/endian"
	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
	"github.com/arloliu/geoshape/internal/options"
)

// SplitMode selects how many children a node creates when it splits.
type SplitMode uint8

const (
	// SplitQuad splits a node in two along its longer axis, then each half again, giving four children.
	SplitQuad SplitMode = iota
	// SplitBinary splits a node once, giving two children.
	SplitBinary
)

func (m SplitMode) String() string {
	switch m {
	case SplitQuad:
		return "Quad"
	case SplitBinary:
		return "Binary"
	default:
		return "Unknown"
	}
}

// Config holds the tree shape and the .idx encoding settings.
type Config struct {
	maxDepth    int
	dims        int
	split       SplitMode
	compression format.CompressionType
	engine      endian.EndianEngine
	legacy      bool
}

func defaultConfig() *Config {
	return &Config{
		dims:        2,
		split:       SplitQuad,
		compression: format.CompressionNone,
		engine:      endian.GetLittleEndianEngine(),
	}
}

// Option configures a Tree.
type Option = options.Option[*Config]

// WithMaxDepth limits the number of levels. 0 lets Build pick a depth from the shape count.
func WithMaxDepth(depth int) Option {
	return options.New(func(c *Config) error {
		if depth < 0 {
			return fmt.Errorf("%w: max depth %d", errs.ErrInvalidArgument, depth)
		}
		c.maxDepth = depth

		return nil
	})
}

// WithDimensions sets how many of x, y, z and m the containment and overlap tests use.
func WithDimensions(dims int) Option {
	return options.New(func(c *Config) error {
		if dims < 2 || dims > 4 {
			return fmt.Errorf("%w: %d dimensions", errs.ErrInvalidArgument, dims)
		}
		c.dims = dims

		return nil
	})
}

// WithSplitMode selects quad or binary node splitting.
func WithSplitMode(mode SplitMode) Option {
	return options.New(func(c *Config) error {
		if mode != SplitQuad && mode != SplitBinary {
			return fmt.Errorf("%w: split mode %d", errs.ErrInvalidArgument, mode)
		}
		c.split = mode

		return nil
	})
}

// WithCompression sets the payload compression used by Encode.
func WithCompression(compression format.CompressionType) Option {
	return options.New(func(c *Config) error {
		switch compression {
		case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
			c.compression = compression
			return nil
		default:
			return fmt.Errorf("%w: compression %s", errs.ErrInvalidArgument, compression)
		}
	})
}

// WithByteOrder sets the payload byte order used by Encode. The default is little-endian.
func WithByteOrder(engine endian.EndianEngine) Option {
	return options.NoError(func(c *Config) {
		if engine != nil {
			c.engine = engine
		}
	})
}

// WithLegacyFormat makes Encode write the headerless layout in host byte order, without
// compression or checksum.
func WithLegacyFormat() Option {
	return options.NoError(func(c *Config) {
		c.legacy = true
	})
}
