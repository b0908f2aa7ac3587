package geoshape

import (
	"fmt"
	"runtime"

	"golang.org/x/text/encoding"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/format"
	"github.com/arloliu/geoshape/internal/options"
	"github.com/arloliu/geoshape/logging"
)

// Config holds the settings of a Dataset.
type Config struct {
	tree           bool
	maxDepth       int
	mbr            bool
	readOnly       bool
	logger         *logging.Logger
	charset        encoding.Encoding
	compression    format.CompressionType
	outerRingFlags bool
	cacheSize      int
	concurrency    int
}

func defaultConfig() *Config {
	return &Config{
		tree:        true,
		mbr:         true,
		logger:      logging.NoopLogger(),
		compression: format.CompressionZstd,
		concurrency: runtime.GOMAXPROCS(0),
	}
}

// Option configures a Dataset.
type Option = options.Option[*Config]

// WithTree controls whether Open loads or builds the spatial index. Default true.
func WithTree(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.tree = enabled
	})
}

// WithMaxDepth sets the depth of a built index. 0, the default, derives it from the shape count.
func WithMaxDepth(depth int) Option {
	return options.New(func(c *Config) error {
		if depth < 0 {
			return fmt.Errorf("%w: max depth %d", errs.ErrInvalidArgument, depth)
		}
		c.maxDepth = depth

		return nil
	})
}

// WithMBRFile controls whether the .mbr side-file is used and kept current. Default true.
func WithMBRFile(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.mbr = enabled
	})
}

// WithReadOnly opens every file read-only. Missing or stale index files are then rebuilt
// in memory only.
func WithReadOnly() Option {
	return options.NoError(func(c *Config) {
		c.readOnly = true
	})
}

// WithLogger sets the logger shared by the dataset and its files.
func WithLogger(l *logging.Logger) Option {
	return options.NoError(func(c *Config) {
		c.logger = logging.OrNoop(l)
	})
}

// WithCharset sets the encoding of string attributes. Without it the table header decides.
func WithCharset(enc encoding.Encoding) Option {
	return options.NoError(func(c *Config) {
		c.charset = enc
	})
}

// WithIndexCompression sets the compression of saved .idx files. Default zstd.
func WithIndexCompression(compression format.CompressionType) Option {
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

// WithOuterRingFlags makes ReadShape mark polygon parts as outer or inner rings by orientation.
func WithOuterRingFlags(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.outerRingFlags = enabled
	})
}

// WithShapeCache keeps up to n decoded shapes in memory.
func WithShapeCache(n int) Option {
	return options.New(func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("%w: shape cache size %d", errs.ErrInvalidArgument, n)
		}
		c.cacheSize = n

		return nil
	})
}

// WithConcurrency limits the parallel reads of Confirm and OpenAll. Default GOMAXPROCS.
func WithConcurrency(n int) Option {
	return options.New(func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: concurrency %d", errs.ErrInvalidArgument, n)
		}
		c.concurrency = n

		return nil
	})
}
