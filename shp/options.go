package shp

import (
	"fmt"

	"github.com/arloliu/geoshape/errs"
	"github.com/arloliu/geoshape/internal/options"
	"github.com/arloliu/geoshape/logging"
)

// Config holds the settings of a File handle.
type Config struct {
	logger    *logging.Logger
	readOnly  bool
	cacheSize int
}

func defaultConfig() *Config {
	return &Config{logger: logging.NoopLogger()}
}

// Option configures a File.
type Option = options.Option[*Config]

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *logging.Logger) Option {
	return options.NoError(func(c *Config) {
		c.logger = logging.OrNoop(l)
	})
}

// WithReadOnly opens the files without write access. Write returns ErrReadOnly.
func WithReadOnly() Option {
	return options.NoError(func(c *Config) {
		c.readOnly = true
	})
}

// WithShapeCache keeps up to maxShapes decoded shapes in memory. Zero disables the cache.
func WithShapeCache(maxShapes int) Option {
	return options.New(func(c *Config) error {
		if maxShapes < 0 {
			return fmt.Errorf("%w: shape cache size %d", errs.ErrInvalidArgument, maxShapes)
		}
		c.cacheSize = maxShapes

		return nil
	})
}
