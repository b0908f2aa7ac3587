package dbf

import (
	"golang.org/x/text/encoding"

	"github.com/arloliu/geoshape/internal/options"
	"github.com/arloliu/geoshape/logging"
)

// Config holds the settings of a Table handle.
type Config struct {
	logger    *logging.Logger
	readOnly  bool
	charset   encoding.Encoding
	trimSpace bool
}

func defaultConfig() *Config {
	return &Config{
		logger:    logging.NoopLogger(),
		trimSpace: true,
	}
}

// Option configures a Table.
type Option = options.Option[*Config]

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *logging.Logger) Option {
	return options.NoError(func(c *Config) {
		c.logger = logging.OrNoop(l)
	})
}

// WithReadOnly opens the table without write access.
func WithReadOnly() Option {
	return options.NoError(func(c *Config) {
		c.readOnly = true
	})
}

// WithCharset encodes and decodes string fields with enc. Field widths count encoded bytes.
// Without this option the language driver byte of the header picks the charset, and
// unknown drivers pass bytes through unchanged.
func WithCharset(enc encoding.Encoding) Option {
	return options.NoError(func(c *Config) {
		c.charset = enc
	})
}

// WithTrimSpace controls whether ReadString strips leading and trailing blanks. Default true.
func WithTrimSpace(trim bool) Option {
	return options.NoError(func(c *Config) {
		c.trimSpace = trim
	})
}
