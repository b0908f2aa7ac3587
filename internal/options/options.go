// Package options implements the functional option pattern shared by every geoshape handle.
//
// Each package declares its own config struct and an alias such as
//
//	type Option = options.Option[*Config]
//
// so callers write shp.WithReadOnly() or quadtree.WithMaxDepth(6) without seeing the generics.
package options

// Option represents a functional option for configuring any type T.
type Option[T any] interface {
	apply(T) error
}

// Func is a generic functional option that wraps a function.
type Func[T any] struct {
	applyFunc func(T) error
}

func (f *Func[T]) apply(target T) error {
	return f.applyFunc(target)
}

// New creates a new functional option from a function that may reject its input.
func New[T any](fn func(T) error) *Func[T] {
	return &Func[T]{applyFunc: fn}
}

// NoError creates a functional option from a function that cannot fail.
func NoError[T any](fn func(T)) *Func[T] {
	return &Func[T]{
		applyFunc: func(target T) error {
			fn(target)
			return nil
		},
	}
}

// Apply applies options to target in order and stops at the first error.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}

// Build creates a config from defaults and applies opts to it.
//
// Parameters:
//   - defaults: Constructor returning a config populated with default values
//   - opts: Options applied in order
//
// Returns:
//   - T: The configured value (the defaults value when an option fails)
//   - error: The first option error
func Build[T any](defaults func() T, opts ...Option[T]) (T, error) {
	cfg := defaults()
	err := Apply(cfg, opts...)

	return cfg, err
}
