package pool

import "sync"

// SlicePool pools slices of T so hot traversal loops do not allocate per call.
type SlicePool[T any] struct {
	pool sync.Pool
}

// NewSlicePool creates a pool whose fresh slices have capacity defaultCap.
func NewSlicePool[T any](defaultCap int) *SlicePool[T] {
	return &SlicePool[T]{
		pool: sync.Pool{
			New: func() any {
				s := make([]T, 0, defaultCap)
				return &s
			},
		},
	}
}

// Get retrieves an empty slice from the pool.
//
// The caller must call the returned cleanup function with the final slice, so that a
// slice grown by append goes back to the pool instead of the original one.
//
// Example:
//
//	stack, release := nodePool.Get()
//	stack = append(stack, root)
//	...
//	release(stack)
func (p *SlicePool[T]) Get() ([]T, func([]T)) {
	ptr, _ := p.pool.Get().(*[]T)
	slice := (*ptr)[:0]

	return slice, func(final []T) {
		clear(final)
		*ptr = final[:0]
		p.pool.Put(ptr)
	}
}

// GetSized retrieves a slice with length size, allocating when the pooled capacity is too small.
func (p *SlicePool[T]) GetSized(size int) ([]T, func([]T)) {
	slice, release := p.Get()
	if cap(slice) < size {
		slice = make([]T, size)
	} else {
		slice = slice[:size]
	}

	return slice, release
}
