package shp

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/arloliu/geoshape/shape"
)

// shapeCache holds decoded shapes by id. Every shape costs 1, so the capacity is a shape count.
type shapeCache struct {
	c *ristretto.Cache[int, *shape.Shape]
}

func newShapeCache(maxShapes int) (*shapeCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[int, *shape.Shape]{
		NumCounters: int64(maxShapes) * 10,
		MaxCost:     int64(maxShapes),
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &shapeCache{c: c}, nil
}

// get returns a private copy of the cached shape.
func (sc *shapeCache) get(id int) (*shape.Shape, bool) {
	if sc == nil {
		return nil, false
	}

	s, ok := sc.c.Get(id)
	if !ok {
		return nil, false
	}

	return s.Clone(), true
}

// put stores a copy of s; the caller keeps ownership of s.
func (sc *shapeCache) put(id int, s *shape.Shape) {
	if sc == nil {
		return
	}

	sc.c.Set(id, s.Clone(), 1)
}

func (sc *shapeCache) invalidate(id int) {
	if sc == nil {
		return
	}

	sc.c.Del(id)
}

// wait blocks until buffered writes are applied.
func (sc *shapeCache) wait() {
	if sc == nil {
		return
	}

	sc.c.Wait()
}

func (sc *shapeCache) close() {
	if sc == nil {
		return
	}

	sc.c.Close()
}
