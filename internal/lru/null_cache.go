package lru

// NullCache stores nothing.
type NullCache[V any] struct{}

func (NullCache[V]) Add(key uint64, value V) bool { return false }

func (NullCache[V]) Get(key uint64) (V, bool) {
	var zero V
	return zero, false
}

func (NullCache[V]) Remove(key uint64) {}

func (NullCache[V]) Purge() {}
