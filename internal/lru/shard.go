package lru

import (
	"container/list"
	"sync"
)

type shard[V any] struct {
	mu         sync.Mutex
	totalBytes uint64
	maxBytes   uint64
	evictList  *list.List
	elems      map[uint64]*list.Element
}

func newShard[V any](maxBytes uint64) *shard[V] {
	return &shard[V]{
		maxBytes:  maxBytes,
		evictList: list.New(),
		elems:     make(map[uint64]*list.Element),
	}
}

type entry[V any] struct {
	key   uint64
	value V
	size  uint64
}

func (s *shard[V]) get(key uint64) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.elems[key]; ok {
		s.evictList.MoveToFront(elem)
		return elem.Value.(*entry[V]).value, true
	}

	var zero V
	return zero, false
}

// add returns the change in the number of stored keys and whether older
// entries had to be evicted to make room.
func (s *shard[V]) add(key uint64, value V, size uint64) (delta int, evicted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if size > s.maxBytes {
		return 0, false
	}

	if elem, ok := s.elems[key]; ok {
		s.removeElementUnderLock(elem)
		delta--
	}

	// remove the oldest entries until the new value fits
	for s.totalBytes+size > s.maxBytes {
		if !s.removeOldestUnderLock() {
			break
		}
		delta--
		evicted = true
	}

	elem := s.evictList.PushFront(&entry[V]{key: key, value: value, size: size})
	s.elems[key] = elem
	s.totalBytes += size

	return delta + 1, evicted
}

func (s *shard[V]) remove(key uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.elems[key]
	if !ok {
		return false
	}

	s.removeElementUnderLock(elem)
	return true
}

func (s *shard[V]) purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.elems)
	s.elems = make(map[uint64]*list.Element)
	s.evictList.Init()
	s.totalBytes = 0

	return n
}

func (s *shard[V]) removeOldestUnderLock() bool {
	elem := s.evictList.Back()
	if elem == nil {
		return false
	}

	s.removeElementUnderLock(elem)
	return true
}

func (s *shard[V]) removeElementUnderLock(elem *list.Element) {
	s.evictList.Remove(elem)
	e := elem.Value.(*entry[V])
	delete(s.elems, e.key)
	s.totalBytes -= e.size
}

func (s *shard[V]) keys() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]uint64, 0, len(s.elems))
	for k := range s.elems {
		keys = append(keys, k)
	}
	return keys
}
