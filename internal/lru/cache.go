package lru

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

var ErrIllegalCapacity = errors.New("illegal lru cache capacity")
var ErrInvalidSharding = errors.New("invalid sharding")

// SizeFunc reports how many bytes of the budget a value occupies.
type SizeFunc[V any] func(v V) uint64

// Cache is a sharded LRU cache bounded by a total byte budget.
// It is safe for concurrent use.
type Cache[V any] struct {
	capacity uint64
	count    int64
	shards   []*shard[V]
	sizeOf   SizeFunc[V]
}

func NewCache[V any](shards int, maxTotalBytes uint64, sizeOf SizeFunc[V]) (*Cache[V], error) {
	if maxTotalBytes <= 2 {
		return nil, ErrIllegalCapacity
	}

	if shards < 1 {
		return nil, ErrInvalidSharding
	}

	c := Cache[V]{
		capacity: uint64(shards),
		shards:   make([]*shard[V], shards),
		sizeOf:   sizeOf,
	}

	shardMaxBytes := maxTotalBytes / c.capacity
	for i := range c.shards {
		c.shards[i] = newShard[V](shardMaxBytes)
	}

	return &c, nil
}

// Add stores value under key and returns true if eviction happened.
// A value larger than a whole shard is not stored.
func (c *Cache[V]) Add(key uint64, value V) bool {
	delta, evicted := c.getShard(key).add(key, value, c.sizeOf(value))
	atomic.AddInt64(&c.count, int64(delta))
	return evicted
}

func (c *Cache[V]) Get(key uint64) (V, bool) {
	return c.getShard(key).get(key)
}

func (c *Cache[V]) Remove(key uint64) {
	if c.getShard(key).remove(key) {
		atomic.AddInt64(&c.count, -1)
	}
}

func (c *Cache[V]) Purge() {
	var wg sync.WaitGroup

	wg.Add(len(c.shards))
	for i := range c.shards {
		go func(i int) {
			defer wg.Done()
			n := c.shards[i].purge()
			atomic.AddInt64(&c.count, -int64(n))
		}(i)
	}

	wg.Wait()
}

func (c *Cache[V]) Count() int {
	return int(atomic.LoadInt64(&c.count))
}

func (c *Cache[V]) Keys() []uint64 {
	keys := make([]uint64, 0, c.Count())
	for i := range c.shards {
		keys = append(keys, c.shards[i].keys()...)
	}

	return keys
}

func (c *Cache[V]) getShard(key uint64) *shard[V] {
	bs := make([]byte, 8)
	binary.LittleEndian.PutUint64(bs, key)
	hash := xxhash.Sum64(bs)
	return c.shards[hash%c.capacity]
}
