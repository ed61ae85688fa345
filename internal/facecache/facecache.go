// Package facecache holds sized font faces in a sharded LRU cache.
//
// Faces are keyed by family, family generation and pixel size. A family
// that is reloaded gets a new generation, and DropFamily evicts its old
// faces without touching the other families.
package facecache

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
)

const (
	// ShardCount must be a power of 2.
	ShardCount = 16

	// DefaultCapacity is the per-shard capacity used when New gets <= 0.
	DefaultCapacity = 32

	shardMask = ShardCount - 1
)

// Key identifies one sized face.
type Key struct {
	Family string
	Gen    uint64
	SizePx float64
}

func (k Key) hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k.Family))
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], k.Gen)
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(k.SizePx))
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is safe for concurrent use.
type Cache[V any] struct {
	shards   [ShardCount]*shard[V]
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[V any] struct {
	mu      sync.Mutex
	entries map[Key]*entry[V]
	lru     lruList
}

type entry[V any] struct {
	value V
	node  *lruNode
}

// New creates a cache holding up to capacity faces per shard.
func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache[V]{capacity: capacity}
	for i := range c.shards {
		c.shards[i] = &shard[V]{entries: make(map[Key]*entry[V])}
	}
	return c
}

func (c *Cache[V]) shard(k Key) *shard[V] {
	return c.shards[k.hash()&shardMask]
}

// Get returns the cached face for k.
func (c *Cache[V]) Get(k Key) (V, bool) {
	s := c.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[k]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.lru.MoveToFront(e.node)
	c.hits.Add(1)
	return e.value, true
}

// GetOrCreate returns the cached face for k, creating it with create on a
// miss. create runs with the shard locked, so concurrent callers for the
// same key create it once.
func (c *Cache[V]) GetOrCreate(k Key, create func() V) V {
	s := c.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[k]; ok {
		s.lru.MoveToFront(e.node)
		c.hits.Add(1)
		return e.value
	}
	c.misses.Add(1)

	v := create()
	for s.lru.Len() >= c.capacity {
		oldest, ok := s.lru.RemoveOldest()
		if !ok {
			break
		}
		delete(s.entries, oldest)
		c.evictions.Add(1)
	}
	s.entries[k] = &entry[V]{value: v, node: s.lru.PushFront(k)}
	return v
}

// DropFamily removes every face of family and reports how many were removed.
func (c *Cache[V]) DropFamily(family string) int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if k.Family == family {
				s.lru.Remove(e.node)
				delete(s.entries, k)
				n++
			}
		}
		s.mu.Unlock()
	}
	return n
}

// Clear removes all faces.
func (c *Cache[V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[Key]*entry[V])
		s.lru.Clear()
		s.mu.Unlock()
	}
}

// Len returns the number of cached faces.
func (c *Cache[V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Stats returns the current counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
