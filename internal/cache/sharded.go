package cache

import "hash/fnv"

// ShardCount is the number of shards of a Sharded cache. Must be a power
// of two.
const ShardCount = 16

// Hasher computes the hash used to pick a key's shard.
type Hasher[K any] func(K) uint64

// StringHasher computes the FNV-1a hash of s.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Sharded spreads entries over ShardCount independent LRU caches to cut
// lock contention. Capacity and recency are per shard.
type Sharded[K comparable, V any] struct {
	shards [ShardCount]*Cache[K, V]
	hasher Hasher[K]
}

// NewSharded creates a sharded cache holding at most capacity entries per
// shard. onEvict may be nil.
func NewSharded[K comparable, V any](capacity int, hasher Hasher[K], onEvict func(K, V)) *Sharded[K, V] {
	s := &Sharded[K, V]{hasher: hasher}
	for i := range s.shards {
		s.shards[i] = New(capacity, onEvict)
	}
	return s
}

func (s *Sharded[K, V]) shard(key K) *Cache[K, V] {
	return s.shards[s.hasher(key)&(ShardCount-1)]
}

// Get returns the value for key.
func (s *Sharded[K, V]) Get(key K) (V, bool) { return s.shard(key).Get(key) }

// GetOrCreate returns the value for key, calling create on a miss.
func (s *Sharded[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	return s.shard(key).GetOrCreate(key, create)
}

// Delete removes key.
func (s *Sharded[K, V]) Delete(key K) bool { return s.shard(key).Delete(key) }

// Clear removes every entry.
func (s *Sharded[K, V]) Clear() {
	for _, c := range s.shards {
		c.Clear()
	}
}

// Len returns the number of entries across all shards.
func (s *Sharded[K, V]) Len() int {
	n := 0
	for _, c := range s.shards {
		n += c.Len()
	}
	return n
}

// Stats sums the counters of all shards.
func (s *Sharded[K, V]) Stats() Stats {
	var total Stats
	for _, c := range s.shards {
		st := c.Stats()
		total.Len += st.Len
		total.Capacity += st.Capacity
		total.Hits += st.Hits
		total.Misses += st.Misses
		total.Evictions += st.Evictions
	}
	return total
}
