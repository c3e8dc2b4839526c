package cache

import "sync"

// node is an entry in the recency list. The head is the most recently
// used entry and the tail the least recently used.
type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

// Stats reports cache activity.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a fixed-capacity LRU cache. When an insertion exceeds the
// capacity the least recently used entry is evicted and passed to the
// eviction callback.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*node[K, V]
	head     *node[K, V]
	tail     *node[K, V]
	capacity int
	onEvict  func(K, V)
	stats    Stats
}

// New creates a cache holding at most capacity entries. A capacity of 0
// means unlimited. onEvict may be nil.
func New[K comparable, V any](capacity int, onEvict func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries:  make(map[K]*node[K, V]),
		capacity: max(capacity, 0),
		onEvict:  onEvict,
	}
}

// Get returns the value for key and marks it as recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	c.moveToFront(n)
	return n.value, true
}

// Set stores value under key. A value already stored under key is passed
// to the eviction callback.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	evicted := c.setLocked(key, value)
	c.mu.Unlock()
	c.evict(evicted)
}

// GetOrCreate returns the cached value for key, calling create on a miss.
// create runs without the lock held; if two callers race, the first value
// stored wins and the loser's value is passed to the eviction callback.
// Errors from create are returned and nothing is cached.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	if n, ok := c.entries[key]; ok {
		c.moveToFront(n)
		winner := n.value
		c.mu.Unlock()
		c.evict([]*node[K, V]{{key: key, value: v}})
		return winner, nil
	}
	evicted := c.setLocked(key, v)
	c.mu.Unlock()
	c.evict(evicted)
	return v, nil
}

// Delete removes key, passing its value to the eviction callback.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	n, ok := c.entries[key]
	if ok {
		c.unlink(n)
		delete(c.entries, key)
	}
	c.mu.Unlock()
	if ok {
		c.evict([]*node[K, V]{n})
	}
	return ok
}

// Clear removes every entry, oldest first, passing each to the eviction
// callback.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	var all []*node[K, V]
	for n := c.tail; n != nil; n = n.prev {
		all = append(all, n)
	}
	clear(c.entries)
	c.head, c.tail = nil, nil
	c.mu.Unlock()
	c.evict(all)
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Len = len(c.entries)
	s.Capacity = c.capacity
	return s
}

// setLocked inserts or replaces key and returns the nodes pushed out.
func (c *Cache[K, V]) setLocked(key K, value V) []*node[K, V] {
	var out []*node[K, V]
	if n, ok := c.entries[key]; ok {
		out = append(out, &node[K, V]{key: key, value: n.value})
		n.value = value
		c.moveToFront(n)
		return out
	}

	n := &node[K, V]{key: key, value: value}
	c.entries[key] = n
	c.pushFront(n)
	for c.capacity > 0 && len(c.entries) > c.capacity {
		oldest := c.tail
		c.unlink(oldest)
		delete(c.entries, oldest.key)
		c.stats.Evictions++
		out = append(out, oldest)
	}
	return out
}

// evict runs the callback outside the lock so it may call back into the
// cache.
func (c *Cache[K, V]) evict(nodes []*node[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, n := range nodes {
		c.onEvict(n.key, n.value)
	}
}

func (c *Cache[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *Cache[K, V]) moveToFront(n *node[K, V]) {
	if n == c.head {
		return
	}
	c.unlink(n)
	c.pushFront(n)
}

func (c *Cache[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
