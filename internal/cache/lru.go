package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is the in-process tier. Entries carry the same TTL as the
// Redis tier so a value can never outlive its L2 copy after an
// invalidation happens on another instance.
type LRUCache struct {
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List
	mu       sync.Mutex
}

type lruEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

// NewLRUCache returns a cache holding at most capacity entries. A zero
// ttl disables expiry.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	return &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *LRUCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.items[key]
	if !found {
		return "", false
	}

	ent := elem.Value.(*lruEntry)
	if !ent.expiresAt.IsZero() && time.Now().After(ent.expiresAt) {
		c.order.Remove(elem)
		delete(c.items, key)
		return "", false
	}

	c.order.MoveToFront(elem)
	return ent.value, true
}

func (c *LRUCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	if elem, found := c.items[key]; found {
		c.order.MoveToFront(elem)
		ent := elem.Value.(*lruEntry)
		ent.value = value
		ent.expiresAt = expiresAt
		return
	}

	c.items[key] = c.order.PushFront(&lruEntry{key: key, value: value, expiresAt: expiresAt})

	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}
}

func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.items[key]; found {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order = list.New()
}
