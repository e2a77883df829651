package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLRUCacheSetAndGet(t *testing.T) {
	c := NewLRUCache(10, 0)

	c.Set("points:user-1", "42")

	value, found := c.Get("points:user-1")
	if !found {
		t.Fatal("expected to find points:user-1")
	}
	if value != "42" {
		t.Errorf("expected 42, got %q", value)
	}
	if _, found := c.Get("points:user-2"); found {
		t.Error("expected miss for points:user-2")
	}
}

func TestLRUCacheUpdateExisting(t *testing.T) {
	c := NewLRUCache(10, 0)

	c.Set("profile:u1", "v1")
	c.Set("profile:u1", "v2")

	value, found := c.Get("profile:u1")
	if !found || value != "v2" {
		t.Errorf("expected v2, got %q (found=%v)", value, found)
	}
	if c.Len() != 1 {
		t.Errorf("expected length 1, got %d", c.Len())
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache(3, 0)

	c.Set("k1", "v1")
	c.Set("k2", "v2")
	c.Set("k3", "v3")

	// Touch k1 so k2 becomes the eviction candidate.
	c.Get("k1")
	c.Set("k4", "v4")

	if c.Len() != 3 {
		t.Errorf("expected length 3, got %d", c.Len())
	}
	if _, found := c.Get("k2"); found {
		t.Error("expected k2 to be evicted")
	}
	if _, found := c.Get("k1"); !found {
		t.Error("expected k1 to survive after being touched")
	}
	if _, found := c.Get("k4"); !found {
		t.Error("expected k4 to be present")
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache(10, 10*time.Millisecond)

	c.Set("points:u1", "30")
	if _, found := c.Get("points:u1"); !found {
		t.Fatal("expected fresh entry to be readable")
	}

	time.Sleep(20 * time.Millisecond)

	if _, found := c.Get("points:u1"); found {
		t.Error("expected entry to expire")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry to be dropped, length %d", c.Len())
	}
}

func TestLRUCacheDeleteAndClear(t *testing.T) {
	c := NewLRUCache(10, 0)

	c.Set("k1", "v1")
	c.Set("k2", "v2")

	c.Delete("k1")
	if _, found := c.Get("k1"); found {
		t.Error("expected k1 to be deleted")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after clear, got %d", c.Len())
	}
}

func TestLRUCacheConcurrentAccess(t *testing.T) {
	c := NewLRUCache(100, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("points:user-%d", n)
				c.Set(key, fmt.Sprintf("%d", j))
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
}
