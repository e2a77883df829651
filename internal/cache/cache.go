// Package cache provides a two-tier cache: an in-process LRU in front of
// Redis. The API server uses it for derived points balances and profile
// reads; both tiers are invalidated on every ledger mutation.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	l1Cache *LRUCache
	l2Cache *redis.Client
	l2TTL   time.Duration
}

// NewMultiTierCache builds the cache. A nil redisClient leaves only the
// in-process tier, which single-instance deployments and tests use.
func NewMultiTierCache(l1Capacity int, redisClient *redis.Client, l2TTL time.Duration) *Cache {
	return &Cache{
		l1Cache: NewLRUCache(l1Capacity, l2TTL),
		l2Cache: redisClient,
		l2TTL:   l2TTL,
	}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if val, found := c.l1Cache.Get(key); found {
		return val, true
	}
	if c.l2Cache == nil {
		return "", false
	}

	val, err := c.l2Cache.Get(ctx, key).Result()
	if err == nil {
		c.l1Cache.Set(key, val)
		return val, true
	}

	return "", false
}

func (c *Cache) Set(ctx context.Context, key string, value string) error {
	c.l1Cache.Set(key, value)
	if c.l2Cache == nil {
		return nil
	}
	return c.l2Cache.Set(ctx, key, value, c.l2TTL).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.l1Cache.Delete(key)
	if c.l2Cache == nil {
		return nil
	}
	return c.l2Cache.Del(ctx, key).Err()
}

// GetInt reads an integer value such as a cached points balance.
func (c *Cache) GetInt(ctx context.Context, key string) (int, bool) {
	val, found := c.Get(ctx, key)
	if !found {
		return 0, false
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *Cache) SetInt(ctx context.Context, key string, value int) error {
	return c.Set(ctx, key, strconv.Itoa(value))
}

func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, found := c.Get(ctx, key)
	if !found {
		return false, nil
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, string(data))
}
