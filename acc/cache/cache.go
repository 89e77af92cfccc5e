// Package cache provides the shared read-through cache used for
// expensive aggregate reads. It is never the source of truth; every
// entry is rebuildable from the database.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const defaultSize = 10000

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is a bounded LRU with TTL and prefix invalidation. Writers call
// DeleteMatch after any mutation that changes a cached aggregate.
type Cache struct {
	lru *lru.Cache
	ttl time.Duration
}

func New(ttl time.Duration) *Cache {
	c, _ := lru.New(defaultSize)
	return &Cache{lru: c, ttl: ttl}
}

// Key builders keep invalidation call sites typed rather than
// stringly-matched across the codebase.
func CatalogKey() string               { return "catalog:all" }
func PermissionKey(userID int64) string { return fmt.Sprintf("permissions:user:%d", userID) }
func GroupClosureKey() string          { return "permissions:groups" }
func TopBellsKey(limit int) string     { return fmt.Sprintf("topbells:%d", limit) }

// Get returns the cached value for key, loading and storing it on miss.
func (c *Cache) Get(ctx context.Context, key string, load func(context.Context) (interface{}, error)) (interface{}, error) {
	if v, ok := c.lru.Get(key); ok {
		e := v.(entry)
		if time.Now().Before(e.expiresAt) {
			return e.value, nil
		}
		c.lru.Remove(key)
	}

	value, err := load(ctx)
	if err != nil {
		return nil, err
	}

	c.lru.Add(key, entry{value: value, expiresAt: time.Now().Add(c.ttl)})
	return value, nil
}

// Peek returns the cached value without loading on miss.
func (c *Cache) Peek(key string) (interface{}, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if time.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Delete removes a single key.
func (c *Cache) Delete(key string) {
	c.lru.Remove(key)
}

// DeleteMatch removes every key sharing the given prefix.
func (c *Cache) DeleteMatch(prefix string) int {
	removed := 0
	for _, k := range c.lru.Keys() {
		key, ok := k.(string)
		if !ok {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(k)
			removed++
		}
	}
	return removed
}

// Purge drops everything.
func (c *Cache) Purge() {
	c.lru.Purge()
}
