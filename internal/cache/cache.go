// Package cache holds rendered response bodies for read-only catalog views.
package cache

import (
	"strconv"
	"strings"
	"sync"
)

// DefaultMaxEntries bounds a cache created with a non-positive size.
const DefaultMaxEntries = 64

type entry struct {
	body      []byte
	insertIdx int64
}

// RenderCache maps a view key to its encoded body. The catalog behind it never
// changes, so entries do not expire; the oldest insert is evicted at capacity.
type RenderCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	maxEntries int
	nextIdx    int64
}

// New creates a RenderCache holding at most maxEntries bodies.
func New(maxEntries int) *RenderCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &RenderCache{
		items:      make(map[string]entry),
		maxEntries: maxEntries,
	}
}

// MakeKey builds a key from a view name and its ordered parameters.
func MakeKey(view string, params ...any) string {
	var b strings.Builder
	b.WriteString(view)
	for _, p := range params {
		b.WriteByte('|')
		switch v := p.(type) {
		case string:
			b.WriteString(strconv.Quote(v))
		case int:
			b.WriteString(strconv.Itoa(v))
		case bool:
			b.WriteString(strconv.FormatBool(v))
		}
	}
	return b.String()
}

// Get returns the cached body for key.
func (c *RenderCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	return e.body, ok
}

// GetOrRender returns the cached body for key, calling render on a miss and
// storing its result. Render errors are returned and nothing is stored.
func (c *RenderCache) GetOrRender(key string, render func() ([]byte, error)) ([]byte, error) {
	if body, ok := c.Get(key); ok {
		return body, nil
	}
	body, err := render()
	if err != nil {
		return nil, err
	}
	c.Set(key, body)
	return body, nil
}

// Set stores a body, evicting the oldest entry if at capacity.
func (c *RenderCache) Set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{body: body, insertIdx: c.nextIdx}
	c.nextIdx++

	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return
	}
	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}
	c.items[key] = e
}

// Len returns the number of cached bodies.
func (c *RenderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *RenderCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
