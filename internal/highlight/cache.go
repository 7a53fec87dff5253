package highlight

import (
	"context"
	"time"

	"github.com/zjrosen/markstyle/internal/cachemanager"
	"github.com/zjrosen/markstyle/internal/styler"
)

// Cache stores highlight results keyed by the exact literal text of a code
// block. It satisfies styler.Cache and is safe for concurrent use.
type Cache struct {
	manager cachemanager.CacheManager[string, styler.HighlightResult]
	ttl     time.Duration
}

var _ styler.Cache = (*Cache)(nil)

// NewCache creates a cache whose entries live for ttl after their last use.
// Non-positive durations select the cachemanager defaults.
func NewCache(ttl, cleanup time.Duration) *Cache {
	if ttl <= 0 {
		ttl = cachemanager.DefaultExpiration
	}
	if cleanup <= 0 {
		cleanup = cachemanager.DefaultCleanupInterval
	}
	return &Cache{
		manager: cachemanager.NewInMemoryCacheManager[string, styler.HighlightResult]("highlight", ttl, cleanup),
		ttl:     ttl,
	}
}

// Lookup returns the result stored for text and restarts its ttl.
func (c *Cache) Lookup(text string) (styler.HighlightResult, bool) {
	return c.manager.GetWithRefresh(context.Background(), text, c.ttl)
}

// Store records result for text.
func (c *Cache) Store(text string, result styler.HighlightResult) {
	c.manager.Set(context.Background(), text, result, c.ttl)
}

// Forget drops the entries for texts.
func (c *Cache) Forget(texts ...string) {
	_ = c.manager.Delete(context.Background(), texts...)
}

// Stats reports hits, misses and the number of entries.
func (c *Cache) Stats() cachemanager.Stats {
	return c.manager.Stats()
}
