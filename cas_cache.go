package memcache

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// casCache remembers the cas-id returned by Gets for each key, for a later
// CompareAndSwap. Concurrent writers race; the last one wins.
type casCache struct {
	ids *xsync.MapOf[string, uint64]
}

func newCasCache() *casCache {
	return &casCache{ids: xsync.NewMapOf[string, uint64]()}
}

func (c *casCache) store(key string, casID uint64) {
	c.ids.Store(key, casID)
}

func (c *casCache) load(key string) (uint64, bool) {
	return c.ids.Load(key)
}

func (c *casCache) reset() {
	c.ids.Clear()
}

func (c *casCache) size() int {
	return c.ids.Size()
}
