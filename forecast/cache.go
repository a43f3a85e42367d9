package forecast

import (
	"sync"
	"time"
)

// cacheLife is how long a cache generation stays valid. Re-running the
// block-building algorithm on every query is undesirable while the mempool
// locks are held, so repeat queries within this window are served from the
// cache.
const cacheLife = 30 * time.Second

// CachedEstimates holds the most recent mempool-based percentile
// estimates, keyed by confirmation target. Many readers may proceed in
// parallel; a writer replaces the whole map so no entry from an older
// generation can survive a refresh.
type CachedEstimates struct {
	mux         sync.RWMutex
	estimates   map[int]BlockPercentiles
	lastUpdated time.Time

	// now is the time source; replaced in tests.
	now func() time.Time
}

func NewCachedEstimates() *CachedEstimates {
	return &CachedEstimates{now: time.Now}
}

// Get returns the cached percentiles for target, or ok=false if the cache
// is stale or has no entry for target.
func (c *CachedEstimates) Get(target int) (BlockPercentiles, bool) {
	c.mux.RLock()
	defer c.mux.RUnlock()
	if c.now().Sub(c.lastUpdated) > cacheLife {
		return BlockPercentiles{}, false
	}
	p, ok := c.estimates[target]
	return p, ok
}

// Update replaces the entire cached map and resets the staleness clock.
func (c *CachedEstimates) Update(estimates map[int]BlockPercentiles) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.estimates = estimates
	c.lastUpdated = c.now()
}
