package valorant

import (
	"sync"
	"time"

	"traking-shop/internal/models"
)

// TierCache holds content tiers between imports. Tiers are reference data, so a zero TTL
// keeps them until Reset or process exit.
type TierCache struct {
	mu        sync.RWMutex
	tiers     map[string]models.ContentTier
	fetchedAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func NewTierCache(ttl time.Duration) *TierCache {
	return &TierCache{ttl: ttl, now: time.Now}
}

// Get returns a copy of the cached tiers, or false when empty or expired.
func (c *TierCache) Get() (map[string]models.ContentTier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.tiers) == 0 {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(c.fetchedAt) > c.ttl {
		return nil, false
	}
	out := make(map[string]models.ContentTier, len(c.tiers))
	for k, v := range c.tiers {
		out[k] = v
	}
	return out, true
}

func (c *TierCache) Set(tiers map[string]models.ContentTier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiers = make(map[string]models.ContentTier, len(tiers))
	for k, v := range tiers {
		c.tiers[k] = v
	}
	c.fetchedAt = c.now()
}

func (c *TierCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiers = nil
	c.fetchedAt = time.Time{}
}
