// Package cache memoizes trending tag rankings in process memory.
package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/louisbranch/indogram/internal/services/social/tags"
)

const trendingKey = "indogram:trending"

// Trending is a TTL cache for the trending tag ranking. A miss only costs
// one aggregation query.
type Trending struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewTrending builds a trending cache whose entries expire after ttl.
func NewTrending(ttl time.Duration) (*Trending, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("trending cache ttl must be positive")
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100,
		MaxCost:     10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("new trending cache: %w", err)
	}
	return &Trending{cache: cache, ttl: ttl}, nil
}

// Get returns the cached ranking when present and not expired.
func (t *Trending) Get() ([]tags.Count, bool) {
	if t == nil {
		return nil, false
	}
	value, ok := t.cache.Get(trendingKey)
	if !ok {
		return nil, false
	}
	counts, ok := value.([]tags.Count)
	return counts, ok
}

// Set stores ranking for the configured TTL.
func (t *Trending) Set(counts []tags.Count) {
	if t == nil {
		return
	}
	t.cache.SetWithTTL(trendingKey, counts, 1, t.ttl)
	t.cache.Wait()
}

// Invalidate drops the cached ranking.
func (t *Trending) Invalidate() {
	if t == nil {
		return
	}
	t.cache.Del(trendingKey)
}

// Close releases cache resources.
func (t *Trending) Close() {
	if t == nil {
		return
	}
	t.cache.Close()
}
