package eta

import (
	"context"
	"sync"
	"time"

	"github.com/steerclearwm/steerclear/internal/models"
)

// Cache stores per-leg durations keyed by coordinate pair.
type Cache interface {
	Get(ctx context.Context, from, to models.Coord) (int, bool)
	Set(ctx context.Context, from, to models.Coord, seconds int)
}

func legKey(from, to models.Coord) string {
	return fmtCoord(from) + "->" + fmtCoord(to)
}

// MemoryCache is a tiny in-process TTL cache for leg durations.
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]memEntry
	ttl   time.Duration
}

type memEntry struct {
	secs int
	ts   time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{store: make(map[string]memEntry), ttl: ttl}
}

func (c *MemoryCache) Get(_ context.Context, from, to models.Coord) (int, bool) {
	k := legKey(from, to)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return 0, false
	}
	return e.secs, true
}

func (c *MemoryCache) Set(_ context.Context, from, to models.Coord, seconds int) {
	k := legKey(from, to)
	c.mu.Lock()
	c.store[k] = memEntry{secs: seconds, ts: time.Now()}
	c.mu.Unlock()
}

// CachedSource decorates a Source with a leg cache. The whole matrix is
// served from cache only when every pair is present; a single miss
// forwards the full query to the wrapped source. Failures pass through
// untouched and nothing is cached for them, so the fail-closed contract
// of the wrapped source is preserved.
type CachedSource struct {
	Source Source
	Cache  Cache
}

func (s *CachedSource) Legs(ctx context.Context, origins, destinations []models.Coord) ([][]int, error) {
	if s.Cache != nil {
		matrix := make([][]int, len(origins))
		hit := true
		for i, from := range origins {
			matrix[i] = make([]int, len(destinations))
			for j, to := range destinations {
				v, ok := s.Cache.Get(ctx, from, to)
				if !ok {
					hit = false
					break
				}
				matrix[i][j] = v
			}
			if !hit {
				break
			}
		}
		if hit && len(origins) > 0 {
			return matrix, nil
		}
	}

	matrix, err := s.Source.Legs(ctx, origins, destinations)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		for i, from := range origins {
			for j, to := range destinations {
				s.Cache.Set(ctx, from, to, matrix[i][j])
			}
		}
	}
	return matrix, nil
}
