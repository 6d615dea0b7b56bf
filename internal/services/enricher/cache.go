package enricher

import (
	"sync"

	"chartpulse/internal/domain/catalog"
)

// Cache memoizes provider lookups for one ingestion run. It is owned by
// the enricher instance, unbounded within a run, and cleared between runs
// so no state leaks across snapshots.
type Cache struct {
	mu      sync.RWMutex
	tracks  map[string]*catalog.TrackMetadata
	artists map[string]*catalog.ArtistMetadata
	social  map[string]*catalog.SocialMetrics
}

// NewCache creates an empty per-run cache
func NewCache() *Cache {
	c := &Cache{}
	c.Reset()
	return c
}

// Reset clears all memoized lookups
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = make(map[string]*catalog.TrackMetadata)
	c.artists = make(map[string]*catalog.ArtistMetadata)
	c.social = make(map[string]*catalog.SocialMetrics)
}

func (c *Cache) track(id string) (*catalog.TrackMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tracks[id]
	return t, ok
}

func (c *Cache) putTrack(id string, t *catalog.TrackMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks[id] = t
}

func (c *Cache) artist(id string) (*catalog.ArtistMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.artists[id]
	return a, ok
}

func (c *Cache) putArtist(id string, a *catalog.ArtistMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artists[id] = a
}

func (c *Cache) socialMetrics(id string) (*catalog.SocialMetrics, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.social[id]
	return s, ok
}

func (c *Cache) putSocial(id string, s *catalog.SocialMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.social[id] = s
}
