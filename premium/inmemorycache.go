package premium

import (
	"sync"
)

// InMemoryArtifactCache is the single-initialization implementation of ArtifactCache
type InMemoryArtifactCache struct {
	set  *ArtifactSet
	err  error
	done bool
	mu   sync.Mutex
}

// NewInMemoryArtifactCache creates an empty cache
func NewInMemoryArtifactCache() *InMemoryArtifactCache {
	return &InMemoryArtifactCache{}
}

// Get returns the cached release if loading already succeeded
func (c *InMemoryArtifactCache) Get() (*ArtifactSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.done || c.err != nil {
		return nil, false
	}
	return c.set, true
}

// GetOrLoad runs load at most once. Its result, success or failure, is kept
// for the life of the cache.
func (c *InMemoryArtifactCache) GetOrLoad(load func() (*ArtifactSet, error)) (*ArtifactSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.done {
		c.set, c.err = load()
		if c.err == nil && c.set == nil {
			c.err = artifactErrorf("loader returned no release")
		}
		c.done = true
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.set, nil
}

// IsValid returns true if a release is loaded
func (c *InMemoryArtifactCache) IsValid() bool {
	_, ok := c.Get()
	return ok
}
