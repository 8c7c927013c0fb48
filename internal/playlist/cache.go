// Package playlist runs the now-playing pipeline and holds its latest result.
package playlist

import (
	"sync"
	"time"

	"github.com/jfmyers9/onair/internal/document"
)

// Snapshot is a published document plus its publish metadata
type Snapshot struct {
	Document  document.Document
	Version   uint64    // Number of successful publishes so far (0 before the first)
	UpdatedAt time.Time // When Document was published (zero before the first)
}

// Cache holds the last successfully built document with thread-safe access.
// Readers never wait on a pipeline run; they get whatever was last published.
type Cache struct {
	mu      sync.RWMutex
	current Snapshot
}

// NewCache creates a cache holding the empty document
func NewCache() *Cache {
	return &Cache{
		current: Snapshot{Document: document.Empty()},
	}
}

// Get returns the current document. Published documents are never mutated,
// so callers must treat the result as read-only.
func (c *Cache) Get() document.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current.Document
}

// Snapshot returns a copy of the current snapshot
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current
}

// Version returns the number of successful publishes
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current.Version
}

// UpdatedAt returns when the current document was published
func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current.UpdatedAt
}

// Publish atomically replaces the held document and returns the new version
func (c *Cache) Publish(doc document.Document) uint64 {
	if doc.Data == nil {
		doc.Data = []document.Resource{}
	}
	if doc.Included == nil {
		doc.Included = []document.Resource{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = Snapshot{
		Document:  doc,
		Version:   c.current.Version + 1,
		UpdatedAt: time.Now(),
	}

	return c.current.Version
}
