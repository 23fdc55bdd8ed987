package service

import (
	"sync"

	"lexassist-backend/metrics"
	"lexassist-backend/models"
	"lexassist-backend/retrieval"
)

// IndexCache holds the retrieval index of the latest corpus snapshot.
// Services built from the same repository should share one.
type IndexCache struct {
	mu        sync.Mutex
	indexedAt *models.Corpus
	index     *retrieval.Index
}

func NewIndexCache() *IndexCache {
	return &IndexCache{}
}

// For reuses the index until the repository publishes a new snapshot
func (c *IndexCache) For(corpus *models.Corpus) *retrieval.Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil || c.indexedAt != corpus {
		c.index = retrieval.NewIndex(corpus.Sections())
		c.indexedAt = corpus
		metrics.CorpusSections.Set(float64(c.index.Len()))
	}
	return c.index
}
