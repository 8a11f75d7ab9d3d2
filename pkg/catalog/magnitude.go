// Package catalog implements the library's secondary indexes: the magnitude
// cache, the metadata equality index, the hierarchical topic index, and the
// BM25 inverted index. In-process maps in place of SQL-backed lookups.
package catalog

import "math"

// MagnitudeCache maps a volume id to the precomputed L2 magnitude of its embedding.
// Guarantees O(1) lookup; recomputes transparently on miss.
type MagnitudeCache struct {
	magnitudes map[string]float64
}

// NewMagnitudeCache creates an empty MagnitudeCache.
func NewMagnitudeCache() *MagnitudeCache {
	return &MagnitudeCache{magnitudes: make(map[string]float64)}
}

// Get returns the cached magnitude for id, recomputing from embedding on cache miss.
func (c *MagnitudeCache) Get(id string, embedding []float32) float64 {
	if m, ok := c.magnitudes[id]; ok {
		return m
	}
	return c.Set(id, embedding)
}

// Set computes and stores the magnitude of embedding under id.
func (c *MagnitudeCache) Set(id string, embedding []float32) float64 {
	var sumSq float64
	for _, v := range embedding {
		sumSq += float64(v) * float64(v)
	}
	m := math.Sqrt(sumSq)
	c.magnitudes[id] = m
	return m
}

// Remove drops the cached magnitude for id.
func (c *MagnitudeCache) Remove(id string) {
	delete(c.magnitudes, id)
}

// Clear empties the cache.
func (c *MagnitudeCache) Clear() {
	c.magnitudes = make(map[string]float64)
}

// Peek returns the cached magnitude without recomputing, and whether it was present.
func (c *MagnitudeCache) Peek(id string) (float64, bool) {
	m, ok := c.magnitudes[id]
	return m, ok
}

// Cosine computes cosine similarity between query and the embedding stored under id,
// using the cached magnitude for id and computing the query's magnitude fresh.
// Returns 0 if either magnitude is zero.
func (c *MagnitudeCache) Cosine(query []float32, id string, embedding []float32) float64 {
	magA := c.Get(id, embedding)
	var magB, dot float64
	n := len(query)
	if len(embedding) < n {
		n = len(embedding)
	}
	for i := 0; i < n; i++ {
		dot += float64(query[i]) * float64(embedding[i])
	}
	for _, v := range query {
		magB += float64(v) * float64(v)
	}
	magB = math.Sqrt(magB)
	if magA == 0 || magB == 0 {
		return 0
	}
	score := dot / (magA * magB)
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score
}
