package stacks

import (
	"github.com/shmor3/library/pkg/volume"
)

// Weights is the learning engine's adapted {vector, recency, frequency} blend.
type Weights struct {
	Vector    float64
	Recency   float64
	Frequency float64
}

// WeightsProvider is the subset of the learning engine recommend needs: the adapted weights
// for a topic (or the global fallback when topic is empty or under-sampled).
type WeightsProvider interface {
	AdaptedWeights(topic string) Weights
}

// RecommendOptions configures Recommend.
type RecommendOptions struct {
	QueryEmbedding      []float32
	Topic               string
	MaxResults          int
	SimilarityThreshold float64
}

// Recommend blends vector similarity, recency, and access frequency by the learning engine's
// adapted weights for Topic. Falls back to DefaultWeights when no
// learning engine implementing WeightsProvider is wired.
func (s *Stacks) Recommend(provider WeightsProvider, opts RecommendOptions) []volume.ScoredBreakdown {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := DefaultWeights()
	if provider != nil {
		w = provider.AdaptedWeights(opts.Topic)
	}

	maxAccess := int64(0)
	for _, id := range s.order {
		if c := s.volumes[id].AccessCount; c > maxAccess {
			maxAccess = c
		}
	}

	results := make([]volume.ScoredBreakdown, 0, len(s.volumes))
	for _, id := range s.order {
		v := s.volumes[id]

		var vecScore *float64
		if len(opts.QueryEmbedding) > 0 {
			cos := s.magnitudes.Cosine(opts.QueryEmbedding, id, v.Embedding)
			if cos < opts.SimilarityThreshold {
				continue
			}
			vecScore = &cos
		}

		recency := recencyScore(v.Timestamp)
		frequency := 0.0
		if maxAccess > 0 {
			frequency = float64(v.AccessCount) / float64(maxAccess)
		}

		combined := w.Vector*deref(vecScore) + w.Recency*recency + w.Frequency*frequency
		results = append(results, volume.ScoredBreakdown{
			Volume: v,
			Score:  combined,
			Scores: volume.ComponentScores{Vector: vecScore},
		})
	}

	sortBreakdown(results)
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	for i := range results {
		s.touch(results[i].Volume)
		results[i].Volume = results[i].Volume.Clone()
	}
	return results
}

// DefaultWeights is the learning engine's initial global profile.
func DefaultWeights() Weights {
	return Weights{Vector: 0.6, Recency: 0.2, Frequency: 0.2}
}
