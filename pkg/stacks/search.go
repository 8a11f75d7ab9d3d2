package stacks

import (
	"sort"

	"github.com/shmor3/library/pkg/volume"
)

// Search performs pure cosine search via the magnitude cache, sorted descending, scores
// clamped to [-1,1], and tracks access on returned ids. Results scoring below threshold
// are dropped, so a threshold of 0 still drops negative cosines.
func (s *Stacks) Search(queryEmbedding []float32, maxResults int, threshold float64) []volume.Scored {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]volume.Scored, 0, len(s.volumes))
	for _, id := range s.order {
		v := s.volumes[id]
		score := s.magnitudes.Cosine(queryEmbedding, id, v.Embedding)
		if score < threshold {
			continue
		}
		results = append(results, volume.Scored{Volume: v, Score: score})
	}

	sortScored(results)
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}

	ids := make([]string, len(results))
	for i := range results {
		s.touch(results[i].Volume)
		ids[i] = results[i].Volume.ID
		results[i].Volume = results[i].Volume.Clone()
	}
	if s.learning != nil && len(queryEmbedding) > 0 {
		s.learning.RecordQuery(queryEmbedding, ids, "")
	}
	return results
}

// sortScored sorts descending by score, breaking ties by descending timestamp then
// ascending id.
func sortScored(results []volume.Scored) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Volume.Timestamp != results[j].Volume.Timestamp {
			return results[i].Volume.Timestamp > results[j].Volume.Timestamp
		}
		return results[i].Volume.ID < results[j].Volume.ID
	})
}

// TextMode enumerates textSearch's matching strategies.
type TextMode string

const (
	TextModeFuzzy     TextMode = "fuzzy"
	TextModeSubstring TextMode = "substring"
	TextModeExact     TextMode = "exact"
	TextModeRegex     TextMode = "regex"
	TextModeToken     TextMode = "token"
	TextModeBM25      TextMode = "bm25"
)

// TextSearchOptions configures TextSearch.
type TextSearchOptions struct {
	Query      string
	Mode       TextMode
	Threshold  float64
	MaxResults int
}

// TextSearch performs fuzzy/substring/exact/regex/token/bm25 matching; bm25 normalizes
// scores against the maximum returned score.
func (s *Stacks) TextSearch(opts TextSearchOptions) []volume.Scored {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []volume.Scored
	switch opts.Mode {
	case TextModeBM25:
		results = s.bm25Scored(opts.Query, opts.Threshold)
	default:
		for _, id := range s.order {
			v := s.volumes[id]
			score := s.textScore(opts.Mode, opts.Query, v.Text)
			if score <= 0 || score < opts.Threshold {
				continue
			}
			results = append(results, volume.Scored{Volume: v, Score: score})
		}
	}

	sortScored(results)
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	for i := range results {
		s.touch(results[i].Volume)
		results[i].Volume = results[i].Volume.Clone()
	}
	return results
}

func (s *Stacks) bm25Scored(query string, threshold float64) []volume.Scored {
	hits := s.inverted.BM25Search(query)
	if len(hits) == 0 {
		return nil
	}
	maxScore := hits[0].Score
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	out := make([]volume.Scored, 0, len(hits))
	for _, h := range hits {
		v, ok := s.volumes[h.ID]
		if !ok {
			continue
		}
		normalized := 0.0
		if maxScore > 0 {
			normalized = h.Score / maxScore
		}
		if normalized < threshold {
			continue
		}
		out = append(out, volume.Scored{Volume: v, Score: normalized})
	}
	return out
}

func (s *Stacks) textScore(mode TextMode, query, text string) float64 {
	return textScoreFor(mode, query, text, s.regexCache)
}
