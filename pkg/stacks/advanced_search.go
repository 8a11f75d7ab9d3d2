package stacks

import (
	"math"
	"sort"
	"time"

	"github.com/shmor3/library/pkg/textmatch"
	"github.com/shmor3/library/pkg/volume"
)

// RankMode selects how advancedSearch combines its component scores.
type RankMode string

const (
	RankVector   RankMode = "vector"
	RankText     RankMode = "text"
	RankAverage  RankMode = "average"
	RankMultiply RankMode = "multiply"
	RankWeighted RankMode = "weighted"
)

// FieldBoosts multiply/offset component scores before combination.
type FieldBoosts struct {
	Text     float64 // multiplier on the text score, default 1
	Metadata float64 // additive boost when metadata filters matched
	Topic    float64 // additive boost when the volume's topic is in TopicFilter
}

// RankWeights weights each component when RankBy is weighted. Must not all be zero.
type RankWeights struct {
	Vector   float64
	Text     float64
	Metadata float64
	Recency  float64
}

// DateRange bounds candidates by Timestamp (UnixMilli), inclusive. Zero values are unbounded.
type DateRange struct {
	From int64
	To   int64
}

// AdvancedSearchOptions is the full input to advancedSearch.
type AdvancedSearchOptions struct {
	QueryEmbedding []float32

	Text          string
	TextMode      TextMode
	TextThreshold float64

	Metadata    []textmatch.Filter
	DateRange   *DateRange
	TopicFilter []string

	FieldBoosts FieldBoosts
	RankBy      RankMode
	RankWeights RankWeights

	MaxResults          int
	SimilarityThreshold float64

	// Topic, when set, is recorded alongside the query in the learning engine. It plays no
	// part in topicBoost, which checks the volume's own metadata topic against TopicFilter.
	Topic string
}

// recencyHalfLifeMillis matches the learning engine's decay constant so recency
// scoring and interest-embedding decay agree on what "recent" means.
const recencyHalfLifeMillis = 7 * 86400 * 1000

func recencyScore(timestamp int64) float64 {
	ageMillis := float64(time.Now().UnixMilli() - timestamp)
	if ageMillis < 0 {
		ageMillis = 0
	}
	decay := math.Ln2 / recencyHalfLifeMillis
	return math.Exp(-decay * ageMillis)
}

// AdvancedSearch runs the canonical ranking pipeline: filter by date/metadata,
// score by vector and/or text, apply field/metadata/topic boosts, combine per RankBy, sort,
// and truncate. Records the query into the learning engine when an embedding was supplied.
func (s *Stacks) AdvancedSearch(opts AdvancedSearchOptions) []volume.ScoredBreakdown {
	s.mu.Lock()
	defer s.mu.Unlock()

	boosts := opts.FieldBoosts
	if boosts.Text == 0 {
		boosts.Text = 1
	}

	var bm25 map[string]float64
	if opts.Text != "" && opts.TextMode == TextModeBM25 {
		bm25 = s.bm25Normalized(opts.Text)
	}

	topicSet := make(map[string]struct{}, len(opts.TopicFilter))
	for _, t := range opts.TopicFilter {
		topicSet[t] = struct{}{}
	}

	candidateIDs := s.order
	if eqCandidates, ok := s.eqCandidateIDs(opts.Metadata); ok {
		candidateIDs = filterOrder(s.order, eqCandidates)
	}

	results := make([]volume.ScoredBreakdown, 0, len(candidateIDs))
	returnedIDs := make([]string, 0, len(candidateIDs))

	for _, id := range candidateIDs {
		v := s.volumes[id]

		if opts.DateRange != nil {
			if opts.DateRange.From != 0 && v.Timestamp < opts.DateRange.From {
				continue
			}
			if opts.DateRange.To != 0 && v.Timestamp > opts.DateRange.To {
				continue
			}
		}
		if len(opts.Metadata) > 0 && !s.regexCache.MatchesAll(v.Metadata, opts.Metadata) {
			continue
		}

		var vecScore, textScore *float64
		if len(opts.QueryEmbedding) > 0 {
			cos := s.magnitudes.Cosine(opts.QueryEmbedding, id, v.Embedding)
			if cos < opts.SimilarityThreshold {
				continue
			}
			vecScore = &cos
		}
		if opts.Text != "" {
			var t float64
			if opts.TextMode == TextModeBM25 {
				t = bm25[id]
			} else {
				t = s.textScore(opts.TextMode, opts.Text, v.Text)
			}
			if t <= 0 || t < opts.TextThreshold {
				continue
			}
			t *= boosts.Text
			textScore = &t
		}

		metadataBoost := 0.0
		if len(opts.Metadata) > 0 {
			metadataBoost = boosts.Metadata
		}
		topicBoost := 0.0
		if len(topicSet) > 0 && volumeInTopics(v, topicSet) {
			topicBoost = boosts.Topic
		}

		combined := combine(opts.RankBy, vecScore, textScore, metadataBoost, opts.RankWeights, v.Timestamp)
		if opts.RankBy != RankWeighted {
			combined += metadataBoost + topicBoost
		}

		results = append(results, volume.ScoredBreakdown{
			Volume: v,
			Score:  combined,
			Scores: volume.ComponentScores{Vector: vecScore, Text: textScore},
		})
		returnedIDs = append(returnedIDs, id)
	}

	sortBreakdown(results)
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
		returnedIDs = returnedIDs[:opts.MaxResults]
	}

	for i := range results {
		s.touch(results[i].Volume)
		results[i].Volume = results[i].Volume.Clone()
	}

	if s.learning != nil && len(opts.QueryEmbedding) > 0 {
		s.learning.RecordQuery(opts.QueryEmbedding, returnedIDs, opts.Topic)
	}
	return results
}

// eqCandidateIDs narrows the scan to the intersection of the metadata index's O(1)
// key/value lookups for every eq filter in filters. The bool return is false when filters
// has no eq predicate, meaning no narrowing is possible and the caller should scan s.order.
func (s *Stacks) eqCandidateIDs(filters []textmatch.Filter) (map[string]struct{}, bool) {
	var candidates map[string]struct{}
	found := false
	for _, f := range filters {
		if f.Op != textmatch.OpEq {
			continue
		}
		ids := s.metaIndex.IDsWithKeyValue(f.Key, f.Value)
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		if !found {
			candidates = set
			found = true
			continue
		}
		for id := range candidates {
			if _, ok := set[id]; !ok {
				delete(candidates, id)
			}
		}
	}
	return candidates, found
}

// filterOrder returns the subset of order present in keep, preserving order's sequence.
func filterOrder(order []string, keep map[string]struct{}) []string {
	out := make([]string, 0, len(keep))
	for _, id := range order {
		if _, ok := keep[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func volumeInTopics(v *volume.Volume, topicSet map[string]struct{}) bool {
	if t, ok := v.Metadata[volume.MetaTopic]; ok {
		if _, in := topicSet[t]; in {
			return true
		}
	}
	return false
}

func combine(mode RankMode, vecScore, textScore *float64, metadataBoost float64, w RankWeights, timestamp int64) float64 {
	switch mode {
	case RankVector:
		return deref(vecScore)
	case RankText:
		return deref(textScore)
	case RankMultiply:
		if vecScore != nil && textScore != nil {
			return *vecScore * *textScore
		}
		return deref(vecScore) + deref(textScore)
	case RankWeighted:
		return w.Vector*deref(vecScore) + w.Text*deref(textScore) +
			w.Metadata*metadataBoost + w.Recency*recencyScore(timestamp)
	case RankAverage:
		fallthrough
	default:
		sum, n := 0.0, 0.0
		if vecScore != nil {
			sum += *vecScore
			n++
		}
		if textScore != nil {
			sum += *textScore
			n++
		}
		if n == 0 {
			return 0
		}
		return sum / n
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func sortBreakdown(results []volume.ScoredBreakdown) {
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

// bm25Normalized runs one corpus pass of BM25 and normalizes against the maximum score,
// giving O(1) lookup per candidate during the main filtering loop.
func (s *Stacks) bm25Normalized(query string) map[string]float64 {
	hits := s.inverted.BM25Search(query)
	out := make(map[string]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	max := hits[0].Score
	for _, h := range hits {
		if h.Score > max {
			max = h.Score
		}
	}
	for _, h := range hits {
		if max > 0 {
			out[h.ID] = h.Score / max
		}
	}
	return out
}
