// Package learning implements the adaptive relevance engine: global and
// per-topic weight profiles, interest embeddings, pairwise co-occurrence, explicit and
// implicit feedback, and the boost function consulted by ranking.
package learning

import (
	"math"
	"sync"
	"time"

	"github.com/shmor3/library/pkg/liberr"
	"github.com/shmor3/library/pkg/stacks"
)

// Config tunes the engine's constants; every field has a default via DefaultConfig.
type Config struct {
	HistoryCap            int     // bounded global/topic query history, default 50
	SampleCap             int     // per-id sampled query embeddings cap, default 20
	DiversityThreshold    float64 // cosine below this counts as a diverse query, default 0.9
	AdaptationRate        float64 // weight-shift rate, default 0.1
	RetrievalThreshold    int     // prior totalRetrievals above this counts "popular", default 3
	TopicConsultThreshold int     // per-topic queryCount needed before using topic state, default 10
	InterestBoostWeight   float64 // weight on cos(embedding, interest) in Boost, default 0.2
	MinWeight             float64 // per-component weight floor, default 0.05
	MaxWeight             float64 // per-component weight ceiling, default 0.9
}

// DefaultConfig returns the engine's default tunables.
func DefaultConfig() Config {
	return Config{
		HistoryCap:            50,
		SampleCap:             20,
		DiversityThreshold:    0.9,
		AdaptationRate:        0.1,
		RetrievalThreshold:    3,
		TopicConsultThreshold: 10,
		InterestBoostWeight:   0.2,
		MinWeight:             0.05,
		MaxWeight:             0.9,
	}
}

// recencyHalfLifeDecay is ln(2)/(7 days in milliseconds), the decay constant used
// for the interest-embedding weighted mean.
const recencyHalfLifeDecay = math.Ln2 / (7 * 86400 * 1000)

// implicitFeedback is the per-id usage signal recorded by RecordQuery.
type implicitFeedback struct {
	QueryCount             int
	TotalRetrievals        int
	LastQueryTimestamp     int64
	SampledQueryEmbeddings [][]float32
}

// explicitFeedback is the per-id thumbs-up/down tally recorded by RecordFeedback.
type explicitFeedback struct {
	Positive int
	Negative int
}

type historyEntry struct {
	Embedding []float32
	Timestamp int64
}

// profile is the {weights, interestEmbedding, queryCount, queryHistory} shape shared by the
// global state and every per-topic state.
type profile struct {
	weights           stacks.Weights
	interestEmbedding []float32
	queryCount        int
	history           []historyEntry
}

func newProfile() *profile {
	return &profile{weights: stacks.DefaultWeights()}
}

// Engine owns every piece of the engine's mutable state behind a single mutex.
type Engine struct {
	mu sync.Mutex

	cfg Config

	global *profile
	topics map[string]*profile

	implicit map[string]*implicitFeedback
	explicit map[string]*explicitFeedback
	coOccur  map[string]map[string]int
}

// New constructs an Engine with cfg's tunables.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:      cfg,
		global:   newProfile(),
		topics:   make(map[string]*profile),
		implicit: make(map[string]*implicitFeedback),
		explicit: make(map[string]*explicitFeedback),
		coOccur:  make(map[string]map[string]int),
	}
}

// RecordQuery runs the adaptation update on a completed search.
func (e *Engine) RecordQuery(queryEmbedding []float32, resultIDs []string, topic string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UnixMilli()

	// Step 1: append to global history (FIFO cap).
	appendHistory(e.global, historyEntry{Embedding: queryEmbedding, Timestamp: now}, e.cfg.HistoryCap)

	// Step 2 & 3: per-id retrieval counts + diversity-gated query count, and co-occurrence.
	priorPopular := 0
	for _, id := range resultIDs {
		fb := e.implicit[id]
		if fb == nil {
			fb = &implicitFeedback{}
			e.implicit[id] = fb
		}
		if fb.TotalRetrievals > e.cfg.RetrievalThreshold {
			priorPopular++
		}
		fb.TotalRetrievals++
		fb.LastQueryTimestamp = now

		if isDiverse(queryEmbedding, fb.SampledQueryEmbeddings, e.cfg.DiversityThreshold) {
			fb.QueryCount++
			fb.SampledQueryEmbeddings = append(fb.SampledQueryEmbeddings, queryEmbedding)
			if len(fb.SampledQueryEmbeddings) > e.cfg.SampleCap {
				fb.SampledQueryEmbeddings = fb.SampledQueryEmbeddings[len(fb.SampledQueryEmbeddings)-e.cfg.SampleCap:]
			}
		}
	}
	bumpCoOccurrence(e.coOccur, resultIDs)

	// Step 4 & 5: global weight adaptation and interest-embedding recompute.
	adaptWeights(e.global, len(resultIDs), priorPopular, e.cfg)
	e.global.interestEmbedding = decayedMean(e.global.history, now)

	// Step 6: repeat steps 1, 4, 5 against the topic profile.
	if topic != "" {
		tp := e.topics[topic]
		if tp == nil {
			tp = newProfile()
			e.topics[topic] = tp
		}
		appendHistory(tp, historyEntry{Embedding: queryEmbedding, Timestamp: now}, e.cfg.HistoryCap)
		tp.queryCount++
		adaptWeights(tp, len(resultIDs), priorPopular, e.cfg)
		tp.interestEmbedding = decayedMean(tp.history, now)
	}
}

func appendHistory(p *profile, entry historyEntry, cap int) {
	p.history = append(p.history, entry)
	if len(p.history) > cap {
		p.history = p.history[len(p.history)-cap:]
	}
}

func isDiverse(embedding []float32, samples [][]float32, threshold float64) bool {
	for _, s := range samples {
		if cosine(embedding, s) >= threshold {
			return false
		}
	}
	return true
}

func bumpCoOccurrence(coOccur map[string]map[string]int, ids []string) {
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			if coOccur[a] == nil {
				coOccur[a] = make(map[string]int)
			}
			if coOccur[b] == nil {
				coOccur[b] = make(map[string]int)
			}
			coOccur[a][b]++
			coOccur[b][a]++
		}
	}
}

// adaptWeights shifts 0.5*adaptationRate into frequency (from vector) when more than half of
// resultCount had prior totalRetrievals above the threshold, else shifts the same amount into
// vector (from frequency); then clamps every component into [MinWeight, MaxWeight] and
// renormalizes so the three sum to 1.
func adaptWeights(p *profile, resultCount, priorPopular int, cfg Config) {
	if resultCount == 0 {
		return
	}
	delta := 0.5 * cfg.AdaptationRate
	w := p.weights
	if float64(priorPopular)/float64(resultCount) > 0.5 {
		w.Frequency += delta
		w.Vector -= delta
	} else {
		w.Vector += delta
		w.Frequency -= delta
	}
	w.Vector = clamp(w.Vector, cfg.MinWeight, cfg.MaxWeight)
	w.Recency = clamp(w.Recency, cfg.MinWeight, cfg.MaxWeight)
	w.Frequency = clamp(w.Frequency, cfg.MinWeight, cfg.MaxWeight)

	sum := w.Vector + w.Recency + w.Frequency
	if sum > 0 {
		w.Vector /= sum
		w.Recency /= sum
		w.Frequency /= sum
	}
	p.weights = w
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// decayedMean computes the decay-weighted mean of history's embeddings as of now, then
// L2-normalizes the result.
func decayedMean(history []historyEntry, now int64) []float32 {
	if len(history) == 0 {
		return nil
	}
	dim := len(history[0].Embedding)
	if dim == 0 {
		return nil
	}
	sum := make([]float64, dim)
	var totalWeight float64
	for _, entry := range history {
		if len(entry.Embedding) != dim {
			continue
		}
		age := float64(now - entry.Timestamp)
		if age < 0 {
			age = 0
		}
		weight := math.Exp(-recencyHalfLifeDecay * age)
		totalWeight += weight
		for i, v := range entry.Embedding {
			sum[i] += weight * float64(v)
		}
	}
	if totalWeight == 0 {
		return nil
	}
	mean := make([]float32, dim)
	var normSq float64
	for i := range sum {
		v := sum[i] / totalWeight
		mean[i] = float32(v)
		normSq += v * v
	}
	norm := math.Sqrt(normSq)
	if norm == 0 {
		return mean
	}
	for i := range mean {
		mean[i] = float32(float64(mean[i]) / norm)
	}
	return mean
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		magA += float64(v) * float64(v)
	}
	for _, v := range b {
		magB += float64(v) * float64(v)
	}
	magA, magB = math.Sqrt(magA), math.Sqrt(magB)
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}

// AdaptedWeights implements stacks.WeightsProvider: the topic's own weights once its query
// count reaches TopicConsultThreshold, otherwise the global weights.
func (e *Engine) AdaptedWeights(topic string) stacks.Weights {
	e.mu.Lock()
	defer e.mu.Unlock()
	if topic != "" {
		if tp, ok := e.topics[topic]; ok && tp.queryCount >= e.cfg.TopicConsultThreshold {
			return tp.weights
		}
	}
	return e.global.weights
}

// RelevanceScore computes clamp((queryCount + 5*positive - 3*negative) / HistoryCap, 0, 1)
// for id.
func (e *Engine) RelevanceScore(id string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.relevanceScoreLocked(id)
}

func (e *Engine) relevanceScoreLocked(id string) float64 {
	queryCount := 0
	if fb, ok := e.implicit[id]; ok {
		queryCount = fb.QueryCount
	}
	positive, negative := 0, 0
	if ex, ok := e.explicit[id]; ok {
		positive, negative = ex.Positive, ex.Negative
	}
	raw := (float64(queryCount) + 5*float64(positive) - 3*float64(negative)) / float64(e.cfg.HistoryCap)
	return clamp(raw, 0, 1)
}

// Boost implements the ranking-time relevance multiplier: starts at 1.0, adds
// 0.1*relevanceScore, adds InterestBoostWeight*max(0, cos(embedding, effectiveInterest)),
// clamped to [0.8, 1.2].
func (e *Engine) Boost(id string, embedding []float32, topic string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	boost := 1.0 + 0.1*e.relevanceScoreLocked(id)

	interest := e.global.interestEmbedding
	if topic != "" {
		if tp, ok := e.topics[topic]; ok && len(tp.interestEmbedding) > 0 {
			interest = tp.interestEmbedding
		}
	}
	if len(interest) > 0 && len(embedding) > 0 {
		sim := cosine(embedding, interest)
		if sim > 0 {
			boost += e.cfg.InterestBoostWeight * sim
		}
	}
	return clamp(boost, 0.8, 1.2)
}

// RecordFeedback records an explicit positive/negative signal for id.
func (e *Engine) RecordFeedback(id string, relevant bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fb := e.explicit[id]
	if fb == nil {
		fb = &explicitFeedback{}
		e.explicit[id] = fb
	}
	if relevant {
		fb.Positive++
	} else {
		fb.Negative++
	}
}

// Prune drops every id's implicit feedback, explicit feedback, and correlation entries.
func (e *Engine) Prune(ids []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		delete(e.implicit, id)
		delete(e.explicit, id)
		delete(e.coOccur, id)
		for other := range e.coOccur {
			delete(e.coOccur[other], id)
		}
	}
}

// RelevanceFeedback is a defensive-copy snapshot returned by GetRelevanceFeedback.
type RelevanceFeedback struct {
	QueryCount      int
	TotalRetrievals int
	Positive        int
	Negative        int
}

// GetRelevanceFeedback returns id's feedback snapshot, or ok=false if id has never been
// queried or recorded.
func (e *Engine) GetRelevanceFeedback(id string) (RelevanceFeedback, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fb, implicitOK := e.implicit[id]
	ex, explicitOK := e.explicit[id]
	if !implicitOK && !explicitOK {
		return RelevanceFeedback{}, false
	}
	out := RelevanceFeedback{}
	if fb != nil {
		out.QueryCount = fb.QueryCount
		out.TotalRetrievals = fb.TotalRetrievals
	}
	if ex != nil {
		out.Positive = ex.Positive
		out.Negative = ex.Negative
	}
	return out, true
}

// GetInterestEmbedding returns a defensive copy of the global (or, if topic is non-empty and
// known, topic) interest embedding.
func (e *Engine) GetInterestEmbedding(topic string) []float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	src := e.global.interestEmbedding
	if topic != "" {
		if tp, ok := e.topics[topic]; ok && len(tp.interestEmbedding) > 0 {
			src = tp.interestEmbedding
		}
	}
	out := make([]float32, len(src))
	copy(out, src)
	return out
}

// GetCorrelations returns a defensive copy of the co-occurrence counts for id.
func (e *Engine) GetCorrelations(id string) map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	src := e.coOccur[id]
	out := make(map[string]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// ErrLearningDisabled is a liberr.LearningDisabled sentinel; errors.Is matches it against the
// error Library.RecordFeedback returns when no learning engine is configured.
var ErrLearningDisabled = liberr.Sentinel(liberr.LearningDisabled)
