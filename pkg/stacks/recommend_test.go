package stacks

import "testing"

type stubWeightsProvider struct {
	w map[string]Weights
}

func (p *stubWeightsProvider) AdaptedWeights(topic string) Weights {
	if w, ok := p.w[topic]; ok {
		return w
	}
	return DefaultWeights()
}

func TestRecommend_FallsBackToDefaultWeightsWhenNoProvider(t *testing.T) {
	s := newLoadedStore(t)
	s.Add(Entry{Text: "a", Embedding: []float32{1}})

	results := s.Recommend(nil, RecommendOptions{QueryEmbedding: []float32{1}})
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if results[0].Score <= 0 {
		t.Errorf("expected a positive blended score, got %f", results[0].Score)
	}
}

func TestRecommend_UsesProviderAdaptedWeights(t *testing.T) {
	s := newLoadedStore(t)
	s.Add(Entry{Text: "a", Embedding: []float32{1}})

	provider := &stubWeightsProvider{w: map[string]Weights{
		"science": {Vector: 1, Recency: 0, Frequency: 0},
	}}

	results := s.Recommend(provider, RecommendOptions{QueryEmbedding: []float32{1}, Topic: "science"})
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	// vector weight 1, cosine(identical) == 1, recency/frequency weight 0.
	if results[0].Score < 0.99 {
		t.Errorf("expected score dominated by vector component, got %f", results[0].Score)
	}
}

func TestRecommend_FrequencyNormalizedAgainstMaxAccessCount(t *testing.T) {
	s := newLoadedStore(t)
	idA, _ := s.Add(Entry{Text: "a", Embedding: []float32{1}})
	s.Add(Entry{Text: "b", Embedding: []float32{1}})

	s.GetByID(idA)
	s.GetByID(idA)
	s.GetByID(idA)

	provider := &stubWeightsProvider{w: map[string]Weights{
		"": {Vector: 0, Recency: 0, Frequency: 1},
	}}
	results := s.Recommend(provider, RecommendOptions{MaxResults: 0})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Volume.ID != idA {
		t.Errorf("expected the most-accessed volume to rank first under frequency weighting, got %s", results[0].Volume.ID)
	}
}

func TestRecommend_RespectsSimilarityThreshold(t *testing.T) {
	s := newLoadedStore(t)
	s.Add(Entry{Text: "orthogonal", Embedding: []float32{0, 1}})

	results := s.Recommend(nil, RecommendOptions{QueryEmbedding: []float32{1, 0}, SimilarityThreshold: 0.5})
	if len(results) != 0 {
		t.Errorf("expected no results below the similarity threshold, got %v", results)
	}
}
