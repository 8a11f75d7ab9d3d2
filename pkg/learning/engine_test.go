package learning

import (
	"testing"

	"github.com/shmor3/library/pkg/stacks"
)

func TestRecordQuery_DiversityGatesQueryCount(t *testing.T) {
	e := New(DefaultConfig())
	sameQuery := []float32{1, 0}

	e.RecordQuery(sameQuery, []string{"a"}, "")
	e.RecordQuery(sameQuery, []string{"a"}, "")

	fb, ok := e.GetRelevanceFeedback("a")
	if !ok {
		t.Fatal("expected feedback recorded for id a")
	}
	if fb.TotalRetrievals != 2 {
		t.Errorf("expected totalRetrievals incremented on every query, got %d", fb.TotalRetrievals)
	}
	if fb.QueryCount != 1 {
		t.Errorf("expected queryCount incremented only once for a non-diverse repeat query, got %d", fb.QueryCount)
	}
}

func TestRecordQuery_DiverseQueryIncrementsQueryCount(t *testing.T) {
	e := New(DefaultConfig())
	e.RecordQuery([]float32{1, 0}, []string{"a"}, "")
	e.RecordQuery([]float32{0, 1}, []string{"a"}, "")

	fb, _ := e.GetRelevanceFeedback("a")
	if fb.QueryCount != 2 {
		t.Errorf("expected both diverse (orthogonal) queries to count, got %d", fb.QueryCount)
	}
}

func TestRecordQuery_GlobalWeightsDriftWithPopularity(t *testing.T) {
	e := New(DefaultConfig())

	// Push many queries over the retrieval threshold so priorPopular/resultCount > 0.5,
	// shifting weight toward frequency and away from vector.
	for i := 0; i < 10; i++ {
		e.RecordQuery([]float32{float32(i), 1}, []string{"a"}, "")
	}
	w := e.AdaptedWeights("")
	def := stacks.DefaultWeights()
	if w.Vector >= def.Vector {
		t.Errorf("expected vector weight to drift down as id 'a' becomes popular, got %v (default %v)", w, def)
	}
	if w.Frequency <= def.Frequency {
		t.Errorf("expected frequency weight to drift up, got %v (default %v)", w, def)
	}
}

func TestRecordQuery_UntouchedTopicFallsBackToGlobal(t *testing.T) {
	e := New(DefaultConfig())
	for i := 0; i < 15; i++ {
		e.RecordQuery([]float32{float32(i), 1}, []string{"a", "b"}, "science")
	}
	untouched := e.AdaptedWeights("art")
	global := e.AdaptedWeights("")
	if untouched != global {
		t.Errorf("expected a never-queried topic to fall back to the exact global weights, got %v want %v", untouched, global)
	}
}

func TestAdaptedWeights_FallsBackBelowTopicConsultThreshold(t *testing.T) {
	e := New(DefaultConfig())
	e.RecordQuery([]float32{1, 0}, []string{"a"}, "science")

	w := e.AdaptedWeights("science")
	if w != e.AdaptedWeights("") {
		t.Error("expected topic weights to fall back to global before reaching TopicConsultThreshold")
	}
}

func TestAdaptedWeights_UsesTopicWeightsAfterThreshold(t *testing.T) {
	e := New(DefaultConfig())
	cfg := DefaultConfig()
	for i := 0; i < cfg.TopicConsultThreshold+1; i++ {
		e.RecordQuery([]float32{float32(i), 1}, []string{"a"}, "science")
	}
	topicW := e.AdaptedWeights("science")
	if topicW == stacks.DefaultWeights() {
		t.Error("expected the well-sampled topic's weights to have drifted from the initial default")
	}
}

func TestRelevanceScore_ClampsToUnitRange(t *testing.T) {
	e := New(DefaultConfig())
	for i := 0; i < 5; i++ {
		e.RecordFeedback("a", true)
	}
	score := e.RelevanceScore("a")
	if score < 0 || score > 1 {
		t.Errorf("expected relevance score clamped to [0,1], got %f", score)
	}
	if score <= 0 {
		t.Errorf("expected positive feedback to raise relevance above 0, got %f", score)
	}
}

func TestRelevanceScore_NegativeFeedbackLowersScore(t *testing.T) {
	e := New(DefaultConfig())
	e.RecordFeedback("a", true)
	scoreBefore := e.RelevanceScore("a")
	for i := 0; i < 5; i++ {
		e.RecordFeedback("a", false)
	}
	scoreAfter := e.RelevanceScore("a")
	if scoreAfter >= scoreBefore {
		t.Errorf("expected negative feedback to lower relevance score, before=%f after=%f", scoreBefore, scoreAfter)
	}
}

func TestBoost_ClampedToExpectedRange(t *testing.T) {
	e := New(DefaultConfig())
	e.RecordQuery([]float32{1, 0}, []string{"a"}, "")

	boost := e.Boost("a", []float32{1, 0}, "")
	if boost < 0.8 || boost > 1.2 {
		t.Errorf("expected boost clamped to [0.8,1.2], got %f", boost)
	}
}

func TestBoost_UnknownIDStillReturnsBaseline(t *testing.T) {
	e := New(DefaultConfig())
	boost := e.Boost("never-seen", []float32{1, 0}, "")
	if boost < 0.8 || boost > 1.2 {
		t.Errorf("expected a baseline boost within range for an unknown id, got %f", boost)
	}
}

func TestPrune_RemovesFeedbackAndCorrelations(t *testing.T) {
	e := New(DefaultConfig())
	e.RecordQuery([]float32{1, 0}, []string{"a", "b"}, "")
	e.RecordFeedback("a", true)

	e.Prune([]string{"a"})

	if _, ok := e.GetRelevanceFeedback("a"); ok {
		t.Error("expected feedback gone for a pruned id")
	}
	if corr := e.GetCorrelations("b"); corr["a"] != 0 {
		t.Errorf("expected pruned id removed from other ids' correlation maps, got %v", corr)
	}
}
