package library

import (
	"context"
	"errors"
	"testing"

	"github.com/shmor3/library/pkg/liberr"
	"github.com/shmor3/library/pkg/stacks"
	"github.com/shmor3/library/pkg/volume"
)

// constantEmbed returns a fixed-dimension embedding regardless of text, sufficient for
// exercising store plumbing without a real embedding model.
func constantEmbed(vec []float32) EmbeddingProviderFn {
	return func(ctx context.Context, text string) ([]float32, error) {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}
}

func newTestLibrary(t *testing.T, embed EmbeddingProviderFn) *Library {
	t.Helper()
	lib := New(Config{
		Stacks:            stacks.DefaultConfig(),
		EmbeddingProvider: embed,
	})
	if err := lib.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return lib
}

func TestAdd_EmbedsAndStoresEmitsShelveEvent(t *testing.T) {
	var events []string
	lib := New(Config{
		Stacks:            stacks.DefaultConfig(),
		EmbeddingProvider: constantEmbed([]float32{1, 0}),
		Events:            func(name string, payload map[string]any) { events = append(events, name) },
	})
	lib.Load()

	id, err := lib.Add(context.Background(), "hello", volume.Metadata{"topic": "science"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == "" {
		t.Error("expected a non-empty id")
	}
	if len(events) != 1 || events[0] != "library.shelve" {
		t.Errorf("expected a library.shelve event, got %v", events)
	}
}

func TestAdd_NoEmbeddingProviderFails(t *testing.T) {
	lib := newTestLibrary(t, nil)
	_, err := lib.Add(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("expected an error with no embedding provider configured")
	}
	if !errors.Is(err, liberr.Sentinel(liberr.EmbeddingFailed)) {
		t.Errorf("expected EMBEDDING_FAILED, got %v", err)
	}
}

func TestSearch_EmbedsQueryAndEmitsSearchEvent(t *testing.T) {
	var events []string
	lib := New(Config{
		Stacks:            stacks.DefaultConfig(),
		EmbeddingProvider: constantEmbed([]float32{1, 0}),
		Events:            func(name string, payload map[string]any) { events = append(events, name) },
	})
	lib.Load()
	lib.Add(context.Background(), "hello", nil)

	results, err := lib.Search(context.Background(), "hello", 5, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected one result, got %d", len(results))
	}
	found := false
	for _, e := range events {
		if e == "library.search" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a library.search event, got %v", events)
	}
}

func TestAdvancedSearch_AutoEmbedsTextQuery(t *testing.T) {
	lib := newTestLibrary(t, constantEmbed([]float32{1, 0}))
	lib.Add(context.Background(), "kubernetes clusters", nil)

	results := lib.AdvancedSearch(context.Background(), stacks.AdvancedSearchOptions{
		Text:     "kubernetes",
		TextMode: stacks.TextModeSubstring,
		RankBy:   stacks.RankAverage,
	})
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	// auto-embedding succeeded, so the vector component should be populated.
	if results[0].Scores.Vector == nil {
		t.Error("expected AdvancedSearch to auto-embed the text query into QueryEmbedding")
	}
}

func TestAdvancedSearch_FallsBackToTextOnlyWhenEmbedFails(t *testing.T) {
	failingEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding backend unavailable")
	}
	lib := newTestLibrary(t, constantEmbed([]float32{1, 0}))
	lib.Add(context.Background(), "kubernetes clusters", nil)
	lib.SetEmbeddingProvider(failingEmbed)

	results := lib.AdvancedSearch(context.Background(), stacks.AdvancedSearchOptions{
		Text:     "kubernetes",
		TextMode: stacks.TextModeSubstring,
		RankBy:   stacks.RankText,
	})
	if len(results) != 1 {
		t.Fatalf("expected text-only fallback to still match, got %d", len(results))
	}
	if results[0].Scores.Vector != nil {
		t.Error("expected no vector component when embedding failed and fallback to text-only occurred")
	}
}

func TestQuery_ParsesDSLAndSearches(t *testing.T) {
	lib := newTestLibrary(t, constantEmbed([]float32{1, 0}))
	lib.Add(context.Background(), "kubernetes operators", volume.Metadata{"status": "active"})
	lib.Add(context.Background(), "docker basics", volume.Metadata{"status": "archived"})

	results := lib.Query(context.Background(), "status:active kubernetes")
	if len(results) != 1 {
		t.Fatalf("expected one match for status:active, got %d", len(results))
	}
}

func TestRecordFeedback_LearningDisabledWhenNil(t *testing.T) {
	lib := newTestLibrary(t, constantEmbed([]float32{1}))
	lib.learning = nil

	err := lib.RecordFeedback("some-id", true)
	if !errors.Is(err, liberr.Sentinel(liberr.LearningDisabled)) {
		t.Errorf("expected LEARNING_DISABLED, got %v", err)
	}
}

func TestRecordFeedback_DelegatesToEngine(t *testing.T) {
	lib := newTestLibrary(t, constantEmbed([]float32{1}))
	if err := lib.RecordFeedback("some-id", true); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	score := lib.Learning().RelevanceScore("some-id")
	if score <= 0 {
		t.Errorf("expected positive relevance after positive feedback, got %f", score)
	}
}

func TestWithdraw_DeletesAndEmits(t *testing.T) {
	var events []string
	lib := New(Config{
		Stacks:            stacks.DefaultConfig(),
		EmbeddingProvider: constantEmbed([]float32{1}),
		Events:            func(name string, payload map[string]any) { events = append(events, name) },
	})
	lib.Load()
	id, _ := lib.Add(context.Background(), "x", nil)

	if err := lib.Withdraw(id); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if lib.Stacks().GetByID(id) != nil {
		t.Error("expected the volume to be gone after Withdraw")
	}
	found := false
	for _, e := range events {
		if e == "library.withdraw" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a library.withdraw event, got %v", events)
	}
}
