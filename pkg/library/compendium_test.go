package library

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shmor3/library/pkg/liberr"
	"github.com/shmor3/library/pkg/stacks"
)

func newGeneratingLibrary(t *testing.T, generate TextGenerationProviderFn) *Library {
	t.Helper()
	lib := New(Config{
		Stacks:                 stacks.DefaultConfig(),
		EmbeddingProvider:      constantEmbed([]float32{1}),
		TextGenerationProvider: generate,
	})
	if err := lib.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return lib
}

func echoGenerate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return "summary of: " + prompt, nil
}

func TestCompendium_NoGeneratorFails(t *testing.T) {
	lib := newGeneratingLibrary(t, nil)
	_, err := lib.Compendium(context.Background(), CompendiumOptions{IDs: []string{"a", "b"}})
	if !errors.Is(err, liberr.Sentinel(liberr.NoTextGenerator)) {
		t.Errorf("expected NO_TEXT_GENERATOR, got %v", err)
	}
}

func TestCompendium_TooFewIDsFails(t *testing.T) {
	lib := newGeneratingLibrary(t, echoGenerate)
	id, _ := lib.Add(context.Background(), "only one", nil)

	_, err := lib.Compendium(context.Background(), CompendiumOptions{IDs: []string{id}})
	if !errors.Is(err, liberr.Sentinel(liberr.SummarizeTooFew)) {
		t.Errorf("expected SUMMARIZE_TOO_FEW, got %v", err)
	}
}

func TestCompendium_MissingSourceIDFails(t *testing.T) {
	lib := newGeneratingLibrary(t, echoGenerate)
	id, _ := lib.Add(context.Background(), "source a", nil)

	_, err := lib.Compendium(context.Background(), CompendiumOptions{IDs: []string{id, "does-not-exist"}})
	if !errors.Is(err, liberr.Sentinel(liberr.EntryNotFound)) {
		t.Errorf("expected ENTRY_NOT_FOUND, got %v", err)
	}
}

func TestCompendium_HappyPathStoresSummaryWithMetadata(t *testing.T) {
	lib := newGeneratingLibrary(t, echoGenerate)
	idA, _ := lib.Add(context.Background(), "fact one", nil)
	idB, _ := lib.Add(context.Background(), "fact two", nil)

	summaryID, err := lib.Compendium(context.Background(), CompendiumOptions{IDs: []string{idA, idB}})
	if err != nil {
		t.Fatalf("Compendium: %v", err)
	}
	v := lib.Stacks().GetByID(summaryID)
	if v == nil {
		t.Fatal("expected the summary volume to exist")
	}
	if !strings.Contains(v.Text, "fact one") || !strings.Contains(v.Text, "fact two") {
		t.Errorf("expected the default prompt to concatenate both sources, got %q", v.Text)
	}
	if v.Metadata["entryType"] != "compendium" {
		t.Errorf("expected entryType=compendium metadata, got %v", v.Metadata)
	}
	if !strings.Contains(v.Metadata["summarizedFrom"], idA) || !strings.Contains(v.Metadata["summarizedFrom"], idB) {
		t.Errorf("expected summarizedFrom to list both source ids, got %q", v.Metadata["summarizedFrom"])
	}

	// originals should still be present since DeleteOriginals was not set.
	if lib.Stacks().GetByID(idA) == nil || lib.Stacks().GetByID(idB) == nil {
		t.Error("expected originals preserved without DeleteOriginals")
	}
}

func TestCompendium_DeleteOriginalsRemovesSources(t *testing.T) {
	lib := newGeneratingLibrary(t, echoGenerate)
	idA, _ := lib.Add(context.Background(), "fact one", nil)
	idB, _ := lib.Add(context.Background(), "fact two", nil)

	_, err := lib.Compendium(context.Background(), CompendiumOptions{IDs: []string{idA, idB}, DeleteOriginals: true})
	if err != nil {
		t.Fatalf("Compendium: %v", err)
	}
	if lib.Stacks().GetByID(idA) != nil || lib.Stacks().GetByID(idB) != nil {
		t.Error("expected originals removed when DeleteOriginals is set")
	}
}
