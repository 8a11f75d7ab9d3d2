// Package library implements the library façade: it wraps Stacks and the learning
// engine, adds embedding-backed add/search/advancedSearch, a compact query DSL,
// compendium summarization, feedback recording, and shelf scoping.
package library

import (
	"context"
	"fmt"

	"github.com/shmor3/library/pkg/learning"
	"github.com/shmor3/library/pkg/liberr"
	"github.com/shmor3/library/pkg/librarylog"
	"github.com/shmor3/library/pkg/stacks"
	"github.com/shmor3/library/pkg/volume"
)

// EmbeddingProviderFn is the caller-supplied hook that turns text into an embedding. Library
// never talks to a model directly; every embedding call goes through this closure.
type EmbeddingProviderFn func(ctx context.Context, text string) ([]float32, error)

// TextGenerationProviderFn is the caller-supplied hook used by Compendium to summarize.
type TextGenerationProviderFn func(ctx context.Context, systemPrompt, prompt string) (string, error)

// EventFn receives fire-and-forget notifications of library.shelve / library.search /
// library.withdraw events. A nil EventFn disables emission entirely.
type EventFn func(name string, payload map[string]any)

// Config configures a Library instance.
type Config struct {
	Stacks              stacks.Config
	Learning            learning.Config
	EmbeddingProvider   EmbeddingProviderFn
	TextGenerationProvider TextGenerationProviderFn
	Events              EventFn
	Logger              librarylog.Logger
}

// Library is the public façade over Stacks.
type Library struct {
	stacks   *stacks.Stacks
	learning *learning.Engine
	embed    EmbeddingProviderFn
	generate TextGenerationProviderFn
	events   EventFn
	logger   librarylog.Logger
}

// New constructs a Library, wiring a fresh learning engine into a fresh Stacks.
func New(cfg Config) *Library {
	logger := cfg.Logger
	if logger == nil {
		logger = librarylog.Nop()
	}
	learningCfg := cfg.Learning
	if learningCfg == (learning.Config{}) {
		learningCfg = learning.DefaultConfig()
	}
	st := stacks.New(cfg.Stacks)
	eng := learning.New(learningCfg)
	st.SetLearning(eng)

	return &Library{
		stacks:   st,
		learning: eng,
		embed:    cfg.EmbeddingProvider,
		generate: cfg.TextGenerationProvider,
		events:   cfg.Events,
		logger:   logger,
	}
}

// Load opens persisted state.
func (l *Library) Load() error {
	return l.stacks.Load()
}

// Dispose flushes dirty state and releases resources.
func (l *Library) Dispose() error {
	return l.stacks.Dispose()
}

// SetEmbeddingProvider swaps the embedding hook at runtime.
func (l *Library) SetEmbeddingProvider(fn EmbeddingProviderFn) {
	l.embed = fn
}

// SetTextGenerationProvider swaps the compendium generation hook at runtime.
func (l *Library) SetTextGenerationProvider(fn TextGenerationProviderFn) {
	l.generate = fn
}

func (l *Library) emit(name string, payload map[string]any) {
	if l.events == nil {
		return
	}
	l.events(name, payload)
}

// Add embeds text once via the configured provider and stores it, emitting library.shelve.
func (l *Library) Add(ctx context.Context, text string, metadata volume.Metadata) (string, error) {
	if l.embed == nil {
		return "", liberr.New(liberr.EmbeddingFailed, "add", fmt.Errorf("no embedding provider configured"))
	}
	embedding, err := l.embed(ctx, text)
	if err != nil {
		return "", liberr.New(liberr.EmbeddingFailed, "add", err)
	}
	id, err := l.stacks.Add(stacks.Entry{Text: text, Embedding: embedding, Metadata: metadata})
	if err != nil {
		return "", err
	}
	l.emit("library.shelve", map[string]any{"id": id, "topic": metadata[volume.MetaTopic]})
	return id, nil
}

// Search embeds query once and delegates to Stacks.Search, emitting library.search.
func (l *Library) Search(ctx context.Context, query string, maxResults int, threshold float64) ([]volume.Scored, error) {
	if l.embed == nil {
		return nil, liberr.New(liberr.EmbeddingFailed, "search", fmt.Errorf("no embedding provider configured"))
	}
	embedding, err := l.embed(ctx, query)
	if err != nil {
		return nil, liberr.New(liberr.EmbeddingFailed, "search", err)
	}
	results := l.stacks.Search(embedding, maxResults, threshold)
	l.emit("library.search", map[string]any{"query": query, "count": len(results)})
	return results, nil
}

// AdvancedSearch auto-embeds opts.Text when no QueryEmbedding is supplied and a text query
// exists, falling back to text-only ranking when embedding fails.
func (l *Library) AdvancedSearch(ctx context.Context, opts stacks.AdvancedSearchOptions) []volume.ScoredBreakdown {
	if len(opts.QueryEmbedding) == 0 && opts.Text != "" && l.embed != nil {
		if embedding, err := l.embed(ctx, opts.Text); err == nil {
			opts.QueryEmbedding = embedding
		} else {
			l.logger.Warn("advancedSearch embedding failed, falling back to text-only", "err", err)
		}
	}
	results := l.stacks.AdvancedSearch(opts)
	l.emit("library.search", map[string]any{"query": opts.Text, "count": len(results)})
	return results
}

// RecordFeedback forwards explicit relevance feedback to the learning engine.
func (l *Library) RecordFeedback(id string, relevant bool) error {
	if l.learning == nil {
		return liberr.Sentinel(liberr.LearningDisabled)
	}
	l.learning.RecordFeedback(id, relevant)
	return nil
}

// Withdraw deletes a volume and emits library.withdraw.
func (l *Library) Withdraw(id string) error {
	if err := l.stacks.Delete(id); err != nil {
		return err
	}
	l.emit("library.withdraw", map[string]any{"id": id})
	return nil
}

// Stacks exposes the underlying store for callers needing lower-level operations
// (findDuplicates, recommend, getTopics, and so on).
func (l *Library) Stacks() *stacks.Stacks {
	return l.stacks
}

// Learning exposes the underlying learning engine for callers needing direct introspection
// (relevance scores, adapted weights, interest embeddings).
func (l *Library) Learning() *learning.Engine {
	return l.learning
}
