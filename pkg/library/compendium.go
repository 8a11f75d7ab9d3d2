package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/shmor3/library/pkg/liberr"
	"github.com/shmor3/library/pkg/volume"
)

// defaultSummarizationPrompt is short and directive, with no surrounding preamble.
const defaultSummarizationPrompt = "Summarize the following source passages into a single coherent passage. Preserve every distinct fact; do not editorialize."

// CompendiumOptions configures Compendium.
type CompendiumOptions struct {
	IDs             []string
	Prompt          string
	SystemPrompt    string
	DeleteOriginals bool
	Metadata        volume.Metadata
}

// Compendium concatenates the source volumes, calls the text generator, stores the result
// with summarizedFrom metadata pointing at the sources, and optionally deletes the originals.
func (l *Library) Compendium(ctx context.Context, opts CompendiumOptions) (string, error) {
	if l.generate == nil {
		return "", liberr.New(liberr.NoTextGenerator, "compendium", nil)
	}
	if len(opts.IDs) < 2 {
		return "", liberr.New(liberr.SummarizeTooFew, "compendium", fmt.Errorf("need at least 2 ids, got %d", len(opts.IDs)))
	}

	sources := make([]string, 0, len(opts.IDs))
	for _, id := range opts.IDs {
		v := l.stacks.GetByID(id)
		if v == nil {
			return "", liberr.New(liberr.EntryNotFound, "compendium", fmt.Errorf("id %q", id))
		}
		sources = append(sources, v.Text)
	}

	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSummarizationPrompt
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = strings.Join(sources, "\n\n---\n\n")
	}

	summary, err := l.generate(ctx, systemPrompt, prompt)
	if err != nil {
		return "", liberr.New(liberr.EmbeddingFailed, "compendium", err)
	}

	metadata := opts.Metadata.Clone()
	if metadata == nil {
		metadata = volume.Metadata{}
	}
	metadata[volume.MetaSummarizedFrom] = strings.Join(opts.IDs, ",")
	metadata[volume.MetaEntryType] = "compendium"

	id, err := l.Add(ctx, summary, metadata)
	if err != nil {
		return "", err
	}

	if opts.DeleteOriginals {
		if err := l.stacks.DeleteBatch(opts.IDs); err != nil {
			l.logger.Warn("compendium: failed to delete originals", "err", err)
		}
	}
	return id, nil
}
