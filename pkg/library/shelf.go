package library

import (
	"context"

	"github.com/shmor3/library/pkg/stacks"
	"github.com/shmor3/library/pkg/textmatch"
	"github.com/shmor3/library/pkg/volume"
)

// Shelf is a façade scoped to a single metadata.shelf value: every Add stamps the shelf tag,
// every search narrows to volumes carrying it.
type Shelf struct {
	lib  *Library
	name string
}

// Shelf returns a façade that scopes all operations to metadata.shelf = name.
func (l *Library) Shelf(name string) *Shelf {
	return &Shelf{lib: l, name: name}
}

// Add stamps metadata.shelf = s.name before delegating to Library.Add.
func (s *Shelf) Add(ctx context.Context, text string, metadata volume.Metadata) (string, error) {
	scoped := metadata.Clone()
	if scoped == nil {
		scoped = volume.Metadata{}
	}
	scoped[volume.MetaShelf] = s.name
	return s.lib.Add(ctx, text, scoped)
}

// Search narrows Library.AdvancedSearch to this shelf by adding an equality metadata filter,
// since Stacks.Search has no metadata-filter parameter of its own.
func (s *Shelf) Search(ctx context.Context, query string, maxResults int, threshold float64) []volume.ScoredBreakdown {
	opts := stacks.AdvancedSearchOptions{
		Text:                query,
		TextMode:            stacks.TextModeFuzzy,
		TextThreshold:       threshold,
		SimilarityThreshold: threshold,
		MaxResults:          maxResults,
		RankBy:              stacks.RankAverage,
		Metadata: []textmatch.Filter{
			{Key: volume.MetaShelf, Op: textmatch.OpEq, Value: s.name},
		},
	}
	return s.lib.AdvancedSearch(ctx, opts)
}
