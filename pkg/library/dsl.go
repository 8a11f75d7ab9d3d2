package library

import (
	"context"
	"strconv"
	"strings"

	"github.com/shmor3/library/pkg/stacks"
	"github.com/shmor3/library/pkg/textmatch"
	"github.com/shmor3/library/pkg/volume"
)

// Query parses a compact DSL into an AdvancedSearch call: free-text tokens are
// joined into the text query, `key:value` tokens become equality metadata filters,
// `topic:foo/bar` narrows TopicFilter, and `min-score:0.5` sets SimilarityThreshold /
// TextThreshold.
func (l *Library) Query(ctx context.Context, dsl string) []volume.ScoredBreakdown {
	opts := ParseDSL(dsl)
	return l.AdvancedSearch(ctx, opts)
}

// ParseDSL parses dsl into AdvancedSearchOptions without executing a search, exposed so
// callers can inspect or further adjust the parsed options.
func ParseDSL(dsl string) stacks.AdvancedSearchOptions {
	var freeText []string
	var filters []textmatch.Filter
	var topicFilter []string
	minScore := 0.0

	for _, tok := range strings.Fields(dsl) {
		key, value, hasColon := cutColon(tok)
		if !hasColon {
			freeText = append(freeText, tok)
			continue
		}
		switch key {
		case "topic":
			topicFilter = append(topicFilter, value)
		case "min-score":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				minScore = f
			}
		default:
			filters = append(filters, textmatch.Filter{Key: key, Op: textmatch.OpEq, Value: value})
		}
	}

	opts := stacks.AdvancedSearchOptions{
		Text:                strings.Join(freeText, " "),
		TextMode:            stacks.TextModeFuzzy,
		TextThreshold:       minScore,
		SimilarityThreshold: minScore,
		Metadata:            filters,
		TopicFilter:         topicFilter,
		RankBy:              stacks.RankAverage,
	}
	return opts
}

// cutColon splits "key:value" on the first colon; tokens without a colon are free text.
func cutColon(tok string) (key, value string, ok bool) {
	idx := strings.Index(tok, ":")
	if idx <= 0 {
		return "", "", false
	}
	return tok[:idx], tok[idx+1:], true
}
