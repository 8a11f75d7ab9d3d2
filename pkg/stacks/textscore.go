package stacks

import (
	"strings"

	"github.com/shmor3/library/pkg/textmatch"
)

// textScoreFor scores text against query under mode, used by TextSearch for everything
// except bm25 (which goes through the inverted index instead).
func textScoreFor(mode TextMode, query, text string, regexCache *textmatch.RegexCache) float64 {
	switch mode {
	case TextModeExact:
		if strings.EqualFold(query, text) {
			return 1.0
		}
		return 0.0
	case TextModeSubstring:
		if strings.Contains(strings.ToLower(text), strings.ToLower(query)) {
			return 1.0
		}
		return 0.0
	case TextModeRegex:
		if regexCache.MatchString(query, text) {
			return 1.0
		}
		return 0.0
	case TextModeToken:
		return textmatch.TokenOverlapScore(query, text)
	case TextModeFuzzy:
		fallthrough
	default:
		return textmatch.FuzzyScore(query, text, textmatch.DefaultFuzzyWeights())
	}
}
