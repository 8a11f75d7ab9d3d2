package catalog

import (
	"math"
	"sort"
	"strings"
)

// BM25Params are the tunable BM25 constants, configurable but defaulted to the
// standard values used across most BM25 implementations.
type BM25Params struct {
	K1 float64
	B  float64
}

// DefaultBM25Params returns k1=1.2, b=0.75.
func DefaultBM25Params() BM25Params {
	return BM25Params{K1: 1.2, B: 0.75}
}

type posting struct {
	id   string
	freq int
}

// InvertedIndex is a term -> posting-list BM25 index.
type InvertedIndex struct {
	postings   map[string][]posting
	docLength  map[string]int
	totalTerms int
	params     BM25Params
}

// NewInvertedIndex creates an empty InvertedIndex with the given BM25 parameters.
func NewInvertedIndex(params BM25Params) *InvertedIndex {
	return &InvertedIndex{
		postings:  make(map[string][]posting),
		docLength: make(map[string]int),
		params:    params,
	}
}

// Tokenize lowercases and splits text on non-alphanumeric runes, matching the tokenization
// used across the store's text-match pipeline.
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// Add indexes the tokens of text under id.
func (idx *InvertedIndex) Add(id, text string) {
	tokens := Tokenize(text)
	idx.docLength[id] = len(tokens)
	idx.totalTerms += len(tokens)

	counts := make(map[string]int)
	for _, tok := range tokens {
		counts[tok]++
	}
	for term, freq := range counts {
		idx.postings[term] = append(idx.postings[term], posting{id: id, freq: freq})
	}
}

// Remove de-indexes id from every term's posting list.
func (idx *InvertedIndex) Remove(id string) {
	length, ok := idx.docLength[id]
	if !ok {
		return
	}
	idx.totalTerms -= length
	delete(idx.docLength, id)

	for term, list := range idx.postings {
		filtered := list[:0]
		for _, p := range list {
			if p.id != id {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			delete(idx.postings, term)
		} else {
			idx.postings[term] = filtered
		}
	}
}

func (idx *InvertedIndex) avgDocLength() float64 {
	if len(idx.docLength) == 0 {
		return 0
	}
	return float64(idx.totalTerms) / float64(len(idx.docLength))
}

// Score is a single BM25Search hit.
type Score struct {
	ID    string
	Score float64
}

// BM25Search tokenizes query and returns ids ranked descending by BM25 score.
func (idx *InvertedIndex) BM25Search(query string) []Score {
	terms := Tokenize(query)
	if len(terms) == 0 || len(idx.docLength) == 0 {
		return nil
	}

	avgLen := idx.avgDocLength()
	n := float64(len(idx.docLength))
	scores := make(map[string]float64)

	for _, term := range terms {
		list := idx.postings[term]
		if len(list) == 0 {
			continue
		}
		df := float64(len(list))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))

		for _, p := range list {
			docLen := float64(idx.docLength[p.id])
			tf := float64(p.freq)
			denom := tf + idx.params.K1*(1-idx.params.B+idx.params.B*docLen/avgLen)
			scores[p.id] += idf * (tf * (idx.params.K1 + 1)) / denom
		}
	}

	out := make([]Score, 0, len(scores))
	for id, s := range scores {
		out = append(out, Score{ID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Clear empties the index.
func (idx *InvertedIndex) Clear() {
	idx.postings = make(map[string][]posting)
	idx.docLength = make(map[string]int)
	idx.totalTerms = 0
}
