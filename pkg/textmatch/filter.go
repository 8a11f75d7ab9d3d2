package textmatch

import (
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Op enumerates the metadata filter predicates.
type Op string

const (
	OpEq         Op = "eq"
	OpNeq        Op = "neq"
	OpExists     Op = "exists"
	OpNotExists  Op = "notExists"
	OpContains   Op = "contains"
	OpStartsWith Op = "startsWith"
	OpEndsWith   Op = "endsWith"
	OpRegex      Op = "regex"
	OpGT         Op = "gt"
	OpGTE        Op = "gte"
	OpLT         Op = "lt"
	OpLTE        Op = "lte"
	OpIn         Op = "in"
	OpNotIn      Op = "notIn"
	OpBetween    Op = "between"
)

// Filter is a single metadata predicate against one key.
type Filter struct {
	Key   string
	Op    Op
	Value string   // used by eq/neq/contains/startsWith/endsWith/regex/gt/gte/lt/lte
	Set   []string // used by in/notIn
	Low   string   // used by between
	High  string   // used by between
}

// regexCacheSize is the bounded LRU capacity for compiled regex patterns.
const regexCacheSize = 64

type regexEntry struct {
	re  *regexp.Regexp
	err error
}

// RegexCache is a bounded LRU of compiled regular expressions keyed by pattern string,
// carrying either the compiled pattern or a "compile failed" marker.
type RegexCache struct {
	cache *lru.Cache[string, regexEntry]
}

// NewRegexCache builds a RegexCache with a default capacity of 64 entries.
func NewRegexCache() *RegexCache {
	c, _ := lru.New[string, regexEntry](regexCacheSize)
	return &RegexCache{cache: c}
}

// compile compiles pattern case-insensitively, matching the rest of the package's
// comparisons (everything but eq/neq folds case).
func (c *RegexCache) compile(pattern string) (*regexp.Regexp, error) {
	if entry, ok := c.cache.Get(pattern); ok {
		return entry.re, entry.err
	}
	re, err := regexp.Compile("(?i)" + pattern)
	c.cache.Add(pattern, regexEntry{re: re, err: err})
	return re, err
}

// Matches evaluates f against the given metadata map using cache for compiled regexes.
// All string comparisons are case-insensitive except eq/neq.
func (c *RegexCache) Matches(meta map[string]string, f Filter) bool {
	actual, exists := meta[f.Key]

	switch f.Op {
	case OpExists:
		return exists
	case OpNotExists:
		return !exists
	case OpEq:
		return exists && actual == f.Value
	case OpNeq:
		return !exists || actual != f.Value
	}

	if !exists {
		return false
	}

	lowerActual := strings.ToLower(actual)
	switch f.Op {
	case OpContains:
		return strings.Contains(lowerActual, strings.ToLower(f.Value))
	case OpStartsWith:
		return strings.HasPrefix(lowerActual, strings.ToLower(f.Value))
	case OpEndsWith:
		return strings.HasSuffix(lowerActual, strings.ToLower(f.Value))
	case OpRegex:
		re, err := c.compile(f.Value)
		if err != nil || re == nil {
			return false
		}
		return re.MatchString(actual)
	case OpIn:
		return containsFold(f.Set, actual)
	case OpNotIn:
		return !containsFold(f.Set, actual)
	case OpGT, OpGTE, OpLT, OpLTE:
		av, aerr := strconv.ParseFloat(actual, 64)
		bv, berr := strconv.ParseFloat(f.Value, 64)
		if aerr != nil || berr != nil {
			return false
		}
		switch f.Op {
		case OpGT:
			return av > bv
		case OpGTE:
			return av >= bv
		case OpLT:
			return av < bv
		default:
			return av <= bv
		}
	case OpBetween:
		av, aerr := strconv.ParseFloat(actual, 64)
		lo, lerr := strconv.ParseFloat(f.Low, 64)
		hi, herr := strconv.ParseFloat(f.High, 64)
		if aerr != nil || lerr != nil || herr != nil {
			return false
		}
		return av >= lo && av <= hi
	default:
		return false
	}
}

// MatchString compiles pattern (via the cache) and reports whether it matches s. A compile
// failure is treated as no match.
func (c *RegexCache) MatchString(pattern, s string) bool {
	re, err := c.compile(pattern)
	if err != nil || re == nil {
		return false
	}
	return re.MatchString(s)
}

func containsFold(set []string, val string) bool {
	lowered := strings.ToLower(val)
	for _, s := range set {
		if strings.ToLower(s) == lowered {
			return true
		}
	}
	return false
}

// MatchesAll reports whether meta satisfies every filter in filters (AND semantics).
func (c *RegexCache) MatchesAll(meta map[string]string, filters []Filter) bool {
	for _, f := range filters {
		if !c.Matches(meta, f) {
			return false
		}
	}
	return true
}
