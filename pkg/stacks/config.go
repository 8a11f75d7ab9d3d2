// Package stacks implements the store: CRUD over volumes, maintenance of
// every secondary index, durable persistence, and the
// search/advancedSearch/recommend/dedup pipelines. The on-disk format is a
// single JSON document rather than a SQL-backed store.
package stacks

import (
	"time"

	"github.com/shmor3/library/pkg/catalog"
	"github.com/shmor3/library/pkg/librarylog"
)

// Config is a plain struct of tunables with a Default constructor, no env/flag magic.
type Config struct {
	// Path is the on-disk location of the persisted document. Empty disables persistence.
	Path string

	// AutosaveDebounce is how long a dirty store waits before flushing.
	AutosaveDebounce time.Duration

	// DedupThreshold is the default cosine threshold for checkDuplicate/findDuplicates.
	DedupThreshold float64

	// MaxTopicsPerEntry is defaulted by New but not passed on: the topic index always caps
	// extracted topics at catalog.MaxTopicsPerEntry, whatever this field holds.
	MaxTopicsPerEntry int

	// BM25 holds the inverted index's k1/b parameters.
	BM25 catalog.BM25Params

	Logger librarylog.Logger
}

// DefaultConfig returns the package's default tunables.
func DefaultConfig() Config {
	return Config{
		AutosaveDebounce:  2 * time.Second,
		DedupThreshold:    0.95,
		MaxTopicsPerEntry: catalog.MaxTopicsPerEntry,
		BM25:              catalog.DefaultBM25Params(),
		Logger:            librarylog.Nop(),
	}
}
