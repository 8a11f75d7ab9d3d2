package circulation

import (
	"context"

	"github.com/shmor3/library/pkg/volume"
)

// ExtractedFact is a single item the Librarian extracts from a conversation turn during an
// extraction job.
type ExtractedFact struct {
	Text           string
	Embedding      []float32
	Metadata       volume.Metadata
	DedupThreshold float64
}

// Relocation moves a single topic path to another.
type Relocation struct {
	From string
	To   string
}

// Merge folds one topic path into another.
type Merge struct {
	From string
	To   string
}

// ReorganizationPlan is the Librarian's proposed set of topic moves/merges for a
// reorganization job, applied via relocate/merge on the topic catalog.
type ReorganizationPlan struct {
	Relocations []Relocation
	Merges      []Merge
}

// Librarian is the collaborator the desk delegates judgment to: extracting facts from a
// conversation turn, proposing a compendium, and proposing topic reorganizations. Callers
// back this with an LLM or a deterministic test double; the desk never knows which.
type Librarian interface {
	// ExtractFacts extracts zero or more candidate facts (with embeddings) from turnContext.
	ExtractFacts(ctx context.Context, turnContext any) ([]ExtractedFact, error)

	// CheckDuplicate reports whether embedding is a near-duplicate of an existing volume.
	CheckDuplicate(embedding []float32, threshold float64) (id string, score float64, found bool)

	// AddVolume persists a fact as a new volume, returning its id.
	AddVolume(ctx context.Context, text string, embedding []float32, metadata volume.Metadata) (string, error)

	// TopicSize returns the number of volumes currently assigned to topic.
	TopicSize(topic string) int

	// ProposeCompendium asks the Librarian to summarize topic's volumes into a compendium.
	ProposeCompendium(ctx context.Context, topic string) error

	// ProposeReorganization asks the Librarian for a reorganization plan for topic.
	ProposeReorganization(ctx context.Context, topic string) (ReorganizationPlan, error)

	// Relocate and Merge apply a reorganization plan's moves via the TopicCatalog.
	Relocate(from, to string)
	Merge(from, to string)
}
