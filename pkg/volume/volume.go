// Package volume defines the Library's atomic stored unit and its reserved
// metadata keys.
package volume

import "github.com/google/uuid"

// Reserved metadata keys, centralized here so every package
// refers to the same string constants instead of scattering literals.
const (
	MetaTopic          = "topic"
	MetaTopics         = "topics"
	MetaShelf          = "shelf"
	MetaEntryType      = "entryType"
	MetaTags           = "tags"
	MetaSummarizedFrom = "summarizedFrom"
)

// Metadata is the Library's open string-to-string bag.
type Metadata map[string]string

// Clone returns a defensive copy, used by every public getter that would
// otherwise leak a mutable reference to internal state.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Volume is the atomic stored unit.
type Volume struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	Embedding      []float32 `json:"embedding"`
	Metadata       Metadata  `json:"metadata,omitempty"`
	Timestamp      int64     `json:"timestamp"`
	LastAccessedAt int64     `json:"lastAccessedAt"`
	AccessCount    int64     `json:"accessCount"`
}

// Clone returns a deep copy safe to hand to callers without exposing the
// store's internal slices/maps to mutation.
func (v *Volume) Clone() *Volume {
	if v == nil {
		return nil
	}
	out := *v
	if v.Embedding != nil {
		out.Embedding = make([]float32, len(v.Embedding))
		copy(out.Embedding, v.Embedding)
	}
	out.Metadata = v.Metadata.Clone()
	return &out
}

// NewID generates a unique, opaque, immutable volume id.
func NewID() string {
	return uuid.NewString()
}

// Scored pairs a Volume with a ranking score, the common return shape across
// search/advancedSearch/recommend.
type Scored struct {
	Volume *Volume `json:"volume"`
	Score  float64 `json:"score"`
}

// ScoredBreakdown additionally exposes the vector/text component scores
// advancedSearch reports alongside the combined score.
type ScoredBreakdown struct {
	Volume *Volume         `json:"volume"`
	Score  float64         `json:"score"`
	Scores ComponentScores `json:"scores"`
}

// ComponentScores are the raw per-signal scores behind a ranked result.
type ComponentScores struct {
	Vector *float64 `json:"vector,omitempty"`
	Text   *float64 `json:"text,omitempty"`
}
