package stacks

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shmor3/library/pkg/catalog"
	"github.com/shmor3/library/pkg/liberr"
	"github.com/shmor3/library/pkg/textmatch"
	"github.com/shmor3/library/pkg/volume"
)

// LearningRecorder is the subset of the learning engine's contract Stacks needs to record
// queries after every vector/advanced search that carried an embedding.
// Kept as a narrow interface (rather than importing pkg/learning directly) so the two
// packages don't form an import cycle; pkg/library wires a concrete *learning.Engine in.
type LearningRecorder interface {
	RecordQuery(queryEmbedding []float32, resultIDs []string, topic string)
	Prune(ids []string)
	SerializeState() (json.RawMessage, error)
	RestoreState(raw json.RawMessage) error
}

// Entry is a single add/addBatch item: text, embedding, and metadata.
type Entry struct {
	Text      string
	Embedding []float32
	Metadata  volume.Metadata
}

// Stacks is the store: it exclusively owns the live volume collection and every
// secondary index built over it.
type Stacks struct {
	mu sync.RWMutex

	config Config

	volumes map[string]*volume.Volume
	order   []string // insertion order, used for oldest-wins tie-breaking in dedup

	dimension int // 0 until fixed by the first insert

	magnitudes *catalog.MagnitudeCache
	metaIndex  *catalog.MetadataIndex
	topicIndex *catalog.TopicIndex
	inverted   *catalog.InvertedIndex
	regexCache *textmatch.RegexCache

	learning LearningRecorder

	dirty         bool
	lastMutation  time.Time
	loaded        bool
	autosaveTimer *time.Timer
}

// New constructs a Stacks with the given configuration. Call Load before using it.
func New(config Config) *Stacks {
	if config.MaxTopicsPerEntry == 0 {
		config.MaxTopicsPerEntry = catalog.MaxTopicsPerEntry
	}
	if config.BM25 == (catalog.BM25Params{}) {
		config.BM25 = catalog.DefaultBM25Params()
	}
	s := &Stacks{
		config:     config,
		volumes:    make(map[string]*volume.Volume),
		magnitudes: catalog.NewMagnitudeCache(),
		metaIndex:  catalog.NewMetadataIndex(),
		topicIndex: catalog.NewTopicIndex(),
		inverted:   catalog.NewInvertedIndex(config.BM25),
		regexCache: textmatch.NewRegexCache(),
	}
	return s
}

// SetLearning wires the learning engine recorder. Passing nil disables recording.
func (s *Stacks) SetLearning(l LearningRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.learning = l
}

// Load reads persisted state from config.Path, if set, or starts empty.
func (s *Stacks) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.Path == "" {
		s.loaded = true
		return nil
	}
	if err := s.loadFromDisk(); err != nil {
		return liberr.New(liberr.NotInitialized, "load", err)
	}
	s.loaded = true
	return nil
}

// Dispose stops the pending autosave and flushes any dirty state synchronously.
func (s *Stacks) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.autosaveTimer != nil {
		s.autosaveTimer.Stop()
	}
	if s.dirty {
		return s.saveToDisk()
	}
	return nil
}

func (s *Stacks) requireLoaded() error {
	if !s.loaded {
		return liberr.New(liberr.NotInitialized, "stacks", nil)
	}
	return nil
}

func (s *Stacks) markDirty() {
	s.dirty = true
	s.lastMutation = time.Now()
	s.scheduleAutosave()
}

// scheduleAutosave (re)arms the debounce timer so a burst of mutations collapses into one
// flush AutosaveDebounce after the last of them. No-op when persistence or debouncing is
// disabled; Dispose still flushes synchronously regardless.
func (s *Stacks) scheduleAutosave() {
	if s.config.Path == "" || s.config.AutosaveDebounce <= 0 {
		return
	}
	if s.autosaveTimer != nil {
		s.autosaveTimer.Stop()
	}
	s.autosaveTimer = time.AfterFunc(s.config.AutosaveDebounce, s.flushAutosave)
}

// flushAutosave runs on the timer goroutine; it re-acquires the lock the debounce interval
// held off on and skips the write if some other caller already flushed in the meantime.
func (s *Stacks) flushAutosave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return
	}
	if err := s.saveToDisk(); err != nil {
		s.config.Logger.Warn("autosave failed", "err", err)
	}
}

// Add validates and inserts a single volume, returning its generated id.
func (s *Stacks) Add(e Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return "", err
	}
	if e.Text == "" {
		return "", liberr.New(liberr.EmptyText, "add", nil)
	}
	if err := s.validateEmbedding(e.Embedding); err != nil {
		return "", err
	}

	id := volume.NewID()
	now := time.Now().UnixMilli()
	v := &volume.Volume{
		ID:             id,
		Text:           e.Text,
		Embedding:      e.Embedding,
		Metadata:       e.Metadata.Clone(),
		Timestamp:      now,
		LastAccessedAt: now,
		AccessCount:    0,
	}
	s.insert(v)
	s.markDirty()
	return id, nil
}

// validateEmbedding enforces dimension consistency and non-zero magnitude.
func (s *Stacks) validateEmbedding(embedding []float32) error {
	if len(embedding) == 0 {
		return liberr.New(liberr.DimensionMismatch, "add", fmt.Errorf("embedding is empty"))
	}
	if s.dimension == 0 {
		s.dimension = len(embedding)
	} else if len(embedding) != s.dimension {
		return liberr.New(liberr.DimensionMismatch, "add",
			fmt.Errorf("expected dimension %d, got %d", s.dimension, len(embedding)))
	}
	var sumSq float64
	for _, v := range embedding {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return liberr.New(liberr.DimensionMismatch, "add", fmt.Errorf("zero-magnitude embedding rejected"))
	}
	return nil
}

// insert registers v into the volume table and every secondary index atomically with
// respect to other operations.
func (s *Stacks) insert(v *volume.Volume) {
	s.volumes[v.ID] = v
	s.order = append(s.order, v.ID)
	s.magnitudes.Set(v.ID, v.Embedding)
	s.metaIndex.Add(v.ID, v.Metadata)
	s.topicIndex.AddEntry(catalog.Entry{ID: v.ID, Text: v.Text, Metadata: v.Metadata})
	s.inverted.Add(v.ID, v.Text)
}

// AddBatch inserts entries atomically: either all succeed or none are applied.
func (s *Stacks) AddBatch(entries []Entry) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}

	// Validate everything first so a failure partway through inserts nothing.
	savedDim := s.dimension
	for _, e := range entries {
		if e.Text == "" {
			s.dimension = savedDim
			return nil, liberr.New(liberr.EmptyText, "addBatch", nil)
		}
		if err := s.validateEmbedding(e.Embedding); err != nil {
			s.dimension = savedDim
			return nil, err
		}
	}

	ids := make([]string, 0, len(entries))
	now := time.Now().UnixMilli()
	for _, e := range entries {
		id := volume.NewID()
		v := &volume.Volume{
			ID:             id,
			Text:           e.Text,
			Embedding:      e.Embedding,
			Metadata:       e.Metadata.Clone(),
			Timestamp:      now,
			LastAccessedAt: now,
		}
		s.insert(v)
		ids = append(ids, id)
	}
	s.markDirty()
	return ids, nil
}

// Delete removes id from every index.
func (s *Stacks) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if _, ok := s.volumes[id]; !ok {
		return liberr.New(liberr.EntryNotFound, "delete", fmt.Errorf("id %q", id))
	}
	s.removeOne(id)
	s.markDirty()
	if s.learning != nil {
		s.learning.Prune([]string{id})
	}
	return nil
}

// DeleteBatch removes every id in ids from every index, pruning learning state once.
func (s *Stacks) DeleteBatch(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := s.volumes[id]; !ok {
			return liberr.New(liberr.EntryNotFound, "deleteBatch", fmt.Errorf("id %q", id))
		}
	}
	for _, id := range ids {
		s.removeOne(id)
	}
	s.markDirty()
	if s.learning != nil {
		s.learning.Prune(ids)
	}
	return nil
}

func (s *Stacks) removeOne(id string) {
	v := s.volumes[id]
	if v == nil {
		return
	}
	delete(s.volumes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.magnitudes.Remove(id)
	s.metaIndex.Remove(id, v.Metadata)
	s.topicIndex.RemoveEntry(id)
	s.inverted.Remove(id)
}

// Clear removes every volume and resets every index.
func (s *Stacks) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return err
	}
	ids := make([]string, 0, len(s.volumes))
	for id := range s.volumes {
		ids = append(ids, id)
	}
	s.volumes = make(map[string]*volume.Volume)
	s.order = nil
	s.magnitudes.Clear()
	s.metaIndex.Clear()
	s.topicIndex.Clear()
	s.inverted.Clear()
	s.markDirty()
	if s.learning != nil && len(ids) > 0 {
		s.learning.Prune(ids)
	}
	return nil
}

// GetByID returns a defensive copy of the volume and records access, or nil if absent.
func (s *Stacks) GetByID(id string) *volume.Volume {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.volumes[id]
	if !ok {
		return nil
	}
	s.touch(v)
	return v.Clone()
}

// touch updates lastAccessedAt/accessCount; regressions in wall-clock
// leave lastAccessedAt unchanged.
func (s *Stacks) touch(v *volume.Volume) {
	now := time.Now().UnixMilli()
	if now > v.LastAccessedAt {
		v.LastAccessedAt = now
	}
	v.AccessCount++
}

// GetAll returns defensive copies of every live volume.
func (s *Stacks) GetAll() []*volume.Volume {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*volume.Volume, 0, len(s.volumes))
	for _, id := range s.order {
		if v, ok := s.volumes[id]; ok {
			out = append(out, v.Clone())
		}
	}
	return out
}

// Size returns the number of live volumes.
func (s *Stacks) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.volumes)
}

// Dimension returns the store-wide embedding dimension (0 if no volume has been added yet).
func (s *Stacks) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// GetTopics returns every known topic path.
func (s *Stacks) GetTopics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topicIndex.Topics()
}

// FilterByTopic returns defensive copies of every volume under topic or its descendants.
func (s *Stacks) FilterByTopic(topic string) []*volume.Volume {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.topicIndex.GetEntries(topic)
	out := make([]*volume.Volume, 0, len(ids))
	for _, id := range ids {
		if v, ok := s.volumes[id]; ok {
			s.touch(v)
			out = append(out, v.Clone())
		}
	}
	return out
}

// MergeTopic reassigns ids from one topic path to another.
func (s *Stacks) MergeTopic(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topicIndex.MergeTopic(from, to)
	s.markDirty()
}

// GetRelatedTopics returns topics co-occurring with topic and their counts.
func (s *Stacks) GetRelatedTopics(topic string) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topicIndex.GetRelatedTopics(topic)
}
