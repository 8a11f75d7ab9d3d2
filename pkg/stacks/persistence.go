package stacks

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shmor3/library/pkg/codec"
	"github.com/shmor3/library/pkg/librarylog"
	"github.com/shmor3/library/pkg/volume"
)

func encodeB64(b []byte) string        { return base64.StdEncoding.EncodeToString(b) }
func decodeB64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// currentVersion is the on-disk document version.
const currentVersion = 2

// document is the single logical document persisted per store.
type document struct {
	Version   int             `json:"version"`
	Dimension int             `json:"dimension"`
	Volumes   []volumeRecord  `json:"volumes"`
	Learning  json.RawMessage `json:"learning,omitempty"`
}

// volumeRecord is the wire shape of a Volume: embeddings as base64 f32, text either plain
// or gzip-wrapped as {"gz": "<b64>"} depending on size.
type volumeRecord struct {
	ID             string            `json:"id"`
	Text           json.RawMessage   `json:"text"`
	Embedding      string            `json:"embedding"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Timestamp      int64             `json:"timestamp"`
	LastAccessedAt int64             `json:"lastAccessedAt"`
	AccessCount    int64             `json:"accessCount"`
}

type gzText struct {
	Gz string `json:"gz"`
}

func encodeTextField(text string) (json.RawMessage, error) {
	data, compressed, err := codec.CompressText(text)
	if err != nil {
		return nil, err
	}
	if !compressed {
		return json.Marshal(text)
	}
	return json.Marshal(gzText{Gz: encodeB64(data)})
}

func decodeTextField(raw json.RawMessage) (string, error) {
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, nil
	}
	var wrapped gzText
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return "", fmt.Errorf("unrecognized text field")
	}
	data, err := decodeB64(wrapped.Gz)
	if err != nil {
		return "", err
	}
	return codec.DecompressText(data)
}

func toRecord(v *volume.Volume) (volumeRecord, error) {
	embB64, err := codec.EncodeVector(v.Embedding)
	if err != nil {
		return volumeRecord{}, err
	}
	textField, err := encodeTextField(v.Text)
	if err != nil {
		return volumeRecord{}, err
	}
	return volumeRecord{
		ID:             v.ID,
		Text:           textField,
		Embedding:      embB64,
		Metadata:       v.Metadata,
		Timestamp:      v.Timestamp,
		LastAccessedAt: v.LastAccessedAt,
		AccessCount:    v.AccessCount,
	}, nil
}

func fromRecord(r volumeRecord) (*volume.Volume, error) {
	embedding, err := codec.DecodeVector(r.Embedding)
	if err != nil {
		return nil, err
	}
	text, err := decodeTextField(r.Text)
	if err != nil {
		return nil, err
	}
	return &volume.Volume{
		ID:             r.ID,
		Text:           text,
		Embedding:      embedding,
		Metadata:       r.Metadata,
		Timestamp:      r.Timestamp,
		LastAccessedAt: r.LastAccessedAt,
		AccessCount:    r.AccessCount,
	}, nil
}

// saveToDisk serializes the whole document and writes it with a temp-and-rename pattern
//. Caller holds s.mu.
func (s *Stacks) saveToDisk() error {
	if s.config.Path == "" {
		s.dirty = false
		return nil
	}

	doc := document{Version: currentVersion, Dimension: s.dimension}
	for _, id := range s.order {
		v := s.volumes[id]
		rec, err := toRecord(v)
		if err != nil {
			librarylog.WithVolume(s.config.Logger, id).Warn("skip volume on save", "err", err)
			continue
		}
		doc.Volumes = append(doc.Volumes, rec)
	}
	if s.learning != nil {
		raw, err := s.learning.SerializeState()
		if err != nil {
			return err
		}
		doc.Learning = raw
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.config.Path)
	tmp, err := os.CreateTemp(dir, ".stacks-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.config.Path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	s.dirty = false
	return nil
}

// loadFromDisk reads and rebuilds every index from the persisted document. A corrupt header
// aborts the load; a corrupt per-record byte range is skipped with a logged warning and the
// load continues.
func (s *Stacks) loadFromDisk() error {
	raw, err := os.ReadFile(s.config.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if isGzipWhole(raw) {
		raw, err = gunzipAll(raw)
		if err != nil {
			return fmt.Errorf("corrupt header: %w", err)
		}
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("corrupt header: %w", err)
	}

	s.dimension = doc.Dimension
	s.volumes = make(map[string]*volume.Volume, len(doc.Volumes))
	s.order = nil
	s.magnitudes.Clear()
	s.metaIndex.Clear()
	s.topicIndex.Clear()
	s.inverted.Clear()

	for _, rec := range doc.Volumes {
		v, err := fromRecord(rec)
		if err != nil {
			librarylog.WithVolume(s.config.Logger, rec.ID).Warn("skip corrupt volume record", "err", err)
			continue
		}
		s.insert(v)
	}

	if s.learning != nil && len(doc.Learning) > 0 {
		if err := s.learning.RestoreState(doc.Learning); err != nil {
			s.config.Logger.Warn("failed to restore learning state", "err", err)
		}
	}

	s.dirty = false
	return nil
}

// DumpToFile writes the current in-memory state to path using the same document format
// and temp-and-rename atomicity as the configured autosave path, independent of it.
func (s *Stacks) DumpToFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return err
	}
	savedPath := s.config.Path
	s.config.Path = path
	defer func() { s.config.Path = savedPath }()
	wasDirty := s.dirty
	defer func() { s.dirty = wasDirty }()
	return s.saveToDisk()
}

// LoadFromFile replaces the current in-memory state with the document at path, rebuilding
// every secondary index. The store must already be Load-ed; path is read independently of
// the configured autosave path.
func (s *Stacks) LoadFromFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return err
	}
	savedPath := s.config.Path
	s.config.Path = path
	defer func() { s.config.Path = savedPath }()
	return s.loadFromDisk()
}

func isGzipWhole(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B
}

func gunzipAll(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
