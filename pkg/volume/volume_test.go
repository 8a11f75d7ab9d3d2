package volume

import "testing"

func TestMetadataClone_IsIndependent(t *testing.T) {
	m := Metadata{"a": "1"}
	clone := m.Clone()
	clone["a"] = "2"
	if m["a"] != "1" {
		t.Error("mutating clone should not affect original")
	}
}

func TestMetadataClone_Nil(t *testing.T) {
	var m Metadata
	if m.Clone() != nil {
		t.Error("cloning nil metadata should return nil")
	}
}

func TestVolumeClone_IsIndependent(t *testing.T) {
	v := &Volume{
		ID:        "v1",
		Text:      "hello",
		Embedding: []float32{1, 2, 3},
		Metadata:  Metadata{"k": "v"},
	}
	clone := v.Clone()
	clone.Embedding[0] = 99
	clone.Metadata["k"] = "changed"

	if v.Embedding[0] != 1 {
		t.Error("mutating clone's embedding should not affect original")
	}
	if v.Metadata["k"] != "v" {
		t.Error("mutating clone's metadata should not affect original")
	}
}

func TestNewID_Unique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Error("expected two distinct ids")
	}
	if a == "" {
		t.Error("expected a non-empty id")
	}
}
