package catalog

import "testing"

func TestMetadataIndex_AddAndLookup(t *testing.T) {
	idx := NewMetadataIndex()
	idx.Add("v1", map[string]string{"status": "active", "lang": "go"})
	idx.Add("v2", map[string]string{"status": "active"})
	idx.Add("v3", map[string]string{"status": "archived"})

	keyIDs := idx.IDsWithKey("status")
	if len(keyIDs) != 3 {
		t.Errorf("expected 3 ids with key status, got %d", len(keyIDs))
	}

	activeIDs := idx.IDsWithKeyValue("status", "active")
	if len(activeIDs) != 2 {
		t.Errorf("expected 2 ids with status=active, got %d", len(activeIDs))
	}
}

func TestMetadataIndex_Remove(t *testing.T) {
	idx := NewMetadataIndex()
	meta := map[string]string{"status": "active"}
	idx.Add("v1", meta)
	idx.Remove("v1", meta)

	if ids := idx.IDsWithKeyValue("status", "active"); len(ids) != 0 {
		t.Errorf("expected no ids after remove, got %v", ids)
	}
	if ids := idx.IDsWithKey("status"); len(ids) != 0 {
		t.Errorf("expected key to be pruned once empty, got %v", ids)
	}
}

func TestMetadataIndex_Clear(t *testing.T) {
	idx := NewMetadataIndex()
	idx.Add("v1", map[string]string{"a": "1"})
	idx.Clear()
	if ids := idx.IDsWithKey("a"); len(ids) != 0 {
		t.Errorf("expected empty index after Clear, got %v", ids)
	}
}
