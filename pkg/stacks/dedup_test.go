package stacks

import "testing"

func TestFindDuplicates_ClustersNearDuplicatesOldestWins(t *testing.T) {
	s := newLoadedStore(t)
	idOld, _ := s.Add(Entry{Text: "first", Embedding: []float32{1, 0}})
	idMid, _ := s.Add(Entry{Text: "second", Embedding: []float32{1, 0}})
	s.Add(Entry{Text: "unrelated", Embedding: []float32{0, 1}})

	groups := s.FindDuplicates(0.99)
	if len(groups) != 1 {
		t.Fatalf("expected one duplicate group, got %d", len(groups))
	}
	g := groups[0]
	if g.Representative.ID != idOld {
		t.Errorf("expected the oldest volume (%s) as representative, got %s", idOld, g.Representative.ID)
	}
	if len(g.Duplicates) != 1 || g.Duplicates[0].ID != idMid {
		t.Errorf("expected the newer volume as the sole duplicate, got %v", g.Duplicates)
	}
}

func TestFindDuplicates_NoGroupsBelowThreshold(t *testing.T) {
	s := newLoadedStore(t)
	s.Add(Entry{Text: "a", Embedding: []float32{1, 0}})
	s.Add(Entry{Text: "b", Embedding: []float32{0, 1}})

	if groups := s.FindDuplicates(0.99); len(groups) != 0 {
		t.Errorf("expected no duplicate groups among orthogonal vectors, got %v", groups)
	}
}

func TestCheckDuplicate_FindsNearestAboveThreshold(t *testing.T) {
	s := newLoadedStore(t)
	id, _ := s.Add(Entry{Text: "existing", Embedding: []float32{1, 0}})

	gotID, score, found := s.CheckDuplicate([]float32{1, 0}, 0.9)
	if !found || gotID != id {
		t.Errorf("expected to find the identical embedding as a duplicate, got id=%s found=%v", gotID, found)
	}
	if score < 0.99 {
		t.Errorf("expected a near-1.0 cosine score, got %f", score)
	}
}

func TestCheckDuplicate_NoneFoundBelowThreshold(t *testing.T) {
	s := newLoadedStore(t)
	s.Add(Entry{Text: "existing", Embedding: []float32{1, 0}})

	_, _, found := s.CheckDuplicate([]float32{0, 1}, 0.9)
	if found {
		t.Error("expected no duplicate for an orthogonal embedding")
	}
}
