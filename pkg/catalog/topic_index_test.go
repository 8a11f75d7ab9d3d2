package catalog

import (
	"sort"
	"testing"
)

func TestExtractTopics_JSONArrayPriority(t *testing.T) {
	idx := NewTopicIndex()
	topics := idx.ExtractTopics(Entry{
		ID:       "v1",
		Text:     "irrelevant body text",
		Metadata: map[string]string{"topics": `["science","physics"]`, "topic": "ignored"},
	})
	if len(topics) != 2 || topics[0] != "science" || topics[1] != "physics" {
		t.Errorf("expected JSON topics array to take priority, got %v", topics)
	}
}

func TestExtractTopics_CommaSeparatedFallback(t *testing.T) {
	idx := NewTopicIndex()
	topics := idx.ExtractTopics(Entry{
		ID:       "v1",
		Text:     "irrelevant",
		Metadata: map[string]string{"topic": "go, concurrency"},
	})
	if len(topics) != 2 || topics[0] != "go" || topics[1] != "concurrency" {
		t.Errorf("expected comma-separated topics, got %v", topics)
	}
}

func TestExtractTopics_AutomaticExtractionCapped(t *testing.T) {
	idx := NewTopicIndex()
	topics := idx.ExtractTopics(Entry{
		ID:   "v1",
		Text: "kubernetes kubernetes kubernetes docker docker container container pipeline pipeline registry cluster",
	})
	if len(topics) > MaxTopicsPerEntry {
		t.Errorf("expected at most %d auto-extracted topics, got %d", MaxTopicsPerEntry, len(topics))
	}
	if len(topics) == 0 || topics[0] != "kubernetes" {
		t.Errorf("expected kubernetes (highest frequency) first, got %v", topics)
	}
}

func TestGetEntries_UnionOfDescendants(t *testing.T) {
	idx := NewTopicIndex()
	idx.AddEntry(Entry{ID: "a", Metadata: map[string]string{"topic": "science"}})
	idx.AddEntry(Entry{ID: "b", Metadata: map[string]string{"topic": "science/physics"}})
	idx.AddEntry(Entry{ID: "c", Metadata: map[string]string{"topic": "art"}})

	entries := idx.GetEntries("science")
	sort.Strings(entries)
	if len(entries) != 2 || entries[0] != "a" || entries[1] != "b" {
		t.Errorf("expected union of direct + descendant entries, got %v", entries)
	}
}

func TestMergeTopic_ReassignsEntriesAndCoOccurrence(t *testing.T) {
	idx := NewTopicIndex()
	idx.AddEntry(Entry{ID: "v1", Metadata: map[string]string{"topics": `["old","other"]`}})
	idx.AddEntry(Entry{ID: "v2", Metadata: map[string]string{"topic": "old"}})

	idx.MergeTopic("old", "new")

	oldEntries := idx.GetEntries("old")
	if len(oldEntries) != 0 {
		t.Errorf("expected 'old' to have no direct entries after merge, got %v", oldEntries)
	}
	newEntries := idx.GetEntries("new")
	sort.Strings(newEntries)
	if len(newEntries) != 2 {
		t.Errorf("expected both entries reassigned to 'new', got %v", newEntries)
	}

	related := idx.GetRelatedTopics("new")
	if related["other"] == 0 {
		t.Errorf("expected co-occurrence with 'other' to migrate to 'new', got %v", related)
	}
}

func TestRemoveEntry_DropsFromTopicsAndCoOccurrence(t *testing.T) {
	idx := NewTopicIndex()
	idx.AddEntry(Entry{ID: "v1", Metadata: map[string]string{"topics": `["a","b"]`}})
	idx.RemoveEntry("v1")

	if entries := idx.GetEntries("a"); len(entries) != 0 {
		t.Errorf("expected no entries for 'a' after removal, got %v", entries)
	}
	if related := idx.GetRelatedTopics("a"); len(related) != 0 {
		t.Errorf("expected no co-occurrence for 'a' after removal, got %v", related)
	}
}
