package catalog

import (
	"encoding/json"
	"sort"
	"strings"
)

// MaxTopicsPerEntry is the default cap on automatically-extracted topics per volume.
const MaxTopicsPerEntry = 5

// stopWords excludes common English words from automatic topic extraction.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "that": {}, "this": {}, "with": {}, "from": {},
	"have": {}, "has": {}, "are": {}, "was": {}, "were": {}, "been": {}, "but": {},
	"not": {}, "you": {}, "your": {}, "they": {}, "their": {}, "what": {}, "which": {},
	"when": {}, "where": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"about": {}, "into": {}, "than": {}, "then": {}, "them": {}, "these": {}, "those": {},
	"its": {}, "it's": {}, "can": {}, "all": {}, "out": {}, "use": {}, "using": {}, "used": {},
}

// Entry is the minimal shape TopicIndex needs from a volume to extract topics.
type Entry struct {
	ID       string
	Text     string
	Metadata map[string]string
}

type topicNode struct {
	entries  map[string]struct{}
	children map[string]struct{}
}

// TopicIndex is the hierarchical topic catalog. Topic paths are slash-separated;
// a topic's descendants are every path sharing that prefix followed by "/".
type TopicIndex struct {
	nodes       map[string]*topicNode
	entryTopics map[string][]string // id -> topics assigned at AddEntry time, for removal/merge
	coOccur     map[string]map[string]int
	maxTopics   int
}

// NewTopicIndex creates an empty TopicIndex with the default per-entry topic cap.
func NewTopicIndex() *TopicIndex {
	return &TopicIndex{
		nodes:       make(map[string]*topicNode),
		entryTopics: make(map[string][]string),
		coOccur:     make(map[string]map[string]int),
		maxTopics:   MaxTopicsPerEntry,
	}
}

func (t *TopicIndex) node(topic string) *topicNode {
	n, ok := t.nodes[topic]
	if !ok {
		n = &topicNode{entries: make(map[string]struct{}), children: make(map[string]struct{})}
		t.nodes[topic] = n
	}
	return n
}

// ensurePath registers every ancestor segment of topic as a parent->child relationship.
func (t *TopicIndex) ensurePath(topic string) {
	t.node(topic)
	segments := strings.Split(topic, "/")
	for i := 1; i < len(segments); i++ {
		parent := strings.Join(segments[:i], "/")
		child := strings.Join(segments[:i+1], "/")
		t.node(parent).children[child] = struct{}{}
	}
}

// ExtractTopics derives the topic set for e using this priority order:
// (i) metadata.topics JSON array, (ii) metadata.topic comma-separated, (iii) automatic
// word-frequency extraction from text, capped at maxTopicsPerEntry.
func (t *TopicIndex) ExtractTopics(e Entry) []string {
	if raw, ok := e.Metadata["topics"]; ok && raw != "" {
		var arr []string
		if err := json.Unmarshal([]byte(raw), &arr); err == nil && len(arr) > 0 {
			return capTopics(arr, t.maxTopics)
		}
	}
	if raw, ok := e.Metadata["topic"]; ok && raw != "" {
		parts := strings.Split(raw, ",")
		topics := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				topics = append(topics, p)
			}
		}
		if len(topics) > 0 {
			return capTopics(topics, t.maxTopics)
		}
	}
	return capTopics(autoExtractTopics(e.Text, t.maxTopics), t.maxTopics)
}

func capTopics(topics []string, max int) []string {
	if len(topics) > max {
		return topics[:max]
	}
	return topics
}

// autoExtractTopics picks the top-N lowercased alphanumeric tokens longer than 2 characters
// by frequency, excluding stop words.
func autoExtractTopics(text string, max int) []string {
	freq := make(map[string]int)
	var order []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 2 {
			word := b.String()
			if _, stop := stopWords[word]; !stop {
				if _, seen := freq[word]; !seen {
					order = append(order, word)
				}
				freq[word]++
			}
		}
		b.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	if len(order) > max {
		order = order[:max]
	}
	return order
}

// AddEntry assigns e's extracted topics and updates co-occurrence counters.
func (t *TopicIndex) AddEntry(e Entry) []string {
	topics := t.ExtractTopics(e)
	for _, topic := range topics {
		t.ensurePath(topic)
		t.node(topic).entries[e.ID] = struct{}{}
	}
	t.entryTopics[e.ID] = topics
	t.bumpCoOccurrence(topics)
	return topics
}

// RemoveEntry removes id from every topic it was assigned to and decrements co-occurrence.
func (t *TopicIndex) RemoveEntry(id string) {
	topics, ok := t.entryTopics[id]
	if !ok {
		return
	}
	for _, topic := range topics {
		if n, ok := t.nodes[topic]; ok {
			delete(n.entries, id)
		}
	}
	t.dropCoOccurrence(topics)
	delete(t.entryTopics, id)
}

func (t *TopicIndex) bumpCoOccurrence(topics []string) {
	for i := 0; i < len(topics); i++ {
		for j := i + 1; j < len(topics); j++ {
			t.incr(topics[i], topics[j])
		}
	}
}

func (t *TopicIndex) dropCoOccurrence(topics []string) {
	for i := 0; i < len(topics); i++ {
		for j := i + 1; j < len(topics); j++ {
			t.decr(topics[i], topics[j])
		}
	}
}

func (t *TopicIndex) incr(a, b string) {
	if t.coOccur[a] == nil {
		t.coOccur[a] = make(map[string]int)
	}
	if t.coOccur[b] == nil {
		t.coOccur[b] = make(map[string]int)
	}
	t.coOccur[a][b]++
	t.coOccur[b][a]++
}

func (t *TopicIndex) decr(a, b string) {
	if t.coOccur[a] != nil {
		t.coOccur[a][b]--
		if t.coOccur[a][b] <= 0 {
			delete(t.coOccur[a], b)
		}
	}
	if t.coOccur[b] != nil {
		t.coOccur[b][a]--
		if t.coOccur[b][a] <= 0 {
			delete(t.coOccur[b], a)
		}
	}
}

// GetEntries returns the union of topic's direct entries and all descendants' entries.
func (t *TopicIndex) GetEntries(topic string) []string {
	set := make(map[string]struct{})
	t.collectEntries(topic, set)
	return setToSlice(set)
}

func (t *TopicIndex) collectEntries(topic string, into map[string]struct{}) {
	n, ok := t.nodes[topic]
	if !ok {
		return
	}
	for id := range n.entries {
		into[id] = struct{}{}
	}
	for child := range n.children {
		t.collectEntries(child, into)
	}
}

// GetRelatedTopics returns topics that co-occur with topic, along with their counts.
func (t *TopicIndex) GetRelatedTopics(topic string) map[string]int {
	related := t.coOccur[topic]
	if related == nil {
		return map[string]int{}
	}
	out := make(map[string]int, len(related))
	for k, v := range related {
		out[k] = v
	}
	return out
}

// MergeTopic reassigns every id directly assigned to "from" into "to", migrating
// co-occurrence counters, then leaves "from" with no direct entries. Descendant topics of
// "from" keep their own entries and stay children of "from", so GetEntries(from) still
// returns them after the merge.
func (t *TopicIndex) MergeTopic(from, to string) {
	fromNode, ok := t.nodes[from]
	if !ok {
		return
	}
	t.ensurePath(to)
	toNode := t.node(to)

	for id := range fromNode.entries {
		toNode.entries[id] = struct{}{}
		for i, topic := range t.entryTopics[id] {
			if topic == from {
				t.entryTopics[id][i] = to
			}
		}
	}

	if related, ok := t.coOccur[from]; ok {
		for other, count := range related {
			if other == to {
				continue
			}
			t.incrBy(to, other, count)
		}
		delete(t.coOccur, from)
		for other := range t.coOccur {
			delete(t.coOccur[other], from)
		}
	}

	fromNode.entries = make(map[string]struct{})
}

func (t *TopicIndex) incrBy(a, b string, n int) {
	if n <= 0 {
		return
	}
	if t.coOccur[a] == nil {
		t.coOccur[a] = make(map[string]int)
	}
	if t.coOccur[b] == nil {
		t.coOccur[b] = make(map[string]int)
	}
	t.coOccur[a][b] += n
	t.coOccur[b][a] += n
}

// Topics returns every topic path currently known to the index (direct or via path registration).
func (t *TopicIndex) Topics() []string {
	out := make([]string, 0, len(t.nodes))
	for topic := range t.nodes {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// Clear empties the topic index.
func (t *TopicIndex) Clear() {
	t.nodes = make(map[string]*topicNode)
	t.entryTopics = make(map[string][]string)
	t.coOccur = make(map[string]map[string]int)
}
