package catalog

// MetadataIndex supports O(1) retrieval of candidate ids for simple equality filters,
// via a key→{ids} map and a (key,value)→{ids} map that update together on insert/remove.
type MetadataIndex struct {
	byKey      map[string]map[string]struct{}
	byKeyValue map[string]map[string]struct{}
}

// NewMetadataIndex creates an empty MetadataIndex.
func NewMetadataIndex() *MetadataIndex {
	return &MetadataIndex{
		byKey:      make(map[string]map[string]struct{}),
		byKeyValue: make(map[string]map[string]struct{}),
	}
}

func kv(key, value string) string {
	return key + "\x00" + value
}

// Add indexes id under every key/value pair in metadata.
func (idx *MetadataIndex) Add(id string, metadata map[string]string) {
	for k, v := range metadata {
		if idx.byKey[k] == nil {
			idx.byKey[k] = make(map[string]struct{})
		}
		idx.byKey[k][id] = struct{}{}

		compound := kv(k, v)
		if idx.byKeyValue[compound] == nil {
			idx.byKeyValue[compound] = make(map[string]struct{})
		}
		idx.byKeyValue[compound][id] = struct{}{}
	}
}

// Remove de-indexes id from every key/value pair in metadata.
func (idx *MetadataIndex) Remove(id string, metadata map[string]string) {
	for k, v := range metadata {
		if set, ok := idx.byKey[k]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(idx.byKey, k)
			}
		}
		compound := kv(k, v)
		if set, ok := idx.byKeyValue[compound]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(idx.byKeyValue, compound)
			}
		}
	}
}

// IDsWithKey returns the ids that have any value for key.
func (idx *MetadataIndex) IDsWithKey(key string) []string {
	return setToSlice(idx.byKey[key])
}

// IDsWithKeyValue returns the ids whose key equals value exactly.
func (idx *MetadataIndex) IDsWithKeyValue(key, value string) []string {
	return setToSlice(idx.byKeyValue[kv(key, value)])
}

func setToSlice(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Clear empties the index.
func (idx *MetadataIndex) Clear() {
	idx.byKey = make(map[string]map[string]struct{})
	idx.byKeyValue = make(map[string]map[string]struct{})
}
