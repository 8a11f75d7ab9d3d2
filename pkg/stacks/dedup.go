package stacks

import "github.com/shmor3/library/pkg/volume"

// DuplicateGroup is one cluster found by FindDuplicates: Representative is the oldest
// volume in the cluster, Duplicates are every other member.
type DuplicateGroup struct {
	Representative *volume.Volume
	Duplicates     []*volume.Volume
}

// FindDuplicates greedily clusters volumes whose pairwise cosine similarity is >= threshold.
// Clustering is O(N^2): each unclustered volume seeds a new group, absorbing every later
// unclustered volume within threshold of it. The oldest volume (earliest Timestamp, ties
// broken by insertion order) becomes the representative.
func (s *Stacks) FindDuplicates(threshold float64) []DuplicateGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	clustered := make([]bool, n)
	var groups []DuplicateGroup

	for i := 0; i < n; i++ {
		if clustered[i] {
			continue
		}
		seedID := s.order[i]
		seed := s.volumes[seedID]

		var members []*volume.Volume
		clustered[i] = true
		for j := i + 1; j < n; j++ {
			if clustered[j] {
				continue
			}
			candID := s.order[j]
			cand := s.volumes[candID]
			if s.magnitudes.Cosine(seed.Embedding, candID, cand.Embedding) >= threshold {
				members = append(members, cand)
				clustered[j] = true
			}
		}
		if len(members) == 0 {
			continue
		}

		all := append([]*volume.Volume{seed}, members...)
		rep := oldest(all)
		var dupes []*volume.Volume
		for _, v := range all {
			if v.ID != rep.ID {
				dupes = append(dupes, v.Clone())
			}
		}
		groups = append(groups, DuplicateGroup{Representative: rep.Clone(), Duplicates: dupes})
	}
	return groups
}

func oldest(vs []*volume.Volume) *volume.Volume {
	rep := vs[0]
	for _, v := range vs[1:] {
		if v.Timestamp < rep.Timestamp {
			rep = v
		}
	}
	return rep
}

// CheckDuplicate reports the id (and score) of the nearest existing volume to embedding
// whose cosine similarity is >= threshold, if any.
func (s *Stacks) CheckDuplicate(embedding []float32, threshold float64) (string, float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bestID := ""
	bestScore := threshold
	found := false
	for _, id := range s.order {
		v := s.volumes[id]
		score := s.magnitudes.Cosine(embedding, id, v.Embedding)
		if score >= threshold && (!found || score > bestScore) {
			bestID = id
			bestScore = score
			found = true
		}
	}
	return bestID, bestScore, found
}
