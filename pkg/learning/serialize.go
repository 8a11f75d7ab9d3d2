package learning

import (
	"encoding/json"

	"github.com/shmor3/library/pkg/codec"
	"github.com/shmor3/library/pkg/stacks"
)

// wireProfile is profile's encoded wire shape: interest embeddings as base64 f32, query
// history dropped on restore ("query-embedding diversity samples are dropped").
type wireProfile struct {
	Weights           stacks.Weights `json:"weights"`
	InterestEmbedding string         `json:"interestEmbedding,omitempty"`
	QueryCount        int            `json:"queryCount"`
}

type wireImplicit struct {
	QueryCount         int   `json:"queryCount"`
	TotalRetrievals    int   `json:"totalRetrievals"`
	LastQueryTimestamp int64 `json:"lastQueryTimestamp"`
}

type wireExplicit struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
}

// wireState is the full serialized learning document embedded under the store's top-level
// "learning" key.
type wireState struct {
	Global       wireProfile             `json:"global"`
	Topics       map[string]wireProfile  `json:"topics,omitempty"`
	Implicit     map[string]wireImplicit `json:"implicit,omitempty"`
	Explicit     map[string]wireExplicit `json:"explicit,omitempty"`
	Correlations map[string]map[string]int `json:"correlations,omitempty"`
}

func encodeProfile(p *profile) (wireProfile, error) {
	wp := wireProfile{Weights: p.weights, QueryCount: p.queryCount}
	if len(p.interestEmbedding) > 0 {
		enc, err := codec.EncodeVector(p.interestEmbedding)
		if err != nil {
			return wireProfile{}, err
		}
		wp.InterestEmbedding = enc
	}
	return wp, nil
}

func decodeProfile(wp wireProfile) (*profile, error) {
	p := &profile{weights: wp.Weights, queryCount: wp.QueryCount}
	if wp.InterestEmbedding != "" {
		vec, err := codec.DecodeVector(wp.InterestEmbedding)
		if err != nil {
			return nil, err
		}
		p.interestEmbedding = vec
	}
	return p, nil
}

// SerializeState implements stacks.LearningRecorder: feedback table, global weights and
// interest embedding, explicit feedback, per-topic profiles, and correlations.
func (e *Engine) SerializeState() (json.RawMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	global, err := encodeProfile(e.global)
	if err != nil {
		return nil, err
	}

	state := wireState{
		Global:       global,
		Topics:       make(map[string]wireProfile, len(e.topics)),
		Implicit:     make(map[string]wireImplicit, len(e.implicit)),
		Explicit:     make(map[string]wireExplicit, len(e.explicit)),
		Correlations: make(map[string]map[string]int, len(e.coOccur)),
	}
	for topic, p := range e.topics {
		wp, err := encodeProfile(p)
		if err != nil {
			return nil, err
		}
		state.Topics[topic] = wp
	}
	for id, fb := range e.implicit {
		state.Implicit[id] = wireImplicit{
			QueryCount:         fb.QueryCount,
			TotalRetrievals:    fb.TotalRetrievals,
			LastQueryTimestamp: fb.LastQueryTimestamp,
		}
	}
	for id, ex := range e.explicit {
		state.Explicit[id] = wireExplicit{Positive: ex.Positive, Negative: ex.Negative}
	}
	for id, related := range e.coOccur {
		copied := make(map[string]int, len(related))
		for k, v := range related {
			copied[k] = v
		}
		state.Correlations[id] = copied
	}

	return json.Marshal(state)
}

// RestoreState implements stacks.LearningRecorder. Query-embedding diversity samples and
// query-history embeddings are not restored; they rebuild from future queries.
func (e *Engine) RestoreState(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var state wireState
	if err := json.Unmarshal(raw, &state); err != nil {
		return err
	}

	global, err := decodeProfile(state.Global)
	if err != nil {
		return err
	}

	topics := make(map[string]*profile, len(state.Topics))
	for topic, wp := range state.Topics {
		p, err := decodeProfile(wp)
		if err != nil {
			return err
		}
		topics[topic] = p
	}

	implicit := make(map[string]*implicitFeedback, len(state.Implicit))
	for id, wi := range state.Implicit {
		implicit[id] = &implicitFeedback{
			QueryCount:         wi.QueryCount,
			TotalRetrievals:    wi.TotalRetrievals,
			LastQueryTimestamp: wi.LastQueryTimestamp,
		}
	}
	explicit := make(map[string]*explicitFeedback, len(state.Explicit))
	for id, we := range state.Explicit {
		explicit[id] = &explicitFeedback{Positive: we.Positive, Negative: we.Negative}
	}
	coOccur := make(map[string]map[string]int, len(state.Correlations))
	for id, related := range state.Correlations {
		copied := make(map[string]int, len(related))
		for k, v := range related {
			copied[k] = v
		}
		coOccur[id] = copied
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.global = global
	e.topics = topics
	e.implicit = implicit
	e.explicit = explicit
	e.coOccur = coOccur
	return nil
}
