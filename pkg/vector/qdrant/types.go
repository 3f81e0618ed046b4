package qdrant

import "encoding/json"

// envelope is Qdrant's standard response wrapper.
type envelope struct {
	Status any             `json:"status"`
	Result json.RawMessage `json:"result"`
}

type createCollectionRequest struct {
	Vectors vectorParams `json:"vectors"`
}

type vectorParams struct {
	Size     uint   `json:"size"`
	Distance string `json:"distance"`
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type upsertRequest struct {
	Points []point `json:"points"`
}

type fieldMatch struct {
	Key   string `json:"key"`
	Match struct {
		Value any `json:"value"`
	} `json:"match"`
}

func matchField(key string, value any) fieldMatch {
	var f fieldMatch
	f.Key = key
	f.Match.Value = value
	return f
}

type filter struct {
	Must    []fieldMatch `json:"must,omitempty"`
	MustNot []fieldMatch `json:"must_not,omitempty"`
}

type deleteByFilterRequest struct {
	Filter filter `json:"filter"`
}

type deleteByIDsRequest struct {
	Points []string `json:"points"`
}

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	ScoreThreshold float32   `json:"score_threshold,omitempty"`
	WithPayload    bool      `json:"with_payload"`
	Filter         *filter   `json:"filter,omitempty"`
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type scrollRequest struct {
	Filter      *filter `json:"filter,omitempty"`
	Limit       int     `json:"limit"`
	Offset      string  `json:"offset,omitempty"`
	WithPayload bool    `json:"with_payload"`
}

type scrollResult struct {
	Points         []scoredPoint   `json:"points"`
	NextPageOffset json.RawMessage `json:"next_page_offset"`
}
