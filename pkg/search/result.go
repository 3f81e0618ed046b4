package search

import (
	"strings"
	"time"
)

// Provenance is the coarse origin of a retrieval result.
type Provenance string

const (
	ProvenanceVault     Provenance = "vault"
	ProvenanceWorkspace Provenance = "workspace"
	ProvenanceCaptured  Provenance = "captured"
)

// Result is one ranked retrieval hit. Score is a unit-less fused relevance
// value; higher is better. RelatedSources is display metadata from the link
// graph and never affects ranking.
type Result struct {
	ID             string     `json:"id"`
	SourceID       string     `json:"source_id"`
	StartLine      int        `json:"start_line"`
	EndLine        int        `json:"end_line"`
	Snippet        string     `json:"snippet"`
	Score          float64    `json:"score"`
	Provenance     Provenance `json:"provenance"`
	RelatedSources []string   `json:"related_sources,omitempty"`
	CapturedAt     *time.Time `json:"captured_at,omitempty"`
}

// Response carries the ranked results plus degradation state. Degraded is
// set when the vector side failed and the ranking is lexical-only; Warning
// holds the message for the caller to log or display.
type Response struct {
	Results  []Result `json:"results"`
	Degraded bool     `json:"degraded,omitempty"`
	Warning  string   `json:"warning,omitempty"`
}

// provenanceOf derives a result's provenance from its source ID prefix.
func provenanceOf(sourceID string) Provenance {
	switch {
	case strings.HasPrefix(sourceID, "vault/"):
		return ProvenanceVault
	case strings.HasPrefix(sourceID, "captured/"):
		return ProvenanceCaptured
	default:
		return ProvenanceWorkspace
	}
}
