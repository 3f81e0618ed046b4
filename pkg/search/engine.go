// Package search fuses vector and lexical retrieval into one ranked list.
//
// Each query runs a fixed linear flow: attempt vector search (non-fatal),
// over-fetch lexical candidates, normalize lexical scores, fuse by passage
// identity with weighted sums, apply recency decay to captured results,
// attach graph neighbors, then sort and truncate. A vector-side failure
// reweights the fusion to lexical-only instead of aborting the query.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/embeddings"
	"github.com/quillvault/quill/pkg/graph"
	"github.com/quillvault/quill/pkg/lexical"
	"github.com/quillvault/quill/pkg/vector"
)

const (
	DefaultMaxResults = 5
	DefaultMinScore   = 0.5

	// DefaultVectorWeight and DefaultLexicalWeight are the fusion weights
	// when vector search succeeded. A failed vector search reweights to
	// 0 / 1 so lexical-only mode still returns fully-weighted scores.
	DefaultVectorWeight  = 0.7
	DefaultLexicalWeight = 0.3

	// DefaultRecencyWeight and DefaultHalfLifeDays shape the decay blended
	// into scores of captured results.
	DefaultRecencyWeight = 0.2
	DefaultHalfLifeDays  = 30.0

	// maxRelated bounds the graph neighbors attached per result.
	maxRelated = 3
)

// Options are per-query knobs. Zero values take engine defaults.
type Options struct {
	MaxResults int
	MinScore   float64
}

// Config holds the engine dependencies and scoring weights.
type Config struct {
	Lexical *lexical.Index
	Graph   *graph.Graph

	// Vectors and Embedder are optional together; without them every query
	// runs in lexical-only mode.
	Vectors  vector.Driver
	Embedder embeddings.Embedder

	VectorWeight  float64
	LexicalWeight float64
	RecencyWeight float64
	HalfLifeDays  float64

	// RecallTimeout bounds AutoRecall; zero takes DefaultRecallTimeout.
	RecallTimeout time.Duration

	Logger *zap.Logger
}

// Engine answers retrieval queries against the lexical index, the vector
// store, and the link graph.
type Engine struct {
	config Config

	// now is swappable for decay tests.
	now func() time.Time
}

// NewEngine creates a retrieval engine.
func NewEngine(c Config) (*Engine, error) {
	if c.Lexical == nil {
		return nil, errors.New("lexical index is required")
	}
	if c.Graph == nil {
		return nil, errors.New("graph is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if (c.Vectors == nil) != (c.Embedder == nil) {
		return nil, errors.New("vector driver and embedder must be configured together")
	}
	if c.VectorWeight == 0 && c.LexicalWeight == 0 {
		c.VectorWeight = DefaultVectorWeight
		c.LexicalWeight = DefaultLexicalWeight
	}
	if c.RecencyWeight == 0 {
		c.RecencyWeight = DefaultRecencyWeight
	}
	if c.HalfLifeDays == 0 {
		c.HalfLifeDays = DefaultHalfLifeDays
	}
	if c.RecallTimeout == 0 {
		c.RecallTimeout = DefaultRecallTimeout
	}
	return &Engine{config: c, now: time.Now}, nil
}

// candidate accumulates one passage's scores across both retrieval sets.
type candidate struct {
	id         string
	sourceID   string
	startLine  int
	endLine    int
	text       string
	vecScore   float64
	lexScore   float64
	capturedAt *time.Time
}

// Search runs one hybrid query. A vector-side failure degrades the query to
// lexical-only and is reported in the response, never returned as an error;
// only a lexical index failure is fatal to the query.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.MinScore == 0 {
		opts.MinScore = DefaultMinScore
	}

	resp := &Response{}
	byID := make(map[string]*candidate)

	wv, wl := e.config.VectorWeight, e.config.LexicalWeight
	if e.config.Vectors == nil {
		wv, wl = 0, 1
	} else if err := e.vectorSearch(ctx, query, opts, byID); err != nil {
		wv, wl = 0, 1
		resp.Degraded = true
		resp.Warning = fmt.Sprintf("vector search unavailable, lexical only: %v", err)
		e.config.Logger.Warn("vector search failed, degrading to lexical only",
			zap.Error(err),
		)
	}

	if err := e.lexicalSearch(query, opts, byID); err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	now := e.now()
	results := make([]Result, 0, len(byID))
	for _, c := range byID {
		score := c.vecScore*wv + c.lexScore*wl
		if c.capturedAt != nil {
			wr := e.config.RecencyWeight
			score = score*(1-wr) + e.decay(now, *c.capturedAt)*wr
		}
		results = append(results, Result{
			ID:             c.id,
			SourceID:       c.sourceID,
			StartLine:      c.startLine,
			EndLine:        c.endLine,
			Snippet:        c.text,
			Score:          score,
			Provenance:     provenanceOf(c.sourceID),
			RelatedSources: e.related(c.sourceID),
			CapturedAt:     c.capturedAt,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	resp.Results = results
	return resp, nil
}

// vectorSearch embeds the query and merges vector hits into byID.
func (e *Engine) vectorSearch(ctx context.Context, query string, opts Options, byID map[string]*candidate) error {
	embedding, err := e.config.Embedder.Embed(ctx, query)
	if err != nil {
		return err
	}
	hits, err := e.config.Vectors.Search(ctx, embedding, opts.MaxResults, float32(opts.MinScore))
	if err != nil {
		return err
	}
	for _, h := range hits {
		byID[h.ID] = &candidate{
			id:         h.ID,
			sourceID:   h.SourceID,
			startLine:  h.StartLine,
			endLine:    h.EndLine,
			text:       h.Text,
			vecScore:   float64(h.Score),
			capturedAt: h.CapturedAt,
		}
	}
	return nil
}

// lexicalSearch over-fetches lexical candidates, normalizes their scores by
// the observed maximum, and merges them into byID.
func (e *Engine) lexicalSearch(query string, opts Options, byID map[string]*candidate) error {
	limit := opts.MaxResults * 4
	if limit < 10 {
		limit = 10
	}
	hits, err := e.config.Lexical.Search(query, limit)
	if err != nil {
		return err
	}

	maxScore := 0.0
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	if maxScore == 0 {
		maxScore = 1
	}

	for _, h := range hits {
		normalized := h.Score / maxScore
		if c, ok := byID[h.Passage.ID]; ok {
			c.lexScore = normalized
			continue
		}
		byID[h.Passage.ID] = &candidate{
			id:        h.Passage.ID,
			sourceID:  h.Passage.SourceID,
			startLine: h.Passage.StartLine,
			endLine:   h.Passage.EndLine,
			text:      h.Passage.Text,
			lexScore:  normalized,
		}
	}
	return nil
}

// decay maps a capture timestamp to (0,1], halving per configured half-life.
func (e *Engine) decay(now, capturedAt time.Time) float64 {
	ageDays := now.Sub(capturedAt).Hours() / 24
	return math.Exp(-math.Ln2 * ageDays / e.config.HalfLifeDays)
}

// related returns up to maxRelated graph neighbors, links before backlinks.
func (e *Engine) related(sourceID string) []string {
	rel := e.config.Graph.Related(sourceID)
	out := make([]string, 0, maxRelated)
	for _, id := range rel.Links {
		if len(out) == maxRelated {
			return out
		}
		out = append(out, id)
	}
	for _, id := range rel.Backlinks {
		if len(out) == maxRelated {
			return out
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
