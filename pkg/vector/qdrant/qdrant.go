// Package qdrant provides a Qdrant vector database driver implementation
// using its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/chunk"
	"github.com/quillvault/quill/pkg/vector"
)

// DefaultCollectionName is the default collection for vault and capture embeddings.
const DefaultCollectionName = "quill"

// Driver implements vector.Driver against Qdrant's REST API.
type Driver struct {
	baseURL    string
	collection string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// URL is the Qdrant server URL (e.g., "http://localhost:6333").
	URL string

	// Collection is the collection name. Defaults to DefaultCollectionName.
	Collection string
}

// NewDriver creates a new Qdrant vector driver.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("qdrant URL is required")
	}

	collection := c.Collection
	if collection == "" {
		collection = DefaultCollectionName
	}

	return &Driver{
		baseURL:    strings.TrimRight(c.URL, "/"),
		collection: collection,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}, nil
}

// EnsureCollection creates the collection if it does not already exist.
func (d *Driver) EnsureCollection(ctx context.Context, vectorSize uint) error {
	status, _, err := d.do(ctx, http.MethodGet, "/collections/"+d.collection, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}

	body := createCollectionRequest{
		Vectors: vectorParams{Size: vectorSize, Distance: "Cosine"},
	}
	status, raw, err := d.do(ctx, http.MethodPut, "/collections/"+d.collection, body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: creating collection: status %d: %s", vector.ErrConnection, status, raw)
	}

	d.logger.Info("qdrant collection ready",
		zap.String("collection", d.collection),
		zap.Uint("vector_size", vectorSize),
	)
	return nil
}

// DeleteBySource removes every passage point stored for sourceID.
func (d *Driver) DeleteBySource(ctx context.Context, sourceID string) error {
	body := deleteByFilterRequest{
		Filter: filter{Must: []fieldMatch{matchField("source_id", sourceID)}},
	}
	status, raw, err := d.do(ctx, http.MethodPost,
		"/collections/"+d.collection+"/points/delete?wait=true", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: delete by source: status %d: %s", vector.ErrConnection, status, raw)
	}
	return nil
}

// Upsert stores passages with their embeddings.
func (d *Driver) Upsert(ctx context.Context, passages []chunk.Passage, vectors [][]float32) error {
	if len(passages) == 0 {
		return nil
	}
	if len(passages) != len(vectors) {
		return fmt.Errorf("passage/vector count mismatch: %d vs %d", len(passages), len(vectors))
	}

	points := make([]point, len(passages))
	for i, p := range passages {
		points[i] = point{
			ID:     pointID(p.ID),
			Vector: vectors[i],
			Payload: map[string]any{
				"doc_id":       p.ID,
				"source_id":    p.SourceID,
				"start_line":   p.StartLine,
				"end_line":     p.EndLine,
				"text":         p.Text,
				"content_hash": p.ContentHash,
			},
		}
	}

	status, raw, err := d.do(ctx, http.MethodPut,
		"/collections/"+d.collection+"/points?wait=true", upsertRequest{Points: points})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: upsert: status %d: %s", vector.ErrConnection, status, raw)
	}

	d.logger.Debug("upserted points", zap.Int("count", len(points)))
	return nil
}

// BatchReplace replaces every passage for sourceID with the given set. Qdrant
// has no multi-operation transaction over REST, so this is a waited
// delete-by-filter followed by a waited upsert, which keeps the window where
// old and new passages coexist as small as the store allows.
func (d *Driver) BatchReplace(ctx context.Context, sourceID string, passages []chunk.Passage, vectors [][]float32) error {
	if err := d.DeleteBySource(ctx, sourceID); err != nil {
		return err
	}
	return d.Upsert(ctx, passages, vectors)
}

// Search returns up to limit hits at or above minScore, vault passages and
// captures alike.
func (d *Driver) Search(ctx context.Context, embedding []float32, limit int, minScore float32) ([]vector.Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	body := searchRequest{
		Vector:         embedding,
		Limit:          limit,
		ScoreThreshold: minScore,
		WithPayload:    true,
	}
	return d.search(ctx, body)
}

// UpsertCaptured stores a captured memory. The synthetic source ID carries
// the "captured/" prefix that downstream provenance derivation keys on.
func (d *Driver) UpsertCaptured(ctx context.Context, rec vector.CaptureRecord, embedding []float32) error {
	p := point{
		ID:     pointID(rec.ID),
		Vector: embedding,
		Payload: map[string]any{
			"doc_id":      rec.ID,
			"source_id":   "captured/" + rec.ID,
			"text":        rec.Text,
			"captured":    true,
			"category":    rec.Category,
			"captured_at": rec.CapturedAt.UTC().Format(time.RFC3339),
		},
	}
	if rec.ConversationKey != "" {
		p.Payload["conversation_key"] = rec.ConversationKey
	}

	status, raw, err := d.do(ctx, http.MethodPut,
		"/collections/"+d.collection+"/points?wait=true", upsertRequest{Points: []point{p}})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: upsert captured: status %d: %s", vector.ErrConnection, status, raw)
	}
	return nil
}

// ListCaptured pages through stored captures via the scroll API.
func (d *Driver) ListCaptured(ctx context.Context, category string, limit int, cursor string) (vector.CapturedPage, error) {
	if limit <= 0 {
		limit = 50
	}

	f := &filter{Must: []fieldMatch{matchField("captured", true)}}
	if category != "" {
		f.Must = append(f.Must, matchField("category", category))
	}

	body := scrollRequest{
		Filter:      f,
		Limit:       limit,
		Offset:      cursor,
		WithPayload: true,
	}

	status, raw, err := d.do(ctx, http.MethodPost,
		"/collections/"+d.collection+"/points/scroll", body)
	if err != nil {
		return vector.CapturedPage{}, err
	}
	if status != http.StatusOK {
		return vector.CapturedPage{}, fmt.Errorf("%w: scroll captured: status %d: %s", vector.ErrConnection, status, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return vector.CapturedPage{}, fmt.Errorf("decoding scroll response: %w", err)
	}
	var res scrollResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return vector.CapturedPage{}, fmt.Errorf("decoding scroll result: %w", err)
	}

	page := vector.CapturedPage{NextCursor: rawCursor(res.NextPageOffset)}
	for _, pt := range res.Points {
		hit := hitFromPayload(pt)
		rec := vector.CaptureRecord{
			ID:       hit.ID,
			Text:     hit.Text,
			Category: hit.Category,
		}
		if hit.CapturedAt != nil {
			rec.CapturedAt = *hit.CapturedAt
		}
		if key, ok := pt.Payload["conversation_key"].(string); ok {
			rec.ConversationKey = key
		}
		page.Items = append(page.Items, rec)
	}
	return page, nil
}

// DeleteCaptured removes one captured memory by its record ID. Qdrant's
// delete succeeds on unknown points, so the point is fetched first; a missing
// point reports vector.ErrNotFound.
func (d *Driver) DeleteCaptured(ctx context.Context, id string) error {
	pid := pointID(id)

	status, raw, err := d.do(ctx, http.MethodGet,
		"/collections/"+d.collection+"/points/"+pid, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: captured memory %s", vector.ErrNotFound, id)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: fetching captured: status %d: %s", vector.ErrConnection, status, raw)
	}

	body := deleteByIDsRequest{Points: []string{pid}}
	status, raw, err = d.do(ctx, http.MethodPost,
		"/collections/"+d.collection+"/points/delete?wait=true", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: delete captured: status %d: %s", vector.ErrConnection, status, raw)
	}
	return nil
}

// FindNearestCaptured probes for the closest existing capture at or above
// minScore.
func (d *Driver) FindNearestCaptured(ctx context.Context, embedding []float32, minScore float32) (vector.Nearest, error) {
	body := searchRequest{
		Vector:         embedding,
		Limit:          1,
		ScoreThreshold: minScore,
		WithPayload:    true,
		Filter:         &filter{Must: []fieldMatch{matchField("captured", true)}},
	}
	hits, err := d.search(ctx, body)
	if err != nil {
		return vector.Nearest{}, err
	}
	if len(hits) == 0 {
		return vector.Nearest{}, nil
	}
	return vector.Nearest{
		Exists: true,
		Score:  hits[0].Score,
		Text:   hits[0].Text,
	}, nil
}

// HealthCheck reports whether Qdrant is reachable.
func (d *Driver) HealthCheck(ctx context.Context) error {
	status, raw, err := d.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: health: status %d: %s", vector.ErrConnection, status, raw)
	}
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	d.httpClient.CloseIdleConnections()
	return nil
}

func (d *Driver) search(ctx context.Context, body searchRequest) ([]vector.Hit, error) {
	status, raw, err := d.do(ctx, http.MethodPost,
		"/collections/"+d.collection+"/points/search", body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: search: status %d: %s", vector.ErrConnection, status, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	var points []scoredPoint
	if err := json.Unmarshal(env.Result, &points); err != nil {
		return nil, fmt.Errorf("decoding search result: %w", err)
	}

	hits := make([]vector.Hit, 0, len(points))
	for _, pt := range points {
		hits = append(hits, hitFromPayload(pt))
	}

	d.logger.Debug("qdrant search", zap.Int("hits", len(hits)))
	return hits, nil
}

// do issues one request and returns the status code and raw body. Transport
// failures are wrapped in vector.ErrConnection so callers can classify them.
func (d *Driver) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: reading response: %v", vector.ErrConnection, err)
	}
	return resp.StatusCode, raw, nil
}

// pointID derives the Qdrant point ID for an engine-level document ID.
// Qdrant only accepts UUIDs or unsigned integers as point IDs, so the human
// ID moves into the payload and the point gets a deterministic name-based
// UUID: the same passage always maps to the same point.
func pointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("quill://"+docID)).String()
}

func hitFromPayload(pt scoredPoint) vector.Hit {
	hit := vector.Hit{Score: pt.Score}

	if pt.Payload == nil {
		hit.ID = fmt.Sprint(pt.ID)
		return hit
	}

	if s, ok := pt.Payload["doc_id"].(string); ok {
		hit.ID = s
	} else {
		hit.ID = fmt.Sprint(pt.ID)
	}
	if s, ok := pt.Payload["source_id"].(string); ok {
		hit.SourceID = s
	}
	if n, ok := pt.Payload["start_line"].(float64); ok {
		hit.StartLine = int(n)
	}
	if n, ok := pt.Payload["end_line"].(float64); ok {
		hit.EndLine = int(n)
	}
	if s, ok := pt.Payload["text"].(string); ok {
		hit.Text = s
	}
	if b, ok := pt.Payload["captured"].(bool); ok {
		hit.Captured = b
	}
	if s, ok := pt.Payload["category"].(string); ok {
		hit.Category = s
	}
	if s, ok := pt.Payload["captured_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			hit.CapturedAt = &t
		}
	}
	return hit
}

// rawCursor renders next_page_offset (string UUID, number, or null) as an
// opaque cursor string.
func rawCursor(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
