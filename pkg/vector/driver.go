// Package vector provides the interface to the external vector store.
//
// The store is the source of truth for embeddings: the engine holds no
// persistent copy of vectors. Vault passages and captured memories share the
// driver; captures carry a flag in their payload and are filtered at query
// time.
package vector

import (
	"context"
	"time"

	"github.com/quillvault/quill/pkg/chunk"
)

// Hit is a similarity search result with its stored payload.
type Hit struct {
	// ID is the engine-level identifier (passage or capture ID), recovered
	// from the payload rather than the store's internal point ID.
	ID string

	// Score is the similarity score (higher = more similar).
	Score float32

	SourceID  string
	StartLine int
	EndLine   int
	Text      string

	// Captured marks hits originating from the capture pipeline.
	Captured   bool
	Category   string
	CapturedAt *time.Time
}

// CaptureRecord is a durable memory created from conversational text.
// Captures are immutable once written; an update is a new write with a new ID.
type CaptureRecord struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	Category        string    `json:"category"`
	CapturedAt      time.Time `json:"captured_at"`
	ConversationKey string    `json:"conversation_key,omitempty"`
}

// CapturedPage is one page of stored captures.
type CapturedPage struct {
	Items []CaptureRecord
	// NextCursor resumes listing where this page ended; empty when exhausted.
	NextCursor string
}

// Nearest is the result of a nearest-captured-neighbor probe.
type Nearest struct {
	Exists bool
	Score  float32
	Text   string
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// EnsureCollection creates the backing collection if it does not exist.
	EnsureCollection(ctx context.Context, vectorSize uint) error

	// DeleteBySource removes every passage stored for sourceID.
	DeleteBySource(ctx context.Context, sourceID string) error

	// Upsert stores passages with their embeddings. Same ID replaces.
	Upsert(ctx context.Context, passages []chunk.Passage, vectors [][]float32) error

	// BatchReplace atomically (as far as the store allows) replaces every
	// passage for sourceID with the given set, so readers never observe old
	// and new passages together for longer than necessary.
	BatchReplace(ctx context.Context, sourceID string, passages []chunk.Passage, vectors [][]float32) error

	// Search returns up to limit hits at or above minScore.
	Search(ctx context.Context, embedding []float32, limit int, minScore float32) ([]Hit, error)

	// UpsertCaptured stores a captured memory with its embedding.
	UpsertCaptured(ctx context.Context, rec CaptureRecord, embedding []float32) error

	// ListCaptured pages through stored captures, optionally by category.
	ListCaptured(ctx context.Context, category string, limit int, cursor string) (CapturedPage, error)

	// DeleteCaptured removes one captured memory by its record ID.
	// Unknown IDs report ErrNotFound.
	DeleteCaptured(ctx context.Context, id string) error

	// FindNearestCaptured returns the closest existing capture at or above
	// minScore, used for duplicate suppression before a write.
	FindNearestCaptured(ctx context.Context, embedding []float32, minScore float32) (Nearest, error)

	// HealthCheck reports whether the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the driver.
	Close() error
}
