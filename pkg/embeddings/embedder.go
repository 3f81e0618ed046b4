// Package embeddings
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts many texts in one call. Implementations may fall
	// back to sequential single-text calls when the batch endpoint fails.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() uint

	// HealthCheck reports whether the embedding service is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the embedder.
	Close() error
}
