// Package index orchestrates the per-source indexing pipeline: chunk the
// text, assign deterministic identity, replace the lexical rows, update the
// link graph, then replace the source's embeddings in the vector store.
//
// The lexical index and graph own no note content; both are rebuildable by
// re-running the pipeline over the vault. Per-file failures during a tree
// walk are logged and skipped so one bad file never blocks its siblings.
package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/chunk"
	"github.com/quillvault/quill/pkg/embeddings"
	"github.com/quillvault/quill/pkg/graph"
	"github.com/quillvault/quill/pkg/lexical"
	"github.com/quillvault/quill/pkg/note"
	"github.com/quillvault/quill/pkg/vector"
)

// eligibleExtensions are the file types the tree walk indexes.
var eligibleExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Config holds the pipeline dependencies.
type Config struct {
	Lexical *lexical.Index
	Graph   *graph.Graph

	// Vectors and Embedder are optional together: without them the pipeline
	// maintains only the local indices.
	Vectors  vector.Driver
	Embedder embeddings.Embedder

	ChunkOptions chunk.Options

	Logger *zap.Logger
}

// Pipeline owns passage lifecycle for every indexed source.
type Pipeline struct {
	config Config
}

// NewPipeline creates an indexing pipeline.
func NewPipeline(c Config) (*Pipeline, error) {
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
	return &Pipeline{config: c}, nil
}

// IndexSource replaces all indexed state for sourceID with state derived
// from text, returning the passage count.
//
// Zero passages (whitespace-only text) touch nothing and return 0: a
// transient empty read must not destroy prior data, so retraction is only
// ever explicit via DeleteSource. The returned error reports a vector-store
// or embedding failure after the local indices were already updated;
// callers may treat it as non-fatal degradation.
func (p *Pipeline) IndexSource(ctx context.Context, sourceID, text string) (int, error) {
	passages := chunk.Chunk(text, p.config.ChunkOptions)
	if len(passages) == 0 {
		return 0, nil
	}
	chunk.Finalize(sourceID, passages)

	meta := note.Parse([]byte(text))

	if err := p.config.Lexical.ReplaceSource(sourceID, meta.Title, passages); err != nil {
		return 0, fmt.Errorf("replacing lexical rows for %s: %w", sourceID, err)
	}

	p.config.Graph.UpdateSource(sourceID, text)

	if p.config.Vectors == nil {
		return len(passages), nil
	}

	texts := make([]string, len(passages))
	for i, pa := range passages {
		texts[i] = pa.Text
	}

	vectors, err := p.config.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return len(passages), fmt.Errorf("embedding %s: %w", sourceID, err)
	}

	if err := p.config.Vectors.BatchReplace(ctx, sourceID, passages, vectors); err != nil {
		return len(passages), fmt.Errorf("replacing vectors for %s: %w", sourceID, err)
	}

	p.config.Logger.Debug("source indexed",
		zap.String("source_id", sourceID),
		zap.Int("passages", len(passages)),
	)
	return len(passages), nil
}

// IndexTree walks root and indexes every eligible file, prefixing source IDs
// with idPrefix. Unreadable entries and per-file indexing failures are
// logged and skipped; the walk itself never aborts because of one file.
func (p *Pipeline) IndexTree(ctx context.Context, root, idPrefix string) (int, error) {
	total := 0

	walkErr := filepath.WalkDir(root, func(fpath string, d fs.DirEntry, err error) error {
		if err != nil {
			p.config.Logger.Warn("walk entry unreadable, skipping",
				zap.String("path", fpath),
				zap.Error(err),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && fpath != root {
				return fs.SkipDir
			}
			return nil
		}
		if !eligibleExtensions[strings.ToLower(filepath.Ext(fpath))] {
			return nil
		}

		data, err := os.ReadFile(fpath)
		if err != nil {
			p.config.Logger.Warn("file unreadable, skipping",
				zap.String("path", fpath),
				zap.Error(err),
			)
			return nil
		}

		sourceID, err := p.sourceID(root, idPrefix, fpath)
		if err != nil {
			p.config.Logger.Warn("cannot derive source id, skipping",
				zap.String("path", fpath),
				zap.Error(err),
			)
			return nil
		}

		n, err := p.IndexSource(ctx, sourceID, string(data))
		if err != nil {
			p.config.Logger.Warn("file partially indexed",
				zap.String("source_id", sourceID),
				zap.Error(err),
			)
		}
		total += n
		return nil
	})
	if walkErr != nil {
		return total, fmt.Errorf("walking %s: %w", root, walkErr)
	}

	p.config.Logger.Info("tree indexed",
		zap.String("root", root),
		zap.Int("passages", total),
	)
	return total, nil
}

// DeleteSource retracts sourceID from every index. Local retraction happens
// first; a vector-store failure is returned after it.
func (p *Pipeline) DeleteSource(ctx context.Context, sourceID string) error {
	if err := p.config.Lexical.RemoveSource(sourceID); err != nil {
		return fmt.Errorf("removing lexical rows for %s: %w", sourceID, err)
	}
	p.config.Graph.RemoveSource(sourceID)

	if p.config.Vectors != nil {
		if err := p.config.Vectors.DeleteBySource(ctx, sourceID); err != nil {
			return fmt.Errorf("removing vectors for %s: %w", sourceID, err)
		}
	}
	return nil
}

// sourceID derives the engine-level source ID for a file under root.
func (p *Pipeline) sourceID(root, idPrefix, fpath string) (string, error) {
	rel, err := filepath.Rel(root, fpath)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if idPrefix == "" {
		return rel, nil
	}
	return path.Join(idPrefix, rel), nil
}
