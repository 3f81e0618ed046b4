// Package app assembles the engine from configuration: local indices,
// external collaborators, pipeline, retrieval engine, and capture service.
// Commands share this wiring instead of repeating it.
package app

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/capture"
	"github.com/quillvault/quill/pkg/config"
	"github.com/quillvault/quill/pkg/embeddings"
	"github.com/quillvault/quill/pkg/embeddings/ollama"
	"github.com/quillvault/quill/pkg/graph"
	"github.com/quillvault/quill/pkg/index"
	"github.com/quillvault/quill/pkg/lexical"
	"github.com/quillvault/quill/pkg/search"
	"github.com/quillvault/quill/pkg/vector"
	"github.com/quillvault/quill/pkg/vector/qdrant"
)

// App holds the assembled engine components.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Lexical  *lexical.Index
	Graph    *graph.Graph
	Vectors  vector.Driver
	Embedder embeddings.Embedder

	Pipeline *index.Pipeline
	Engine   *search.Engine
	Capture  *capture.Service
}

// New assembles an App from configuration. The state dir is created if
// missing; the lexical index and graph start empty when their files are
// absent or corrupt.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.State.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}

	lex, err := lexical.Open(cfg.LexicalPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("opening lexical index: %w", err)
	}

	g := graph.Load(cfg.GraphPath(), logger)

	vectors, err := qdrant.NewDriver(qdrant.Config{
		URL:        cfg.VectorStore.URL,
		Collection: cfg.VectorStore.Collection,
	}, logger)
	if err != nil {
		_ = lex.Close()
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}

	embedder, err := ollama.NewEmbedder(ollama.Config{
		BaseURL:    cfg.Embedding.URL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	}, logger)
	if err != nil {
		_ = lex.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	pipeline, err := index.NewPipeline(index.Config{
		Lexical:  lex,
		Graph:    g,
		Vectors:  vectors,
		Embedder: embedder,
		Logger:   logger,
	})
	if err != nil {
		_ = lex.Close()
		return nil, err
	}

	engine, err := search.NewEngine(search.Config{
		Lexical:       lex,
		Graph:         g,
		Vectors:       vectors,
		Embedder:      embedder,
		VectorWeight:  cfg.Search.VectorWeight,
		LexicalWeight: cfg.Search.LexicalWeight,
		RecencyWeight: cfg.Search.RecencyWeight,
		HalfLifeDays:  cfg.Search.HalfLifeDays,
		RecallTimeout: time.Duration(cfg.Search.RecallTimeoutMS) * time.Millisecond,
		Logger:        logger,
	})
	if err != nil {
		_ = lex.Close()
		return nil, err
	}

	svc := capture.NewService(capture.Config{
		Vectors:            vectors,
		Embedder:           embedder,
		Window:             time.Duration(cfg.Capture.WindowSeconds) * time.Second,
		MaxPerWindow:       cfg.Capture.MaxPerWindow,
		DuplicateThreshold: float32(cfg.Capture.DuplicateThreshold),
		Logger:             logger,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		Lexical:  lex,
		Graph:    g,
		Vectors:  vectors,
		Embedder: embedder,
		Pipeline: pipeline,
		Engine:   engine,
		Capture:  svc,
	}, nil
}

// SaveGraph persists the link graph snapshot to the state dir.
func (a *App) SaveGraph() error {
	return a.Graph.Save(a.Config.GraphPath())
}

// Close saves the graph and releases every held resource. Errors are logged
// rather than returned so shutdown always completes.
func (a *App) Close() {
	if err := a.SaveGraph(); err != nil {
		a.Logger.Warn("saving graph failed", zap.Error(err))
	}
	if err := a.Lexical.Close(); err != nil {
		a.Logger.Warn("closing lexical index failed", zap.Error(err))
	}
	if err := a.Embedder.Close(); err != nil {
		a.Logger.Warn("closing embedder failed", zap.Error(err))
	}
	if err := a.Vectors.Close(); err != nil {
		a.Logger.Warn("closing vector driver failed", zap.Error(err))
	}
}
