package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// snapshot is the serialized adjacency map.
type snapshot struct {
	Nodes map[string]*Node `json:"nodes"`
}

// Save writes the graph as a JSON blob to path, creating parent directories
// as needed. The write goes through a temp file and rename so a crash never
// leaves a truncated blob behind.
func (g *Graph) Save(path string) error {
	g.mu.RLock()
	data, err := json.MarshalIndent(snapshot{Nodes: g.nodes}, "", "  ")
	g.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling graph: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating graph dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing graph: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing graph: %w", err)
	}
	return nil
}

// Load reads a graph blob from path. A missing or corrupt blob is not an
// error: the graph is a cache of derivable facts and starts empty instead.
func Load(path string, logger *zap.Logger) *Graph {
	g := New(logger)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("graph blob unreadable, starting empty",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return g
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn("graph blob corrupt, starting empty",
			zap.String("path", path),
			zap.Error(err),
		)
		return g
	}

	if snap.Nodes != nil {
		for key, node := range snap.Nodes {
			if node == nil {
				delete(snap.Nodes, key)
			}
		}
		g.nodes = snap.Nodes
	}

	logger.Debug("graph loaded",
		zap.String("path", path),
		zap.Int("nodes", len(g.nodes)),
	)
	return g
}
