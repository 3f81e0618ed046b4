package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultVectorStoreURL = "http://localhost:6333"
	DefaultCollection     = "quill"

	DefaultEmbeddingURL        = "http://localhost:11434"
	DefaultEmbeddingModel      = "nomic-embed-text"
	DefaultEmbeddingDimensions = 768

	DefaultMCPListen = ":8390"
)

// NewDefaultConfig returns a fully-populated Config with sane defaults. This
// is the single source of truth for default values; viper defaults and
// zero-value merges both derive from it. Vault.Root has no default and must
// be configured.
func NewDefaultConfig() *Config {
	return &Config{
		State: StateConfig{
			Dir: defaultStateDir(),
		},
		VectorStore: VectorStoreConfig{
			URL:        DefaultVectorStoreURL,
			Collection: DefaultCollection,
		},
		Embedding: EmbeddingConfig{
			URL:        DefaultEmbeddingURL,
			Model:      DefaultEmbeddingModel,
			Dimensions: DefaultEmbeddingDimensions,
		},
		Search: SearchConfig{
			VectorWeight:    0.7,
			LexicalWeight:   0.3,
			RecencyWeight:   0.2,
			HalfLifeDays:    30,
			MaxResults:      5,
			MinScore:        0.5,
			RecallTimeoutMS: 3000,
		},
		Capture: CaptureConfig{
			WindowSeconds:      60,
			MaxPerWindow:       5,
			DuplicateThreshold: 0.92,
		},
		MCP: MCPConfig{
			Listen: DefaultMCPListen,
		},
	}
}

// defaultStateDir resolves to ~/.quill, falling back to .quill in the
// working directory when the home dir is unknown.
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quill"
	}
	return filepath.Join(home, ".quill")
}
