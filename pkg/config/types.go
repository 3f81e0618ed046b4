package config

import "path/filepath"

// Config is the persistent quill configuration, stored as config.toml in the
// state directory. The layout uses sections for logical grouping; every key
// is also reachable through QUILL_-prefixed environment variables.
type Config struct {
	Vault       VaultConfig       `mapstructure:"vault" toml:"vault"`
	State       StateConfig       `mapstructure:"state" toml:"state"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store" toml:"vector_store"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding" toml:"embedding"`
	Search      SearchConfig      `mapstructure:"search" toml:"search"`
	Capture     CaptureConfig     `mapstructure:"capture" toml:"capture"`
	MCP         MCPConfig         `mapstructure:"mcp" toml:"mcp"`
}

// VaultConfig locates the note tree. Root is the only required setting.
type VaultConfig struct {
	Root string `mapstructure:"root" toml:"root,omitempty"`

	// Workspace optionally names a second indexed tree whose sources carry
	// workspace provenance instead of vault provenance.
	Workspace string `mapstructure:"workspace" toml:"workspace,omitempty"`
}

// StateConfig locates the engine's rebuildable local state.
type StateConfig struct {
	Dir string `mapstructure:"dir" toml:"dir,omitempty"`
}

// VectorStoreConfig holds external vector store settings.
type VectorStoreConfig struct {
	URL        string `mapstructure:"url" toml:"url,omitempty"`
	Collection string `mapstructure:"collection" toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	URL        string `mapstructure:"url" toml:"url,omitempty"`
	Model      string `mapstructure:"model" toml:"model,omitempty"`
	Dimensions uint   `mapstructure:"dimensions" toml:"dimensions,omitempty"`
}

// SearchConfig holds fusion weights and query defaults.
type SearchConfig struct {
	VectorWeight    float64 `mapstructure:"vector_weight" toml:"vector_weight,omitempty"`
	LexicalWeight   float64 `mapstructure:"lexical_weight" toml:"lexical_weight,omitempty"`
	RecencyWeight   float64 `mapstructure:"recency_weight" toml:"recency_weight,omitempty"`
	HalfLifeDays    float64 `mapstructure:"half_life_days" toml:"half_life_days,omitempty"`
	MaxResults      int     `mapstructure:"max_results" toml:"max_results,omitempty"`
	MinScore        float64 `mapstructure:"min_score" toml:"min_score,omitempty"`
	RecallTimeoutMS int     `mapstructure:"recall_timeout_ms" toml:"recall_timeout_ms,omitempty"`
}

// CaptureConfig holds the capture policy knobs.
type CaptureConfig struct {
	WindowSeconds      int     `mapstructure:"window_seconds" toml:"window_seconds,omitempty"`
	MaxPerWindow       int     `mapstructure:"max_per_window" toml:"max_per_window,omitempty"`
	DuplicateThreshold float64 `mapstructure:"duplicate_threshold" toml:"duplicate_threshold,omitempty"`
}

// MCPConfig holds the MCP server settings.
type MCPConfig struct {
	Listen string `mapstructure:"listen" toml:"listen,omitempty"`
}

// LexicalPath is the lexical index database file under the state dir.
func (c *Config) LexicalPath() string {
	return filepath.Join(c.State.Dir, "lexical.db")
}

// GraphPath is the link graph snapshot file under the state dir.
func (c *Config) GraphPath() string {
	return filepath.Join(c.State.Dir, "graph.json")
}
