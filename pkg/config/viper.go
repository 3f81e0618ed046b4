package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads config.toml from configDir
// (the state dir when empty), and binds environment variables with the
// QUILL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the command layer)
//  2. Environment variables (QUILL_VAULT_ROOT, QUILL_EMBEDDING_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	if configDir == "" {
		configDir = defaultStateDir()
	}
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load unmarshals the resolved viper state into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration errors that must be fatal at startup.
func (c *Config) Validate() error {
	if c.Vault.Root == "" {
		return errors.New("vault.root is required (set it in config.toml or QUILL_VAULT_ROOT)")
	}
	if c.State.Dir == "" {
		return errors.New("state.dir must not be empty")
	}
	if c.Search.VectorWeight < 0 || c.Search.LexicalWeight < 0 || c.Search.RecencyWeight < 0 {
		return errors.New("search weights must not be negative")
	}
	if c.Search.HalfLifeDays <= 0 {
		return errors.New("search.half_life_days must be positive")
	}
	return nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of
// truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("vault.root", d.Vault.Root)
	v.SetDefault("vault.workspace", d.Vault.Workspace)

	v.SetDefault("state.dir", d.State.Dir)

	v.SetDefault("vector_store.url", d.VectorStore.URL)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	v.SetDefault("embedding.url", d.Embedding.URL)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	v.SetDefault("search.vector_weight", d.Search.VectorWeight)
	v.SetDefault("search.lexical_weight", d.Search.LexicalWeight)
	v.SetDefault("search.recency_weight", d.Search.RecencyWeight)
	v.SetDefault("search.half_life_days", d.Search.HalfLifeDays)
	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.min_score", d.Search.MinScore)
	v.SetDefault("search.recall_timeout_ms", d.Search.RecallTimeoutMS)

	v.SetDefault("capture.window_seconds", d.Capture.WindowSeconds)
	v.SetDefault("capture.max_per_window", d.Capture.MaxPerWindow)
	v.SetDefault("capture.duplicate_threshold", d.Capture.DuplicateThreshold)

	v.SetDefault("mcp.listen", d.MCP.Listen)
}
