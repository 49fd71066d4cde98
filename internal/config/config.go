// Package config provides configuration loading and structs for the Osusume server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Index     IndexConfig     `yaml:"index"`
	Recommend RecommendConfig `yaml:"recommend"`
	Keyword   KeywordConfig   `yaml:"keyword"`
	AI        AIConfig        `yaml:"ai"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CatalogConfig holds catalog source settings. Path may point to a CSV or XLSX
// file; the loader picks the format from the extension.
type CatalogConfig struct {
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
	// Watch enables automatic reload when the catalog file changes.
	Watch bool `yaml:"watch"`
}

// IndexConfig holds TF-IDF vectorizer settings.
type IndexConfig struct {
	// MaxFeatures caps the vocabulary size; 0 means unlimited. When the
	// observed vocabulary is larger, the terms with the highest document
	// frequency are kept (ties broken lexicographically).
	MaxFeatures int `yaml:"max_features"`
	// Bigrams appends adjacent-token pairs to the unigram stream.
	Bigrams bool `yaml:"bigrams"`
	// Stopwords enables the built-in English stop-word list. Defaults to true.
	Stopwords *bool `yaml:"stopwords"`
}

// StopwordsOrDefault returns whether stop-word filtering is enabled; defaults to true.
func (c *IndexConfig) StopwordsOrDefault() bool {
	if c.Stopwords != nil {
		return *c.Stopwords
	}
	return true
}

// RecommendConfig holds recommendation limits.
type RecommendConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// KeywordConfig holds keyword (Bleve) index settings. An empty path keeps the
// index in memory, which is the default since it is rebuilt on every reload.
type KeywordConfig struct {
	IndexPath string `yaml:"index_path"`
}

// AIConfig holds AI augmentation settings. Provider is one of "openai",
// "anthropic", "ollama", "custom", or "script" (test provider).
type AIConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Provider        string  `yaml:"provider"`
	Model           string  `yaml:"model"`
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	MaxRetries      int     `yaml:"max_retries"`
	CachePath       string  `yaml:"cache_path"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	// Profile generates an AI user profile from preferences/context and folds
	// it into the query document before ranking.
	Profile bool `yaml:"profile"`
	// Explain attaches an AI-generated explanation to responses.
	Explain bool          `yaml:"explain"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for provider calls.
type BreakerConfig struct {
	FailureThreshold    uint32 `yaml:"failure_threshold"`
	ResetTimeoutSeconds int    `yaml:"reset_timeout_seconds"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Catalog.Path = expandPath(cfg.Catalog.Path, configDir)
	if cfg.Keyword.IndexPath != "" {
		cfg.Keyword.IndexPath = expandPath(cfg.Keyword.IndexPath, configDir)
	}
	if cfg.AI.CachePath != "" {
		cfg.AI.CachePath = expandPath(cfg.AI.CachePath, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
