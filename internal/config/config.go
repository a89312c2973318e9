// Package config provides configuration loading and structs for the Soyamu server.
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
	Store     StoreConfig     `yaml:"store"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Relations RelationsConfig `yaml:"relations"`
	RL        RLConfig        `yaml:"rl"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig holds authoritative store settings, including the connection
// retry budget applied at startup.
type StoreConfig struct {
	DatabasePath      string `yaml:"database_path"`
	RetryAttempts     int    `yaml:"retry_attempts"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
}

// SnapshotConfig holds disk snapshot settings. A snapshot of the vector
// index and metadata table is written every EveryNAdds adds.
type SnapshotConfig struct {
	Dir        string `yaml:"dir"`
	EveryNAdds int    `yaml:"every_n_adds"`
}

// EmbeddingConfig holds the embedding provider fallback ladder settings.
// Rungs are tried in order: fine-tuned ONNX model, general-purpose ONNX
// model, remote OpenAI-compatible endpoint (when a host is configured),
// then the built-in lexical provider.
type EmbeddingConfig struct {
	FineTunedModelPath     string `yaml:"finetuned_model_path"`
	BaseModelPath          string `yaml:"base_model_path"`
	RemoteHost             string `yaml:"remote_host"`
	RemoteModel            string `yaml:"remote_model"`
	Dimensions             int    `yaml:"dimensions"`
	MaxTokens              int    `yaml:"max_tokens"`
	CacheSize              int    `yaml:"cache_size"`
	DisableLexicalFallback bool   `yaml:"disable_lexical_fallback"`
}

// SearchConfig holds ranking weights and candidate retrieval settings.
type SearchConfig struct {
	DefaultLimit   int     `yaml:"default_limit"`
	MaxLimit       int     `yaml:"max_limit"`
	TopKCandidates int     `yaml:"top_k_candidates"`
	VectorWeight   float64 `yaml:"vector_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	CategoryBoost  float64 `yaml:"category_boost"`
}

// RelationsConfig holds the category-relation graph file location.
type RelationsConfig struct {
	GraphPath string `yaml:"graph_path"`
}

// RLConfig holds the ranking-weight tuner settings. The tuner learns from
// claim feedback but is not consulted by the live ranking path.
type RLConfig struct {
	QTablePath string `yaml:"qtable_path"`
	SaveEveryN int    `yaml:"save_every_n"`
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
	cfg.Store.DatabasePath = expandPath(cfg.Store.DatabasePath, configDir)
	cfg.Snapshot.Dir = expandPath(cfg.Snapshot.Dir, configDir)
	cfg.Embedding.FineTunedModelPath = expandPath(cfg.Embedding.FineTunedModelPath, configDir)
	cfg.Embedding.BaseModelPath = expandPath(cfg.Embedding.BaseModelPath, configDir)
	cfg.Relations.GraphPath = expandPath(cfg.Relations.GraphPath, configDir)
	cfg.RL.QTablePath = expandPath(cfg.RL.QTablePath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
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
