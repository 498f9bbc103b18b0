// Package config provides configuration loading and structs for the SmartLens server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Photos    PhotosConfig    `yaml:"photos"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PhotosConfig holds the image folder settings.
type PhotosConfig struct {
	Dir string `yaml:"dir"`
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// EmbeddingConfig holds embedder settings. Provider is "clip" (ONNX image and
// text encoders) or "mock" (deterministic, for development and tests).
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	ImageModelPath string `yaml:"image_model_path"`
	TextModelPath  string `yaml:"text_model_path"`
	MergesPath     string `yaml:"merges_path"`
	Dimensions     int    `yaml:"dimensions"`
	ContextLength  int    `yaml:"context_length"`
	CacheSize      int    `yaml:"cache_size"`
}

// VectorConfig holds vector index settings. IndexType is "memory" (default)
// or "qdrant" (remote collection for large photo sets).
type VectorConfig struct {
	IndexType        string `yaml:"index_type"`
	QdrantAddr       string `yaml:"qdrant_addr"`
	QdrantCollection string `yaml:"qdrant_collection"`
}

// SearchConfig holds query pipeline settings.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
}

// WatchConfig holds photo folder watch settings. When Enabled, file changes in
// the photo folder trigger incremental indexing.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the config file at path, applies environment
// overrides, expands paths, and applies defaults. Returns an error if the
// file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)
	expandAll(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
// Paths are relative to the working directory.
func Default() *Config {
	cfg := &Config{}
	applyEnv(cfg)
	ApplyDefaults(cfg)
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	expandAll(cfg, cwd)
	return cfg
}

// applyEnv overrides config fields from SMARTLENS_* and QDRANT_* environment
// variables (populated from .env by the entry point when present).
func applyEnv(cfg *Config) {
	if v := os.Getenv("SMARTLENS_PHOTOS_DIR"); v != "" {
		cfg.Photos.Dir = v
	}
	if v := os.Getenv("SMARTLENS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SMARTLENS_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("QDRANT_ADDR"); v != "" {
		cfg.Vector.QdrantAddr = v
	}
	if v := os.Getenv("QDRANT_COLLECTION_NAME"); v != "" {
		cfg.Vector.QdrantCollection = v
	}
}

func expandAll(cfg *Config, baseDir string) {
	cfg.Photos.Dir = expandPath(cfg.Photos.Dir, baseDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, baseDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, baseDir)
	cfg.Embedding.ImageModelPath = expandPath(cfg.Embedding.ImageModelPath, baseDir)
	cfg.Embedding.TextModelPath = expandPath(cfg.Embedding.TextModelPath, baseDir)
	cfg.Embedding.MergesPath = expandPath(cfg.Embedding.MergesPath, baseDir)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to baseDir; other relative paths are relative to the home directory.
func expandPath(path string, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(baseDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
