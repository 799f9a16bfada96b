// Package config loads the worker configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkerConfig is the top-level configuration of one orchestration worker.
type WorkerConfig struct {
	Version int `yaml:"version"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Model struct {
		Provider       string `yaml:"provider"` // anthropic or openai
		Name           string `yaml:"name"`
		EmbeddingModel string `yaml:"embedding_model"`
		APIKeyEnv      string `yaml:"api_key_env"`
	} `yaml:"model"`

	Store struct {
		Backend  string `yaml:"backend"` // memory or redis
		RedisURL string `yaml:"redis_url"`
		TTL      string `yaml:"ttl"`
	} `yaml:"store"`

	Index struct {
		Name         string `yaml:"name"`
		Dimensions   int    `yaml:"dimensions"`
		SnapshotPath string `yaml:"snapshot_path"`
	} `yaml:"index"`

	Analysis struct {
		AnomalyThreshold     float64 `yaml:"anomaly_threshold"`
		MaxCycles            int     `yaml:"max_cycles"`
		ConvergenceThreshold float64 `yaml:"convergence_threshold"`
		SimilarityCutoff     float64 `yaml:"similarity_cutoff"`
		MaxSimilarScenes     int     `yaml:"max_similar_scenes"`
	} `yaml:"analysis"`
}

// Load reads and validates a worker configuration file.
func Load(path string) (*WorkerConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg WorkerConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported worker config version: %d", cfg.Version)
	}

	return &cfg, nil
}

// LogLevel returns the configured log level, defaulting to info.
func (c *WorkerConfig) LogLevel() string {
	if c.Logging.Level == "" {
		return "info"
	}
	return c.Logging.Level
}

// LogFormat returns the configured log format, defaulting to json.
func (c *WorkerConfig) LogFormat() string {
	if c.Logging.Format == "" {
		return "json"
	}
	return c.Logging.Format
}

// IndexName returns the configured reference index name.
func (c *WorkerConfig) IndexName() string {
	if c.Index.Name == "" {
		return "scene-reference"
	}
	return c.Index.Name
}

// APIKey resolves the model API key from the configured environment
// variable.
func (c *WorkerConfig) APIKey() string {
	if c.Model.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Model.APIKeyEnv)
}

// StoreTTL returns the configured side-store TTL, or zero for the backend
// default.
func (c *WorkerConfig) StoreTTL() (time.Duration, error) {
	if c.Store.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Store.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid store ttl %q: %w", c.Store.TTL, err)
	}
	return d, nil
}
