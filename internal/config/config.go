// Package config provides configuration loading and structs for the teachable server.
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
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// MaxTicksPerSecond limits the inference tick endpoint; 0 means unlimited.
	MaxTicksPerSecond float64 `yaml:"max_ticks_per_second"`
}

// StorageConfig holds paths for the sample database and the head catalog.
type StorageConfig struct {
	DatabasePath string   `yaml:"database_path"`
	HeadsDir     string   `yaml:"heads_dir"`
	HeadStore    string   `yaml:"head_store"`
	S3           S3Config `yaml:"s3"`
}

// S3Config holds settings for an S3-compatible head store.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// EmbeddingConfig holds ONNX feature-extractor settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	InputSize  int    `yaml:"input_size"`
	InputName  string `yaml:"input_name"`
	OutputName string `yaml:"output_name"`
	CacheSize  int    `yaml:"cache_size"`
}

// ClassifierConfig holds training and inference settings.
type ClassifierConfig struct {
	HeadType string `yaml:"head_type"`
	// SmoothingWindow is the majority-vote window; 0 disables smoothing.
	SmoothingWindow  *int    `yaml:"smoothing_window"`
	StrictDimensions *bool   `yaml:"strict_dimensions"`
	DimensionPolicy  string  `yaml:"dimension_policy"`
	LinearScale      float32 `yaml:"linear_scale"`
	// ActiveHead is the name of the head installed at startup and on hot reload.
	ActiveHead string `yaml:"active_head"`
}

// SmoothingWindowOrDefault returns the smoothing window; defaults to 5 when unset.
func (c *ClassifierConfig) SmoothingWindowOrDefault() int {
	if c.SmoothingWindow != nil {
		return *c.SmoothingWindow
	}
	return 5
}

// StrictDimensionsOrDefault returns whether scoring rejects dimension mismatches; defaults to true.
func (c *ClassifierConfig) StrictDimensionsOrDefault() bool {
	if c.StrictDimensions != nil {
		return *c.StrictDimensions
	}
	return true
}

// WatchConfig holds heads directory watch settings.
type WatchConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// EnabledOrDefault returns whether to watch the heads directory; defaults to true.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
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
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.HeadsDir = expandPath(cfg.Storage.HeadsDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// Validate checks enumerated and ranged settings.
func Validate(cfg *Config) error {
	switch cfg.Classifier.HeadType {
	case "centroid", "linear":
	default:
		return fmt.Errorf("invalid classifier.head_type %q (supported: centroid, linear)", cfg.Classifier.HeadType)
	}
	switch cfg.Classifier.DimensionPolicy {
	case "reset", "reject":
	default:
		return fmt.Errorf("invalid classifier.dimension_policy %q (supported: reset, reject)", cfg.Classifier.DimensionPolicy)
	}
	switch cfg.Storage.HeadStore {
	case "file":
	case "s3":
		if cfg.Storage.S3.Endpoint == "" || cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.endpoint and storage.s3.bucket are required for head_store s3")
		}
	default:
		return fmt.Errorf("invalid storage.head_store %q (supported: file, s3)", cfg.Storage.HeadStore)
	}
	if w := cfg.Classifier.SmoothingWindowOrDefault(); w < 0 {
		return fmt.Errorf("classifier.smoothing_window must not be negative, got %d", w)
	}
	return nil
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
