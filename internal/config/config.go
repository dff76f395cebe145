// Package config loads runtime configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file or individual keys are absent.
const (
	DefaultBaseURL        = "http://localhost:5000"
	DefaultMaxUploadSize  = 10 * 1024 * 1024
	DefaultRequestTimeout = 60 * time.Second
	DefaultBatchDelay     = time.Second
	DefaultExportDir      = "."
)

// Config holds the runtime settings for the detection client.
type Config struct {
	// BaseURL is the root of the remote classification service.
	BaseURL string
	// MaxUploadSize is the admission byte-size ceiling per image.
	MaxUploadSize int64
	// RequestTimeout bounds each outbound HTTP call.
	RequestTimeout time.Duration
	// BatchDelay is the idle wait between successive batch submissions.
	BatchDelay time.Duration
	// ExportDir is where export artifacts are written.
	ExportDir string
}

type fileConfig struct {
	BaseURL        string `yaml:"base_url"`
	MaxUploadSize  int64  `yaml:"max_upload_size"`
	RequestTimeout string `yaml:"request_timeout"`
	BatchDelay     string `yaml:"batch_delay"`
	ExportDir      string `yaml:"export_dir"`
}

// Default returns a Config populated with the package defaults.
func Default() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		MaxUploadSize:  DefaultMaxUploadSize,
		RequestTimeout: DefaultRequestTimeout,
		BatchDelay:     DefaultBatchDelay,
		ExportDir:      DefaultExportDir,
	}
}

// Load reads the YAML file at path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// absent file is not an error, defaults apply
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := cfg.applyFile(fc); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.MaxUploadSize > 0 {
		c.MaxUploadSize = fc.MaxUploadSize
	}
	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	if fc.BatchDelay != "" {
		d, err := time.ParseDuration(fc.BatchDelay)
		if err != nil {
			return fmt.Errorf("invalid batch_delay: %w", err)
		}
		c.BatchDelay = d
	}
	if fc.ExportDir != "" {
		c.ExportDir = fc.ExportDir
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.BaseURL = getEnv("DETECT_BASE_URL", c.BaseURL)
	c.ExportDir = getEnv("DETECT_EXPORT_DIR", c.ExportDir)

	if raw := os.Getenv("DETECT_REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid DETECT_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	if raw := os.Getenv("DETECT_BATCH_DELAY"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid DETECT_BATCH_DELAY: %w", err)
		}
		c.BatchDelay = d
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
