package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL        = "https://transbraille.herokuapp.com"
	DefaultPrefix        = "transbraille-image"
	DefaultPresignExpiry = 7 * 24 * time.Hour
)

// Config holds everything the client needs to reach remote storage and the
// translation service.
type Config struct {
	APIURL    string        `yaml:"api_url"`
	Store     StoreConfig   `yaml:"store"`
	Capture   CaptureConfig `yaml:"capture"`
	HistoryDB string        `yaml:"history_db"`
	LogLevel  string        `yaml:"log_level"`
}

// StoreConfig selects and configures the remote asset store backend.
type StoreConfig struct {
	Backend       string        `yaml:"backend"` // "s3", "gcs" or "fs"
	Bucket        string        `yaml:"bucket"`
	Prefix        string        `yaml:"prefix"`
	PublicURL     string        `yaml:"public_url"`
	PresignExpiry time.Duration `yaml:"presign_expiry"`
	FSRoot        string        `yaml:"fs_root"`
	Credentials   string        `yaml:"credentials"` // GCS service account file
}

// CaptureConfig controls where normalized captures are written.
type CaptureConfig struct {
	WorkDir    string `yaml:"work_dir"`
	LibraryDir string `yaml:"library_dir"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		APIURL: DefaultAPIURL,
		Store: StoreConfig{
			Backend:       "fs",
			Prefix:        DefaultPrefix,
			PresignExpiry: DefaultPresignExpiry,
			FSRoot:        filepath.Join(os.TempDir(), "transbraille-store"),
		},
		Capture: CaptureConfig{
			WorkDir: filepath.Join(os.TempDir(), "transbraille-captures"),
		},
		HistoryDB: "transbraille.db",
		LogLevel:  "info",
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and then the environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TRANSBRAILLE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.APIURL, "TRANSBRAILLE_API_URL")
	setString(&c.Store.Backend, "TRANSBRAILLE_STORE")
	setString(&c.Store.Bucket, "TRANSBRAILLE_BUCKET")
	setString(&c.Store.Prefix, "TRANSBRAILLE_PREFIX")
	setString(&c.Store.PublicURL, "TRANSBRAILLE_PUBLIC_URL")
	setString(&c.Store.FSRoot, "TRANSBRAILLE_FS_ROOT")
	setString(&c.Store.Credentials, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&c.Capture.WorkDir, "TRANSBRAILLE_WORK_DIR")
	setString(&c.Capture.LibraryDir, "TRANSBRAILLE_LIBRARY_DIR")
	setString(&c.HistoryDB, "TRANSBRAILLE_HISTORY_DB")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("TRANSBRAILLE_PRESIGN_EXPIRY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TRANSBRAILLE_PRESIGN_EXPIRY %q: %w", v, err)
		}
		c.Store.PresignExpiry = d
	}
	return nil
}

// Validate checks the store settings are complete for the chosen backend.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	switch c.Store.Backend {
	case "s3", "gcs":
		if c.Store.Bucket == "" {
			return fmt.Errorf("bucket is required for the %s store", c.Store.Backend)
		}
	case "fs":
		if c.Store.FSRoot == "" {
			return fmt.Errorf("fs_root is required for the fs store")
		}
	default:
		return fmt.Errorf("unsupported store backend: %s", c.Store.Backend)
	}
	if c.Store.Prefix == "" {
		c.Store.Prefix = DefaultPrefix
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
