// Package config provides unified configuration loading for the catalog
// engine. Supports YAML files, environment variables, and programmatic
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the catalog engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	LLM           LLMConfig           `yaml:"llm"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Search        SearchConfig        `yaml:"search"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
}

// StorageConfig holds metadata store settings.
type StorageConfig struct {
	Driver string       `yaml:"driver"` // json or sqlite
	Dir    string       `yaml:"dir"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path        string `yaml:"path"`
	JournalMode string `yaml:"journal_mode"`
}

// LLMConfig holds language model client settings.
type LLMConfig struct {
	APIKey         string        `yaml:"-"` // from OPENROUTER_API_KEY only
	Model          string        `yaml:"model"`
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
}

// ExtractionConfig holds catalog content extraction settings.
type ExtractionConfig struct {
	DPI                 int `yaml:"dpi"`
	JPEGQuality         int `yaml:"jpeg_quality"`
	BatchSize           int `yaml:"batch_size"`
	MetadataSamplePages int `yaml:"metadata_sample_pages"`
	MaxAnalysisChars    int `yaml:"max_analysis_chars"`
	MaxConsolidateChars int `yaml:"max_consolidate_chars"`
}

// SearchConfig holds ranking and query settings.
type SearchConfig struct {
	TopK        int `yaml:"top_k"`
	MaxCatalogs int `yaml:"max_catalogs"`
}

// CacheConfig holds answer cache settings.
type CacheConfig struct {
	Driver string        `yaml:"driver"` // memory or redis
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment
// overrides. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	// Ignore error if .env doesn't exist
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for
// development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8087,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     10 * time.Minute, // ingestion can take a while
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
			MaxUploadBytes:   100 * 1024 * 1024,
		},
		Storage: StorageConfig{
			Driver: "json",
			Dir:    "catalog_storage",
			SQLite: SQLiteConfig{
				Path:        "catalog_storage/catalog_metadata.db",
				JournalMode: "WAL",
			},
		},
		LLM: LLMConfig{
			Model:          "google/gemini-2.5-flash",
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			RequestTimeout: 5 * time.Minute,
			MaxRetries:     3,
		},
		Extraction: ExtractionConfig{
			DPI:                 200,
			JPEGQuality:         85,
			BatchSize:           10,
			MetadataSamplePages: 8,
			MaxAnalysisChars:    20000,
			MaxConsolidateChars: 12000,
		},
		Search: SearchConfig{
			TopK:        3,
			MaxCatalogs: 300,
		},
		Cache: CacheConfig{
			Driver: "memory",
			TTL:    5 * time.Minute,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Storage.Driver != "json" && c.Storage.Driver != "sqlite" {
		return fmt.Errorf("invalid storage driver: %s", c.Storage.Driver)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Extraction.BatchSize < 1 {
		return fmt.Errorf("extraction batch_size must be at least 1")
	}

	if c.Extraction.DPI < 36 || c.Extraction.DPI > 600 {
		return fmt.Errorf("extraction dpi must be between 36 and 600")
	}

	if c.Search.TopK < 1 {
		return fmt.Errorf("search top_k must be at least 1")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	cfg.LLM.APIKey = os.Getenv("OPENROUTER_API_KEY")

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("CATALOG_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}

	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
