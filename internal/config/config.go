// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads CineMatch configuration using Koanf v2 with
// layered sources: struct defaults, an optional YAML config file, and
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinematch/config.yaml",
	"/etc/cinematch/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the root configuration for all CineMatch components.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	DocStore  DocStoreConfig  `koanf:"docstore"`
	TMDB      TMDBConfig      `koanf:"tmdb"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig controls the SQLite database holding movies and ratings.
type DatabaseConfig struct {
	Path        string        `koanf:"path"`
	BusyTimeout time.Duration `koanf:"busy_timeout"`
	MaxOpenConn int           `koanf:"max_open_conn"`
}

// DocStoreConfig controls the Badger document store used for enriched
// movie metadata and the feedback log.
type DocStoreConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// TMDBConfig controls the TMDb enrichment client.
type TMDBConfig struct {
	Enabled        bool          `koanf:"enabled"`
	APIKey         string        `koanf:"api_key"`
	BaseURL        string        `koanf:"base_url"`
	Timeout        time.Duration `koanf:"timeout"`
	RatePerSecond  float64       `koanf:"rate_per_second"`
	Language       string        `koanf:"language"`
	IncludeAdult   bool          `koanf:"include_adult"`
	SkipEnriched   bool          `koanf:"skip_enriched"`
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// RecommendConfig controls the recommendation engine.
type RecommendConfig struct {
	Enabled          bool          `koanf:"enabled"`
	TrainOnStartup   bool          `koanf:"train_on_startup"`
	TrainingInterval time.Duration `koanf:"training_interval"`
	CacheTTL         time.Duration `koanf:"cache_ttl"`
	CacheSize        int           `koanf:"cache_size"`
	TopK             int           `koanf:"top_k"`
	Neighbors        int           `koanf:"neighbors"`
	MinRatings       int           `koanf:"min_ratings"`
	MaxFeatures      int           `koanf:"max_features"`
}

// LoggingConfig controls structured logging output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       100,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:        "data/movies.db",
			BusyTimeout: 5 * time.Second,
			MaxOpenConn: 1, // SQLite performs best with a single writer
		},
		DocStore: DocStoreConfig{
			Path:       "data/docstore",
			InMemory:   false,
			GCInterval: 10 * time.Minute,
		},
		TMDB: TMDBConfig{
			Enabled:        false,
			APIKey:         "",
			BaseURL:        "https://api.themoviedb.org/3",
			Timeout:        10 * time.Second,
			RatePerSecond:  4,
			Language:       "en-US",
			IncludeAdult:   false,
			SkipEnriched:   true,
			BreakerTimeout: 30 * time.Second,
		},
		Recommend: RecommendConfig{
			Enabled:          true,
			TrainOnStartup:   true,
			TrainingInterval: 6 * time.Hour,
			CacheTTL:         time.Hour,
			CacheSize:        1000,
			TopK:             10,
			Neighbors:        10,
			MinRatings:       1,
			MaxFeatures:      5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if exists)
//  3. Environment variables: override any setting
//
// Precedence is ENV > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// CINEMATCH_SERVER_PORT -> server.port
	// CINEMATCH_TMDB_API_KEY -> tmdb.api_key
	envProvider := env.Provider("CINEMATCH_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Env vars come in as strings; convert known slice fields
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as
// comma-separated slices when supplied via environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// The CINEMATCH_ prefix is stripped and the first underscore separates the
// section from the key:
//
//	CINEMATCH_SERVER_PORT        -> server.port
//	CINEMATCH_DATABASE_PATH      -> database.path
//	CINEMATCH_TMDB_API_KEY       -> tmdb.api_key
//	CINEMATCH_LOGGING_LEVEL      -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "CINEMATCH_"))

	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return key
	}
	return parts[0] + "." + parts[1]
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if !c.DocStore.InMemory && c.DocStore.Path == "" {
		return fmt.Errorf("docstore.path must not be empty unless docstore.in_memory is set")
	}
	if c.TMDB.Enabled && c.TMDB.APIKey == "" {
		return fmt.Errorf("tmdb.api_key is required when tmdb.enabled is true")
	}
	if c.TMDB.RatePerSecond <= 0 {
		return fmt.Errorf("tmdb.rate_per_second must be positive, got %g", c.TMDB.RatePerSecond)
	}
	if c.Recommend.TopK < 1 {
		return fmt.Errorf("recommend.top_k must be at least 1, got %d", c.Recommend.TopK)
	}
	if c.Recommend.Neighbors < 1 {
		return fmt.Errorf("recommend.neighbors must be at least 1, got %d", c.Recommend.Neighbors)
	}
	if c.Recommend.CacheSize < 0 {
		return fmt.Errorf("recommend.cache_size must not be negative, got %d", c.Recommend.CacheSize)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
