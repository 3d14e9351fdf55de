// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (RAGBASE_ prefix, runtime override)
//  2. Config file (~/.ragbase/config.yaml or --config flag)
//  3. Default values
//
// Main configuration categories:
//   - Server: HTTP listen address, timeouts
//   - Storage: PostgreSQL connection, S3 bucket (see storage.go)
//   - AI: chat and embedding endpoints, models (see ai.go)
//   - Ingest: chunking parameters
//   - Search: default result count
//
// Sensitive values (passwords, API keys) are never logged. Validation lives
// in validation.go and uses sentinel errors for errors.Is() checks.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidChunkSize indicates words-per-chunk is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the chunk overlap is out of range.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidTopK indicates the default result count is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrMissingAIEndpoint indicates no chat or embedding endpoint is configured.
	ErrMissingAIEndpoint = errors.New("missing AI endpoint")
)

// Default values applied when neither file nor environment set a key.
const (
	DefaultHTTPAddr = "127.0.0.1:8080"

	DefaultPostgresHost    = "localhost"
	DefaultPostgresPort    = 5432
	DefaultPostgresUser    = "ragbase"
	DefaultPostgresDBName  = "ragbase"
	DefaultPostgresSSLMode = "disable"

	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"

	DefaultWordsPerChunk = 200
	DefaultOverlapWords  = 30
	DefaultTopK          = 5
)

// Config holds all application configuration.
type Config struct {
	// Server
	HTTPAddr string `mapstructure:"http_addr"`
	LogJSON  bool   `mapstructure:"log_json"`
	LogLevel string `mapstructure:"log_level"`

	// PostgreSQL
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_dbname"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	// AI gateways (see ai.go for endpoint derivation)
	ChatURL         string `mapstructure:"chat_url"`
	ChatAPIKey      string `mapstructure:"chat_api_key"`
	ChatModel       string `mapstructure:"chat_model"`
	EmbeddingURL    string `mapstructure:"embedding_url"`
	EmbeddingAPIKey string `mapstructure:"embedding_api_key"`
	EmbeddingModel  string `mapstructure:"embedding_model"`

	// S3 blob storage (empty bucket disables uploads)
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3UseSSL    bool   `mapstructure:"s3_use_ssl"`

	// Chunking
	WordsPerChunk int `mapstructure:"words_per_chunk"`
	OverlapWords  int `mapstructure:"overlap_words"`

	// Search
	TopK int `mapstructure:"top_k"`
}

// Load reads configuration from file and environment.
// configFile may be empty, in which case ~/.ragbase/config.yaml is tried;
// a missing file is not an error (defaults + environment apply).
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RAGBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".ragbase"))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", DefaultHTTPAddr)
	v.SetDefault("log_json", false)
	v.SetDefault("log_level", "info")

	v.SetDefault("postgres_host", DefaultPostgresHost)
	v.SetDefault("postgres_port", DefaultPostgresPort)
	v.SetDefault("postgres_user", DefaultPostgresUser)
	v.SetDefault("postgres_dbname", DefaultPostgresDBName)
	v.SetDefault("postgres_sslmode", DefaultPostgresSSLMode)

	v.SetDefault("chat_model", DefaultChatModel)
	v.SetDefault("embedding_model", DefaultEmbeddingModel)

	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_use_ssl", true)

	v.SetDefault("words_per_chunk", DefaultWordsPerChunk)
	v.SetDefault("overlap_words", DefaultOverlapWords)
	v.SetDefault("top_k", DefaultTopK)
}

// SlogLevel converts the configured log level string to a slog.Level.
// Unknown values fall back to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
