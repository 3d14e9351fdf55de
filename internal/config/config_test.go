package config

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		HTTPAddr:        DefaultHTTPAddr,
		PostgresHost:    DefaultPostgresHost,
		PostgresPort:    DefaultPostgresPort,
		PostgresUser:    DefaultPostgresUser,
		PostgresDBName:  DefaultPostgresDBName,
		PostgresSSLMode: DefaultPostgresSSLMode,
		ChatModel:       DefaultChatModel,
		EmbeddingModel:  DefaultEmbeddingModel,
		WordsPerChunk:   DefaultWordsPerChunk,
		OverlapWords:    DefaultOverlapWords,
		TopK:            DefaultTopK,
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"port too low", func(c *Config) { c.PostgresPort = 0 }, ErrInvalidPostgresPort},
		{"port too high", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty dbname", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"bad sslmode", func(c *Config) { c.PostgresSSLMode = "maybe" }, ErrInvalidPostgresSSLMode},
		{"chunk too small", func(c *Config) { c.WordsPerChunk = 5 }, ErrInvalidChunkSize},
		{"overlap >= chunk", func(c *Config) { c.OverlapWords = c.WordsPerChunk }, ErrInvalidChunkOverlap},
		{"negative overlap", func(c *Config) { c.OverlapWords = -1 }, ErrInvalidChunkOverlap},
		{"topk zero", func(c *Config) { c.TopK = 0 }, ErrInvalidTopK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("expected ErrConfigNil, got %v", err)
	}
}

func TestPostgresConnectionStringQuoting(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "p'ss w\\rd"

	dsn := cfg.PostgresConnectionString()
	want := `password='p\'ss w\\rd'`
	if !strings.Contains(dsn, want) {
		t.Errorf("expected DSN to contain %q, got %q", want, dsn)
	}
}

func TestPostgresURLEncodesCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresUser = "user@host"
	cfg.PostgresPassword = "p@ss/word"

	u := cfg.PostgresURL()
	if !strings.Contains(u, "user%40host") {
		t.Errorf("expected encoded user in URL, got %q", u)
	}
	if strings.Contains(u, "p@ss/word") {
		t.Errorf("expected password to be encoded, got %q", u)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
