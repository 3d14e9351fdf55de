package config

import "fmt"

// Valid PostgreSQL SSL modes.
var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// Validate checks configuration ranges and reports the first violation.
// AI endpoints are intentionally NOT required here: ingestion must work in
// degraded mode without them, and search surfaces its own error when the
// embedding service is missing.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d outside range 1-65535", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	if c.WordsPerChunk < 10 || c.WordsPerChunk > 2000 {
		return fmt.Errorf("%w: words_per_chunk %d outside range 10-2000", ErrInvalidChunkSize, c.WordsPerChunk)
	}
	if c.OverlapWords < 0 || c.OverlapWords >= c.WordsPerChunk {
		return fmt.Errorf("%w: overlap_words %d must be >= 0 and < words_per_chunk", ErrInvalidChunkOverlap, c.OverlapWords)
	}

	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("%w: top_k %d outside range 1-100", ErrInvalidTopK, c.TopK)
	}

	return nil
}
