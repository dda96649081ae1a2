package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It also expands a leading "~" in filesystem paths.
func (c *Config) Validate() error {
	if err := c.Matching.validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	if err := c.Search.validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("uploads.max_bytes must be > 0 (got %d)", c.Uploads.MaxBytes)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "local":
	case "jina":
		if c.Embeddings.APIKey == "" {
			return fmt.Errorf("embeddings.api_key is required for the jina provider")
		}
	default:
		return fmt.Errorf("embeddings.provider must be local or jina (got %q)", c.Embeddings.Provider)
	}

	path, err := expandHome(c.Database.Path)
	if err != nil {
		return fmt.Errorf("database.path: %w", err)
	}
	c.Database.Path = path

	return nil
}

func (m *MatchingConfig) validate() error {
	if m.ConfidenceThreshold <= 0 || m.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in (0,1] (got %v)", m.ConfidenceThreshold)
	}
	if m.MaxMatchesReturned <= 0 {
		return fmt.Errorf("max_matches_returned must be > 0 (got %d)", m.MaxMatchesReturned)
	}
	if m.Workers <= 0 {
		return fmt.Errorf("workers must be > 0 (got %d)", m.Workers)
	}
	if m.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be > 0 (got %d)", m.QueueSize)
	}
	return nil
}

func (s *SearchConfig) validate() error {
	if s.FuzzyWeight < 0 || s.VectorWeight < 0 {
		return fmt.Errorf("weights must be >= 0 (got %v, %v)", s.FuzzyWeight, s.VectorWeight)
	}
	if math.Abs(s.FuzzyWeight+s.VectorWeight-1) > 1e-9 {
		return fmt.Errorf("fuzzy_weight + vector_weight must equal 1 (got %v)", s.FuzzyWeight+s.VectorWeight)
	}
	if s.MinScore < 0 || s.MinScore > 1 {
		return fmt.Errorf("min_score must be in [0,1] (got %v)", s.MinScore)
	}
	if s.DefaultLimit <= 0 {
		return fmt.Errorf("default_limit must be > 0 (got %d)", s.DefaultLimit)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path == ":memory:" || !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
