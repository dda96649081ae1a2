package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
database:
  path: ":memory:"

matching:
  confidence_threshold: 0.8
  max_matches_returned: 5
  workers: 2

search:
  fuzzy_weight: 0.5
  vector_weight: 0.5
  cache_ttl: "30s"

office:
  name: "Lost Property Desk"

log:
  level: "debug"
  format: "text"
`

// TestLoadDefaults verifies env-default values when no file is present
func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("LOSTFOUND_DB_PATH", ":memory:")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "local", cfg.Embeddings.Provider)
	assert.InDelta(t, 0.70, cfg.Matching.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 20, cfg.Matching.MaxMatchesReturned)
	assert.InDelta(t, 0.4, cfg.Search.FuzzyWeight, 1e-9)
	assert.InDelta(t, 0.6, cfg.Search.VectorWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Search.MinScore, 1e-9)
	assert.Equal(t, 50, cfg.Search.DefaultLimit)
	assert.Equal(t, int64(5*1024*1024), cfg.Uploads.MaxBytes)
	assert.Equal(t, "Campus Admin Office", cfg.Office.Name)
	assert.Equal(t, "admin-office@university.local", cfg.Office.Email)
	assert.Equal(t, "000-000-0000", cfg.Office.ContactNumber)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromFile(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.8, cfg.Matching.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 5, cfg.Matching.MaxMatchesReturned)
	assert.Equal(t, 2, cfg.Matching.Workers)
	assert.Equal(t, 256, cfg.Matching.QueueSize, "unset field keeps its default")
	assert.Equal(t, 30*time.Second, cfg.Search.CacheTTL)
	assert.Equal(t, "Lost Property Desk", cfg.Office.Name)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("MAX_MATCHES_RETURNED", "9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Matching.MaxMatchesReturned)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Database:   DatabaseConfig{Path: ":memory:"},
			Embeddings: EmbeddingsConfig{Provider: "local"},
			Matching:   MatchingConfig{ConfidenceThreshold: 0.7, MaxMatchesReturned: 20, Workers: 1, QueueSize: 1},
			Search:     SearchConfig{FuzzyWeight: 0.4, VectorWeight: 0.6, MinScore: 0.3, DefaultLimit: 50},
			Uploads:    UploadsConfig{MaxBytes: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "threshold zero", mutate: func(c *Config) { c.Matching.ConfidenceThreshold = 0 }, wantErr: true},
		{name: "threshold above one", mutate: func(c *Config) { c.Matching.ConfidenceThreshold = 1.2 }, wantErr: true},
		{name: "no workers", mutate: func(c *Config) { c.Matching.Workers = 0 }, wantErr: true},
		{name: "weights do not sum to one", mutate: func(c *Config) { c.Search.VectorWeight = 0.7 }, wantErr: true},
		{name: "min score out of range", mutate: func(c *Config) { c.Search.MinScore = 2 }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.Embeddings.Provider = "openai" }, wantErr: true},
		{name: "jina without key", mutate: func(c *Config) { c.Embeddings.Provider = "jina" }, wantErr: true},
		{name: "jina with key", mutate: func(c *Config) {
			c.Embeddings.Provider = "jina"
			c.Embeddings.APIKey = "key"
		}},
		{name: "zero upload size", mutate: func(c *Config) { c.Uploads.MaxBytes = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := Config{
		Database:   DatabaseConfig{Path: "~/.lostfound/test.db"},
		Embeddings: EmbeddingsConfig{Provider: "local"},
		Matching:   MatchingConfig{ConfidenceThreshold: 0.7, MaxMatchesReturned: 20, Workers: 1, QueueSize: 1},
		Search:     SearchConfig{FuzzyWeight: 0.4, VectorWeight: 0.6, MinScore: 0.3, DefaultLimit: 50},
		Uploads:    UploadsConfig{MaxBytes: 1},
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(home, ".lostfound/test.db"), cfg.Database.Path)
}
