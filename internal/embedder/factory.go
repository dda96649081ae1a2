package embedder

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/lostfound/internal/config"
)

// NewEncoder builds the backend named by cfg.Provider
func NewEncoder(cfg config.EmbeddingsConfig) (Encoder, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		return NewJinaEncoder(JinaOptions{
			APIKey:    cfg.APIKey,
			URL:       cfg.BaseURL,
			TextModel: cfg.TextModel,
			ClipModel: cfg.ClipModel,
			Timeout:   cfg.Timeout,
		})
	case ProviderLocal, "":
		return NewLocalEncoder(), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// New creates an unloaded Model for cfg. Call Load before encoding.
func New(cfg config.EmbeddingsConfig, logger zerolog.Logger) (*Model, error) {
	encoder, err := NewEncoder(cfg)
	if err != nil {
		return nil, err
	}

	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}
	return NewModel(encoder, cache, logger), nil
}
