package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrNotReady          = errors.New("embedding model not ready")
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrEmptyImage        = errors.New("image cannot be empty")
	ErrDimensionMismatch = errors.New("unexpected embedding dimension")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Encoder is a backend that turns text and images into vectors.
//
// EncodeText returns a types.TextDimension vector from the text model.
// EncodeCrossModalText and EncodeImage return types.CrossModalDimension
// vectors that live in one shared text/image space. Implementations must
// be safe for concurrent use.
type Encoder interface {
	EncodeText(ctx context.Context, text string) ([]float32, error)
	EncodeCrossModalText(ctx context.Context, text string) ([]float32, error)
	EncodeImage(ctx context.Context, image []byte) ([]float32, error)

	// Name identifies the backend in logs and status output
	Name() string

	// Close releases any resources held by the encoder
	Close() error
}

// Bundle holds the vectors computed for one item at report time.
// Image is nil when the item was reported without an image.
type Bundle struct {
	Text           []float32
	CrossModalText []float32
	Image          []float32
}

// Cache provides in-memory LRU caching of vectors by content hash
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates a new vector cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](10000)
	}
	return &Cache{
		cache: cache,
	}
}

// Get retrieves a copy of a cached vector so callers can't mutate the entry
func (c *Cache) Get(key string) ([]float32, bool) {
	vec, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a copy of vec under key
func (c *Cache) Set(key string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.cache.Add(key, stored)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// ComputeHash computes the SHA-256 hash of data for cache keys
func ComputeHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// cacheKey namespaces a content hash by vector kind, since the same text
// is encoded by two different models.
func cacheKey(kind string, data []byte) string {
	return kind + ":" + ComputeHash(data)
}
