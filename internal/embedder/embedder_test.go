package embedder

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lostfound/internal/config"
	"github.com/dshills/lostfound/internal/similarity"
	"github.com/dshills/lostfound/pkg/types"
)

// countingEncoder wraps LocalEncoder and counts backend calls
type countingEncoder struct {
	LocalEncoder
	calls   atomic.Int32
	textDim int
	fail    error
}

func (c *countingEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	if c.textDim > 0 {
		return make([]float32, c.textDim), nil
	}
	return c.LocalEncoder.EncodeText(ctx, text)
}

func newTestModel(t *testing.T, enc Encoder) *Model {
	t.Helper()
	m := NewModel(enc, NewCache(100), zerolog.Nop())
	require.NoError(t, m.Load(context.Background()))
	return m
}

func pngBytes(t *testing.T, fill func(x, y int) color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetRGBA(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestComputeHash(t *testing.T) {
	assert.Equal(t,
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		ComputeHash([]byte("hello world")))
	assert.NotEqual(t, cacheKey(kindText, []byte("a")), cacheKey(kindClipText, []byte("a")))
}

func TestCacheCopies(t *testing.T) {
	cache := NewCache(2)
	vec := []float32{1, 2, 3}
	cache.Set("a", vec)
	vec[0] = 99

	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got)

	got[1] = 42
	again, _ := cache.Get("a")
	assert.Equal(t, float32(2), again[1])

	cache.Set("b", vec)
	cache.Set("c", vec)
	assert.Equal(t, 2, cache.Size())
	_, ok = cache.Get("a")
	assert.False(t, ok, "oldest entry evicted")

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestModelLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewModel(NewLocalEncoder(), nil, zerolog.Nop())

	assert.Equal(t, StateUnloaded, m.State())
	_, err := m.EncodeText(ctx, "wallet")
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = m.Bundle(ctx, "wallet", nil)
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, m.Load(ctx))
	assert.True(t, m.Ready())
	assert.Equal(t, "ready", m.State().String())

	vec, err := m.EncodeText(ctx, "wallet")
	require.NoError(t, err)
	assert.Len(t, vec, types.TextDimension)

	require.NoError(t, m.Close())
	assert.False(t, m.Ready())
}

func TestModelLoadFailures(t *testing.T) {
	ctx := context.Background()

	failing := NewModel(&countingEncoder{fail: errors.New("boom")}, nil, zerolog.Nop())
	assert.Error(t, failing.Load(ctx))
	assert.False(t, failing.Ready())

	wrongDim := NewModel(&countingEncoder{textDim: 10}, nil, zerolog.Nop())
	assert.ErrorIs(t, wrongDim.Load(ctx), ErrDimensionMismatch)
	assert.False(t, wrongDim.Ready())
}

func TestModelCachesVectors(t *testing.T) {
	ctx := context.Background()
	enc := &countingEncoder{}
	m := newTestModel(t, enc)
	loadCalls := enc.calls.Load()

	first, err := m.EncodeText(ctx, "blue umbrella")
	require.NoError(t, err)
	second, err := m.EncodeText(ctx, "  blue umbrella ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, loadCalls+1, enc.calls.Load(), "second call served from cache")
}

func TestModelRejectsEmptyInput(t *testing.T) {
	ctx := context.Background()
	m := newTestModel(t, NewLocalEncoder())

	_, err := m.EncodeText(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = m.EncodeCrossModalText(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = m.EncodeImage(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestBundle(t *testing.T) {
	ctx := context.Background()
	m := newTestModel(t, NewLocalEncoder())

	t.Run("text only", func(t *testing.T) {
		b, err := m.Bundle(ctx, "black leather wallet", nil)
		require.NoError(t, err)
		assert.Len(t, b.Text, types.TextDimension)
		assert.Len(t, b.CrossModalText, types.CrossModalDimension)
		assert.Nil(t, b.Image)
	})

	t.Run("with image", func(t *testing.T) {
		img := pngBytes(t, func(x, y int) color.RGBA {
			return color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 10, A: 255}
		})
		b, err := m.Bundle(ctx, "black leather wallet", img)
		require.NoError(t, err)
		assert.Len(t, b.Image, types.CrossModalDimension)
	})

	t.Run("undecodable image", func(t *testing.T) {
		_, err := m.Bundle(ctx, "wallet", []byte("not an image"))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestLocalEncoderSimilarity(t *testing.T) {
	ctx := context.Background()
	enc := NewLocalEncoder()

	wallet, _ := enc.EncodeText(ctx, "black leather wallet")
	wallet2, _ := enc.EncodeText(ctx, "Black wallet, leather")
	bottle, _ := enc.EncodeText(ctx, "steel water bottle")

	same, ok := similarity.Cosine(wallet, wallet2)
	require.True(t, ok)
	other, ok := similarity.Cosine(wallet, bottle)
	require.True(t, ok)
	assert.Greater(t, same, 0.9)
	assert.Greater(t, same, other)

	// Separate hash seeds keep the two text spaces distinct
	clip, _ := enc.EncodeCrossModalText(ctx, "black leather wallet")
	assert.Len(t, clip, types.CrossModalDimension)
}

func TestLocalEncoderImages(t *testing.T) {
	ctx := context.Background()
	enc := NewLocalEncoder()

	gradient := pngBytes(t, func(x, y int) color.RGBA {
		return color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 0, A: 255}
	})
	inverse := pngBytes(t, func(x, y int) color.RGBA {
		return color.RGBA{R: uint8(255 - x*8), G: uint8(255 - y*8), B: 255, A: 255}
	})

	a, err := enc.EncodeImage(ctx, gradient)
	require.NoError(t, err)
	b, err := enc.EncodeImage(ctx, gradient)
	require.NoError(t, err)
	c, err := enc.EncodeImage(ctx, inverse)
	require.NoError(t, err)

	self, ok := similarity.Cosine(a, b)
	require.True(t, ok)
	assert.InDelta(t, 1.0, self, 1e-6)

	opposite, ok := similarity.Cosine(a, c)
	require.True(t, ok)
	assert.Less(t, opposite, 0.0)
}

func TestNewEncoder(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbeddingsConfig
		want    string
		wantErr error
	}{
		{name: "local", cfg: config.EmbeddingsConfig{Provider: "local"}, want: ProviderLocal},
		{name: "default", cfg: config.EmbeddingsConfig{}, want: ProviderLocal},
		{name: "jina", cfg: config.EmbeddingsConfig{Provider: "JINA", APIKey: "k"}, want: ProviderJina},
		{name: "jina without key", cfg: config.EmbeddingsConfig{Provider: "jina"}, wantErr: ErrNoProviderEnabled},
		{name: "unknown", cfg: config.EmbeddingsConfig{Provider: "openai"}, wantErr: ErrUnsupportedModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncoder(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, enc.Name())
		})
	}
}

func TestNewModelFromConfig(t *testing.T) {
	m, err := New(config.EmbeddingsConfig{Provider: "local", CacheSize: 10}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, m.Backend())
	assert.NotNil(t, m.cache)
	assert.False(t, m.Ready())
}

func TestNormalizeVector(t *testing.T) {
	assert.Equal(t, []float32{0.6, 0.8}, NormalizeVector([]float32{3, 4}))
	assert.Equal(t, []float32{0, 0}, NormalizeVector([]float32{0, 0}))
}
