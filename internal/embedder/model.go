package embedder

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/lostfound/pkg/types"
)

// State is the lifecycle state of a Model
type State int32

const (
	StateUnloaded State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "unloaded"
}

const (
	kindText      = "text"
	kindClipText  = "clip-text"
	kindClipImage = "clip-image"
)

// Model guards an Encoder with an Unloaded/Ready state. Every encode on an
// unloaded model fails with ErrNotReady; callers decide whether to degrade.
type Model struct {
	encoder Encoder
	cache   *Cache
	logger  zerolog.Logger
	state   atomic.Int32
}

// NewModel wraps encoder. cache may be nil to disable caching.
func NewModel(encoder Encoder, cache *Cache, logger zerolog.Logger) *Model {
	return &Model{
		encoder: encoder,
		cache:   cache,
		logger:  logger.With().Str("component", "embedder").Str("backend", encoder.Name()).Logger(),
	}
}

// Load checks the backend with one text encode and marks the model ready.
// Calling Load on a ready model is a no-op.
func (m *Model) Load(ctx context.Context) error {
	if m.Ready() {
		return nil
	}
	vec, err := m.encoder.EncodeText(ctx, "lost and found")
	if err != nil {
		return fmt.Errorf("load %s: %w", m.encoder.Name(), err)
	}
	if len(vec) != types.TextDimension {
		return fmt.Errorf("load %s: %w: got %d, want %d",
			m.encoder.Name(), ErrDimensionMismatch, len(vec), types.TextDimension)
	}
	m.state.Store(int32(StateReady))
	m.logger.Info().Msg("embedding model ready")
	return nil
}

// Unload returns the model to the unloaded state
func (m *Model) Unload() {
	m.state.Store(int32(StateUnloaded))
}

func (m *Model) State() State {
	return State(m.state.Load())
}

func (m *Model) Ready() bool {
	return m.State() == StateReady
}

// Backend returns the encoder name
func (m *Model) Backend() string {
	return m.encoder.Name()
}

// Close unloads the model and releases the encoder
func (m *Model) Close() error {
	m.Unload()
	return m.encoder.Close()
}

// EncodeText returns the text-model vector for text
func (m *Model) EncodeText(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	return m.encode(ctx, kindText, []byte(text), types.TextDimension, func() ([]float32, error) {
		return m.encoder.EncodeText(ctx, text)
	})
}

// EncodeCrossModalText returns the cross-modal vector for text
func (m *Model) EncodeCrossModalText(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	return m.encode(ctx, kindClipText, []byte(text), types.CrossModalDimension, func() ([]float32, error) {
		return m.encoder.EncodeCrossModalText(ctx, text)
	})
}

// EncodeImage returns the cross-modal vector for an encoded image
func (m *Model) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	return m.encode(ctx, kindClipImage, image, types.CrossModalDimension, func() ([]float32, error) {
		return m.encoder.EncodeImage(ctx, image)
	})
}

func (m *Model) encode(ctx context.Context, kind string, content []byte, dim int, fn func() ([]float32, error)) ([]float32, error) {
	if !m.Ready() {
		return nil, ErrNotReady
	}

	var key string
	if m.cache != nil {
		key = cacheKey(kind, content)
		if vec, ok := m.cache.Get(key); ok {
			return vec, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec, err := fn()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	if len(vec) != dim {
		return nil, fmt.Errorf("encode %s: %w: got %d, want %d", kind, ErrDimensionMismatch, len(vec), dim)
	}

	if m.cache != nil {
		m.cache.Set(key, vec)
	}
	return vec, nil
}

// Bundle computes every vector an item needs. The three encodes run
// concurrently; image may be nil.
func (m *Model) Bundle(ctx context.Context, description string, image []byte) (*Bundle, error) {
	if !m.Ready() {
		return nil, ErrNotReady
	}

	var b Bundle
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := m.EncodeText(gctx, description)
		b.Text = vec
		return err
	})
	g.Go(func() error {
		vec, err := m.EncodeCrossModalText(gctx, description)
		b.CrossModalText = vec
		return err
	})
	if len(image) > 0 {
		g.Go(func() error {
			vec, err := m.EncodeImage(gctx, image)
			b.Image = vec
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &b, nil
}
