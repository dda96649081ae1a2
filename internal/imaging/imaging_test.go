package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func createTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		maxBytes int64
		wantErr  error
	}{
		{name: "jpeg", data: createTestJPEG(t, 100, 100)},
		{name: "png", data: createTestPNG(t, 100, 60)},
		{name: "empty", data: nil, wantErr: ErrEmpty},
		{name: "text", data: []byte("definitely not an image"), wantErr: ErrUnsupported},
		{name: "too large", data: createTestPNG(t, 100, 100), maxBytes: 10, wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Process(tt.data, tt.maxBytes)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "image/jpeg", result.MIME)
			assert.NotEmpty(t, result.Data)
		})
	}
}

func TestProcessDownscale(t *testing.T) {
	result, err := Process(createTestJPEG(t, 2048, 1024), 0)
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, result.Width)
	assert.Equal(t, MaxDimension/2, result.Height)

	img, _, err := image.Decode(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, img.Bounds().Dx())
}

func TestProcessSmallImageNotUpscaled(t *testing.T) {
	result, err := Process(createTestPNG(t, 50, 30), 0)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Width)
	assert.Equal(t, 30, result.Height)
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	url, err := store.Save([]byte("jpeg bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, URLPrefix))

	data, err := os.ReadFile(store.Path(url))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	require.NoError(t, store.Remove(url))
	_, err = os.Stat(store.Path(url))
	assert.True(t, os.IsNotExist(err))

	// Removing twice or removing a foreign URL is not an error
	assert.NoError(t, store.Remove(url))
	assert.NoError(t, store.Remove("https://example.com/photo.jpg"))
}
