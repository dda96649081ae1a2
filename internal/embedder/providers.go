package embedder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/dshills/lostfound/pkg/types"
)

// Provider names
const (
	ProviderJina  = "jina"
	ProviderLocal = "local"

	DefaultJinaURL       = "https://api.jina.ai/v1/embeddings"
	DefaultJinaTextModel = "jina-embeddings-v3"
	DefaultJinaClipModel = "jina-clip-v2"
)

// JinaEncoder implements Encoder using the Jina AI embeddings API. The text
// model and the CLIP model are both requested at the dimensions the store
// expects.
type JinaEncoder struct {
	apiKey     string
	url        string
	textModel  string
	clipModel  string
	httpClient *http.Client
	retry      RetryConfig
}

// JinaOptions configures a JinaEncoder. Empty fields take defaults.
type JinaOptions struct {
	APIKey    string
	URL       string
	TextModel string
	ClipModel string
	Timeout   time.Duration
}

// NewJinaEncoder creates a new Jina AI encoder
func NewJinaEncoder(opts JinaOptions) (*JinaEncoder, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: JINA_API_KEY not set", ErrNoProviderEnabled)
	}
	if opts.URL == "" {
		opts.URL = DefaultJinaURL
	}
	if opts.TextModel == "" {
		opts.TextModel = DefaultJinaTextModel
	}
	if opts.ClipModel == "" {
		opts.ClipModel = DefaultJinaClipModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &JinaEncoder{
		apiKey:    opts.APIKey,
		url:       opts.URL,
		textModel: opts.TextModel,
		clipModel: opts.ClipModel,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		retry: DefaultRetryConfig(),
	}, nil
}

func (j *JinaEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return j.call(ctx, map[string]interface{}{
		"model":      j.textModel,
		"task":       "text-matching",
		"dimensions": types.TextDimension,
		"input":      []string{text},
	})
}

func (j *JinaEncoder) EncodeCrossModalText(ctx context.Context, text string) ([]float32, error) {
	return j.call(ctx, map[string]interface{}{
		"model":      j.clipModel,
		"dimensions": types.CrossModalDimension,
		"input":      []map[string]string{{"text": text}},
	})
}

func (j *JinaEncoder) EncodeImage(ctx context.Context, img []byte) ([]float32, error) {
	return j.call(ctx, map[string]interface{}{
		"model":      j.clipModel,
		"dimensions": types.CrossModalDimension,
		"input":      []map[string]string{{"image": base64.StdEncoding.EncodeToString(img)}},
	})
}

func (j *JinaEncoder) Name() string {
	return ProviderJina
}

func (j *JinaEncoder) Close() error {
	j.httpClient.CloseIdleConnections()
	return nil
}

func (j *JinaEncoder) call(ctx context.Context, reqBody map[string]interface{}) ([]float32, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	vec, err := retryWithBackoff(ctx, j.retry, func() ([]float32, error) {
		return j.post(ctx, body)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	return vec, nil
}

func (j *JinaEncoder) post(ctx context.Context, body []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.url, bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+j.apiKey)

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, permanent(apiErr)
		}
		return nil, apiErr
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) == 0 {
		return nil, permanent(fmt.Errorf("no embeddings returned"))
	}
	return apiResp.Data[0].Embedding, nil
}

// LocalEncoder is an offline encoder for development and tests. Text is
// embedded by signed feature hashing of words and character trigrams, so
// texts sharing vocabulary score high. Images are downscaled to a 16x16
// RGB thumbnail, which yields exactly CrossModalDimension values.
type LocalEncoder struct{}

// NewLocalEncoder creates a new local encoder
func NewLocalEncoder() *LocalEncoder {
	return &LocalEncoder{}
}

const thumbSide = 16

func (l *LocalEncoder) EncodeText(_ context.Context, text string) ([]float32, error) {
	return hashFeatures("text", text, types.TextDimension), nil
}

func (l *LocalEncoder) EncodeCrossModalText(_ context.Context, text string) ([]float32, error) {
	return hashFeatures("clip", text, types.CrossModalDimension), nil
}

func (l *LocalEncoder) EncodeImage(_ context.Context, data []byte) ([]float32, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", ErrInvalidInput, err)
	}

	thumb := image.NewRGBA(image.Rect(0, 0, thumbSide, thumbSide))
	draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), src, src.Bounds(), draw.Src, nil)

	vec := make([]float32, 0, thumbSide*thumbSide*3)
	for y := 0; y < thumbSide; y++ {
		for x := 0; x < thumbSide; x++ {
			c := thumb.RGBAAt(x, y)
			vec = append(vec,
				float32(c.R)/255-0.5,
				float32(c.G)/255-0.5,
				float32(c.B)/255-0.5)
		}
	}
	return NormalizeVector(vec), nil
}

func (l *LocalEncoder) Name() string {
	return ProviderLocal
}

func (l *LocalEncoder) Close() error {
	return nil
}

// hashFeatures projects words and their character trigrams into dim
// buckets. seed separates the two text spaces.
func hashFeatures(seed, text string, dim int) []float32 {
	vec := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	add := func(feature string, weight float32) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(seed))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()
		idx := int(sum % uint64(dim))
		if sum>>63 == 1 {
			weight = -weight
		}
		vec[idx] += weight
	}

	for _, w := range words {
		add(w, 1)
		padded := []rune("#" + w + "#")
		for i := 0; i+3 <= len(padded); i++ {
			add(string(padded[i:i+3]), 0.5)
		}
	}
	return NormalizeVector(vec)
}

// NormalizeVector scales v to unit length. A zero vector is returned as is.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
