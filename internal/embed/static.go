package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// StaticDimensions is the embedding dimension for the static embedder.
const StaticDimensions = 256

// Weights for vector generation.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// tokenRegex matches alphanumeric word runs.
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// StaticEmbedder generates embeddings with a hash-based bag-of-words scheme.
// Works without external dependencies: no network, no model download.
// Deterministic and fast, with reduced semantic quality; intended for
// offline operation and tests.
type StaticEmbedder struct {
	dims int
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a static embedder. Non-positive dims fall back
// to StaticDimensions.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = StaticDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// EmbedPassages generates embeddings for corpus passages.
// The static scheme is marker-free: passages and queries share one path.
func (e *StaticEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		out[i] = e.vectorize(t)
	}
	return out, nil
}

// EmbedQuery generates an embedding for a single query.
func (e *StaticEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return e.vectorize(text), nil
}

// vectorize builds a unit-normalized hash vector from word tokens and
// character trigrams.
func (e *StaticEmbedder) vectorize(text string) []float32 {
	v := make([]float32, e.dims)
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" {
		return v
	}

	for _, token := range tokenRegex.FindAllString(trimmed, -1) {
		v[hashToIndex(token, e.dims)] += tokenWeight
	}

	// Character trigrams catch morphology word hashing misses.
	compact := strings.Join(strings.Fields(trimmed), " ")
	runes := []rune(compact)
	for i := 0; i+ngramSize <= len(runes); i++ {
		v[hashToIndex(string(runes[i:i+ngramSize]), e.dims)] += ngramWeight
	}

	normalizeInPlace(v)
	return v
}

// hashToIndex maps a token to a vector index via FNV-1a.
func hashToIndex(token string, dims int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(dims))
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int { return e.dims }

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string { return "static-hash-v1" }

// Close is a no-op; the static embedder holds no resources.
func (e *StaticEmbedder) Close() error { return nil }
