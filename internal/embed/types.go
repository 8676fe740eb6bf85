// Package embed adapts external embedding capabilities behind a single
// contract: deterministic, unit-normalized, fixed-dimensionality vectors.
//
// Corpus passages and queries receive different textual framing ("passage: "
// vs "query: ") because E5-family models are trained with those markers; the
// underlying capability is shared.
package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants.
const (
	// DefaultDimensions is the embedding dimension for multilingual-e5-base.
	DefaultDimensions = 768

	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// MaxBatchSize caps batch size to prevent memory exhaustion.
	MaxBatchSize = 256

	// DefaultTimeout is the default timeout for embedding requests.
	DefaultTimeout = 60 * time.Second
)

// Textual framing markers. The index's cosine scoring depends on passages
// and queries being embedded in the same space with these markers intact.
const (
	passagePrefix = "passage: "
	queryPrefix   = "query: "
)

// Embedder maps text to fixed-length unit-normalized vectors.
// Implementations must be deterministic: embedding the same text twice
// yields vectors whose cosine similarity is 1 within floating-point
// tolerance. Implementations must be safe for concurrent use.
type Embedder interface {
	// EmbedPassages generates embeddings for corpus passages, batched.
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources held by the embedder.
	Close() error
}

// framePassages applies the passage marker to every text.
func framePassages(texts []string) []string {
	framed := make([]string, len(texts))
	for i, t := range texts {
		framed[i] = passagePrefix + t
	}
	return framed
}

// frameQuery applies the query marker.
func frameQuery(text string) string {
	return queryPrefix + text
}

// normalizeInPlace scales v to unit length. Zero vectors are left as-is.
func normalizeInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
