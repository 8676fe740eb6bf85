package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/askdocs/ragd/internal/ragerr"
)

// DefaultOpenAIModel is the default OpenAI embedding model.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	// APIKey authenticates against the OpenAI API.
	APIKey string

	// BaseURL is optional, for OpenAI-compatible endpoints.
	BaseURL string

	// Model is the embedding model (default: text-embedding-3-small).
	Model string

	// Dimensions is the expected embedding dimension. For text-embedding-3
	// models the API truncates to this size when requested.
	Dimensions int

	// BatchSize for batch embedding requests (default: 32).
	BatchSize int
}

// OpenAIEmbedder generates embeddings through the OpenAI API.
// OpenAI embedding models need no passage/query markers, so both entry
// points share the same framing-free path.
type OpenAIEmbedder struct {
	client *openai.Client
	config OpenAIConfig
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an OpenAI-backed embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, ragerr.New(ragerr.CodeConfigInvalid, "openai embedder requires an API key", nil)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
	}, nil
}

// EmbedPassages generates embeddings for corpus passages in batches.
func (e *OpenAIEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedQuery generates an embedding for a single query.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(e.config.Model),
		Input:      inputs,
		Dimensions: e.config.Dimensions,
	})
	if err != nil {
		return nil, ragerr.Embedding("openai embeddings request failed", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, ragerr.Embedding(
			fmt.Sprintf("embedding count mismatch: sent %d texts, got %d vectors",
				len(inputs), len(resp.Data)), nil)
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		// Index is server-supplied; an OpenAI-compatible backend sending a
		// bad or repeated index must fail typed, not panic.
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, ragerr.Embedding(
				fmt.Sprintf("invalid embedding index %d in response of %d",
					d.Index, len(out)), nil)
		}
		if len(d.Embedding) != e.config.Dimensions {
			return nil, ragerr.Embedding(
				fmt.Sprintf("unexpected embedding dimensionality: want %d, got %d",
					e.config.Dimensions, len(d.Embedding)), nil)
		}
		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		normalizeInPlace(v)
		out[d.Index] = v
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.config.Dimensions }

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string { return "openai/" + e.config.Model }

// Close is a no-op; the OpenAI client holds no pooled resources of its own.
func (e *OpenAIEmbedder) Close() error { return nil }
