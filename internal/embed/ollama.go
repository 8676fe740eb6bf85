package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/askdocs/ragd/internal/ragerr"
)

// Ollama API constants.
const (
	// DefaultOllamaHost is the default Ollama API endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is the default embedding model. E5-family models
	// expect the passage/query framing this package applies.
	DefaultOllamaModel = "zylonai/multilingual-e5-base"

	// ollamaPoolSize for the HTTP connection pool.
	ollamaPoolSize = 4
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	// Host is the Ollama API endpoint (default: http://localhost:11434).
	Host string

	// Model is the embedding model to use.
	Model string

	// Dimensions is the expected embedding dimension. Vectors of any other
	// size are rejected as an embedding error.
	Dimensions int

	// BatchSize for batch embedding requests (default: 32).
	BatchSize int

	// Timeout for API requests (default: 60s).
	Timeout time.Duration
}

// OllamaEmbedder generates embeddings through Ollama's HTTP API.
// Failures are not retried here; retry policy belongs to the caller.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama-backed embedder.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
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
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        ollamaPoolSize,
		MaxIdleConnsPerHost: ollamaPoolSize,
		IdleConnTimeout:     10 * time.Second,
	}

	return &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
	}
}

// ollamaEmbedRequest is the /api/embed request body.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the /api/embed response body.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedPassages generates embeddings for corpus passages in batches.
func (e *OllamaEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	framed := framePassages(texts)

	out := make([][]float32, 0, len(framed))
	for start := 0; start < len(framed); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(framed) {
			end = len(framed)
		}
		vectors, err := e.embed(ctx, framed[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedQuery generates an embedding for a single query.
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{frameQuery(text)})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embed performs one /api/embed call and validates the result shape.
func (e *OllamaEmbedder) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ragerr.Embedding("embedder is closed", nil)
	}
	e.mu.RUnlock()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.config.Model, Input: inputs})
	if err != nil {
		return nil, ragerr.Embedding("encode embed request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, ragerr.Embedding("create embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, ragerr.Embedding("ollama unreachable at "+e.config.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, ragerr.Embedding(
			fmt.Sprintf("ollama returned status %d: %s", resp.StatusCode, string(msg)), nil)
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, ragerr.Embedding("decode embed response", err)
	}

	if len(result.Embeddings) != len(inputs) {
		return nil, ragerr.Embedding(
			fmt.Sprintf("embedding count mismatch: sent %d texts, got %d vectors",
				len(inputs), len(result.Embeddings)), nil)
	}
	for _, v := range result.Embeddings {
		if len(v) != e.config.Dimensions {
			return nil, ragerr.Embedding(
				fmt.Sprintf("unexpected embedding dimensionality: want %d, got %d",
					e.config.Dimensions, len(v)), nil)
		}
		normalizeInPlace(v)
	}
	return result.Embeddings, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OllamaEmbedder) Dimensions() int { return e.config.Dimensions }

// ModelName returns the model identifier.
func (e *OllamaEmbedder) ModelName() string { return e.config.Model }

// Close releases the HTTP connection pool.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
