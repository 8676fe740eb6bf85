package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/ragd/internal/ragerr"
)

type embeddingDatum struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// fakeEmbeddings is a minimal OpenAI-compatible embeddings endpoint.
// indexFor lets tests forge the per-datum index the server reports.
type fakeEmbeddings struct {
	dims     int
	indexFor func(i int) int
}

func (f *fakeEmbeddings) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := make([]embeddingDatum, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, f.dims)
			vec[i%f.dims] = 1
			idx := i
			if f.indexFor != nil {
				idx = f.indexFor(i)
			}
			data[i] = embeddingDatum{Object: "embedding", Index: idx, Embedding: vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
		})
	}
}

func newTestOpenAIEmbedder(t *testing.T, fake *fakeEmbeddings) *OpenAIEmbedder {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	e, err := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1",
		Dimensions: 8,
	})
	require.NoError(t, err)
	return e
}

func TestNewOpenAIEmbedder_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})

	require.Error(t, err)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeConfigInvalid))
}

func TestOpenAIEmbedder_PlacesVectorsByResponseIndex(t *testing.T) {
	// given a server that returns data out of order but with correct indices
	fake := &fakeEmbeddings{dims: 8, indexFor: func(i int) int { return i }}
	e := newTestOpenAIEmbedder(t, fake)

	vecs, err := e.EmbedPassages(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		require.Len(t, v, 8)
		assert.InDelta(t, 1.0, float64(v[i]), 1e-6, "vector %d placed wrong", i)
	}
}

func TestOpenAIEmbedder_OutOfRangeIndexFailsTyped(t *testing.T) {
	// a misbehaving compatible server reports an index past the batch
	fake := &fakeEmbeddings{dims: 8, indexFor: func(i int) int { return i + 7 }}
	e := newTestOpenAIEmbedder(t, fake)

	_, err := e.EmbedPassages(context.Background(), []string{"a", "b"})

	require.Error(t, err)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeEmbeddingFailed))
}

func TestOpenAIEmbedder_DuplicateIndexFailsTyped(t *testing.T) {
	fake := &fakeEmbeddings{dims: 8, indexFor: func(i int) int { return 0 }}
	e := newTestOpenAIEmbedder(t, fake)

	_, err := e.EmbedPassages(context.Background(), []string{"a", "b"})

	require.Error(t, err)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeEmbeddingFailed))
}

func TestOpenAIEmbedder_NegativeIndexFailsTyped(t *testing.T) {
	fake := &fakeEmbeddings{dims: 8, indexFor: func(i int) int { return -1 }}
	e := newTestOpenAIEmbedder(t, fake)

	_, err := e.EmbedQuery(context.Background(), "q")

	require.Error(t, err)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeEmbeddingFailed))
}
