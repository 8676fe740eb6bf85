package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder(StaticDimensions)
	ctx := context.Background()

	a, err := e.EmbedQuery(ctx, "what time does city hall open")
	require.NoError(t, err)
	b, err := e.EmbedQuery(ctx, "what time does city hall open")
	require.NoError(t, err)

	// Same text embeds to the same point: cosine to itself is 1.
	assert.InDelta(t, 1.0, cosine(a, b), 1e-6)
}

func TestStaticEmbedder_UnitNorm(t *testing.T) {
	e := NewStaticEmbedder(128)

	v, err := e.EmbedQuery(context.Background(), "payments are accepted until 5pm")
	require.NoError(t, err)
	require.Len(t, v, 128)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestStaticEmbedder_SimilarTextScoresHigher(t *testing.T) {
	e := NewStaticEmbedder(StaticDimensions)
	ctx := context.Background()

	passages, err := e.EmbedPassages(ctx, []string{
		"The city hall opens at 8am and closes at 5pm.",
		"Penguins are flightless birds native to the southern hemisphere.",
	})
	require.NoError(t, err)
	require.Len(t, passages, 2)

	q, err := e.EmbedQuery(ctx, "when does the city hall open")
	require.NoError(t, err)

	assert.Greater(t, cosine(q, passages[0]), cosine(q, passages[1]))
}

func TestStaticEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(64)

	v, err := e.EmbedQuery(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestStaticEmbedder_CancelledContext(t *testing.T) {
	e := NewStaticEmbedder(64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EmbedPassages(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFraming(t *testing.T) {
	framed := framePassages([]string{"alpha", "beta"})
	assert.Equal(t, []string{"passage: alpha", "passage: beta"}, framed)
	assert.Equal(t, "query: alpha", frameQuery("alpha"))
}
