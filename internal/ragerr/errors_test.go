package ragerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesClassification(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{"corrupt index is fatal store error", CodeCorruptIndex, CategoryStore, SeverityFatal, false},
		{"version mismatch is fatal store error", CodeVersionMismatch, CategoryStore, SeverityFatal, false},
		{"empty input is validation warning", CodeEmptyInput, CategoryValidation, SeverityWarning, false},
		{"embedding failure is retryable by caller", CodeEmbeddingFailed, CategoryEmbedding, SeverityError, true},
		{"unavailable clears after ingest", CodeIndexUnavailable, CategoryInternal, SeverityError, true},
		{"not found is plain store error", CodeIndexNotFound, CategoryStore, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestWrap_PreservesChain(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(CodeStoreIO, cause)
	require.NotNil(t, err)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "disk on fire", err.Message)
	assert.Contains(t, err.Error(), CodeStoreIO)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeStoreIO, nil))
}

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	inner := NotFound("no index at /tmp/idx", nil)
	outer := fmt.Errorf("loading snapshot: %w", inner)

	assert.True(t, IsNotFound(outer))
	assert.False(t, IsCorrupt(outer))
	assert.Equal(t, CodeIndexNotFound, CodeOf(outer))
}

func TestIsCorrupt_CoversVersionMismatch(t *testing.T) {
	assert.True(t, IsCorrupt(Corrupt("truncated records", nil)))
	assert.True(t, IsCorrupt(VersionMismatch("format v9")))
	assert.False(t, IsCorrupt(Unavailable("not ready")))
}

func TestErrorIs_MatchesByCode(t *testing.T) {
	a := Embedding("ollama unreachable", nil)
	b := Embedding("different message", nil)

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, NotFound("x", nil))
}

func TestWithDetail(t *testing.T) {
	err := DimensionMismatch(768, 384).WithDetail("source", "notes.txt")
	assert.Equal(t, "notes.txt", err.Details["source"])
	assert.Contains(t, err.Message, "768")
	assert.Contains(t, err.Message, "384")
}
