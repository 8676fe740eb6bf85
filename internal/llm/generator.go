// Package llm turns a question plus retrieved passages into a grounded
// natural-language answer.
package llm

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/askdocs/ragd/internal/chunk"
)

// Defaults for the chat model.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
	DefaultTimeout     = 60 * time.Second
)

// systemPrompt constrains the model to the retrieved context. The passages
// arrive in retrieval-rank order; the model must not invent facts beyond
// them.
const systemPrompt = `You are a helpful assistant that answers questions using only the provided context.

Rules:
- Answer using only information found in the context passages below.
- If the context does not contain the answer, say you do not know; do not guess.
- Answer in the same language the question is asked in.
- Be concise and cite facts from the passages rather than speculating.`

// Generator produces an answer to a question from ordered context passages.
// Passages are supplied highest-relevance first.
type Generator interface {
	Generate(ctx context.Context, question string, passages []chunk.Chunk) (string, error)
	ModelName() string
	Close() error
}

// buildUserPrompt assembles the user turn: numbered passages with their
// source, then the question.
func buildUserPrompt(question string, passages []chunk.Chunk) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, p := range passages {
		b.WriteString("[")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] (")
		b.WriteString(p.Source)
		b.WriteString(")\n")
		b.WriteString(strings.TrimSpace(p.Text))
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
