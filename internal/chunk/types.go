// Package chunk splits raw document text into overlapping retrieval units.
package chunk

// Chunk is a bounded span of text extracted from a document, the unit of
// retrieval. Immutable once created.
type Chunk struct {
	// Text is the chunk content. Always ≤ the configured chunk size.
	Text string

	// Source identifies the originating document (path or name) for citation.
	Source string

	// Seq is the 0-based position of this chunk within its source.
	Seq int
}

// Document is an ephemeral raw input: a source identifier plus full text.
// Consumed by the splitter, never persisted.
type Document struct {
	Source string
	Text   string
}
