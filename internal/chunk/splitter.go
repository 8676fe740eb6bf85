package chunk

import (
	"strings"
)

// Default splitting configuration. Changing these invalidates the semantic
// comparability of chunks already embedded under the old configuration.
const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 2000

	// DefaultOverlap is the number of runes consecutive chunks of the same
	// source share, preserving context across chunk boundaries.
	DefaultOverlap = 200
)

// separators are tried in order: structural boundaries first, then a hard
// rune split as the last resort.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter splits document text into overlapping fixed-size chunks.
// It prefers paragraph and sentence boundaries and falls back to hard
// rune-count splitting for unbroken runs of text.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a splitter with the given chunk size and overlap,
// both measured in runes. Non-positive or inconsistent values fall back
// to defaults.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split breaks document text into chunks of at most the configured size.
// Consecutive chunks of the same source share the configured overlap.
// Whitespace-only input produces no chunks; any other input produces at
// least one.
func (s *Splitter) Split(doc Document) []Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}

	atoms := s.atomize(doc.Text, separators)
	pieces := s.merge(atoms)

	chunks := make([]Chunk, 0, len(pieces))
	for _, text := range pieces {
		chunks = append(chunks, Chunk{
			Text:   text,
			Source: doc.Source,
			Seq:    len(chunks),
		})
	}
	return chunks
}

// atomize recursively splits text into fragments no longer than chunkSize,
// trying each separator in turn. Separators are kept at the end of each
// fragment so concatenating atoms reproduces the original text.
func (s *Splitter) atomize(text string, seps []string) []string {
	if runeLen(text) <= s.chunkSize {
		return []string{text}
	}

	sep := seps[0]
	if sep == "" {
		return s.hardSplit(text)
	}

	var atoms []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if runeLen(part) <= s.chunkSize {
			atoms = append(atoms, part)
		} else {
			atoms = append(atoms, s.atomize(part, seps[1:])...)
		}
	}
	return atoms
}

// hardSplit cuts text into chunkSize-rune fragments. Last resort for text
// with no usable structural boundary.
func (s *Splitter) hardSplit(text string) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// merge packs atoms into chunks of at most chunkSize runes, carrying an
// overlap-sized tail of atoms from each emitted chunk into the next.
func (s *Splitter) merge(atoms []string) []string {
	var chunks []string
	var window []string
	total := 0

	emit := func() {
		text := strings.TrimSpace(strings.Join(window, ""))
		if text != "" {
			chunks = append(chunks, text)
		}
	}

	for _, atom := range atoms {
		n := runeLen(atom)
		if total+n > s.chunkSize && total > 0 {
			emit()
			// Shrink the window to the overlap budget, and further if the
			// incoming atom still would not fit.
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, atom)
		total += n
	}
	if total > 0 {
		emit()
	}
	return chunks
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
