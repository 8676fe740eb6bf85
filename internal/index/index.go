// Package index holds embedded chunks in memory and answers
// nearest-neighbor queries over them.
//
// An Index is immutable once constructed: Build creates a fresh one, Add
// produces a new index reflecting the union and never touches the receiver.
// That is what lets the manager hand out snapshots to concurrent readers
// without locking.
package index

import (
	"math"
	"time"

	"github.com/coder/hnsw"

	"github.com/askdocs/ragd/internal/chunk"
	"github.com/askdocs/ragd/internal/ragerr"
)

// MetricCosine is the only distance metric the index supports. Vectors are
// unit-normalized on entry, so cosine similarity reduces to a dot product.
const MetricCosine = "cosine"

// bruteForceCutoff is the entry count below which search scans every vector
// exactly instead of consulting the HNSW graph. Exact scan at small sizes is
// both faster and exactly ordered.
const bruteForceCutoff = 2048

// HNSW tuning. EfSearch is kept generous because results are re-scored
// exactly afterwards; the graph only proposes candidates.
const (
	hnswM        = 16
	hnswEfSearch = 64
)

// Entry pairs a chunk with its embedding. Owned by the index after insertion.
type Entry struct {
	Chunk  chunk.Chunk
	Vector []float32
}

// Index is an ordered collection of embedded chunks plus the metadata needed
// to reconstruct a retriever.
type Index struct {
	dims      int
	createdAt time.Time
	entries   []Entry
	graph     *hnsw.Graph[int]
}

// Build constructs a fresh index from scratch. Dimensionality is taken from
// the first entry; every other vector must match. Vectors are copied and
// unit-normalized, so callers may reuse their slices.
func Build(entries []Entry) (*Index, error) {
	return construct(entries, time.Now().UTC())
}

// Restore rebuilds an index from persisted entries, keeping the original
// creation timestamp. Used by the store on load.
func Restore(createdAt time.Time, entries []Entry) (*Index, error) {
	return construct(entries, createdAt)
}

func construct(entries []Entry, createdAt time.Time) (*Index, error) {
	if len(entries) == 0 {
		return nil, ragerr.EmptyInput("no embedded chunks to index")
	}

	dims := len(entries[0].Vector)
	if dims == 0 {
		return nil, ragerr.DimensionMismatch(1, 0)
	}

	idx := &Index{
		dims:      dims,
		createdAt: createdAt,
		entries:   make([]Entry, len(entries)),
	}
	for i, e := range entries {
		if len(e.Vector) != dims {
			return nil, ragerr.DimensionMismatch(dims, len(e.Vector)).
				WithDetail("source", e.Chunk.Source)
		}
		v := make([]float32, dims)
		copy(v, e.Vector)
		normalizeInPlace(v)
		idx.entries[i] = Entry{Chunk: e.Chunk, Vector: v}
	}
	idx.graph = buildGraph(idx.entries)
	return idx, nil
}

// Add appends new embedded chunks, producing a new index reflecting the
// union. The receiver is left untouched; in-flight readers keep their view.
// Duplicate sources are kept as-is: deduplication is a caller concern.
func (idx *Index) Add(entries []Entry) (*Index, error) {
	if len(entries) == 0 {
		return nil, ragerr.EmptyInput("no embedded chunks to add")
	}

	union := make([]Entry, 0, len(idx.entries)+len(entries))
	union = append(union, idx.entries...)
	union = append(union, entries...)

	next, err := construct(union, idx.createdAt)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// buildGraph indexes entries into an HNSW graph keyed by entry position.
func buildGraph(entries []Entry) *hnsw.Graph[int] {
	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.CosineDistance
	g.M = hnswM
	g.EfSearch = hnswEfSearch
	for i, e := range entries {
		g.Add(hnsw.MakeNode(i, e.Vector))
	}
	return g
}

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Dimensions returns the embedding dimensionality.
func (idx *Index) Dimensions() int { return idx.dims }

// Metric returns the distance metric identifier.
func (idx *Index) Metric() string { return MetricCosine }

// CreatedAt returns when the index (or the snapshot it was restored from)
// was first built.
func (idx *Index) CreatedAt() time.Time { return idx.createdAt }

// Entries exposes the ordered entry list for persistence. Callers must not
// mutate the returned slice or its vectors.
func (idx *Index) Entries() []Entry { return idx.entries }

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
