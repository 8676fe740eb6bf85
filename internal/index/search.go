package index

import (
	"fmt"
	"sort"

	"github.com/askdocs/ragd/internal/chunk"
	"github.com/askdocs/ragd/internal/ragerr"
)

// Mode selects the search strategy.
type Mode string

const (
	// ModeSimilarity returns the k entries with highest cosine similarity.
	ModeSimilarity Mode = "similarity"

	// ModeMMR applies maximal marginal relevance: relevance balanced against
	// diversity among the already-selected results. Avoids returning k
	// near-duplicate chunks from repetitive documents.
	ModeMMR Mode = "mmr"
)

// ParseMode validates a search mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSimilarity, ModeMMR:
		return Mode(s), nil
	case "":
		return ModeSimilarity, nil
	default:
		return "", ragerr.New(ragerr.CodeInvalidQuery,
			fmt.Sprintf("unknown search mode %q", s), nil)
	}
}

// Default MMR parameters.
const (
	// DefaultLambda balances relevance (1.0) against diversity (0.0).
	DefaultLambda = 0.5

	// DefaultPoolMultiplier sizes the MMR candidate pool as a multiple of k.
	DefaultPoolMultiplier = 4
)

// Options tunes a search call.
type Options struct {
	// ScoreThreshold excludes candidates below this cosine similarity even
	// if fewer than k results remain. Zero disables the filter. Searches
	// with a threshold can legitimately return zero results; callers treat
	// that as "no relevant context found", not as an error.
	ScoreThreshold float32

	// Lambda is the MMR relevance/diversity balance (0 = use default).
	Lambda float32

	// PoolMultiplier sizes the MMR candidate pool (0 = use default).
	PoolMultiplier int
}

// Result is one retrieved chunk with its relevance score.
type Result struct {
	Chunk chunk.Chunk
	Score float32
}

// candidate is an entry position paired with its query relevance.
type candidate struct {
	pos   int
	score float32
}

// Search returns at most k chunks ranked by descending relevance under the
// requested mode. k greater than the index size is clamped, never an error;
// an empty index yields an empty result.
func (idx *Index) Search(query []float32, k int, mode Mode, opts Options) ([]Result, error) {
	if k <= 0 {
		return nil, ragerr.New(ragerr.CodeInvalidQuery,
			fmt.Sprintf("k must be positive, got %d", k), nil)
	}
	if len(query) != idx.dims {
		return nil, ragerr.DimensionMismatch(idx.dims, len(query))
	}
	if len(idx.entries) == 0 {
		return []Result{}, nil
	}
	if k > len(idx.entries) {
		k = len(idx.entries)
	}

	q := make([]float32, idx.dims)
	copy(q, query)
	normalizeInPlace(q)

	switch mode {
	case ModeSimilarity, "":
		return idx.results(idx.topK(q, k, opts.ScoreThreshold)), nil
	case ModeMMR:
		return idx.results(idx.mmr(q, k, opts)), nil
	default:
		return nil, ragerr.New(ragerr.CodeInvalidQuery,
			fmt.Sprintf("unknown search mode %q", mode), nil)
	}
}

// topK returns up to k candidates by descending similarity, ties broken by
// insertion order. Below bruteForceCutoff every vector is scored; above it
// the HNSW graph proposes candidates which are re-scored exactly.
func (idx *Index) topK(q []float32, k int, threshold float32) []candidate {
	var cands []candidate
	if len(idx.entries) <= bruteForceCutoff {
		cands = make([]candidate, len(idx.entries))
		for i := range idx.entries {
			cands[i] = candidate{pos: i, score: dot(q, idx.entries[i].Vector)}
		}
	} else {
		// Overfetch with a floor so the exact re-ranking has slack against
		// ANN misses even at small k; k*2 candidates is not enough for the
		// graph to reliably surface an exact match when k is 1 or 2.
		fetch := min(max(k*4, hnswEfSearch), len(idx.entries))
		nodes := idx.graph.Search(q, fetch)
		cands = make([]candidate, 0, len(nodes))
		for _, n := range nodes {
			cands = append(cands, candidate{pos: n.Key, score: dot(q, idx.entries[n.Key].Vector)})
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].pos < cands[j].pos
	})

	if threshold > 0 {
		cut := 0
		for cut < len(cands) && cands[cut].score >= threshold {
			cut++
		}
		cands = cands[:cut]
	}
	if len(cands) > k {
		cands = cands[:k]
	}
	return cands
}

// mmr greedily selects from a similarity pool the next candidate maximizing
// λ·relevance − (1−λ)·max-similarity-to-selected.
func (idx *Index) mmr(q []float32, k int, opts Options) []candidate {
	lambda := opts.Lambda
	if lambda <= 0 {
		lambda = DefaultLambda
	}
	mult := opts.PoolMultiplier
	if mult <= 0 {
		mult = DefaultPoolMultiplier
	}

	pool := idx.topK(q, min(k*mult, len(idx.entries)), opts.ScoreThreshold)
	selected := make([]candidate, 0, k)

	for len(selected) < k && len(pool) > 0 {
		bestAt := 0
		bestScore := float32(-2)
		for i, c := range pool {
			penalty := float32(0)
			for j, s := range selected {
				sim := dot(idx.entries[c.pos].Vector, idx.entries[s.pos].Vector)
				if j == 0 || sim > penalty {
					penalty = sim
				}
			}
			score := lambda*c.score - (1-lambda)*penalty
			if score > bestScore {
				bestScore = score
				bestAt = i
			}
		}
		selected = append(selected, pool[bestAt])
		pool = append(pool[:bestAt], pool[bestAt+1:]...)
	}
	return selected
}

func (idx *Index) results(cands []candidate) []Result {
	out := make([]Result, len(cands))
	for i, c := range cands {
		out[i] = Result{Chunk: idx.entries[c.pos].Chunk, Score: c.score}
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
