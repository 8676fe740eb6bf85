// Package service wires chunking, embedding, the index manager, and answer
// generation into the ingest and query operations the CLI exposes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/askdocs/ragd/internal/chunk"
	"github.com/askdocs/ragd/internal/embed"
	"github.com/askdocs/ragd/internal/index"
	"github.com/askdocs/ragd/internal/llm"
	"github.com/askdocs/ragd/internal/manager"
	"github.com/askdocs/ragd/internal/ragerr"
)

// Status classifies an ingest outcome that is not a hard failure.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
)

// Result reports an ingest outcome. Hard failures come back as errors, not
// results; a warning result means the operation completed but indexed
// nothing.
type Result struct {
	Status  Status
	Message string
	Chunks  int
}

// Answer is a generated answer with the deduplicated sources that grounded
// it, in retrieval-rank order.
type Answer struct {
	Answer  string
	Sources []string
}

// Defaults for query-side knobs.
const (
	DefaultTopK          = 5
	MaxTopK              = 20
	DefaultEmbedBatch    = 32
	DefaultEmbedParallel = 4
)

// Options tunes retrieval and ingest behavior. The zero value uses the
// defaults above with the score threshold disabled.
type Options struct {
	TopK           int
	ScoreThreshold float32
	MMRLambda      float32
	PoolMultiplier int
	EmbedBatch     int
	EmbedParallel  int
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.EmbedBatch <= 0 {
		o.EmbedBatch = DefaultEmbedBatch
	}
	if o.EmbedParallel <= 0 {
		o.EmbedParallel = DefaultEmbedParallel
	}
	return o
}

// Service is the operation layer over the retrieval engine.
type Service struct {
	splitter *chunk.Splitter
	embedder embed.Embedder
	manager  *manager.Manager
	gen      llm.Generator
	opts     Options
	logger   *slog.Logger
}

// New assembles a service. gen may be nil when only ingest operations are
// used; Query then fails with a configuration error.
func New(splitter *chunk.Splitter, embedder embed.Embedder, mgr *manager.Manager, gen llm.Generator, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		splitter: splitter,
		embedder: embedder,
		manager:  mgr,
		gen:      gen,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Ingest chunks, embeds, and indexes every document under corpusDir,
// replacing any existing index. When an index already exists and
// clearExisting is false the call is a no-op success, so repeated startups
// do not re-embed the corpus.
func (s *Service) Ingest(ctx context.Context, corpusDir string, clearExisting bool) (Result, error) {
	if s.manager.Persisted() && !clearExisting {
		s.logger.Info("index already exists, skipping ingest",
			slog.String("path", s.manager.StorePath()))
		return Result{
			Status:  StatusSuccess,
			Message: "index already exists; pass clear to force re-ingestion",
		}, nil
	}

	docs, err := loadCorpus(corpusDir)
	if err != nil {
		return Result{}, err
	}
	if len(docs) == 0 {
		return Result{Status: StatusWarning, Message: "no documents were loaded"}, nil
	}
	s.logger.Info("corpus loaded",
		slog.String("dir", corpusDir), slog.Int("documents", len(docs)))

	var chunks []chunk.Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.splitter.Split(doc)...)
	}
	if len(chunks) == 0 {
		return Result{Status: StatusWarning, Message: "documents produced no usable chunks"}, nil
	}

	entries, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return Result{}, err
	}
	if err := s.manager.BuildAndPublish(ctx, entries); err != nil {
		return Result{}, err
	}

	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("indexed %d chunks from %d documents", len(chunks), len(docs)),
		Chunks:  len(chunks),
	}, nil
}

// IngestFile chunks and embeds a single file and appends it to the current
// index. Requires an index to already exist.
func (s *Service) IngestFile(ctx context.Context, path string) (Result, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return Result{}, err
	}

	chunks := s.splitter.Split(doc)
	if len(chunks) == 0 {
		return Result{Status: StatusWarning, Message: "file produced no usable chunks"}, nil
	}

	entries, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return Result{}, err
	}
	if err := s.manager.AddAndPublish(ctx, entries); err != nil {
		return Result{}, err
	}

	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("added %d chunks from %s", len(chunks), doc.Source),
		Chunks:  len(chunks),
	}, nil
}

// Query retrieves the most relevant chunks for the question and generates a
// grounded answer. k = 0 uses the default; otherwise it must be 1..20.
// searchType is "similarity", "mmr", or empty for the similarity default.
func (s *Service) Query(ctx context.Context, question, searchType string, k int) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, ragerr.EmptyInput("question must not be empty")
	}
	if k == 0 {
		k = s.opts.TopK
	}
	if k < 1 || k > MaxTopK {
		return Answer{}, ragerr.New(ragerr.CodeInvalidQuery,
			fmt.Sprintf("k must be between 1 and %d, got %d", MaxTopK, k), nil)
	}
	mode, err := index.ParseMode(searchType)
	if err != nil {
		return Answer{}, err
	}
	if s.gen == nil {
		return Answer{}, ragerr.New(ragerr.CodeConfigInvalid,
			"no answer generator is configured", nil)
	}

	snap, err := s.manager.GetSnapshot(ctx)
	if err != nil {
		return Answer{}, err
	}

	qvec, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	results, err := snap.Index.Search(qvec, k, mode, index.Options{
		ScoreThreshold: s.opts.ScoreThreshold,
		Lambda:         s.opts.MMRLambda,
		PoolMultiplier: s.opts.PoolMultiplier,
	})
	if err != nil {
		return Answer{}, err
	}
	if len(results) == 0 {
		s.logger.Info("no passages above threshold", slog.String("mode", string(mode)))
		return Answer{Answer: "No relevant context was found for this question."}, nil
	}

	passages := make([]chunk.Chunk, len(results))
	for i, r := range results {
		passages[i] = r.Chunk
	}

	answer, err := s.gen.Generate(ctx, question, passages)
	if err != nil {
		return Answer{}, err
	}

	return Answer{Answer: answer, Sources: dedupeSources(passages)}, nil
}

// IndexStatus describes the persisted and in-memory state of the index for
// the status command.
type IndexStatus struct {
	Persisted  bool
	State      manager.State
	Path       string
	Entries    int
	Dimensions int
	CreatedAt  time.Time
}

// Status reports whether an index exists and, when loadable, its shape.
// An absent index is a valid status, not an error.
func (s *Service) Status(ctx context.Context) (IndexStatus, error) {
	st := IndexStatus{
		Persisted: s.manager.Persisted(),
		Path:      s.manager.StorePath(),
	}
	snap, err := s.manager.GetSnapshot(ctx)
	if err != nil {
		st.State = s.manager.State()
		if ragerr.IsUnavailable(err) {
			return st, nil
		}
		return st, err
	}
	st.State = s.manager.State()
	st.Entries = snap.Index.Len()
	st.Dimensions = snap.Index.Dimensions()
	st.CreatedAt = snap.Index.CreatedAt()
	return st, nil
}

// dedupeSources returns each distinct source once, in first-appearance
// (retrieval rank) order.
func dedupeSources(passages []chunk.Chunk) []string {
	seen := make(map[string]bool, len(passages))
	var out []string
	for _, p := range passages {
		if !seen[p.Source] {
			seen[p.Source] = true
			out = append(out, p.Source)
		}
	}
	return out
}

// embedChunks embeds all chunk texts with bounded parallelism across
// batches. Any batch failure fails the whole operation; a partially
// embedded corpus is never indexed.
func (s *Service) embedChunks(ctx context.Context, chunks []chunk.Chunk) ([]index.Entry, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.EmbedParallel)

	for start := 0; start < len(texts); start += s.opts.EmbedBatch {
		start := start
		end := min(start+s.opts.EmbedBatch, len(texts))
		g.Go(func() error {
			batch, err := s.embedder.EmbedPassages(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = index.Entry{Chunk: c, Vector: vectors[i]}
	}
	return entries, nil
}
