package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/ragd/internal/chunk"
	"github.com/askdocs/ragd/internal/embed"
	"github.com/askdocs/ragd/internal/llm"
	"github.com/askdocs/ragd/internal/manager"
	"github.com/askdocs/ragd/internal/ragerr"
	"github.com/askdocs/ragd/internal/store"
)

// echoGenerator returns a canned answer and records what it was asked.
type echoGenerator struct {
	question string
	passages []chunk.Chunk
	calls    int
}

func (g *echoGenerator) Generate(_ context.Context, question string, passages []chunk.Chunk) (string, error) {
	g.calls++
	g.question = question
	g.passages = passages
	return "canned answer", nil
}

func (g *echoGenerator) ModelName() string { return "echo" }
func (g *echoGenerator) Close() error      { return nil }

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	}
	return dir
}

func newTestService(t *testing.T, gen llm.Generator, opts Options) *Service {
	t.Helper()
	st := store.NewFileStore(filepath.Join(t.TempDir(), "index.rag"))
	mgr := manager.New(st, nil)
	splitter := chunk.NewSplitter(120, 20)
	return New(splitter, embed.NewStaticEmbedder(64), mgr, gen, opts, nil)
}

func TestIngest_MissingDirIsError(t *testing.T) {
	svc := newTestService(t, nil, Options{})

	_, err := svc.Ingest(context.Background(), filepath.Join(t.TempDir(), "nope"), false)

	require.Error(t, err)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeConfigInvalid))
}

func TestIngest_EmptyCorpusIsWarning(t *testing.T) {
	svc := newTestService(t, nil, Options{})
	dir := writeCorpus(t, map[string]string{"image.png": "binary junk"})

	res, err := svc.Ingest(context.Background(), dir, false)

	require.NoError(t, err)
	assert.Equal(t, StatusWarning, res.Status)
	assert.Zero(t, res.Chunks)
}

func TestIngest_WhitespaceOnlyDocsIsWarning(t *testing.T) {
	svc := newTestService(t, nil, Options{})
	dir := writeCorpus(t, map[string]string{"blank.txt": "   \n\n\t  "})

	res, err := svc.Ingest(context.Background(), dir, false)

	require.NoError(t, err)
	assert.Equal(t, StatusWarning, res.Status)
}

func TestIngest_IndexesCorpus(t *testing.T) {
	// given a small corpus with nested and ignorable files
	svc := newTestService(t, nil, Options{})
	dir := writeCorpus(t, map[string]string{
		"hours.md":          "City hall opens at 9am on weekdays. It closes at 5pm.",
		"notes/permits.txt": "Building permits are issued by the planning office.",
		".hidden.txt":       "should not be loaded",
		"data.json":         `{"skip": true}`,
	})

	// when
	res, err := svc.Ingest(context.Background(), dir, false)

	// then
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Greater(t, res.Chunks, 0)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Persisted)
	assert.Equal(t, res.Chunks, status.Entries)
	assert.Equal(t, 64, status.Dimensions)
}

func TestIngest_SkipsWhenIndexExists(t *testing.T) {
	svc := newTestService(t, nil, Options{})
	dir := writeCorpus(t, map[string]string{"a.txt": "first corpus"})
	first, err := svc.Ingest(context.Background(), dir, false)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, first.Status)

	// when ingesting again without clear
	res, err := svc.Ingest(context.Background(), dir, false)

	// then nothing is re-embedded
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Contains(t, res.Message, "already exists")
	assert.Zero(t, res.Chunks)
}

func TestIngest_ClearReplacesIndex(t *testing.T) {
	svc := newTestService(t, nil, Options{})
	big := writeCorpus(t, map[string]string{
		"a.txt": strings.Repeat("Alpha paragraph with several words in it.\n\n", 20),
	})
	_, err := svc.Ingest(context.Background(), big, false)
	require.NoError(t, err)
	before, err := svc.Status(context.Background())
	require.NoError(t, err)

	small := writeCorpus(t, map[string]string{"b.txt": "One short document."})
	res, err := svc.Ingest(context.Background(), small, true)

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	after, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Less(t, after.Entries, before.Entries)
}

func TestIngestFile_RequiresExistingIndex(t *testing.T) {
	svc := newTestService(t, nil, Options{})
	dir := writeCorpus(t, map[string]string{"solo.txt": "A lone document."})

	_, err := svc.IngestFile(context.Background(), filepath.Join(dir, "solo.txt"))

	require.Error(t, err)
	assert.True(t, ragerr.IsUnavailable(err))
}

func TestIngestFile_AppendsToIndex(t *testing.T) {
	svc := newTestService(t, nil, Options{})
	dir := writeCorpus(t, map[string]string{
		"base.txt":  "The base corpus document.",
		"extra.txt": "Extra material about bicycle parking rules.",
	})
	res, err := svc.Ingest(context.Background(), dir, false)
	require.NoError(t, err)
	base := res.Chunks

	added, err := svc.IngestFile(context.Background(), filepath.Join(dir, "extra.txt"))

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, added.Status)
	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, base+added.Chunks, status.Entries)
}

func TestIngestFile_AddedDocumentRanksFirstForItsQuery(t *testing.T) {
	// given an index built without the bicycle document
	gen := &echoGenerator{}
	svc := newTestService(t, gen, Options{})
	dir := writeCorpus(t, map[string]string{
		"cars.txt":  "Car parking costs two euros per hour downtown.",
		"hours.txt": "City hall opens at 9am on weekdays.",
	})
	_, err := svc.Ingest(context.Background(), dir, false)
	require.NoError(t, err)

	extra := filepath.Join(t.TempDir(), "bikes.txt")
	require.NoError(t, os.WriteFile(extra,
		[]byte("Bicycle parking is free at the station. Bicycles must use the racks."), 0o644))

	// when the document is added and a query matches only it
	_, err = svc.IngestFile(context.Background(), extra)
	require.NoError(t, err)
	ans, err := svc.Query(context.Background(), "Where can I park my bicycle?", "", 3)

	// then the added document's chunk outranks every pre-existing chunk
	require.NoError(t, err)
	require.NotEmpty(t, ans.Sources)
	assert.Equal(t, "bikes.txt", ans.Sources[0])
	require.NotEmpty(t, gen.passages)
	assert.Equal(t, "bikes.txt", gen.passages[0].Source)
}

func TestIngestFile_MissingFileIsError(t *testing.T) {
	svc := newTestService(t, nil, Options{})

	_, err := svc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "ghost.txt"))

	require.Error(t, err)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeConfigInvalid))
}

func TestQuery_AnswersWithRankedSources(t *testing.T) {
	// given an ingested corpus
	gen := &echoGenerator{}
	svc := newTestService(t, gen, Options{})
	dir := writeCorpus(t, map[string]string{
		"bikes.txt": "Bicycle parking is free at the station. Bicycles must use the racks.",
		"cars.txt":  "Car parking costs two euros per hour downtown.",
	})
	_, err := svc.Ingest(context.Background(), dir, false)
	require.NoError(t, err)

	// when
	ans, err := svc.Query(context.Background(), "Where can I park my bicycle?", "", 3)

	// then the generator sees ranked passages and sources are deduplicated
	require.NoError(t, err)
	assert.Equal(t, "canned answer", ans.Answer)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "Where can I park my bicycle?", gen.question)
	require.NotEmpty(t, gen.passages)
	assert.NotEmpty(t, ans.Sources)
	assert.LessOrEqual(t, len(ans.Sources), len(gen.passages))
	// the static embedder must put the bicycle passage first
	assert.Equal(t, "bikes.txt", ans.Sources[0])
	seen := map[string]int{}
	for _, src := range ans.Sources {
		seen[src]++
	}
	for src, n := range seen {
		assert.Equal(t, 1, n, "source %s repeated", src)
	}
}

func TestQuery_MMRModeAccepted(t *testing.T) {
	gen := &echoGenerator{}
	svc := newTestService(t, gen, Options{})
	dir := writeCorpus(t, map[string]string{
		"doc.txt": "Recycling is collected on Mondays. Compost is collected on Thursdays.",
	})
	_, err := svc.Ingest(context.Background(), dir, false)
	require.NoError(t, err)

	ans, err := svc.Query(context.Background(), "When is recycling collected?", "mmr", 2)

	require.NoError(t, err)
	assert.Equal(t, "canned answer", ans.Answer)
}

func TestQuery_Validation(t *testing.T) {
	gen := &echoGenerator{}
	svc := newTestService(t, gen, Options{})
	dir := writeCorpus(t, map[string]string{"doc.txt": "Some indexed text."})
	_, err := svc.Ingest(context.Background(), dir, false)
	require.NoError(t, err)

	tests := []struct {
		name       string
		question   string
		searchType string
		k          int
		code       string
	}{
		{"empty question", "  ", "", 0, ragerr.CodeEmptyInput},
		{"k too large", "q", "", 21, ragerr.CodeInvalidQuery},
		{"k negative", "q", "", -1, ragerr.CodeInvalidQuery},
		{"unknown mode", "q", "fuzzy", 3, ragerr.CodeInvalidQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Query(context.Background(), tt.question, tt.searchType, tt.k)
			require.Error(t, err)
			assert.True(t, ragerr.HasCode(err, tt.code))
		})
	}
	// the generator never ran for rejected queries
	assert.Zero(t, gen.calls)
}

func TestQuery_NoIndexIsUnavailable(t *testing.T) {
	svc := newTestService(t, &echoGenerator{}, Options{})

	_, err := svc.Query(context.Background(), "anything?", "", 0)

	require.Error(t, err)
	assert.True(t, ragerr.IsUnavailable(err))
}

func TestQuery_ThresholdCanYieldNoContext(t *testing.T) {
	// an impossible threshold filters out every passage
	gen := &echoGenerator{}
	svc := newTestService(t, gen, Options{ScoreThreshold: 0.999})
	dir := writeCorpus(t, map[string]string{"doc.txt": "Completely unrelated text about gardening."})
	_, err := svc.Ingest(context.Background(), dir, false)
	require.NoError(t, err)

	ans, err := svc.Query(context.Background(), "quantum chromodynamics lattice coupling", "", 0)

	require.NoError(t, err)
	assert.Contains(t, ans.Answer, "No relevant context")
	assert.Empty(t, ans.Sources)
	assert.Zero(t, gen.calls)
}

func TestStatus_NoIndex(t *testing.T) {
	svc := newTestService(t, nil, Options{})

	status, err := svc.Status(context.Background())

	require.NoError(t, err)
	assert.False(t, status.Persisted)
	assert.Zero(t, status.Entries)
	assert.Equal(t, manager.StateUninitialized, status.State)
}
