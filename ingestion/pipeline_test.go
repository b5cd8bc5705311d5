package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/graphrag/ai"
	"github.com/poiesic/graphrag/ai/mock"
	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/lexical"
	"github.com/poiesic/graphrag/storage"
	"github.com/poiesic/graphrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyStore wraps a GraphStore to count clears and inject insert failures.
type spyStore struct {
	storage.GraphStore

	mu         sync.Mutex
	clears     int
	failInsert func(text string) bool
}

func (s *spyStore) ClearSpace(ctx context.Context, space string) error {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
	return s.GraphStore.ClearSpace(ctx, space)
}

func (s *spyStore) InsertChunk(ctx context.Context, chunk *core.Chunk) (*core.Chunk, error) {
	if s.failInsert != nil && s.failInsert(chunk.Text) {
		return nil, errors.New("write refused")
	}
	return s.GraphStore.InsertChunk(ctx, chunk)
}

func (s *spyStore) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

type fixture struct {
	store    *spyStore
	lexical  *lexical.Store
	embedder *mock.MockEmbedder
	llm      *mock.MockCompleter
	pipeline *Pipeline
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, backend, err := badger.NewMemoryGraphStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})

	f := &fixture{
		store:    &spyStore{GraphStore: store},
		lexical:  lexical.NewStore(),
		embedder: mock.NewMockEmbedder(),
		llm:      mock.NewMockCompleter(),
		dir:      t.TempDir(),
	}
	f.pipeline, err = NewPipeline(f.store, f.lexical, f.embedder, WithExtractWorkers(4))
	require.NoError(t, err)
	return f
}

// file writes a text file of n words, each prefixed with tag.
func (f *fixture) file(t *testing.T, name, tag string, n int) string {
	t.Helper()
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", tag, i)
	}
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, " ")), 0644))
	return path
}

func (f *fixture) count(t *testing.T, space string) core.Stats {
	t.Helper()
	ctx := context.Background()
	chunks, err := f.store.CountChunks(ctx, space)
	require.NoError(t, err)
	concepts, err := f.store.CountConcepts(ctx, space)
	require.NoError(t, err)
	rels, err := f.store.CountRelationships(ctx, space)
	require.NoError(t, err)
	return core.Stats{Space: space, Chunks: chunks, Concepts: concepts, Relationships: rels}
}

const cellFragment = `{"concepts": ["cell", "membrane"], "edges": [["membrane", "requires", "cell"], ["cell", "requires", "ghost"]]}`

func TestNewPipeline(t *testing.T) {
	store, backend, err := badger.NewMemoryGraphStore()
	require.NoError(t, err)
	defer func() {
		store.Close()
		backend.Close()
	}()
	lex := lexical.NewStore()
	embedder := mock.NewMockEmbedder()

	_, err = NewPipeline(nil, lex, embedder)
	assert.Equal(t, ErrGraphStoreRequired, err)
	_, err = NewPipeline(store, nil, embedder)
	assert.Equal(t, ErrLexicalStoreRequired, err)
	_, err = NewPipeline(store, lex, nil)
	assert.Equal(t, ErrEmbedderRequired, err)

	p, err := NewPipeline(store, lex, embedder, WithExtractWorkers(0), WithLogger(nil), WithChunker(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, p.extractWorkers)
	assert.NotNil(t, p.chunker)
}

func TestFull_StoresChunksAndConcepts(t *testing.T) {
	f := newFixture(t)
	f.llm.Response = cellFragment
	path := f.file(t, "notes.txt", "w", 1000)

	res := f.pipeline.Full(context.Background(), "bio", []string{path}, f.llm, nil)
	require.Equal(t, core.StatusOK, res.Status, "err: %v", res.Err)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 3, res.EdgesSkipped)
	assert.Zero(t, res.ChunkFailures)
	assert.Zero(t, res.ConceptFailures)
	assert.Equal(t, 3, f.llm.CallCount())

	assert.Equal(t, core.Stats{Space: "bio", Chunks: 3, Concepts: 2, Relationships: 1}, f.count(t, "bio"))

	edges, err := f.store.ListEdges(context.Background(), "bio")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, int64(3), edges[0].Strength)

	ids, err := f.store.ConceptChunks(context.Background(), "bio", "cell")
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	docs := f.lexical.Documents("bio")
	require.Len(t, docs, 3)
	assert.Len(t, strings.Fields(docs[0]), 400)
	assert.Len(t, strings.Fields(docs[2]), 200)
}

func TestFull_ReplacesPreviousData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.file(t, "a.txt", "alpha", 500)
	second := f.file(t, "b.txt", "beta", 100)

	f.pipeline.Full(ctx, "S", []string{first}, f.llm, nil)
	require.Equal(t, int64(2), f.count(t, "S").Chunks)

	res := f.pipeline.Full(ctx, "S", []string{second}, f.llm, nil)
	require.Equal(t, core.StatusOK, res.Status)
	assert.Equal(t, int64(1), f.count(t, "S").Chunks)

	docs := f.lexical.Documents("S")
	require.Len(t, docs, 1)
	assert.True(t, strings.HasPrefix(docs[0], "beta0"))
}

func TestFull_NoChunksDropsLexicalIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := f.file(t, "a.txt", "w", 10)
	f.pipeline.Full(ctx, "S", []string{good}, f.llm, nil)
	require.True(t, f.lexical.Has("S"))

	unsupported := filepath.Join(f.dir, "slides.pptx")
	require.NoError(t, os.WriteFile(unsupported, []byte("PK"), 0644))
	empty := filepath.Join(f.dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("   \n"), 0644))

	res := f.pipeline.Full(ctx, "S", []string{unsupported, empty}, f.llm, nil)
	assert.Equal(t, core.StatusDegraded, res.Status)
	assert.ErrorIs(t, res.Err, ErrNoChunks)
	assert.Equal(t, 2, res.FilesSkipped)
	assert.False(t, f.lexical.Has("S"))
	assert.Equal(t, core.Stats{Space: "S"}, f.count(t, "S"))
}

func TestFull_EmbeddingFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := f.file(t, "a.txt", "w", 10)
	f.pipeline.Full(ctx, "S", []string{path}, f.llm, nil)

	f.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}
	res := f.pipeline.Full(ctx, "S", []string{path}, f.llm, nil)
	assert.Equal(t, core.StatusFailed, res.Status)
	assert.ErrorContains(t, res.Err, "embedding service down")
	assert.False(t, f.lexical.Has("S"), "cleared space must not keep a stale index")
	assert.Zero(t, f.count(t, "S").Chunks)
}

func TestFull_EmbeddingCountMismatch(t *testing.T) {
	f := newFixture(t)
	f.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	path := f.file(t, "a.txt", "w", 900)

	res := f.pipeline.Full(context.Background(), "S", []string{path}, f.llm, nil)
	assert.Equal(t, core.StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrEmbeddingCount)
}

func TestFull_SkipsBadFiles(t *testing.T) {
	f := newFixture(t)
	good := f.file(t, "good.txt", "w", 50)
	missing := filepath.Join(f.dir, "missing.txt")

	res := f.pipeline.Full(context.Background(), "S", []string{missing, good}, f.llm, nil)
	assert.Equal(t, core.StatusDegraded, res.Status)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Equal(t, 1, res.Chunks)
}

func TestFull_PreservesFileOrder(t *testing.T) {
	f := newFixture(t)
	var files []string
	for i := range 8 {
		files = append(files, f.file(t, fmt.Sprintf("f%d.txt", i), fmt.Sprintf("file%dword", i), 5))
	}

	res := f.pipeline.Full(context.Background(), "S", files, f.llm, nil)
	require.Equal(t, core.StatusOK, res.Status)

	chunks, err := f.store.ListChunks(context.Background(), "S")
	require.NoError(t, err)
	require.Len(t, chunks, 8)
	for i, c := range chunks {
		assert.True(t, strings.HasPrefix(c.Text, fmt.Sprintf("file%dword0", i)))
	}
	assert.Equal(t, f.lexical.Documents("S")[3], chunks[3].Text)
}

func TestIncremental_Appends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file1 := f.file(t, "file1.txt", "one", 1200)
	file2 := f.file(t, "file2.txt", "two", 800)

	res := f.pipeline.Full(ctx, "S1", []string{file1}, f.llm, nil)
	require.Equal(t, 3, res.Chunks)
	res = f.pipeline.Incremental(ctx, "S1", []string{file2}, f.llm, nil)
	require.Equal(t, core.StatusOK, res.Status)
	require.Equal(t, 2, res.Chunks)

	assert.Equal(t, int64(5), f.count(t, "S1").Chunks)
	assert.Equal(t, 1, f.store.clearCount(), "incremental ingestion never clears")

	docs := f.lexical.Documents("S1")
	chunks, err := f.store.ListChunks(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, docs, 5)
	for i := range docs {
		assert.Equal(t, chunks[i].Text, docs[i])
	}
}

func TestIncremental_LoadsStoredChunksFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pipeline.Full(ctx, "S", []string{f.file(t, "a.txt", "a", 10)}, f.llm, nil)

	// a second pipeline over the same store starts without lexical indexes
	fresh := lexical.NewStore()
	p, err := NewPipeline(f.store, fresh, f.embedder)
	require.NoError(t, err)

	res := p.Incremental(ctx, "S", []string{f.file(t, "b.txt", "b", 10)}, f.llm, nil)
	require.Equal(t, core.StatusOK, res.Status)

	chunks, err := f.store.ListChunks(ctx, "S")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, []string{chunks[0].Text, chunks[1].Text}, fresh.Documents("S"))
}

func TestIncremental_FailureKeepsExistingData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pipeline.Full(ctx, "S", []string{f.file(t, "a.txt", "a", 10)}, f.llm, nil)

	f.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("timeout")
	}
	res := f.pipeline.Incremental(ctx, "S", []string{f.file(t, "b.txt", "b", 10)}, f.llm, nil)
	assert.Equal(t, core.StatusFailed, res.Status)
	assert.Len(t, f.lexical.Documents("S"), 1)
	assert.Equal(t, int64(1), f.count(t, "S").Chunks)

	res = f.pipeline.Incremental(ctx, "S", []string{filepath.Join(f.dir, "nope.txt")}, f.llm, nil)
	assert.Equal(t, core.StatusDegraded, res.Status)
	assert.ErrorIs(t, res.Err, ErrNoChunks)
	assert.Len(t, f.lexical.Documents("S"), 1)
}

func TestChunkInsertFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.store.failInsert = func(text string) bool { return strings.HasPrefix(text, "w400 ") }
	path := f.file(t, "a.txt", "w", 1000)

	res := f.pipeline.Full(context.Background(), "S", []string{path}, f.llm, nil)
	assert.Equal(t, core.StatusDegraded, res.Status)
	assert.Equal(t, 1, res.ChunkFailures)
	assert.Equal(t, 2, res.Chunks)
	assert.ErrorContains(t, res.Err, "write refused")

	// the lexical index mirrors what the graph holds
	docs := f.lexical.Documents("S")
	require.Len(t, docs, 2)
	assert.True(t, strings.HasPrefix(docs[1], "w800 "))
}

func TestAllInsertsFail(t *testing.T) {
	f := newFixture(t)
	f.store.failInsert = func(string) bool { return true }

	res := f.pipeline.Full(context.Background(), "S", []string{f.file(t, "a.txt", "w", 10)}, f.llm, nil)
	assert.Equal(t, core.StatusFailed, res.Status)
	assert.False(t, f.lexical.Has("S"))
}

func TestConceptExtractionFailureDoesNotBlockChunks(t *testing.T) {
	f := newFixture(t)
	llm := ai.CompleterFunc(func(context.Context, string) (string, error) {
		return "", errors.New("llm unavailable")
	})
	path := f.file(t, "a.txt", "w", 900)

	res := f.pipeline.Full(context.Background(), "S", []string{path}, llm, nil)
	assert.Equal(t, core.StatusDegraded, res.Status)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 3, res.ConceptFailures)
	assert.Equal(t, core.Stats{Space: "S", Chunks: 3}, f.count(t, "S"))
}

func TestDuplicateChunksShareConcepts(t *testing.T) {
	f := newFixture(t)
	f.llm.Response = cellFragment
	a := f.file(t, "a.txt", "same", 30)
	b := f.file(t, "b.txt", "same", 30)

	res := f.pipeline.Full(context.Background(), "S", []string{a, b}, f.llm, nil)
	require.Equal(t, core.StatusOK, res.Status)

	assert.Equal(t, core.Stats{Space: "S", Chunks: 2, Concepts: 2, Relationships: 1}, f.count(t, "S"))
	edges, err := f.store.ListEdges(context.Background(), "S")
	require.NoError(t, err)
	assert.Equal(t, int64(2), edges[0].Strength)

	ids, err := f.store.ConceptChunks(context.Background(), "S", "cell")
	require.NoError(t, err)
	assert.Len(t, ids, 1, "identical chunks share one chunk id")
}

func TestStrengthIsReproducible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.llm.CompleteFunc = func(_ context.Context, prompt string) (string, error) {
		// the reply depends only on the chunk text
		if strings.Contains(prompt, "Text: x0 ") {
			return `{"concepts": ["a", "b", "c"], "edges": [["a", "requires", "b"], ["b", "requires", "c"]]}`, nil
		}
		return `{"concepts": ["b", "c"], "edges": [["b", "requires", "c"], ["c", "requires", "a"]]}`, nil
	}
	files := []string{f.file(t, "x.txt", "x", 1000), f.file(t, "y.txt", "y", 700)}

	snapshot := func() []*core.Edge {
		res := f.pipeline.Full(ctx, "S", files, f.llm, nil)
		require.Equal(t, core.StatusOK, res.Status)
		edges, err := f.store.ListEdges(ctx, "S")
		require.NoError(t, err)
		return edges
	}

	first := snapshot()
	require.NotEmpty(t, first)
	for range 3 {
		assert.Equal(t, first, snapshot())
	}
}

type recordingMonitor struct {
	started   bool
	extracted []string
	skipped   []string
	embedded  int
	stored    []int
	result    *Result
}

func (m *recordingMonitor) Start(_ string, _ Mode, _ int)    { m.started = true }
func (m *recordingMonitor) FileExtracted(path string, _ int) { m.extracted = append(m.extracted, filepath.Base(path)) }
func (m *recordingMonitor) FileSkipped(path string, _ error) { m.skipped = append(m.skipped, filepath.Base(path)) }
func (m *recordingMonitor) Embedded(n int)                   { m.embedded = n }
func (m *recordingMonitor) ChunkStored(done, _ int)          { m.stored = append(m.stored, done) }
func (m *recordingMonitor) Finish(r *Result)                 { m.result = r }

func TestMonitor(t *testing.T) {
	f := newFixture(t)
	monitor := &recordingMonitor{}
	files := []string{f.file(t, "a.txt", "w", 450), filepath.Join(f.dir, "b.docx")}

	res := f.pipeline.Run(context.Background(), "S", files, ModeIncremental, f.llm, monitor)

	assert.True(t, monitor.started)
	assert.Equal(t, []string{"a.txt"}, monitor.extracted)
	assert.Equal(t, []string{"b.docx"}, monitor.skipped)
	assert.Equal(t, 2, monitor.embedded)
	assert.Equal(t, []int{1, 2}, monitor.stored)
	assert.Same(t, res, monitor.result)
	assert.Equal(t, ModeIncremental, res.Mode)
	assert.Positive(t, res.Duration)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Full")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)

	m, err = ParseMode(" incremental ")
	require.NoError(t, err)
	assert.Equal(t, ModeIncremental, m)
	assert.Equal(t, "incremental", m.String())

	_, err = ParseMode("partial")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
