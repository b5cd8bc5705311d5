package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/poiesic/graphrag/ai/mock"
	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/lexical"
	"github.com/poiesic/graphrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisEmbedder maps texts to fixed vectors, defaulting to the query axis.
func axisEmbedder(vectors map[string][]float32) *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		if v, ok := vectors[text]; ok {
			return v, nil
		}
		return []float32{0, 1}, nil
	}
	return e
}

type fixture struct {
	store    *badger.GraphStore
	lexical  *lexical.Store
	embedder *mock.MockEmbedder
}

func newFixture(t *testing.T, vectors map[string][]float32) *fixture {
	t.Helper()
	store, backend, err := badger.NewMemoryGraphStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	return &fixture{store: store, lexical: lexical.NewStore(), embedder: axisEmbedder(vectors)}
}

// add stores texts in space and indexes them lexically.
func (f *fixture) add(t *testing.T, space string, texts ...string) {
	t.Helper()
	ctx := context.Background()
	for _, text := range texts {
		vec, err := f.embedder.EmbedText(ctx, text)
		require.NoError(t, err)
		_, err = f.store.InsertChunk(ctx, &core.Chunk{Space: space, Text: text, Embedding: vec})
		require.NoError(t, err)
	}
	f.lexical.Append(space, texts)
}

func (f *fixture) retriever(t *testing.T, opts ...Option) *Retriever {
	t.Helper()
	r, err := NewRetriever(f.store, f.lexical, f.embedder, opts...)
	require.NoError(t, err)
	return r
}

func TestNewRetriever(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("valid configuration", func(t *testing.T) {
		r, err := NewRetriever(f.store, f.lexical, f.embedder, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.Equal(t, DefaultTopK, r.TopK())
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		_, err := NewRetriever(f.store, f.lexical, f.embedder, WithLogger(nil))
		require.NoError(t, err)
	})

	t.Run("missing collaborators", func(t *testing.T) {
		_, err := NewRetriever(nil, f.lexical, f.embedder)
		assert.Equal(t, ErrGraphStoreRequired, err)
		_, err = NewRetriever(f.store, nil, f.embedder)
		assert.Equal(t, ErrLexicalStoreRequired, err)
		_, err = NewRetriever(f.store, f.lexical, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("invalid top k", func(t *testing.T) {
		_, err := NewRetriever(f.store, f.lexical, f.embedder, WithTopK(0))
		assert.ErrorIs(t, err, ErrInvalidTopK)
		_, err = NewRetriever(f.store, f.lexical, f.embedder, WithMaxCandidates(-1))
		assert.ErrorIs(t, err, ErrInvalidTopK)
	})
}

func TestRetrieve_InvalidInput(t *testing.T) {
	r := newFixture(t, nil).retriever(t)

	_, err := r.Retrieve(context.Background(), "  ", "S")
	assert.ErrorIs(t, err, core.ErrEmptyQuery)

	_, err = r.Retrieve(context.Background(), "query", "")
	assert.ErrorIs(t, err, core.ErrInvalidSpace)
}

func TestRetrieve_EmptySpace(t *testing.T) {
	r := newFixture(t, nil).retriever(t)

	res, err := r.Retrieve(context.Background(), "anything", "nobody")
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, core.StatusOK, res.Status)
}

func TestRetrieve_LexicalFirstAndDeduped(t *testing.T) {
	f := newFixture(t, map[string][]float32{
		"glucose is a sugar":     {0, 1},
		"cells store energy":     {0.1, 1},
		"rivers flow to the sea": {1, 0},
	})
	f.add(t, "S", "glucose is a sugar", "cells store energy", "rivers flow to the sea")
	r := f.retriever(t)

	res, err := r.Retrieve(context.Background(), "glucose", "S")
	require.NoError(t, err)
	require.Equal(t, core.StatusOK, res.Status)

	texts := res.Texts()
	assert.Equal(t, []string{"glucose is a sugar", "cells store energy"}, texts)
	assert.Equal(t, SourceLexical, res.Candidates[0].Source, "shared hit keeps the lexical position")
	assert.Equal(t, SourceVector, res.Candidates[1].Source)
}

func TestRetrieve_NoCrossSpaceLeak(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, "A", "photosynthesis happens in chloroplasts")
	f.add(t, "B", "photosynthesis needs light", "chlorophyll absorbs light")
	r := f.retriever(t)

	res, err := r.Retrieve(context.Background(), "photosynthesis light", "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"photosynthesis happens in chloroplasts"}, res.Texts())
}

func TestRetrieve_CapsCandidates(t *testing.T) {
	f := newFixture(t, nil)
	var texts []string
	for i := range 12 {
		texts = append(texts, fmt.Sprintf("topic note %d", i))
	}
	f.add(t, "S", texts...)
	r := f.retriever(t, WithTopK(12), WithMaxCandidates(10))

	res, err := r.Retrieve(context.Background(), "topic", "S")
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 10)

	seen := map[string]bool{}
	for _, text := range res.Texts() {
		assert.False(t, seen[text], "duplicate candidate %q", text)
		seen[text] = true
	}
}

func TestRetrieve_NonPositiveVectorScoresDropped(t *testing.T) {
	f := newFixture(t, map[string][]float32{
		"orthogonal chunk": {1, 0},
		"opposite chunk":   {0, -1},
	})
	f.add(t, "S", "orthogonal chunk", "opposite chunk")
	r := f.retriever(t)

	res, err := r.Retrieve(context.Background(), "unrelated query", "S")
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestRetrieve_VectorFailureDegrades(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, "S", "enzymes speed reactions")
	f.embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}
	r := f.retriever(t)

	res, err := r.Retrieve(context.Background(), "enzymes", "S")
	require.NoError(t, err)
	assert.Equal(t, core.StatusDegraded, res.Status)
	assert.ErrorContains(t, res.Err, "embedding service down")
	assert.Equal(t, []string{"enzymes speed reactions"}, res.Texts())

	// without a lexical match the retrieval is empty but still only degraded
	res, err = r.Retrieve(context.Background(), "photosynthesis", "S")
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, core.StatusDegraded, res.Status)
}

// recordingMonitor captures monitor callbacks.
type recordingMonitor struct {
	started    bool
	lexical    int
	vector     int
	duplicates []string
	failed     []Source
	finished   *Retrieval
}

func (m *recordingMonitor) Start(_, _ string)                          { m.started = true }
func (m *recordingMonitor) AfterLexicalSearch(hits []lexical.Hit)      { m.lexical = len(hits) }
func (m *recordingMonitor) AfterVectorSearch(hits []*core.ScoredChunk) { m.vector = len(hits) }
func (m *recordingMonitor) SourceFailed(s Source, _ error)             { m.failed = append(m.failed, s) }
func (m *recordingMonitor) Duplicate(text string, _ Source)            { m.duplicates = append(m.duplicates, text) }
func (m *recordingMonitor) Finish(r *Retrieval)                        { m.finished = r }

func TestRetrieveWithMonitor(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, "S", "membrane transport")
	r := f.retriever(t)

	monitor := &recordingMonitor{}
	res, err := r.RetrieveWithMonitor(context.Background(), "membrane", "S", monitor)
	require.NoError(t, err)

	assert.True(t, monitor.started)
	assert.Equal(t, 1, monitor.lexical)
	assert.Equal(t, 1, monitor.vector)
	assert.Equal(t, []string{"membrane transport"}, monitor.duplicates)
	assert.Empty(t, monitor.failed)
	assert.Same(t, res, monitor.finished)
}

func TestRerank(t *testing.T) {
	ctx := context.Background()
	candidates := []string{"a", "b", "c", "d", "e", "f"}

	t.Run("orders by score and keeps top k", func(t *testing.T) {
		reranker := mock.NewMockReranker()
		reranker.ScoreFunc = func(_ context.Context, _ string, docs []string) ([]float32, error) {
			return []float32{0.1, 0.9, 0.3, 0.9, -2, 0.5}, nil
		}
		got, status := Rerank(ctx, reranker, "q", candidates, 3)
		assert.Equal(t, core.StatusOK, status)
		assert.Equal(t, []string{"b", "d", "f"}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		reranker := mock.NewMockReranker()
		got, status := Rerank(ctx, reranker, "q", nil, 5)
		assert.Empty(t, got)
		assert.Equal(t, core.StatusOK, status)
		assert.Zero(t, reranker.CallCount())
	})

	t.Run("failure falls back to first k", func(t *testing.T) {
		reranker := mock.NewMockReranker()
		reranker.ScoreFunc = func(context.Context, string, []string) ([]float32, error) {
			return nil, errors.New("cross-encoder unavailable")
		}
		got, status := Rerank(ctx, reranker, "q", candidates, 5)
		assert.Equal(t, core.StatusDegraded, status)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
	})

	t.Run("wrong score count falls back", func(t *testing.T) {
		reranker := mock.NewMockReranker()
		reranker.ScoreFunc = func(context.Context, string, []string) ([]float32, error) {
			return []float32{1}, nil
		}
		got, status := Rerank(ctx, reranker, "q", candidates[:2], 5)
		assert.Equal(t, core.StatusDegraded, status)
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("no reranker", func(t *testing.T) {
		got, status := Rerank(ctx, nil, "q", candidates, 2)
		assert.Equal(t, core.StatusDegraded, status)
		assert.Equal(t, []string{"a", "b"}, got)
	})
}
