package badger

import (
	"context"
	"testing"

	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GraphStore {
	t.Helper()
	store, backend, err := NewMemoryGraphStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	return store
}

func tripleOf(source, relation, target string) core.Triple {
	return core.Triple{Source: source, Relation: relation, Target: target}
}

func insert(t *testing.T, store *GraphStore, space, text string, vec ...float32) *core.Chunk {
	t.Helper()
	chunk, err := store.InsertChunk(context.Background(), &core.Chunk{Space: space, Text: text, Embedding: vec})
	require.NoError(t, err)
	return chunk
}

func TestInsertChunk(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := insert(t, store, "bio", "cells divide", 1, 0)
	assert.Equal(t, core.ChunkID("bio", "cells divide"), first.ChunkID)
	assert.False(t, first.CreatedAt.IsZero())

	dup := insert(t, store, "bio", "cells divide", 1, 0)
	assert.Equal(t, first.ChunkID, dup.ChunkID)
	assert.Greater(t, dup.Seq, first.Seq)

	n, err := store.CountChunks(ctx, "bio")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "duplicate text is a separate node")

	_, err = store.InsertChunk(ctx, &core.Chunk{Space: "bio", Text: "no vector"})
	assert.ErrorIs(t, err, core.ErrInvalidChunk)

	_, err = store.InsertChunk(ctx, &core.Chunk{Text: "x", Embedding: []float32{1}})
	assert.ErrorIs(t, err, core.ErrInvalidSpace)
}

func TestListChunks_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	texts := []string{"one", "two", "three", "four"}
	for _, text := range texts {
		insert(t, store, "s", text, 1)
	}
	insert(t, store, "other", "foreign", 1)

	chunks, err := store.ListChunks(ctx, "s")
	require.NoError(t, err)
	require.Len(t, chunks, len(texts))
	for i, c := range chunks {
		assert.Equal(t, texts[i], c.Text)
		assert.Equal(t, "s", c.Space)
	}
}

func TestUpdateEmbedding(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	chunk := insert(t, store, "bio", "cells divide", 1, 0)
	insert(t, store, "chem", "cells divide", 1, 0)

	require.NoError(t, store.UpdateEmbedding(ctx, "bio", chunk.Seq, []float32{0, 1}))

	chunks, err := store.ListChunks(ctx, "bio")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []float32{0, 1}, chunks[0].Embedding)
	assert.Equal(t, chunk.Text, chunks[0].Text)
	assert.Equal(t, chunk.ChunkID, chunks[0].ChunkID)

	other, err := store.ListChunks(ctx, "chem")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, other[0].Embedding, "other spaces are untouched")

	assert.ErrorIs(t, store.UpdateEmbedding(ctx, "chem", chunk.Seq, []float32{0, 1}), storage.ErrNotFound)
	assert.ErrorIs(t, store.UpdateEmbedding(ctx, "bio", chunk.Seq, nil), core.ErrInvalidChunk)
}

func TestMergeConcept_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for range 3 {
		require.NoError(t, store.MergeConcept(ctx, "bio", "cell"))
	}
	require.NoError(t, store.MergeConcept(ctx, "bio", "atp"))
	require.NoError(t, store.MergeConcept(ctx, "chem", "cell"))

	concepts, err := store.ListConcepts(ctx, "bio")
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	assert.Equal(t, "atp", concepts[0].Name)
	assert.Equal(t, "cell", concepts[1].Name)

	assert.ErrorIs(t, store.MergeConcept(ctx, "bio", "  "), core.ErrInvalidConcept)
}

func TestMergeEdge_Strength(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.MergeConcept(ctx, "bio", "cell"))
	require.NoError(t, store.MergeConcept(ctx, "bio", "membrane"))

	triple := tripleOf("membrane", "requires", "cell")
	for range 3 {
		require.NoError(t, store.MergeEdge(ctx, "bio", triple))
	}
	require.NoError(t, store.MergeEdge(ctx, "bio", tripleOf("membrane", "contains", "cell")))

	edges, err := store.ListEdges(ctx, "bio")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "contains", edges[0].Relation)
	assert.Equal(t, int64(1), edges[0].Strength)
	assert.Equal(t, "requires", edges[1].Relation)
	assert.Equal(t, int64(3), edges[1].Strength)

	n, err := store.CountRelationships(ctx, "bio")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMergeEdge_MissingConcept(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.MergeConcept(ctx, "bio", "cell"))

	err := store.MergeEdge(ctx, "bio", tripleOf("cell", "requires", "ghost"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// the concept exists only in another space
	require.NoError(t, store.MergeConcept(ctx, "chem", "ghost"))
	err = store.MergeEdge(ctx, "bio", tripleOf("cell", "requires", "ghost"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err := store.CountRelationships(ctx, "bio")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, store.MergeEdge(ctx, "bio", tripleOf("cell", "", "x")), core.ErrInvalidEdge)
}

func TestLinkConceptToChunk(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	a := insert(t, store, "bio", "alpha", 1)
	b := insert(t, store, "bio", "beta", 1)
	require.NoError(t, store.MergeConcept(ctx, "bio", "cell"))

	for range 2 {
		require.NoError(t, store.LinkConceptToChunk(ctx, "bio", "cell", b.ChunkID))
		require.NoError(t, store.LinkConceptToChunk(ctx, "bio", "cell", a.ChunkID))
	}

	ids, err := store.ConceptChunks(ctx, "bio", "cell")
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.ID{a.ChunkID, b.ChunkID}, ids)
	assert.Len(t, ids, 2)

	err = store.LinkConceptToChunk(ctx, "bio", "ghost", a.ChunkID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.LinkConceptToChunk(ctx, "bio", "cell", core.ChunkID("bio", "missing"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVectorSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	insert(t, store, "s", "east", 1, 0)
	insert(t, store, "s", "north", 0, 1)
	insert(t, store, "s", "northeast", 1, 1)
	insert(t, store, "s", "wrong dimension", 1, 0, 0)
	insert(t, store, "other", "east elsewhere", 1, 0)

	results, err := store.VectorSearch(ctx, "s", []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "east", results[0].Chunk.Text)
	assert.Equal(t, "northeast", results[1].Chunk.Text)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

	all, err := store.VectorSearch(ctx, "s", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, r := range all {
		assert.Equal(t, "s", r.Chunk.Space)
	}

	none, err := store.VectorSearch(ctx, "empty", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = store.VectorSearch(ctx, "s", nil, 5)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestClearSpace(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, space := range []string{"S1", "S2"} {
		c := insert(t, store, space, "text", 1)
		require.NoError(t, store.MergeConcept(ctx, space, "a"))
		require.NoError(t, store.MergeConcept(ctx, space, "b"))
		require.NoError(t, store.MergeEdge(ctx, space, tripleOf("a", "requires", "b")))
		require.NoError(t, store.LinkConceptToChunk(ctx, space, "a", c.ChunkID))
	}

	require.NoError(t, store.ClearSpace(ctx, "S1"))

	counts := []struct {
		name  string
		count func(context.Context, string) (int64, error)
		other int64
	}{
		{"chunks", store.CountChunks, 1},
		{"concepts", store.CountConcepts, 2},
		{"relationships", store.CountRelationships, 1},
	}
	for _, c := range counts {
		n, err := c.count(ctx, "S1")
		require.NoError(t, err)
		assert.Zero(t, n, c.name)

		n, err = c.count(ctx, "S2")
		require.NoError(t, err)
		assert.Equal(t, c.other, n, "other spaces are untouched: %s", c.name)
	}

	ids, err := store.ConceptChunks(ctx, "S1", "a")
	require.NoError(t, err)
	assert.Empty(t, ids)

	// clearing an empty space is fine
	require.NoError(t, store.ClearSpace(ctx, "never-used"))
}

func TestSpacePrefixIsolation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// "ab" must not be treated as a child of "a"
	insert(t, store, "a", "x", 1)
	insert(t, store, "ab", "y", 1)

	n, err := store.CountChunks(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.ClearSpace(ctx, "a"))
	n, err = store.CountChunks(ctx, "ab")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPing_Closed(t *testing.T) {
	store, backend, err := NewMemoryGraphStore()
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))

	require.NoError(t, store.Close())
	require.NoError(t, backend.Close())
	assert.ErrorIs(t, store.Ping(context.Background()), storage.ErrStorageClosed)
}
