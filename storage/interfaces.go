package storage

import (
	"context"

	"github.com/poiesic/graphrag/core"
)

// GraphStore persists Chunk and Concept nodes and their relationships,
// and supports space-scoped vector search.
// Implementations must be thread-safe and support concurrent access.
type GraphStore interface {
	// InsertChunk stores a new Chunk node. ChunkID is derived from (Space, Text)
	// when zero; Seq and CreatedAt are assigned by the store. Inserting the same
	// text twice creates two nodes sharing one ChunkID.
	InsertChunk(ctx context.Context, chunk *core.Chunk) (*core.Chunk, error)

	// UpdateEmbedding replaces the embedding of the chunk node with seq.
	// Returns ErrNotFound when space has no such chunk.
	UpdateEmbedding(ctx context.Context, space string, seq uint64, embedding []float32) error

	// MergeConcept upserts the Concept keyed by (name, space).
	MergeConcept(ctx context.Context, space, name string) error

	// MergeEdge creates the RELATED_TO edge for the triple with strength 1, or
	// increments the strength of the existing one. Both endpoint concepts must
	// already exist in the space, otherwise ErrNotFound is returned and nothing is written.
	MergeEdge(ctx context.Context, space string, triple core.Triple) error

	// LinkConceptToChunk idempotently links a concept to every chunk node with chunkID.
	// Returns ErrNotFound when the concept or the chunk does not exist.
	LinkConceptToChunk(ctx context.Context, space, name string, chunkID core.ID) error

	// VectorSearch returns up to k chunks of space by descending cosine similarity to vector.
	VectorSearch(ctx context.Context, space string, vector []float32, k int) ([]*core.ScoredChunk, error)

	// ListChunks returns every chunk of space in insertion order.
	ListChunks(ctx context.Context, space string) ([]*core.Chunk, error)

	// ListConcepts returns every concept of space ordered by name.
	ListConcepts(ctx context.Context, space string) ([]*core.Concept, error)

	// ListEdges returns every RELATED_TO edge of space ordered by (source, relation, target).
	ListEdges(ctx context.Context, space string) ([]*core.Edge, error)

	// ConceptChunks returns the distinct chunk IDs a concept is linked to, sorted.
	ConceptChunks(ctx context.Context, space, name string) ([]core.ID, error)

	// ClearSpace deletes all nodes and relationships of space.
	ClearSpace(ctx context.Context, space string) error

	// CountChunks returns the number of Chunk nodes in space.
	CountChunks(ctx context.Context, space string) (int64, error)

	// CountConcepts returns the number of Concept nodes in space.
	CountConcepts(ctx context.Context, space string) (int64, error)

	// CountRelationships returns the number of RELATED_TO edges in space.
	CountRelationships(ctx context.Context, space string) (int64, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
