package reembed

import "errors"

var (
	// ErrGraphStoreRequired is returned when no graph store is given.
	ErrGraphStoreRequired = errors.New("reembed: graph store is required")

	// ErrEmbedderRequired is returned when no embedder is given.
	ErrEmbedderRequired = errors.New("reembed: embedder is required")

	// ErrEmbeddingCount is returned when the embedder returns the wrong number of vectors.
	ErrEmbeddingCount = errors.New("reembed: embedding count mismatch")
)
