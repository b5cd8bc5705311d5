package graphrag

import "errors"

var (
	ErrGraphStoreRequired   = errors.New("graph store is required")
	ErrEmbedderRequired     = errors.New("embedder is required")
	ErrLexicalStoreRequired = errors.New("lexical store is required")
)
