package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier for domain entities.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as 16 lowercase hex characters.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ChunkID returns the stable identifier of a chunk of text within a space.
// The same text in two different spaces yields two different IDs.
func ChunkID(space, text string) ID {
	return IDFromContent(space + "_" + text)
}

// Chunk is a fixed-size slice of extracted text plus its embedding.
type Chunk struct {
	ChunkID   ID
	Space     string
	Text      string
	Embedding []float32
	Seq       uint64 // insertion order within the store
	CreatedAt time.Time
}

// Concept is a named knowledge-graph node, unique per (Name, Space).
type Concept struct {
	Name      string
	Space     string
	CreatedAt time.Time
}

// Edge is a RELATED_TO relationship between two concepts of one space.
// Strength counts the chunks that produced the same (Source, Relation, Target) triple.
type Edge struct {
	Source   string
	Relation string
	Target   string
	Space    string
	Strength int64
}

// Triple is a (source, relation, target) statement extracted from text.
type Triple struct {
	Source   string
	Relation string
	Target   string
}

// Fragment is the sanitized output of concept extraction for one chunk.
type Fragment struct {
	Concepts []string
	Edges    []Triple
}

// IsEmpty reports whether the fragment carries neither concepts nor edges.
func (f Fragment) IsEmpty() bool {
	return len(f.Concepts) == 0 && len(f.Edges) == 0
}

// ScoredChunk is a chunk matched by vector search.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}

// Stats summarizes the graph content of a space.
type Stats struct {
	Space         string `json:"space"`
	Chunks        int64  `json:"chunks"`
	Concepts      int64  `json:"concepts"`
	Relationships int64  `json:"relationships"`
}
