// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/storage"
)

// GraphStore implements storage.GraphStore for BadgerDB.
type GraphStore struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.GraphStore = (*GraphStore)(nil)

// NewGraphStore creates a GraphStore on top of backend.
func NewGraphStore(backend *Backend) (*GraphStore, error) {
	seq, err := backend.GetSequence(chunkSeqKey)
	if err != nil {
		return nil, err
	}
	return &GraphStore{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the chunk sequence. The backend stays open.
func (g *GraphStore) Close() error {
	if g.backend.IsClosed() {
		return nil
	}
	return g.seq.Release()
}

// Ping reports whether the underlying database is still open.
func (g *GraphStore) Ping(ctx context.Context) error {
	if g.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

// InsertChunk stores a new chunk node.
func (g *GraphStore) InsertChunk(ctx context.Context, chunk *core.Chunk) (*core.Chunk, error) {
	if err := core.ValidateChunk(chunk); err != nil {
		return nil, err
	}
	if err := g.Ping(ctx); err != nil {
		return nil, err
	}

	seq, err := g.seq.Next()
	if err != nil {
		return nil, err
	}

	stored := *chunk
	if stored.ChunkID == 0 {
		stored.ChunkID = core.ChunkID(stored.Space, stored.Text)
	}
	stored.Seq = seq
	stored.CreatedAt = time.Now().UTC()

	err = g.backend.Update(func(tx *badger.Txn) error {
		if err := tx.Set(makeChunkKey(stored.Space, seq), storage.MarshalChunk(&stored)); err != nil {
			return err
		}
		return tx.Set(makeChunkIDKey(stored.Space, stored.ChunkID, seq), nil)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// UpdateEmbedding rewrites the chunk record with the new embedding.
func (g *GraphStore) UpdateEmbedding(ctx context.Context, space string, seq uint64, embedding []float32) error {
	if err := core.ValidateSpace(space); err != nil {
		return err
	}
	if len(embedding) == 0 {
		return core.ErrInvalidChunk
	}
	if err := g.Ping(ctx); err != nil {
		return err
	}

	key := makeChunkKey(space, seq)
	return g.backend.Update(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: chunk %d in space %q", storage.ErrNotFound, seq, space)
		}
		if err != nil {
			return err
		}
		var chunk *core.Chunk
		err = item.Value(func(val []byte) error {
			chunk, err = storage.UnmarshalChunk(val)
			return err
		})
		if err != nil {
			return err
		}
		chunk.Embedding = embedding
		return tx.Set(key, storage.MarshalChunk(chunk))
	})
}

// MergeConcept creates the concept unless it already exists.
func (g *GraphStore) MergeConcept(ctx context.Context, space, name string) error {
	if err := validate(space, name); err != nil {
		return err
	}
	if err := g.Ping(ctx); err != nil {
		return err
	}

	return g.backend.Update(func(tx *badger.Txn) error {
		key := makeConceptKey(space, name)
		found, err := exists(tx, key)
		if err != nil || found {
			return err
		}
		concept := &core.Concept{Name: name, Space: space, CreatedAt: time.Now().UTC()}
		return tx.Set(key, storage.MarshalConcept(concept))
	})
}

// MergeEdge creates the edge with strength 1 or increments its strength.
func (g *GraphStore) MergeEdge(ctx context.Context, space string, triple core.Triple) error {
	if err := core.ValidateSpace(space); err != nil {
		return err
	}
	if err := core.ValidateTriple(triple); err != nil {
		return err
	}
	if err := g.Ping(ctx); err != nil {
		return err
	}

	return g.backend.Update(func(tx *badger.Txn) error {
		for _, name := range []string{triple.Source, triple.Target} {
			found, err := exists(tx, makeConceptKey(space, name))
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: concept %q", storage.ErrNotFound, name)
			}
		}

		key := makeEdgeKey(space, triple)
		var strength int64
		item, err := tx.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			err = item.Value(func(val []byte) error {
				strength, err = storage.UnmarshalStrength(val)
				return err
			})
			if err != nil {
				return err
			}
		}
		return tx.Set(key, storage.MarshalStrength(strength+1))
	})
}

// LinkConceptToChunk records an EXPLAINED_BY link. Every chunk node sharing
// chunkID is covered by the single link entry.
func (g *GraphStore) LinkConceptToChunk(ctx context.Context, space, name string, chunkID core.ID) error {
	if err := validate(space, name); err != nil {
		return err
	}
	if err := g.Ping(ctx); err != nil {
		return err
	}

	return g.backend.Update(func(tx *badger.Txn) error {
		found, err := exists(tx, makeConceptKey(space, name))
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: concept %q", storage.ErrNotFound, name)
		}
		if !hasPrefix(tx, makePartialChunkIDKey(space, chunkID)) {
			return fmt.Errorf("%w: chunk %s", storage.ErrNotFound, chunkID)
		}
		return tx.Set(makeExplainsKey(space, name, chunkID), nil)
	})
}

// VectorSearch scans the space's chunks and returns the k most similar.
// Chunks whose embedding dimension differs from vector are skipped.
func (g *GraphStore) VectorSearch(ctx context.Context, space string, vector []float32, k int) ([]*core.ScoredChunk, error) {
	if err := core.ValidateSpace(space); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if k <= 0 {
		return nil, nil
	}

	var results []*core.ScoredChunk
	err := g.scanChunks(ctx, space, func(chunk *core.Chunk) {
		score, ok := cosineSimilarity(vector, chunk.Embedding)
		if !ok {
			return
		}
		results = append(results, &core.ScoredChunk{Chunk: chunk, Score: score})
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b *core.ScoredChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// ListChunks returns every chunk of space in insertion order.
func (g *GraphStore) ListChunks(ctx context.Context, space string) ([]*core.Chunk, error) {
	if err := core.ValidateSpace(space); err != nil {
		return nil, err
	}
	var chunks []*core.Chunk
	err := g.scanChunks(ctx, space, func(chunk *core.Chunk) {
		chunks = append(chunks, chunk)
	})
	return chunks, err
}

// ListConcepts returns every concept of space ordered by name.
func (g *GraphStore) ListConcepts(ctx context.Context, space string) ([]*core.Concept, error) {
	if err := core.ValidateSpace(space); err != nil {
		return nil, err
	}
	if err := g.Ping(ctx); err != nil {
		return nil, err
	}

	var concepts []*core.Concept
	err := g.scan(makeSpacePrefix(conceptPrefix, space), true, func(item *badger.Item) error {
		return item.Value(func(val []byte) error {
			concept, err := storage.UnmarshalConcept(val)
			if err != nil {
				return err
			}
			concepts = append(concepts, concept)
			return nil
		})
	})
	return concepts, err
}

// ListEdges returns every RELATED_TO edge of space ordered by key.
func (g *GraphStore) ListEdges(ctx context.Context, space string) ([]*core.Edge, error) {
	if err := core.ValidateSpace(space); err != nil {
		return nil, err
	}
	if err := g.Ping(ctx); err != nil {
		return nil, err
	}

	var edges []*core.Edge
	err := g.scan(makeSpacePrefix(edgePrefix, space), true, func(item *badger.Item) error {
		triple, ok := parseEdgeKey(space, item.Key())
		if !ok {
			g.backend.logger.Warn("skipping malformed edge key", "space", space)
			return nil
		}
		return item.Value(func(val []byte) error {
			strength, err := storage.UnmarshalStrength(val)
			if err != nil {
				return err
			}
			edges = append(edges, &core.Edge{
				Source:   triple.Source,
				Relation: triple.Relation,
				Target:   triple.Target,
				Space:    space,
				Strength: strength,
			})
			return nil
		})
	})
	return edges, err
}

// ConceptChunks returns the chunk IDs linked to a concept in ascending order.
func (g *GraphStore) ConceptChunks(ctx context.Context, space, name string) ([]core.ID, error) {
	if err := validate(space, name); err != nil {
		return nil, err
	}
	if err := g.Ping(ctx); err != nil {
		return nil, err
	}

	var ids []core.ID
	prefix := makePartialExplainsKey(space, name)
	err := g.scan(prefix, false, func(item *badger.Item) error {
		key := item.Key()
		if len(key) != len(prefix)+8 {
			return nil
		}
		ids = append(ids, core.ID(binary.BigEndian.Uint64(key[len(prefix):])))
		return nil
	})
	return ids, err
}

// ClearSpace deletes every key of space.
func (g *GraphStore) ClearSpace(ctx context.Context, space string) error {
	if err := core.ValidateSpace(space); err != nil {
		return err
	}
	if err := g.Ping(ctx); err != nil {
		return err
	}

	var keys [][]byte
	for _, p := range spacePrefixes {
		err := g.scan(makeSpacePrefix(p, space), false, func(item *badger.Item) error {
			keys = append(keys, item.KeyCopy(nil))
			return nil
		})
		if err != nil {
			return err
		}
	}

	wb := g.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("clearing space %q: %w", space, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("clearing space %q: %w", space, err)
	}
	g.backend.logger.Debug("space cleared", "space", space, "keys", len(keys))
	return nil
}

// CountChunks returns the number of chunk nodes in space.
func (g *GraphStore) CountChunks(ctx context.Context, space string) (int64, error) {
	return g.count(ctx, space, chunkPrefix)
}

// CountConcepts returns the number of concepts in space.
func (g *GraphStore) CountConcepts(ctx context.Context, space string) (int64, error) {
	return g.count(ctx, space, conceptPrefix)
}

// CountRelationships returns the number of RELATED_TO edges in space.
func (g *GraphStore) CountRelationships(ctx context.Context, space string) (int64, error) {
	return g.count(ctx, space, edgePrefix)
}

func (g *GraphStore) count(ctx context.Context, space, prefix string) (int64, error) {
	if err := core.ValidateSpace(space); err != nil {
		return 0, err
	}
	if err := g.Ping(ctx); err != nil {
		return 0, err
	}
	var n int64
	err := g.scan(makeSpacePrefix(prefix, space), false, func(*badger.Item) error {
		n++
		return nil
	})
	return n, err
}

func (g *GraphStore) scanChunks(ctx context.Context, space string, fn func(*core.Chunk)) error {
	if err := g.Ping(ctx); err != nil {
		return err
	}
	return g.scan(makeSpacePrefix(chunkPrefix, space), true, func(item *badger.Item) error {
		return item.Value(func(val []byte) error {
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			fn(chunk)
			return nil
		})
	})
}

// scan iterates all keys under prefix in key order.
func (g *GraphStore) scan(prefix []byte, values bool, fn func(*badger.Item) error) error {
	return g.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = values
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := fn(iter.Item()); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

func validate(space, name string) error {
	if err := core.ValidateSpace(space); err != nil {
		return err
	}
	return core.ValidateConceptName(name)
}

func exists(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func hasPrefix(tx *badger.Txn, prefix []byte) bool {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()
	iter.Rewind()
	return iter.Valid()
}
