package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/storage"
)

// InsertChunk creates a Chunk node. Seq continues from the space's highest;
// callers serialize writes per space.
func (s *GraphStore) InsertChunk(ctx context.Context, chunk *core.Chunk) (*core.Chunk, error) {
	if err := core.ValidateChunk(chunk); err != nil {
		return nil, err
	}

	stored := *chunk
	if stored.ChunkID == 0 {
		stored.ChunkID = core.ChunkID(stored.Space, stored.Text)
	}
	stored.CreatedAt = time.Now().UTC()

	records, err := s.write(ctx, `
OPTIONAL MATCH (prev:Chunk {space: $space})
WITH coalesce(max(prev.seq), 0) AS last
CREATE (c:Chunk {space: $space, chunk_id: $chunk_id, text: $text, embedding: $embedding, seq: last + 1, created_at: $created_at})
RETURN c.seq AS seq
`, map[string]any{
		"space":      stored.Space,
		"chunk_id":   stored.ChunkID.String(),
		"text":       stored.Text,
		"embedding":  toList(stored.Embedding),
		"created_at": formatTime(stored.CreatedAt),
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 1 {
		seq, err := value[int64](records[0], "seq")
		if err != nil {
			return nil, err
		}
		stored.Seq = uint64(seq)
	}
	return &stored, nil
}

// UpdateEmbedding sets the embedding of the chunk node with seq.
func (s *GraphStore) UpdateEmbedding(ctx context.Context, space string, seq uint64, embedding []float32) error {
	if err := core.ValidateSpace(space); err != nil {
		return err
	}
	if len(embedding) == 0 {
		return core.ErrInvalidChunk
	}
	records, err := s.write(ctx, `
MATCH (c:Chunk {space: $space, seq: $seq})
SET c.embedding = $embedding
RETURN count(c) AS n
`, map[string]any{"space": space, "seq": int64(seq), "embedding": toList(embedding)})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: chunk %d in space %q", storage.ErrNotFound, seq, space)
	}
	n, err := value[int64](records[0], "n")
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: chunk %d in space %q", storage.ErrNotFound, seq, space)
	}
	return nil
}

// MergeConcept upserts the concept keyed by (space, name).
func (s *GraphStore) MergeConcept(ctx context.Context, space, name string) error {
	if err := validate(space, name); err != nil {
		return err
	}
	_, err := s.write(ctx, `
MERGE (c:Concept {space: $space, name: $name})
ON CREATE SET c.created_at = $now
`, map[string]any{"space": space, "name": name, "now": formatTime(time.Now())})
	return err
}

// MergeEdge creates or strengthens a RELATED_TO edge between existing concepts.
func (s *GraphStore) MergeEdge(ctx context.Context, space string, triple core.Triple) error {
	if err := core.ValidateSpace(space); err != nil {
		return err
	}
	if err := core.ValidateTriple(triple); err != nil {
		return err
	}
	records, err := s.write(ctx, `
MATCH (a:Concept {space: $space, name: $source})
MATCH (b:Concept {space: $space, name: $target})
MERGE (a)-[r:RELATED_TO {relation: $relation}]->(b)
ON CREATE SET r.strength = 1
ON MATCH SET r.strength = r.strength + 1
RETURN r.strength AS strength
`, map[string]any{
		"space":    space,
		"source":   triple.Source,
		"relation": triple.Relation,
		"target":   triple.Target,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: concepts of %q -> %q", storage.ErrNotFound, triple.Source, triple.Target)
	}
	return nil
}

// LinkConceptToChunk merges EXPLAINED_BY from the concept to every chunk node with chunkID.
func (s *GraphStore) LinkConceptToChunk(ctx context.Context, space, name string, chunkID core.ID) error {
	if err := validate(space, name); err != nil {
		return err
	}
	records, err := s.write(ctx, `
MATCH (c:Concept {space: $space, name: $name})
MATCH (ch:Chunk {space: $space, chunk_id: $chunk_id})
MERGE (c)-[:EXPLAINED_BY]->(ch)
RETURN count(ch) AS linked
`, map[string]any{"space": space, "name": name, "chunk_id": chunkID.String()})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: concept %q or chunk %s", storage.ErrNotFound, name, chunkID)
	}
	linked, err := value[int64](records[0], "linked")
	if err != nil {
		return err
	}
	if linked == 0 {
		return fmt.Errorf("%w: concept %q or chunk %s", storage.ErrNotFound, name, chunkID)
	}
	return nil
}

// VectorSearch ranks the space's chunks by cosine similarity to vector.
func (s *GraphStore) VectorSearch(ctx context.Context, space string, vector []float32, k int) ([]*core.ScoredChunk, error) {
	if err := core.ValidateSpace(space); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if k <= 0 {
		return nil, nil
	}

	records, err := s.read(ctx, `
MATCH (c:Chunk {space: $space})
WHERE size(c.embedding) = size($vector)
WITH c, vector.similarity.cosine(c.embedding, $vector) AS score
RETURN c, score
ORDER BY score DESC, c.seq ASC
LIMIT $k
`, map[string]any{"space": space, "vector": toList(vector), "k": int64(k)})
	if err != nil {
		return nil, err
	}

	results := make([]*core.ScoredChunk, 0, len(records))
	for _, record := range records {
		chunk, err := chunkFromRecord(record, "c")
		if err != nil {
			return nil, err
		}
		score, err := value[float64](record, "score")
		if err != nil {
			return nil, err
		}
		results = append(results, &core.ScoredChunk{Chunk: chunk, Score: float32(score)})
	}
	return results, nil
}

// ListChunks returns every chunk of space ordered by seq.
func (s *GraphStore) ListChunks(ctx context.Context, space string) ([]*core.Chunk, error) {
	if err := core.ValidateSpace(space); err != nil {
		return nil, err
	}
	records, err := s.read(ctx, `
MATCH (c:Chunk {space: $space})
RETURN c
ORDER BY c.seq ASC
`, map[string]any{"space": space})
	if err != nil {
		return nil, err
	}
	chunks := make([]*core.Chunk, 0, len(records))
	for _, record := range records {
		chunk, err := chunkFromRecord(record, "c")
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// ListConcepts returns every concept of space ordered by name.
func (s *GraphStore) ListConcepts(ctx context.Context, space string) ([]*core.Concept, error) {
	if err := core.ValidateSpace(space); err != nil {
		return nil, err
	}
	records, err := s.read(ctx, `
MATCH (c:Concept {space: $space})
RETURN c.name AS name, c.created_at AS created_at
ORDER BY c.name
`, map[string]any{"space": space})
	if err != nil {
		return nil, err
	}
	concepts := make([]*core.Concept, 0, len(records))
	for _, record := range records {
		name, err := value[string](record, "name")
		if err != nil {
			return nil, err
		}
		created, _ := record.Get("created_at")
		concepts = append(concepts, &core.Concept{Name: name, Space: space, CreatedAt: parseTime(created)})
	}
	return concepts, nil
}

// ListEdges returns every RELATED_TO edge of space.
func (s *GraphStore) ListEdges(ctx context.Context, space string) ([]*core.Edge, error) {
	if err := core.ValidateSpace(space); err != nil {
		return nil, err
	}
	records, err := s.read(ctx, `
MATCH (a:Concept {space: $space})-[r:RELATED_TO]->(b:Concept {space: $space})
RETURN a.name AS source, r.relation AS relation, b.name AS target, r.strength AS strength
ORDER BY source, relation, target
`, map[string]any{"space": space})
	if err != nil {
		return nil, err
	}
	edges := make([]*core.Edge, 0, len(records))
	for _, record := range records {
		edge := &core.Edge{Space: space}
		if edge.Source, err = value[string](record, "source"); err != nil {
			return nil, err
		}
		if edge.Relation, err = value[string](record, "relation"); err != nil {
			return nil, err
		}
		if edge.Target, err = value[string](record, "target"); err != nil {
			return nil, err
		}
		if edge.Strength, err = value[int64](record, "strength"); err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// ConceptChunks returns the distinct chunk IDs linked to a concept.
func (s *GraphStore) ConceptChunks(ctx context.Context, space, name string) ([]core.ID, error) {
	if err := validate(space, name); err != nil {
		return nil, err
	}
	records, err := s.read(ctx, `
MATCH (:Concept {space: $space, name: $name})-[:EXPLAINED_BY]->(ch:Chunk)
RETURN DISTINCT ch.chunk_id AS chunk_id
ORDER BY chunk_id
`, map[string]any{"space": space, "name": name})
	if err != nil {
		return nil, err
	}
	ids := make([]core.ID, 0, len(records))
	for _, record := range records {
		hex, err := value[string](record, "chunk_id")
		if err != nil {
			return nil, err
		}
		id, err := parseChunkID(hex)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ClearSpace detaches and deletes every Chunk and Concept node of space.
func (s *GraphStore) ClearSpace(ctx context.Context, space string) error {
	if err := core.ValidateSpace(space); err != nil {
		return err
	}
	_, err := s.write(ctx, `
MATCH (n)
WHERE (n:Chunk OR n:Concept) AND n.space = $space
DETACH DELETE n
`, map[string]any{"space": space})
	if err != nil {
		return fmt.Errorf("clearing space %q: %w", space, err)
	}
	return nil
}

// CountChunks returns the number of Chunk nodes in space.
func (s *GraphStore) CountChunks(ctx context.Context, space string) (int64, error) {
	return s.count(ctx, space, `MATCH (c:Chunk {space: $space}) RETURN count(c) AS n`)
}

// CountConcepts returns the number of Concept nodes in space.
func (s *GraphStore) CountConcepts(ctx context.Context, space string) (int64, error) {
	return s.count(ctx, space, `MATCH (c:Concept {space: $space}) RETURN count(c) AS n`)
}

// CountRelationships returns the number of RELATED_TO edges in space.
func (s *GraphStore) CountRelationships(ctx context.Context, space string) (int64, error) {
	return s.count(ctx, space, `MATCH (:Concept {space: $space})-[r:RELATED_TO]->(:Concept {space: $space}) RETURN count(r) AS n`)
}

func (s *GraphStore) count(ctx context.Context, space, cypher string) (int64, error) {
	if err := core.ValidateSpace(space); err != nil {
		return 0, err
	}
	records, err := s.read(ctx, cypher, map[string]any{"space": space})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return value[int64](records[0], "n")
}

func validate(space, name string) error {
	if err := core.ValidateSpace(space); err != nil {
		return err
	}
	return core.ValidateConceptName(name)
}
