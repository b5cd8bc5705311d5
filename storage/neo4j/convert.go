package neo4j

import (
	"fmt"
	"strconv"
	"time"

	neo4jdrv "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/storage"
)

// toList converts an embedding to the list type Bolt transports.
func toList(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

// fromList converts a Bolt list back to an embedding.
func fromList(v any) ([]float32, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []float64:
		out := make([]float32, len(list))
		for i, f := range list {
			out[i] = float32(f)
		}
		return out, nil
	case []any:
		out := make([]float32, len(list))
		for i, item := range list {
			switch f := item.(type) {
			case float64:
				out[i] = float32(f)
			case int64:
				out[i] = float32(f)
			default:
				return nil, fmt.Errorf("%w: embedding element %T", storage.ErrSerializationFailed, item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: embedding %T", storage.ErrSerializationFailed, v)
	}
}

func parseChunkID(s string) (core.ID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: chunk id %q: %w", storage.ErrSerializationFailed, s, err)
	}
	return core.ID(v), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v any) time.Time {
	s, _ := v.(string)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// value fetches a typed column from a record.
func value[T any](record *neo4jdrv.Record, key string) (T, error) {
	var zero T
	raw, ok := record.Get(key)
	if !ok {
		return zero, fmt.Errorf("%w: missing column %q", storage.ErrSerializationFailed, key)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: column %q is %T", storage.ErrSerializationFailed, key, raw)
	}
	return v, nil
}

// chunkFromProps builds a Chunk from the property map of a Chunk node.
func chunkFromProps(props map[string]any) (*core.Chunk, error) {
	idHex, _ := props["chunk_id"].(string)
	id, err := parseChunkID(idHex)
	if err != nil {
		return nil, err
	}
	embedding, err := fromList(props["embedding"])
	if err != nil {
		return nil, err
	}
	space, _ := props["space"].(string)
	text, _ := props["text"].(string)
	seq, _ := props["seq"].(int64)
	return &core.Chunk{
		ChunkID:   id,
		Space:     space,
		Text:      text,
		Embedding: embedding,
		Seq:       uint64(seq),
		CreatedAt: parseTime(props["created_at"]),
	}, nil
}

func chunkFromRecord(record *neo4jdrv.Record, key string) (*core.Chunk, error) {
	node, err := value[neo4jdrv.Node](record, key)
	if err != nil {
		return nil, err
	}
	return chunkFromProps(node.Props)
}
