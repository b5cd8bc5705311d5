package storage

import (
	"testing"
	"time"

	"github.com/poiesic/graphrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalChunk(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name  string
		chunk *core.Chunk
	}{
		{
			name: "full chunk",
			chunk: &core.Chunk{
				ChunkID:   core.ChunkID("bio", "cells divide"),
				Space:     "bio",
				Text:      "cells divide",
				Embedding: []float32{0.1, -0.2, 0.3},
				Seq:       42,
				CreatedAt: now,
			},
		},
		{
			name: "unicode text and large seq",
			chunk: &core.Chunk{
				ChunkID:   core.ID(18446744073709551615),
				Space:     "空間",
				Text:      "différentielle ∂x",
				Embedding: []float32{1},
				Seq:       1 << 60,
				CreatedAt: now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalChunk(tt.chunk)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalChunk(data)
			require.NoError(t, err)
			assert.Equal(t, tt.chunk, decoded)
		})
	}
}

func TestMarshalUnmarshalConcept(t *testing.T) {
	concept := &core.Concept{
		Name:      "krebs cycle",
		Space:     "bio",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	decoded, err := UnmarshalConcept(MarshalConcept(concept))
	require.NoError(t, err)
	assert.Equal(t, concept, decoded)
}

func TestMarshalUnmarshalStrength(t *testing.T) {
	for _, s := range []int64{0, 1, 7, 1 << 40} {
		got, err := UnmarshalStrength(MarshalStrength(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	chunk := &core.Chunk{Space: "s", Text: "some text", Embedding: []float32{1, 2, 3}}
	good := MarshalChunk(chunk)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty data", []byte{}, ErrSerializationFailed},
		{"unknown version", append([]byte{9}, good[1:]...), ErrUnknownFormat},
		{"truncated", good[:len(good)-5], ErrSerializationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalChunk(tt.data)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := UnmarshalConcept(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
