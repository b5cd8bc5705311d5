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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/graphrag/core"
)

// formatV1 prefixes every encoded record.
const formatV1 byte = 1

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	size := 1 +
		varint.Uint64.Size(uint64(chunk.ChunkID)) +
		ord.String.Size(chunk.Space) +
		ord.String.Size(chunk.Text) +
		vectorSize(chunk.Embedding) +
		varint.Uint64.Size(chunk.Seq) +
		varint.Int64.Size(chunk.CreatedAt.UnixMicro())

	buf := make([]byte, size)
	buf[0] = formatV1
	n := 1
	n += varint.Uint64.Marshal(uint64(chunk.ChunkID), buf[n:])
	n += ord.String.Marshal(chunk.Space, buf[n:])
	n += ord.String.Marshal(chunk.Text, buf[n:])
	n += marshalVector(chunk.Embedding, buf[n:])
	n += varint.Uint64.Marshal(chunk.Seq, buf[n:])
	varint.Int64.Marshal(chunk.CreatedAt.UnixMicro(), buf[n:])
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	d, err := newDecoder(data)
	if err != nil {
		return nil, err
	}

	chunk := &core.Chunk{
		ChunkID:   core.ID(d.readUint64()),
		Space:     d.readString(),
		Text:      d.readString(),
		Embedding: d.readVector(),
		Seq:       d.readUint64(),
	}
	chunk.CreatedAt = d.readTime()
	if d.err != nil {
		return nil, fmt.Errorf("%w: chunk: %w", ErrSerializationFailed, d.err)
	}
	return chunk, nil
}

// MarshalConcept serializes a Concept to bytes.
func MarshalConcept(concept *core.Concept) []byte {
	size := 1 +
		ord.String.Size(concept.Name) +
		ord.String.Size(concept.Space) +
		varint.Int64.Size(concept.CreatedAt.UnixMicro())

	buf := make([]byte, size)
	buf[0] = formatV1
	n := 1
	n += ord.String.Marshal(concept.Name, buf[n:])
	n += ord.String.Marshal(concept.Space, buf[n:])
	varint.Int64.Marshal(concept.CreatedAt.UnixMicro(), buf[n:])
	return buf
}

// UnmarshalConcept deserializes a Concept from bytes.
func UnmarshalConcept(data []byte) (*core.Concept, error) {
	d, err := newDecoder(data)
	if err != nil {
		return nil, err
	}

	concept := &core.Concept{
		Name:  d.readString(),
		Space: d.readString(),
	}
	concept.CreatedAt = d.readTime()
	if d.err != nil {
		return nil, fmt.Errorf("%w: concept: %w", ErrSerializationFailed, d.err)
	}
	return concept, nil
}

// MarshalStrength serializes an edge strength counter.
func MarshalStrength(strength int64) []byte {
	buf := make([]byte, varint.Int64.Size(strength))
	varint.Int64.Marshal(strength, buf)
	return buf
}

// UnmarshalStrength deserializes an edge strength counter.
func UnmarshalStrength(data []byte) (int64, error) {
	strength, _, err := varint.Int64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: strength: %w", ErrSerializationFailed, err)
	}
	return strength, nil
}

func vectorSize(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func marshalVector(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

// decoder reads fields in order and keeps the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func newDecoder(data []byte) (*decoder, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrSerializationFailed)
	}
	if data[0] != formatV1 {
		return nil, fmt.Errorf("%w: version %d", ErrUnknownFormat, data[0])
	}
	return &decoder{bs: data, n: 1}, nil
}

func (d *decoder) readUint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) readString() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) readTime() time.Time {
	if d.err != nil {
		return time.Time{}
	}
	v, n, err := varint.Int64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return time.UnixMicro(v).UTC()
}

func (d *decoder) readVector() []float32 {
	if d.err != nil {
		return nil
	}
	length, n, err := varint.Int.Unmarshal(d.bs[d.n:])
	d.n += n
	if err != nil {
		d.err = err
		return nil
	}
	if length < 0 || length > len(d.bs)-d.n {
		d.err = ErrSerializationFailed
		return nil
	}
	v := make([]float32, length)
	for i := range v {
		f, n, err := raw.Float32.Unmarshal(d.bs[d.n:])
		d.n += n
		if err != nil {
			d.err = err
			return nil
		}
		v[i] = f
	}
	return v
}
