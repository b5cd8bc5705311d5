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


package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/poiesic/graphrag/ai"
	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/storage"
)

// Monitor observes a reembedding run.
type Monitor interface {
	Reembedded(done, total int)
}

// Result summarizes a reembedding run.
type Result struct {
	Space    string
	Chunks   int
	Duration time.Duration
}

// Reembedder recomputes the embeddings of stored chunks.
type Reembedder struct {
	store     storage.GraphStore
	embedder  ai.Embedder
	batchSize int
	logger    *slog.Logger
}

// Option configures a Reembedder.
type Option func(*Reembedder)

// WithBatchSize sets how many chunks are embedded per request.
// Default is DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(r *Reembedder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReembedder creates a reembedder writing to store.
func NewReembedder(store storage.GraphStore, embedder ai.Embedder, opts ...Option) (*Reembedder, error) {
	if store == nil {
		return nil, ErrGraphStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Reembedder{
		store:     store,
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		logger:    slog.Default().With("component", "reembed"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run re-embeds every chunk of space in insertion order. Chunks of a batch
// that was written before an error keep their new embeddings.
// monitor may be nil.
func (r *Reembedder) Run(ctx context.Context, space string, monitor Monitor) (*Result, error) {
	if err := core.ValidateSpace(space); err != nil {
		return nil, err
	}
	start := time.Now()

	chunks, err := r.store.ListChunks(ctx, space)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	res := &Result{Space: space}
	if len(chunks) == 0 {
		r.logger.Info("no chunks to reembed", "space", space)
		return res, nil
	}

	r.logger.Info("reembedding chunks", "space", space, "chunks", len(chunks), "batch_size", r.batchSize)

	err = forEachBatch(ctx, chunks, r.batchSize, func(batch []*core.Chunk) error {
		if err := r.process(ctx, space, batch); err != nil {
			return err
		}
		res.Chunks += len(batch)
		if monitor != nil {
			monitor.Reembedded(res.Chunks, len(chunks))
		}
		return nil
	})
	res.Duration = time.Since(start)
	if err != nil {
		r.logger.Error("reembedding failed", "space", space, "done", res.Chunks, "err", err)
		return res, err
	}

	r.logger.Info("reembedding complete", "space", space, "chunks", res.Chunks, "duration", res.Duration)
	return res, nil
}

// process embeds one batch and writes the normalized vectors back.
func (r *Reembedder) process(ctx context.Context, space string, batch []*core.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}

	embeddings, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingCount, len(batch), len(embeddings))
	}

	for i, chunk := range batch {
		if err := r.store.UpdateEmbedding(ctx, space, chunk.Seq, normalize(embeddings[i])); err != nil {
			return fmt.Errorf("updating chunk %d: %w", chunk.Seq, err)
		}
	}
	return nil
}

// normalize scales v to unit length. Zero and empty vectors are returned as is.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	magnitude := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / magnitude
	}
	return out
}
