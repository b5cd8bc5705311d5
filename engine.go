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


package graphrag

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/graphrag/ai"
	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/ingestion"
	"github.com/poiesic/graphrag/lexical"
	"github.com/poiesic/graphrag/metrics"
	"github.com/poiesic/graphrag/reembed"
	"github.com/poiesic/graphrag/search"
	"github.com/poiesic/graphrag/storage"
)

// Engine answers questions over space-scoped document collections.
// Writes to one space must be serialized by the caller, for example with a
// jobs.Scheduler. Reads may run concurrently with each other and with writes.
type Engine struct {
	store     storage.GraphStore
	lexical   *lexical.Store
	retriever *search.Retriever
	pipeline  *ingestion.Pipeline
	embedder  ai.Embedder
	reranker  ai.Reranker
	completer ai.Completer
	metrics   *metrics.Collector
	logger    *slog.Logger

	retrieverOpts []search.Option
	pipelineOpts  []ingestion.Option
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLexicalStore shares a lexical store with other components.
// Default is a new, empty lexical.Store.
func WithLexicalStore(lex *lexical.Store) Option {
	return func(e *Engine) error {
		if lex == nil {
			return ErrLexicalStoreRequired
		}
		e.lexical = lex
		return nil
	}
}

// WithReranker sets the cross-encoder. Without one, answers use retrieval order.
func WithReranker(r ai.Reranker) Option {
	return func(e *Engine) error {
		e.reranker = r
		return nil
	}
}

// WithCompleter sets the default language model for ingestion and answers.
// It can be overridden per call with UsingCompleter.
func WithCompleter(c ai.Completer) Option {
	return func(e *Engine) error {
		e.completer = c
		return nil
	}
}

// WithMetrics records engine activity on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) error {
		e.metrics = c
		return nil
	}
}

// WithRetrieverOptions passes options to the hybrid retriever.
func WithRetrieverOptions(opts ...search.Option) Option {
	return func(e *Engine) error {
		e.retrieverOpts = append(e.retrieverOpts, opts...)
		return nil
	}
}

// WithPipelineOptions passes options to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) Option {
	return func(e *Engine) error {
		e.pipelineOpts = append(e.pipelineOpts, opts...)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates an Engine over store. embedder embeds both chunks and queries.
func NewEngine(store storage.GraphStore, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrGraphStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		store:    store,
		embedder: embedder,
		lexical:  lexical.NewStore(),
		logger:   slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	retriever, err := search.NewRetriever(store, e.lexical, embedder, e.retrieverOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating retriever: %w", err)
	}
	pipeline, err := ingestion.NewPipeline(store, e.lexical, embedder, e.pipelineOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating ingestion pipeline: %w", err)
	}

	e.retriever = retriever
	e.pipeline = pipeline
	return e, nil
}

// CallOption adjusts a single Ingest, RemoveFile or Ask call.
type CallOption func(*callOptions)

type callOptions struct {
	completer ai.Completer
	monitor   ingestion.Monitor
}

// UsingCompleter overrides the engine's language model for one call.
func UsingCompleter(c ai.Completer) CallOption {
	return func(o *callOptions) {
		o.completer = c
	}
}

// WithMonitor observes the ingestion run of one call.
func WithMonitor(m ingestion.Monitor) CallOption {
	return func(o *callOptions) {
		o.monitor = m
	}
}

func (e *Engine) callOptions(opts []CallOption) *callOptions {
	o := &callOptions{completer: e.completer}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ingest adds files to space. ModeFull replaces the space's content,
// ModeIncremental appends to it.
func (e *Engine) Ingest(ctx context.Context, space string, files []string, mode ingestion.Mode, opts ...CallOption) *ingestion.Result {
	if err := core.ValidateSpace(space); err != nil {
		return &ingestion.Result{Space: space, Mode: mode, Files: len(files), Status: core.StatusFailed, Err: err}
	}
	o := e.callOptions(opts)
	res := e.pipeline.Run(ctx, space, files, mode, o.completer, o.monitor)
	e.observeIngest(res)
	return res
}

// RemoveFile rebuilds space from files without removed. Concept and edge
// strengths cannot be subtracted per file, so the remaining files are fully
// re-ingested, or the space is cleared when none remain.
func (e *Engine) RemoveFile(ctx context.Context, space, removed string, files []string, opts ...CallOption) *ingestion.Result {
	remaining := slices.DeleteFunc(slices.Clone(files), func(f string) bool { return f == removed })
	if len(remaining) > 0 {
		return e.Ingest(ctx, space, remaining, ingestion.ModeFull, opts...)
	}

	started := time.Now()
	res := &ingestion.Result{Space: space, Mode: ingestion.ModeFull, Status: core.StatusOK}
	if err := e.ClearSpace(ctx, space); err != nil {
		res.Status = core.StatusFailed
		res.Err = err
	}
	res.Duration = time.Since(started)
	e.observeIngest(res)
	return res
}

// Retrieve returns the hybrid candidates for query in space.
func (e *Engine) Retrieve(ctx context.Context, space, query string) (*search.Retrieval, error) {
	r, err := e.retriever.Retrieve(ctx, query, space)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.ObserveRetrieval(r)
	}
	return r, nil
}

// ClearSpace deletes the space's graph content and drops its lexical index.
func (e *Engine) ClearSpace(ctx context.Context, space string) error {
	if err := core.ValidateSpace(space); err != nil {
		return err
	}
	if err := e.store.ClearSpace(ctx, space); err != nil {
		e.logger.Error("error clearing space", "space", space, "err", err)
		return fmt.Errorf("clearing space %q: %w", space, err)
	}
	e.lexical.Drop(space)
	e.logger.Info("cleared space", "space", space)
	return nil
}

// Stats counts the space's chunks, concepts and relationships.
func (e *Engine) Stats(ctx context.Context, space string) (core.Stats, error) {
	if err := core.ValidateSpace(space); err != nil {
		return core.Stats{}, err
	}

	stats := core.Stats{Space: space}
	var err error
	if stats.Chunks, err = e.store.CountChunks(ctx, space); err != nil {
		return core.Stats{}, fmt.Errorf("counting chunks: %w", err)
	}
	if stats.Concepts, err = e.store.CountConcepts(ctx, space); err != nil {
		return core.Stats{}, fmt.Errorf("counting concepts: %w", err)
	}
	if stats.Relationships, err = e.store.CountRelationships(ctx, space); err != nil {
		return core.Stats{}, fmt.Errorf("counting relationships: %w", err)
	}
	return stats, nil
}

// Warm rebuilds the space's lexical index from the chunks already in the
// graph store. A process opening a persistent store calls it before serving
// a space. It returns the number of indexed chunks.
func (e *Engine) Warm(ctx context.Context, space string) (int, error) {
	if err := core.ValidateSpace(space); err != nil {
		return 0, err
	}
	chunks, err := e.store.ListChunks(ctx, space)
	if err != nil {
		return 0, fmt.Errorf("listing chunks: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	e.lexical.Replace(space, texts)
	e.logger.Debug("warmed lexical index", "space", space, "chunks", len(texts))
	return len(texts), nil
}

// Reembed replaces the embeddings of every chunk of space using the engine's
// embedder. Like ingestion it writes to space, so callers serialize it with
// other writes to the same space. monitor may be nil.
func (e *Engine) Reembed(ctx context.Context, space string, monitor reembed.Monitor, opts ...reembed.Option) (*reembed.Result, error) {
	r, err := reembed.NewReembedder(e.store, e.embedder, opts...)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, space, monitor)
}

// Health reports whether the graph store is reachable.
func (e *Engine) Health(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// Spaces lists the spaces with a loaded lexical index.
func (e *Engine) Spaces() []string {
	return e.lexical.Spaces()
}

func (e *Engine) observeIngest(res *ingestion.Result) {
	if e.metrics != nil {
		e.metrics.ObserveIngest(res)
	}
}
