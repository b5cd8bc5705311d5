package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/poiesic/graphrag/ai"
	"github.com/poiesic/graphrag/chunker"
	"github.com/poiesic/graphrag/concepts"
	"github.com/poiesic/graphrag/extract"
	"github.com/poiesic/graphrag/lexical"
	"github.com/poiesic/graphrag/storage"
)

// Pipeline orchestrates the ingestion of files into a space.
type Pipeline struct {
	store          storage.GraphStore
	lexical        *lexical.Store
	embedder       ai.Embedder
	text           *extract.Extractor
	chunker        *chunker.Chunker
	concepts       *concepts.Extractor
	extractWorkers int
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithExtractWorkers sets how many files are read concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithExtractWorkers(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = 1
		}
		p.extractWorkers = n
		return nil
	}
}

// WithChunker sets the chunker. Default is chunker.Default().
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.chunker = c
		}
		return nil
	}
}

// WithTextExtractor sets the file-to-text extractor. Default is extract.New().
func WithTextExtractor(e *extract.Extractor) Option {
	return func(p *Pipeline) error {
		if e != nil {
			p.text = e
		}
		return nil
	}
}

// WithConceptExtractor sets the concept extractor. Default is concepts.NewExtractor().
func WithConceptExtractor(e *concepts.Extractor) Option {
	return func(p *Pipeline) error {
		if e != nil {
			p.concepts = e
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.GraphStore, lex *lexical.Store, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrGraphStoreRequired
	}
	if lex == nil {
		return nil, ErrLexicalStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		store:          store,
		lexical:        lex,
		embedder:       embedder,
		text:           extract.New(),
		chunker:        chunker.Default(),
		concepts:       concepts.NewExtractor(),
		extractWorkers: max(runtime.NumCPU()/2, 1),
		logger:         slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Run dispatches on mode.
func (p *Pipeline) Run(ctx context.Context, space string, files []string, mode Mode, llm ai.Completer, monitor Monitor) *Result {
	if mode == ModeIncremental {
		return p.Incremental(ctx, space, files, llm, monitor)
	}
	return p.Full(ctx, space, files, llm, monitor)
}

// Full clears the space and rebuilds it from files. The lexical index is
// replaced with the stored chunks, or dropped when nothing could be stored.
func (p *Pipeline) Full(ctx context.Context, space string, files []string, llm ai.Completer, monitor Monitor) *Result {
	res, monitor := p.begin(space, ModeFull, files, monitor)
	defer p.finish(res, monitor, time.Now())

	if err := p.store.ClearSpace(ctx, space); err != nil {
		p.logger.Error("error clearing space", "space", space, "err", err)
		res.fail(fmt.Errorf("clearing space: %w", err))
		return res
	}

	chunks := p.collectChunks(ctx, files, res, monitor)
	if len(chunks) == 0 {
		p.logger.Error("no chunks extracted from files", "space", space, "files", len(files))
		p.lexical.Drop(space)
		res.degrade()
		res.Err = ErrNoChunks
		return res
	}

	embeddings, err := p.embed(ctx, chunks)
	if err != nil {
		p.logger.Error("error generating embeddings", "space", space, "err", err)
		p.lexical.Drop(space)
		res.fail(err)
		return res
	}
	monitor.Embedded(len(embeddings))

	stored := p.storeChunks(ctx, space, chunks, embeddings, llm, res, monitor)
	p.lexical.Replace(space, stored)
	return res
}

// Incremental adds files to the space without clearing it, then extends the
// space's lexical index with the stored chunks. A space without an index in
// memory is first indexed from the chunks already in the store.
func (p *Pipeline) Incremental(ctx context.Context, space string, files []string, llm ai.Completer, monitor Monitor) *Result {
	res, monitor := p.begin(space, ModeIncremental, files, monitor)
	defer p.finish(res, monitor, time.Now())

	if !p.lexical.Has(space) {
		if err := p.loadLexical(ctx, space); err != nil {
			p.logger.Error("error loading lexical index", "space", space, "err", err)
			res.fail(fmt.Errorf("loading lexical index: %w", err))
			return res
		}
	}

	chunks := p.collectChunks(ctx, files, res, monitor)
	if len(chunks) == 0 {
		p.logger.Warn("no chunks extracted from files", "space", space, "files", len(files))
		res.degrade()
		res.Err = ErrNoChunks
		return res
	}

	embeddings, err := p.embed(ctx, chunks)
	if err != nil {
		p.logger.Error("error generating embeddings", "space", space, "err", err)
		res.fail(err)
		return res
	}
	monitor.Embedded(len(embeddings))

	stored := p.storeChunks(ctx, space, chunks, embeddings, llm, res, monitor)
	p.lexical.Append(space, stored)
	return res
}

// loadLexical indexes the chunks space already holds in the store.
func (p *Pipeline) loadLexical(ctx context.Context, space string) error {
	stored, err := p.store.ListChunks(ctx, space)
	if err != nil {
		return err
	}
	texts := make([]string, len(stored))
	for i, c := range stored {
		texts[i] = c.Text
	}
	p.lexical.Replace(space, texts)
	return nil
}

func (p *Pipeline) begin(space string, mode Mode, files []string, monitor Monitor) (*Result, Monitor) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	p.logger.Info("ingesting files", "space", space, "mode", mode, "files", len(files))
	monitor.Start(space, mode, len(files))
	return &Result{Space: space, Mode: mode, Files: len(files)}, monitor
}

func (p *Pipeline) finish(res *Result, monitor Monitor, started time.Time) {
	res.Duration = time.Since(started)
	p.logger.Info("ingestion finished",
		"space", res.Space,
		"mode", res.Mode,
		"status", res.Status,
		"chunks", res.Chunks,
		"files_skipped", res.FilesSkipped,
		"chunk_failures", res.ChunkFailures,
		"concept_failures", res.ConceptFailures,
		"duration", res.Duration)
	monitor.Finish(res)
}

func (p *Pipeline) embed(ctx context.Context, chunks []string) ([][]float32, error) {
	p.logger.Debug("generating embeddings", "chunks", len(chunks))
	embeddings, err := p.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingCount, len(chunks), len(embeddings))
	}
	return embeddings, nil
}

// joinErr appends err to the result's error list.
func joinErr(res *Result, err error) {
	res.Err = errors.Join(res.Err, err)
}
