package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/graphrag/ai"
	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/lexical"
	"github.com/poiesic/graphrag/storage"
)

// Defaults for Retriever.
const (
	DefaultTopK          = 5
	DefaultMaxCandidates = 2 * DefaultTopK
)

// Source identifies where a candidate came from.
type Source int

const (
	SourceLexical Source = iota
	SourceVector
)

func (s Source) String() string {
	if s == SourceLexical {
		return "lexical"
	}
	return "vector"
}

// Candidate is one retrieved chunk text.
type Candidate struct {
	Text   string
	Source Source
	Score  float64
}

// Retrieval is the merged candidate list of one query.
type Retrieval struct {
	Candidates []Candidate
	// Status is degraded when vector search failed. The lexical source
	// cannot fail, so a retrieval is never failed.
	Status core.Status
	// Err joins the source failures, if any.
	Err error
}

// Texts returns the candidate texts in order.
func (r *Retrieval) Texts() []string {
	texts := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		texts[i] = c.Text
	}
	return texts
}

// Empty reports whether nothing was retrieved.
func (r *Retrieval) Empty() bool {
	return len(r.Candidates) == 0
}

// Retriever performs hybrid lexical and vector retrieval scoped to a space.
type Retriever struct {
	store         storage.GraphStore
	lexical       *lexical.Store
	embedder      ai.Embedder
	topK          int
	maxCandidates int
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithTopK sets the number of hits taken from each source.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(r *Retriever) error {
		if k <= 0 {
			return ErrInvalidTopK
		}
		r.topK = k
		return nil
	}
}

// WithMaxCandidates caps the merged candidate list.
// Default is DefaultMaxCandidates.
func WithMaxCandidates(n int) Option {
	return func(r *Retriever) error {
		if n <= 0 {
			return ErrInvalidTopK
		}
		r.maxCandidates = n
		return nil
	}
}

// WithMinSimilarity sets the cosine similarity a vector hit must exceed.
// Default is 0.
func WithMinSimilarity(min float32) Option {
	return func(r *Retriever) error {
		r.minSimilarity = min
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(store storage.GraphStore, lex *lexical.Store, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, ErrGraphStoreRequired
	}
	if lex == nil {
		return nil, ErrLexicalStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		store:         store,
		lexical:       lex,
		embedder:      embedder,
		topK:          DefaultTopK,
		maxCandidates: DefaultMaxCandidates,
		logger:        slog.Default().With("component", "search"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// TopK returns the per-source hit limit.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns the merged candidates for query in space.
// Only invalid input is an error; source failures are reported in the Retrieval.
func (r *Retriever) Retrieve(ctx context.Context, query, space string) (*Retrieval, error) {
	return r.RetrieveWithMonitor(ctx, query, space, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query, space string, monitor RetrievalMonitor) (*Retrieval, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrEmptyQuery
	}
	if err := core.ValidateSpace(space); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query, space)

	// 1. Lexical search
	lexHits := r.lexical.Search(space, query, r.topK)
	monitor.AfterLexicalSearch(lexHits)

	// 2. Vector search
	vecHits, vecErr := r.vectorSearch(ctx, query, space)
	if vecErr != nil {
		r.logger.Warn("vector retrieval failed", "space", space, "err", vecErr)
		monitor.SourceFailed(SourceVector, vecErr)
	}
	monitor.AfterVectorSearch(vecHits)

	// 3. Merge lexical first, dedupe by text, cap
	result := &Retrieval{Status: core.StatusOK}
	seen := make(map[string]struct{}, len(lexHits)+len(vecHits))
	add := func(text string, source Source, score float64) {
		if _, dup := seen[text]; dup {
			monitor.Duplicate(text, source)
			return
		}
		if len(result.Candidates) >= r.maxCandidates {
			return
		}
		seen[text] = struct{}{}
		result.Candidates = append(result.Candidates, Candidate{Text: text, Source: source, Score: score})
	}
	for _, hit := range lexHits {
		add(hit.Text, SourceLexical, hit.Score)
	}
	for _, hit := range vecHits {
		add(hit.Chunk.Text, SourceVector, float64(hit.Score))
	}

	if vecErr != nil {
		result.Status = core.StatusDegraded
		result.Err = fmt.Errorf("%s: %w", SourceVector, vecErr)
	}

	r.logger.Debug("retrieved candidates",
		"space", space,
		"lexical", len(lexHits),
		"vector", len(vecHits),
		"candidates", len(result.Candidates))
	monitor.Finish(result)
	return result, nil
}

func (r *Retriever) vectorSearch(ctx context.Context, query, space string) ([]*core.ScoredChunk, error) {
	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	matches, err := r.store.VectorSearch(ctx, space, embedding, r.topK)
	if err != nil {
		return nil, err
	}

	hits := make([]*core.ScoredChunk, 0, len(matches))
	for _, m := range matches {
		if m.Chunk.Space != space {
			return nil, errors.New("vector search returned a chunk from another space")
		}
		if m.Score > r.minSimilarity {
			hits = append(hits, m)
		}
	}
	return hits, nil
}
