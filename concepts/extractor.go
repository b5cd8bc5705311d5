// Package concepts extracts concept graphs from chunk text with a language model.
package concepts

import (
	"context"
	"log/slog"

	"github.com/poiesic/graphrag/ai"
	"github.com/poiesic/graphrag/core"
)

// Extractor produces a concept fragment per chunk with one completion call.
// Extraction never fails: errors degrade to the empty fragment so that
// concept extraction can never block chunk and embedding storage.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		logger: slog.Default().With("component", "concept-extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is a fragment plus whether extraction degraded to empty because of a failure.
type Result struct {
	Fragment core.Fragment
	Degraded bool
}

// Extract asks llm for the concepts and prerequisite edges in text.
func (e *Extractor) Extract(ctx context.Context, text string, llm ai.Completer) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("concept extraction panicked", "panic", r)
			res = Result{Degraded: true}
		}
	}()

	if llm == nil {
		e.logger.Warn("no completer configured, skipping concept extraction")
		return Result{Degraded: true}
	}

	reply, err := llm.Complete(ctx, buildPrompt(text))
	if err != nil {
		e.logger.Warn("concept extraction call failed", "err", err)
		return Result{Degraded: true}
	}

	frag := Parse(reply)
	if frag.IsEmpty() {
		e.logger.Debug("concept extraction produced an empty fragment", "reply_length", len(reply))
	}
	return Result{Fragment: frag}
}
