package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/graphrag/ai"
	"github.com/poiesic/graphrag/core"
)

// Rerank scores every candidate against query and returns the best k, best
// first. When the reranker is missing or fails, the first k candidates are
// returned in their original order with StatusDegraded.
func Rerank(ctx context.Context, reranker ai.Reranker, query string, candidates []string, k int) ([]string, core.Status) {
	if len(candidates) == 0 || k <= 0 {
		return nil, core.StatusOK
	}
	logger := slog.Default().With("component", "search")

	if reranker == nil {
		logger.Warn("no reranker configured, keeping retrieval order")
		return fallback(candidates, k), core.StatusDegraded
	}

	scores, err := reranker.Score(ctx, query, candidates)
	if err == nil && len(scores) != len(candidates) {
		err = fmt.Errorf("%w: got %d for %d candidates", ErrScoreCount, len(scores), len(candidates))
	}
	if err != nil {
		logger.Warn("reranking failed, keeping retrieval order", "err", err)
		return fallback(candidates, k), core.StatusDegraded
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		default:
			return 0
		}
	})

	ranked := make([]string, 0, min(k, len(order)))
	for _, i := range order[:min(k, len(order))] {
		ranked = append(ranked, candidates[i])
	}
	return ranked, core.StatusOK
}

func fallback(candidates []string, k int) []string {
	return slices.Clone(candidates[:min(k, len(candidates))])
}
