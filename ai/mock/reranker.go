package mock

import (
	"context"
	"strings"
	"sync"
)

// MockReranker is a test double for ai.Reranker.
type MockReranker struct {
	// ScoreFunc is called by Score if set.
	// If nil, each document scores the number of query terms it contains.
	ScoreFunc func(ctx context.Context, query string, docs []string) ([]float32, error)

	mu        sync.Mutex
	callCount int
}

// NewMockReranker creates a reranker with term-overlap scoring.
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

// Score returns one score per document.
func (m *MockReranker) Score(ctx context.Context, query string, docs []string) ([]float32, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, query, docs)
	}

	terms := strings.Fields(strings.ToLower(query))
	scores := make([]float32, len(docs))
	for i, doc := range docs {
		lower := strings.ToLower(doc)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				scores[i]++
			}
		}
	}
	return scores, nil
}

// CallCount returns the number of Score calls.
func (m *MockReranker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
