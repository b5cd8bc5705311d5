// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Completer,
// ai.Reranker, ai.ImageReader and ai.AIProvider for use in unit tests. The
// mocks allow tests to run without external AI services and give controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vec, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	completer := mock.NewMockCompleter()
//	completer.CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
//	    return `{"concepts": ["cell"], "edges": []}`, nil
//	}
//
//	// Check call counts
//	count := completer.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: deterministic unit vectors based on text hash
//   - MockCompleter: returns Response (empty JSON fragment by default)
//   - MockReranker: scores documents by query-term overlap
//   - MockImageReader: returns Lines
//   - MockProvider: aggregates the embedder, completer and image reader
package mock
