package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use and must always
// return []float32 of one fixed dimensionality, whatever the backing model produces.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer is a synchronous language-model completion.
// Implementations enforce their own timeouts and retries and surface
// exhaustion as an error.
type Completer interface {
	// Complete sends prompt to the model and returns the generated text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Reranker scores (query, document) pairs with a cross-encoder.
// Implementations must be thread-safe for concurrent use.
type Reranker interface {
	// Score returns one relevance score per document, aligned with docs.
	// Higher scores are more relevant.
	Score(ctx context.Context, query string, docs []string) ([]float32, error)
}

// ImageReader performs OCR on an image.
type ImageReader interface {
	// ReadImage returns the text lines found in the image, in reading order.
	ReadImage(ctx context.Context, mimeType string, data []byte) ([]string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder, Completer and ImageReader instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Completer returns the language-model completion service.
	Completer() Completer

	// ImageReader returns the OCR service.
	ImageReader() ImageReader

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
