package openai

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a retry budget is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNoChoices is returned when the model replies without any choice.
	ErrNoChoices = errors.New("model returned no choices")

	// ErrEmbeddingCount is returned when the number of vectors differs from the number of texts.
	ErrEmbeddingCount = errors.New("embedding count mismatch")

	// ErrEmbeddingDimension is returned when vectors in one batch disagree on dimensionality.
	ErrEmbeddingDimension = errors.New("embedding dimension mismatch")

	// ErrVisionDisabled is returned by the image reader when no vision model is configured.
	ErrVisionDisabled = errors.New("vision model not configured")
)
