// Package chunker splits text into fixed-size word windows.
package chunker

import (
	"errors"
	"strings"
)

// DefaultSize is the number of words per chunk.
const DefaultSize = 400

// ErrInvalidSize is returned when a window size is not positive.
var ErrInvalidSize = errors.New("chunk size must be positive")

// Chunker splits whitespace-tokenized text into non-overlapping windows of
// size words. The last window may be shorter.
type Chunker struct {
	size int
}

// New creates a Chunker with the given window size.
func New(size int) (*Chunker, error) {
	if size < 1 {
		return nil, ErrInvalidSize
	}
	return &Chunker{size: size}, nil
}

// Default returns a Chunker with DefaultSize.
func Default() *Chunker {
	return &Chunker{size: DefaultSize}
}

// Size returns the window size in words.
func (c *Chunker) Size() int {
	return c.size
}

// Split returns the chunks of text in order. Empty or whitespace-only input yields nil.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+c.size-1)/c.size)
	for start := 0; start < len(words); start += c.size {
		end := min(start+c.size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
