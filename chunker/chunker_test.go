package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		words     int
		size      int
		wantCount int
	}{
		{name: "empty", words: 0, size: 400, wantCount: 0},
		{name: "shorter than window", words: 10, size: 400, wantCount: 1},
		{name: "exact multiple", words: 800, size: 400, wantCount: 2},
		{name: "remainder", words: 1001, size: 400, wantCount: 3},
		{name: "window of one", words: 5, size: 1, wantCount: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size)
			require.NoError(t, err)

			input := words(tt.words)
			chunks := c.Split(input)
			assert.Len(t, chunks, tt.wantCount)

			// Every chunk but the last has exactly size words.
			for i, chunk := range chunks {
				n := len(strings.Fields(chunk))
				if i < len(chunks)-1 {
					assert.Equal(t, tt.size, n)
				} else {
					assert.LessOrEqual(t, n, tt.size)
				}
			}

			// Concatenated words reproduce the input sequence.
			rejoined := []string{}
			for _, chunk := range chunks {
				rejoined = append(rejoined, strings.Fields(chunk)...)
			}
			assert.Equal(t, strings.Fields(input), rejoined)
		})
	}
}

func TestSplitEmpty(t *testing.T) {
	c := Default()
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split(" \n\t "))
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	chunks := c.Split("  alpha\tbeta\n\ngamma   ")
	assert.Equal(t, []string{"alpha beta", "gamma"}, chunks)
}

func TestSplitIsDeterministic(t *testing.T) {
	c := Default()
	input := words(950)
	assert.Equal(t, c.Split(input), c.Split(input))
	assert.Equal(t, DefaultSize, c.Size())
}

func TestNewRejectsInvalidSize(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}
