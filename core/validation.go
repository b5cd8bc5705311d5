// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strings"
)

// ValidateSpace validates a space identifier.
//
// Validation rules:
//   - must not be empty or whitespace only
//   - must not contain NUL, which storage backends use as a key separator
func ValidateSpace(space string) error {
	if strings.TrimSpace(space) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSpace, ErrEmptySpace)
	}
	if strings.ContainsRune(space, 0) {
		return fmt.Errorf("%w: contains NUL", ErrInvalidSpace)
	}
	return nil
}

// ValidateChunk validates a Chunk before it is written to a graph store.
//
// Validation rules:
//   - Space must be valid
//   - Text must not be empty
//   - Embedding must not be empty
//
// NOT validated (assigned by the store):
//   - Seq
//   - CreatedAt
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if err := ValidateSpace(chunk.Space); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}
	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyEmbedding)
	}
	return nil
}

// ValidateConceptName validates a concept name.
func ValidateConceptName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConcept, ErrEmptyConceptName)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: contains NUL", ErrInvalidConcept)
	}
	return nil
}

// ValidateTriple validates an edge triple. All three parts are required.
func ValidateTriple(t Triple) error {
	for _, part := range []string{t.Source, t.Relation, t.Target} {
		if strings.TrimSpace(part) == "" {
			return fmt.Errorf("%w: empty field in (%q, %q, %q)", ErrInvalidEdge, t.Source, t.Relation, t.Target)
		}
		if strings.ContainsRune(part, 0) {
			return fmt.Errorf("%w: contains NUL", ErrInvalidEdge)
		}
	}
	return nil
}
