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

import "errors"

// Domain validation errors
var (
	// ErrInvalidSpace indicates a space identifier failed validation.
	ErrInvalidSpace = errors.New("invalid space")

	// ErrEmptySpace indicates the space identifier is empty.
	ErrEmptySpace = errors.New("space cannot be empty")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyContent indicates the chunk text is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyEmbedding indicates a chunk has no embedding.
	ErrEmptyEmbedding = errors.New("embedding cannot be empty")

	// ErrInvalidConcept indicates a Concept failed validation.
	ErrInvalidConcept = errors.New("invalid concept")

	// ErrEmptyConceptName indicates the concept Name field is empty.
	ErrEmptyConceptName = errors.New("concept name cannot be empty")

	// ErrInvalidEdge indicates an edge triple failed validation.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrEmptyQuery indicates a query is empty.
	ErrEmptyQuery = errors.New("query cannot be empty")
)
