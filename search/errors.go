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


package search

import "errors"

var (
	// ErrGraphStoreRequired is returned when a graph store is not provided.
	ErrGraphStoreRequired = errors.New("graph store required")

	// ErrLexicalStoreRequired is returned when a lexical store is not provided.
	ErrLexicalStoreRequired = errors.New("lexical store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidTopK is returned for a non-positive per-source limit or candidate cap.
	ErrInvalidTopK = errors.New("top k must be positive")

	// ErrScoreCount is returned when a reranker returns the wrong number of scores.
	ErrScoreCount = errors.New("reranker returned wrong number of scores")
)
