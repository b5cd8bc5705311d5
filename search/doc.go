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


// Package search provides space-scoped hybrid retrieval and reranking.
//
// The Retriever collects candidates from two independent sources:
//   - Lexical: BM25 scoring against the space's lexical index
//   - Vector: cosine similarity over the space's stored chunk embeddings
//
// Lexical hits come first. Candidates are deduplicated by exact text, keeping
// the first occurrence, and capped. A source that fails degrades the
// Retrieval instead of failing it.
//
// Rerank orders candidates with a cross-encoder and falls back to the
// original order when the reranker is unavailable.
package search
