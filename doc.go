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


// Package graphrag is a space-scoped graph RAG engine.
//
// Documents are ingested into a space: their text is extracted, split into
// word windows, embedded and stored as chunks in a graph together with the
// concepts and prerequisite edges a language model finds in each chunk. A
// BM25 index per space mirrors the stored chunks.
//
// Questions are answered from one space only. Lexical and vector hits are
// merged, reranked with a cross-encoder and the best documents are handed to
// the language model as the only allowed context.
//
// Engine is the entry point over any storage.GraphStore. Database wires an
// Engine to a Badger or Neo4j store and OpenAI-compatible services.
package graphrag
