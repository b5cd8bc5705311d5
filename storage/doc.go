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


// Package storage provides the graph storage abstraction for graphrag.
//
// GraphStore decouples the engine from the database that holds Chunk and
// Concept nodes and their RELATED_TO / EXPLAINED_BY relationships. Two
// implementations exist:
//
//   - storage/badger: embedded, single-process store on BadgerDB
//   - storage/neo4j: Neo4j graph database
//
// # Schema
//
//	(:Chunk {chunk_id, text, embedding, space, seq, created_at})
//	(:Concept {name, space, created_at})            unique per (name, space)
//	(:Concept)-[:RELATED_TO {type, strength}]->(:Concept)
//	(:Concept)-[:EXPLAINED_BY]->(:Chunk)
//
// Every operation is scoped by space and never touches another space's data.
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.GraphStore interface so callers are
// not coupled to a backend:
//
//	store, err := badger.NewGraphStore(backend)  // returns storage.GraphStore
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access from
// multiple goroutines. Writers for one space are expected to be serialized by
// the caller.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
