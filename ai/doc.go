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


// Package ai provides abstractions for the AI capabilities the engine consumes.
//
// The engine never talks to a model directly. It depends on four narrow
// interfaces defined here:
//
//   - Embedder: text to fixed-dimension []float32 vectors
//   - Completer: synchronous prompt completion
//   - Reranker: cross-encoder scoring of (query, document) pairs
//   - ImageReader: OCR of an image into text lines
//
// AIProvider aggregates the model-backed services for lifecycle management.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embeddings, chat and vision via langchaingo
//   - ai/crossencoder: HTTP client for a cross-encoder rerank service
//   - ai/mock: test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types to keep callers decoupled from concrete implementations.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test constructors (mock.NewMockEmbedder, mock.NewMockCompleter) return
// CONCRETE types so tests can inject behavior and assert on call counts.
//
// # Failure Policy
//
// Capabilities own their timeouts and retries. The engine treats any returned
// error as a per-item failure (ingestion) or a degraded answer (ask).
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithCompletionModel("gpt-4o-mini"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	out, err := provider.Completer().Complete(ctx, "Say hi")
package ai
