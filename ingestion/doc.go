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


// Package ingestion turns files into chunks, embeddings and concept graph
// entries for one space.
//
// Full ingestion clears the space and rebuilds it from a complete file set.
// Incremental ingestion adds new files without touching prior data. Both
// extract text from files in parallel, then embed the corpus in one batch
// and write chunks and concepts strictly in file and chunk order, so that
// re-ingesting an identical file set reproduces identical edge strengths.
//
// Per-item failures (one file, one chunk, one completion) are logged and
// counted in the Result; they never abort the run.
//
// Callers serialize runs per space.
package ingestion
