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


package reembed

import (
	"context"
	"slices"

	"github.com/poiesic/graphrag/core"
)

// DefaultBatchSize is the default number of chunks embedded per request.
const DefaultBatchSize = 100

// forEachBatch calls fn with consecutive batches of chunks, in order.
// Iteration stops on the first error from fn.
// Context cancellation is checked between batches.
func forEachBatch(ctx context.Context, chunks []*core.Chunk, size int, fn func([]*core.Chunk) error) error {
	if size <= 0 {
		size = DefaultBatchSize
	}

	for batch := range slices.Chunk(chunks, size) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}
