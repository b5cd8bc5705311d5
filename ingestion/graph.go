package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/graphrag/ai"
	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/storage"
)

// storeChunks writes chunks and their concept fragments sequentially, in
// order, and returns the texts of the chunks that were stored.
func (p *Pipeline) storeChunks(
	ctx context.Context,
	space string,
	chunks []string,
	embeddings [][]float32,
	llm ai.Completer,
	res *Result,
	monitor Monitor,
) []string {
	stored := make([]string, 0, len(chunks))

	for i, text := range chunks {
		chunk, err := p.store.InsertChunk(ctx, &core.Chunk{
			Space:     space,
			Text:      text,
			Embedding: embeddings[i],
		})
		if err != nil {
			p.logger.Error("error inserting chunk", "space", space, "chunk", i, "err", err)
			res.ChunkFailures++
			joinErr(res, fmt.Errorf("chunk %d: %w", i, err))
			monitor.ChunkStored(i+1, len(chunks))
			continue
		}
		stored = append(stored, text)
		res.Chunks++

		extraction := p.concepts.Extract(ctx, text, llm)
		if extraction.Degraded {
			res.ConceptFailures++
		}
		p.writeFragment(ctx, space, chunk.ChunkID, extraction.Fragment, res)
		monitor.ChunkStored(i+1, len(chunks))
	}

	if res.ChunkFailures > 0 || res.ConceptFailures > 0 {
		res.degrade()
	}
	if len(stored) == 0 {
		res.fail(errors.Join(errors.New("no chunk could be stored"), res.Err))
	}
	return stored
}

// writeFragment merges the fragment's concepts, links them to the chunk and
// merges its edges. Each statement is best-effort.
func (p *Pipeline) writeFragment(ctx context.Context, space string, chunkID core.ID, frag core.Fragment, res *Result) {
	for _, name := range frag.Concepts {
		if err := p.store.MergeConcept(ctx, space, name); err != nil {
			p.logger.Warn("error merging concept", "space", space, "concept", name, "err", err)
			res.ConceptFailures++
			joinErr(res, fmt.Errorf("concept %q: %w", name, err))
			continue
		}
		if err := p.store.LinkConceptToChunk(ctx, space, name, chunkID); err != nil {
			p.logger.Warn("error linking concept to chunk", "space", space, "concept", name, "err", err)
			res.ConceptFailures++
			joinErr(res, fmt.Errorf("link %q: %w", name, err))
		}
	}

	for _, edge := range frag.Edges {
		err := p.store.MergeEdge(ctx, space, edge)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrNotFound):
			p.logger.Debug("skipping edge with unknown concept",
				"space", space, "source", edge.Source, "relation", edge.Relation, "target", edge.Target)
			res.EdgesSkipped++
		default:
			p.logger.Warn("error merging edge", "space", space, "source", edge.Source, "target", edge.Target, "err", err)
			res.ConceptFailures++
			joinErr(res, fmt.Errorf("edge %q -> %q: %w", edge.Source, edge.Target, err))
		}
	}
}
