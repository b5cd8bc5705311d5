package ingestion

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

type extracted struct {
	chunks []string
	err    error
}

// collectChunks reads and chunks files concurrently and returns the chunks in
// file order. Files that fail or produce no text are skipped.
func (p *Pipeline) collectChunks(ctx context.Context, files []string, res *Result, monitor Monitor) []string {
	results := make([]extracted, len(files))

	var g errgroup.Group
	g.SetLimit(p.extractWorkers)
	for i, path := range files {
		g.Go(func() error {
			text, err := p.text.Extract(ctx, path)
			if err != nil {
				results[i].err = err
				return nil
			}
			if text == "" {
				results[i].err = fmt.Errorf("no text extracted from %s", filepath.Base(path))
				return nil
			}
			results[i].chunks = p.chunker.Split(text)
			return nil
		})
	}
	_ = g.Wait()

	var chunks []string
	for i, r := range results {
		if r.err != nil {
			p.logger.Warn("skipping file", "path", files[i], "err", r.err)
			res.FilesSkipped++
			joinErr(res, r.err)
			monitor.FileSkipped(files[i], r.err)
			continue
		}
		p.logger.Info("extracted chunks", "path", filepath.Base(files[i]), "chunks", len(r.chunks))
		monitor.FileExtracted(files[i], len(r.chunks))
		chunks = append(chunks, r.chunks...)
	}
	if res.FilesSkipped > 0 {
		res.degrade()
	}
	return chunks
}
