package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/poiesic/graphrag/ingestion"
	"github.com/poiesic/graphrag/reembed"
)

// progressMonitor prints ingestion and reembedding progress.
type progressMonitor struct {
	writer         io.Writer
	reportInterval int
	lastReported   int
	startTime      time.Time
	mu             sync.Mutex
}

var (
	_ ingestion.Monitor = (*progressMonitor)(nil)
	_ reembed.Monitor   = (*progressMonitor)(nil)
)

// newProgressMonitor reports stored chunks every reportInterval chunks.
func newProgressMonitor(writer io.Writer, reportInterval int) *progressMonitor {
	return &progressMonitor{
		writer:         writer,
		reportInterval: max(reportInterval, 1),
		startTime:      time.Now(),
	}
}

func (p *progressMonitor) Start(space string, mode ingestion.Mode, files int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.lastReported = 0
	fmt.Fprintf(p.writer, "Ingesting %d file(s) into space %q (%s)\n", files, space, mode)
}

func (p *progressMonitor) FileExtracted(path string, chunks int) {
	fmt.Fprintf(p.writer, "  %s: %d chunk(s)\n", filepath.Base(path), chunks)
}

func (p *progressMonitor) FileSkipped(path string, err error) {
	fmt.Fprintf(p.writer, "  %s: skipped (%v)\n", filepath.Base(path), err)
}

func (p *progressMonitor) Embedded(chunks int) {
	fmt.Fprintf(p.writer, "Embedded %d chunk(s)\n", chunks)
}

func (p *progressMonitor) ChunkStored(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Report if we've crossed a report interval
	if done-p.lastReported >= p.reportInterval || done == total {
		p.report(done, total)
		p.lastReported = done
	}
}

// Reembedded reports re-embedded chunks like stored ones.
func (p *progressMonitor) Reembedded(done, total int) {
	p.ChunkStored(done, total)
}

func (p *progressMonitor) Finish(res *ingestion.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastReported > 0 {
		fmt.Fprintln(p.writer) // Print newline after final progress
	}
	fmt.Fprintf(p.writer, "Ingestion %s: %d chunk(s) stored, %d file(s) skipped, %d chunk failure(s), %d concept failure(s) in %v\n",
		res.Status, res.Chunks, res.FilesSkipped, res.ChunkFailures, res.ConceptFailures, res.Duration.Round(time.Millisecond))
}

// report prints the current progress. Must be called with lock held.
func (p *progressMonitor) report(done, total int) {
	elapsed := time.Since(p.startTime)
	rate := float64(done) / elapsed.Seconds()

	percentage := 0.0
	if total > 0 {
		percentage = float64(done) / float64(total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - %.1f chunks/s", done, total, percentage, rate)
}
