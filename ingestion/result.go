package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/graphrag/core"
)

// Mode selects how a run treats existing space data.
type Mode int

const (
	// ModeFull clears the space and rebuilds it from the given files.
	ModeFull Mode = iota
	// ModeIncremental adds the given files to the space.
	ModeIncremental
)

func (m Mode) String() string {
	if m == ModeIncremental {
		return "incremental"
	}
	return "full"
}

// ParseMode parses "full" or "incremental".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return ModeFull, nil
	case "incremental":
		return ModeIncremental, nil
	default:
		return ModeFull, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Result summarizes one ingestion run.
type Result struct {
	Space string
	Mode  Mode

	// Files is the number of files requested; FilesSkipped of them produced no text.
	Files        int
	FilesSkipped int

	// Chunks is the number of chunks stored in the graph.
	Chunks int
	// ChunkFailures counts chunks whose node could not be written.
	ChunkFailures int
	// ConceptFailures counts chunks whose concept extraction degraded plus
	// concept, link and edge writes that failed.
	ConceptFailures int
	// EdgesSkipped counts edges dropped because an endpoint concept was missing.
	EdgesSkipped int

	Status   core.Status
	Err      error
	Duration time.Duration
}

// degrade lowers the status to degraded unless it is already worse.
func (r *Result) degrade() {
	r.Status = r.Status.Worst(core.StatusDegraded)
}

func (r *Result) fail(err error) {
	r.Status = core.StatusFailed
	r.Err = err
}
