package jobs

import (
	"time"

	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/ingestion"
)

// State is the lifecycle stage of a job.
type State int

const (
	StatePending State = iota
	StateProcessing
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateProcessing:
		return "processing"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Done reports whether the job has finished.
func (s State) Done() bool {
	return s == StateSuccess || s == StateFailed
}

// Status is a snapshot of a job.
type Status struct {
	ID          string
	Space       string
	Kind        string
	State       State
	Result      *ingestion.Result
	Err         error
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

type job struct {
	status Status
	fn     Func
	done   chan struct{}
}

// settle records the outcome of fn. A nil result or a failed run marks the
// job failed; a degraded run still counts as a success.
func (j *job) settle(res *ingestion.Result, now time.Time) {
	j.status.Result = res
	j.status.FinishedAt = now
	switch {
	case res == nil:
		j.status.State = StateFailed
		j.status.Err = ErrNoResult
	case res.Status == core.StatusFailed:
		j.status.State = StateFailed
		j.status.Err = res.Err
	default:
		j.status.State = StateSuccess
	}
}
