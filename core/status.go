package core

// Status classifies the outcome of an ingest, retrieval or answer.
type Status int

const (
	// StatusOK means the operation completed normally.
	StatusOK Status = iota
	// StatusDegraded means the operation completed but some step fell back or was skipped.
	StatusDegraded
	// StatusFailed means the operation produced no usable result.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegraded:
		return "degraded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Worst returns the more severe of two statuses.
func (s Status) Worst(other Status) Status {
	if other > s {
		return other
	}
	return s
}
