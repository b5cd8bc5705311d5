package jobs

import "errors"

var (
	ErrSchedulerClosed = errors.New("scheduler is closed")
	ErrJobNotFound     = errors.New("job not found")
	ErrFuncRequired    = errors.New("job function is required")
	ErrNoResult        = errors.New("job returned no result")
)
