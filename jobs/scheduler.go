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


package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/graphrag/ingestion"
)

// Func is the work of one job.
type Func func(ctx context.Context) *ingestion.Result

// Scheduler serializes jobs per space and runs spaces in parallel.
type Scheduler struct {
	pool   *ants.Pool
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	queues  map[string][]*job
	running map[string]bool
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithPoolSize sets how many spaces can run jobs at the same time.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Scheduler) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a Scheduler. Close must be called to release its pool.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		pool:    pool,
		ctx:     ctx,
		cancel:  cancel,
		logger:  slog.Default().With("component", "jobs"),
		jobs:    make(map[string]*job),
		queues:  make(map[string][]*job),
		running: make(map[string]bool),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.pool.Release()
			cancel()
			return nil, err
		}
	}
	return s, nil
}

// Submit queues fn behind the space's earlier jobs and returns the job ID.
// kind is a free-form label, such as "upload" or "delete". Submit blocks while
// every pool worker is busy with another space.
func (s *Scheduler) Submit(space, kind string, fn Func) (string, error) {
	if fn == nil {
		return "", ErrFuncRequired
	}

	j := &job{
		status: Status{
			ID:          uuid.NewString(),
			Space:       space,
			Kind:        kind,
			State:       StatePending,
			SubmittedAt: time.Now().UTC(),
		},
		fn:   fn,
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSchedulerClosed
	}
	s.jobs[j.status.ID] = j
	s.queues[space] = append(s.queues[space], j)
	s.wg.Add(1)
	start := !s.running[space]
	if start {
		s.running[space] = true
	}
	s.mu.Unlock()

	s.logger.Debug("job submitted", "id", j.status.ID, "space", space, "kind", kind)

	if start {
		if err := s.pool.Submit(func() { s.drain(space) }); err != nil {
			s.abandon(space, fmt.Errorf("submitting to worker pool: %w", err))
		}
	}
	return j.status.ID, nil
}

// drain runs the space's queued jobs until the queue is empty.
func (s *Scheduler) drain(space string) {
	for {
		s.mu.Lock()
		queue := s.queues[space]
		if len(queue) == 0 {
			delete(s.queues, space)
			delete(s.running, space)
			s.mu.Unlock()
			return
		}
		j := queue[0]
		s.queues[space] = queue[1:]
		j.status.State = StateProcessing
		j.status.StartedAt = time.Now().UTC()
		s.mu.Unlock()

		res := s.run(j)

		s.mu.Lock()
		j.settle(res, time.Now().UTC())
		status := j.status
		s.mu.Unlock()

		close(j.done)
		s.wg.Done()
		s.logger.Info("job finished",
			"id", status.ID,
			"space", space,
			"kind", status.Kind,
			"state", status.State,
			"duration", status.FinishedAt.Sub(status.StartedAt))
	}
}

func (s *Scheduler) run(j *job) (res *ingestion.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "id", j.status.ID, "panic", r)
			res = nil
		}
	}()
	return j.fn(s.ctx)
}

// abandon fails every queued job of space.
func (s *Scheduler) abandon(space string, err error) {
	s.logger.Error("abandoning queued jobs", "space", space, "err", err)

	s.mu.Lock()
	queue := s.queues[space]
	delete(s.queues, space)
	delete(s.running, space)
	now := time.Now().UTC()
	for _, j := range queue {
		j.status.State = StateFailed
		j.status.Err = err
		j.status.FinishedAt = now
	}
	s.mu.Unlock()

	for _, j := range queue {
		close(j.done)
		s.wg.Done()
	}
}

// Status returns a snapshot of the job with id.
func (s *Scheduler) Status(id string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j.status, nil
}

// Wait blocks until the job with id finishes or ctx is done.
func (s *Scheduler) Wait(ctx context.Context, id string) (Status, error) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	select {
	case <-j.done:
		return s.Status(id)
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Prune forgets finished jobs that finished before cutoff and returns how
// many were removed.
func (s *Scheduler) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, j := range s.jobs {
		if j.status.State.Done() && j.status.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// Close stops accepting jobs and waits for queued jobs to finish. When ctx
// ends first, running jobs see their context cancelled.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
		s.cancel()
		<-drained
	}
	s.cancel()
	s.pool.Release()
	return err
}
