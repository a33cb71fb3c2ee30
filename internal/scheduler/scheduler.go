// Package scheduler runs crawl units with bounded concurrency and detects
// quiescence of a task graph that grows while it is being executed.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Unit is one schedulable piece of work: a destination path (used as log
// context) and the function that processes it. Run may call Submit to
// enqueue children before it returns.
type Unit struct {
	Path string
	Run  func(ctx context.Context) error
}

// Scheduler owns the worker permit pool. At most the configured number of
// units hold a permit at once; the rest sit queued in their goroutines.
// A unit's error is contained at the unit boundary: it is logged with the
// destination path and counted, never propagated to siblings or the driver.
type Scheduler struct {
	permits *semaphore.Weighted
	wg      sync.WaitGroup
	logger  *zap.Logger

	inFlight atomic.Int64
	failed   atomic.Int64
}

// New builds a scheduler allowing jobs concurrently running units.
func New(jobs int, logger *zap.Logger) *Scheduler {
	if jobs < 1 {
		jobs = 1
	}
	return &Scheduler{
		permits: semaphore.NewWeighted(int64(jobs)),
		logger:  logger,
	}
}

// Submit enqueues a unit. It never blocks and is safe to call both from the
// driver and from inside a running unit; children registered before their
// parent finishes keep the graph alive for Wait.
func (s *Scheduler) Submit(ctx context.Context, u Unit) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.permits.Acquire(ctx, 1); err != nil {
			s.failed.Add(1)
			s.logger.Error("unit abandoned before start",
				zap.String("path", u.Path), zap.Error(err))
			return
		}
		s.inFlight.Add(1)
		defer func() {
			// the permit is returned on every exit path, panics included,
			// so one failing unit cannot starve the pool
			s.inFlight.Add(-1)
			s.permits.Release(1)
			if r := recover(); r != nil {
				s.failed.Add(1)
				s.logger.Error("unit panicked",
					zap.String("path", u.Path), zap.Any("panic", r))
			}
		}()
		if err := u.Run(ctx); err != nil {
			s.failed.Add(1)
			s.logger.Error("syncing failed",
				zap.String("path", u.Path), zap.Error(err))
		}
	}()
}

// Wait blocks until the task graph is quiescent: no unit running, none
// queued, and no running unit left to submit more.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Failed returns how many units ended in an error or panic.
func (s *Scheduler) Failed() int64 {
	return s.failed.Load()
}

// InFlight returns the number of units currently holding a permit.
func (s *Scheduler) InFlight() int64 {
	return s.inFlight.Load()
}
