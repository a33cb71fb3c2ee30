package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSchedulerBoundsConcurrency(t *testing.T) {
	const jobs = 4
	s := New(jobs, zaptest.NewLogger(t))

	var running, peak atomic.Int64
	unit := func(path string) Unit {
		return Unit{Path: path, Run: func(ctx context.Context) error {
			now := running.Add(1)
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		}}
	}
	// a root unit that fans out into 50 leaves while it is still running
	s.Submit(context.Background(), Unit{Path: "root", Run: func(ctx context.Context) error {
		for i := 0; i < 50; i++ {
			s.Submit(ctx, unit(fmt.Sprintf("unit-%d", i)))
		}
		return nil
	}})
	s.Wait()

	require.LessOrEqual(t, peak.Load(), int64(jobs))
	require.Zero(t, s.Failed())
	require.Zero(t, s.InFlight())
}

func TestSchedulerWaitCoversChildrenOfChildren(t *testing.T) {
	s := New(2, zaptest.NewLogger(t))

	var done atomic.Int64
	var submitLeaf func(depth int) Unit
	submitLeaf = func(depth int) Unit {
		return Unit{Path: fmt.Sprintf("depth-%d", depth), Run: func(ctx context.Context) error {
			if depth < 4 {
				// children are registered before the parent returns,
				// which is what keeps Wait from returning early
				s.Submit(ctx, submitLeaf(depth+1))
				s.Submit(ctx, submitLeaf(depth+1))
			}
			done.Add(1)
			return nil
		}}
	}
	s.Submit(context.Background(), submitLeaf(0))
	s.Wait()

	// a full binary tree of depth 4
	require.Equal(t, int64(31), done.Load())
	require.Zero(t, s.Failed())
}

func TestSchedulerSubmitNeverBlocks(t *testing.T) {
	s := New(1, zaptest.NewLogger(t))

	release := make(chan struct{})
	s.Submit(context.Background(), Unit{Path: "blocker", Run: func(ctx context.Context) error {
		<-release
		return nil
	}})

	start := time.Now()
	for i := 0; i < 100; i++ {
		s.Submit(context.Background(), Unit{Path: "queued", Run: func(ctx context.Context) error {
			return nil
		}})
	}
	require.Less(t, time.Since(start), time.Second, "Submit must return immediately")

	close(release)
	s.Wait()
}

func TestSchedulerContainsUnitErrors(t *testing.T) {
	s := New(2, zaptest.NewLogger(t))

	var ok atomic.Int64
	s.Submit(context.Background(), Unit{Path: "bad", Run: func(ctx context.Context) error {
		return errors.New("boom")
	}})
	for i := 0; i < 5; i++ {
		s.Submit(context.Background(), Unit{Path: "good", Run: func(ctx context.Context) error {
			ok.Add(1)
			return nil
		}})
	}
	s.Wait()

	require.Equal(t, int64(1), s.Failed())
	require.Equal(t, int64(5), ok.Load(), "siblings are unaffected by a failing unit")
}

func TestSchedulerRecoversPanicAndReleasesPermit(t *testing.T) {
	s := New(1, zaptest.NewLogger(t))

	s.Submit(context.Background(), Unit{Path: "panicker", Run: func(ctx context.Context) error {
		panic("kaboom")
	}})

	var ran sync.WaitGroup
	ran.Add(1)
	s.Submit(context.Background(), Unit{Path: "after", Run: func(ctx context.Context) error {
		ran.Done()
		return nil
	}})
	s.Wait()
	ran.Wait()

	require.Equal(t, int64(1), s.Failed())
	require.Zero(t, s.InFlight(), "the permit must come back after a panic")
}

func TestSchedulerAbandonsUnitsOnCancel(t *testing.T) {
	s := New(1, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	s.Submit(context.Background(), Unit{Path: "blocker", Run: func(ctx context.Context) error {
		<-release
		return nil
	}})
	s.Submit(ctx, Unit{Path: "starved", Run: func(ctx context.Context) error {
		t.Error("starved unit must not run")
		return nil
	}})

	cancel()
	// let the cancellation reach the waiting unit before freeing the permit
	time.Sleep(50 * time.Millisecond)
	close(release)
	s.Wait()

	require.Equal(t, int64(1), s.Failed())
}

func TestSchedulerClampsJobs(t *testing.T) {
	s := New(0, zaptest.NewLogger(t))
	s.Submit(context.Background(), Unit{Path: "one", Run: func(ctx context.Context) error {
		return nil
	}})
	s.Wait()
	require.Zero(t, s.Failed())
}
