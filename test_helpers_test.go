package procsched_test

import (
	"context"
	"runtime"
	"slices"
	"sync"
	"testing"
	"time"

	ps "github.com/Andrej220/go-utils/procsched"
)

const testTimeout = 5 * time.Second

// grantLog records grants in the exact order the scheduler made them.
type grantLog struct {
	mu  sync.Mutex
	ids []ps.ProcessID
}

func (g *grantLog) record(id ps.ProcessID, _ ps.Priority) {
	g.mu.Lock()
	g.ids = append(g.ids, id)
	g.mu.Unlock()
}

func (g *grantLog) get() []ps.ProcessID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.ids)
}

func newTestScheduler(t *testing.T, processors int) (*ps.Scheduler[*ps.AtomicMetrics], *ps.AtomicMetrics, *grantLog) {
	t.Helper()

	metrics := &ps.AtomicMetrics{}
	grants := &grantLog{}
	s := ps.New(metrics, ps.Options{
		Processors: processors,
		OnGrant:    grants.record,
	})
	return s, metrics, grants
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
	}
	t.Fatal("condition not satisfied before timeout")
}

// waitQueued blocks until n processes are waiting in s.
func waitQueued(t *testing.T, s *ps.Scheduler[*ps.AtomicMetrics], n int) {
	t.Helper()
	waitUntil(t, testTimeout, func() bool { return s.Waiting() == n })
}

// cycle runs a whole process: first admission, rounds-1 yields, release.
func cycle(ctx context.Context, s *ps.Scheduler[*ps.AtomicMetrics], id ps.ProcessID, rounds int) error {
	if err := s.AcquireInitial(ctx, id); err != nil {
		return err
	}
	return finish(ctx, s, id, rounds-1)
}

// finish runs the remaining yields of an already running process and
// releases it.
func finish(ctx context.Context, s *ps.Scheduler[*ps.AtomicMetrics], id ps.ProcessID, yields int) error {
	for range yields {
		if err := s.YieldAndReacquire(ctx, id); err != nil {
			return err
		}
	}
	return s.Release(id)
}

func collect(t *testing.T, errs <-chan error, n int) {
	t.Helper()
	for range n {
		select {
		case err := <-errs:
			if err != nil {
				t.Fatalf("process failed: %v", err)
			}
		case <-time.After(testTimeout):
			t.Fatal("processes did not finish")
		}
	}
}
