package procsched_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	ps "github.com/Andrej220/go-utils/procsched"
)

func TestFillDefaults(t *testing.T) {
	o := ps.Options{Processors: -2}
	o.FillDefaults()

	if o.Processors != 0 {
		t.Fatalf("Processors = %d; want 0", o.Processors)
	}
	if o.Ctx == nil {
		t.Fatal("expected Ctx to be set by FillDefaults")
	}
}

func TestRegisterSequentialIDs(t *testing.T) {
	s, metrics, _ := newTestScheduler(t, 1)

	for want := 0; want < 4; want++ {
		if got := s.Register(1); got != ps.ProcessID(want) {
			t.Fatalf("Register = %d; want %d", got, want)
		}
	}
	if got := metrics.Registered(); got != 4 {
		t.Fatalf("registered = %d; want 4", got)
	}

	// ids keep increasing across priority levels
	if got := s.Register(-5); got != 4 {
		t.Fatalf("Register = %d; want 4", got)
	}
}

func TestSoloProcessNeverBlocks(t *testing.T) {
	s, _, grants := newTestScheduler(t, 1)
	ctx := testContext(t)
	id := s.Register(1)

	done := make(chan error, 1)
	go func() { done <- cycle(ctx, s, id, 3) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cycle: %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("solo process blocked")
	}

	if got, want := grants.get(), []ps.ProcessID{0, 0, 0}; !slices.Equal(got, want) {
		t.Fatalf("grants = %v; want %v", got, want)
	}
	snap := s.Snapshot()
	if snap.Free != 1 || len(snap.Running) != 0 {
		t.Fatalf("unexpected final state: %s", snap)
	}
	if st, _ := s.State(id); st != ps.StateReleased {
		t.Fatalf("state = %s; want Released", st)
	}
}

func TestEqualPriorityRoundRobin(t *testing.T) {
	s, metrics, grants := newTestScheduler(t, 1)
	ctx := testContext(t)

	p0 := s.Register(1)
	p1 := s.Register(1)
	p2 := s.Register(1)

	if err := s.AcquireInitial(ctx, p0); err != nil {
		t.Fatalf("acquire p0: %v", err)
	}

	errs := make(chan error, 3)
	go func() { errs <- cycle(ctx, s, p1, 3) }()
	waitQueued(t, s, 1)
	go func() { errs <- cycle(ctx, s, p2, 3) }()
	waitQueued(t, s, 2)

	go func() { errs <- finish(ctx, s, p0, 2) }()
	collect(t, errs, 3)

	want := []ps.ProcessID{0, 1, 2, 0, 1, 2, 0, 1, 2}
	if got := grants.get(); !slices.Equal(got, want) {
		t.Fatalf("grants = %v; want %v", got, want)
	}
	if metrics.Granted() != 9 || metrics.Yielded() != 6 || metrics.Released() != 3 {
		t.Fatalf("metrics granted=%d yielded=%d released=%d",
			metrics.Granted(), metrics.Yielded(), metrics.Released())
	}
}

func TestHigherPriorityRunsFirst(t *testing.T) {
	s, _, grants := newTestScheduler(t, 1)
	ctx := testContext(t)

	low := s.Register(20)
	h1 := s.Register(10)
	h2 := s.Register(10)

	if err := s.AcquireInitial(ctx, low); err != nil {
		t.Fatalf("acquire low: %v", err)
	}

	errs := make(chan error, 3)
	go func() { errs <- cycle(ctx, s, h1, 3) }()
	waitQueued(t, s, 1)
	go func() { errs <- cycle(ctx, s, h2, 3) }()
	waitQueued(t, s, 2)

	go func() { errs <- finish(ctx, s, low, 2) }()
	collect(t, errs, 3)

	want := []ps.ProcessID{low, h1, h2, h1, h2, h1, h2, low, low}
	if got := grants.get(); !slices.Equal(got, want) {
		t.Fatalf("grants = %v; want %v", got, want)
	}
}

func TestTwoProcessorsMixedPriorities(t *testing.T) {
	s, _, grants := newTestScheduler(t, 2)
	ctx := testContext(t)

	p0 := s.Register(10)
	p1 := s.Register(20)
	p2 := s.Register(10)

	for _, id := range []ps.ProcessID{p0, p1} {
		if err := s.AcquireInitial(ctx, id); err != nil {
			t.Fatalf("acquire %d: %v", id, err)
		}
	}

	errs := make(chan error, 2)
	go func() { errs <- cycle(ctx, s, p2, 3) }()
	waitQueued(t, s, 1)

	// p1 yields while p2 waits: p2 must finish before p1 runs again,
	// while p0 keeps the other processor.
	go func() { errs <- finish(ctx, s, p1, 2) }()
	collect(t, errs, 2)

	want := []ps.ProcessID{p0, p1, p2, p2, p2, p1, p1}
	if got := grants.get(); !slices.Equal(got, want) {
		t.Fatalf("grants = %v; want %v", got, want)
	}
	if err := finish(ctx, s, p0, 0); err != nil {
		t.Fatalf("release p0: %v", err)
	}
	if snap := s.Snapshot(); snap.Free != 2 {
		t.Fatalf("free = %d; want 2", snap.Free)
	}
}

func TestUnknownProcess(t *testing.T) {
	s, _, _ := newTestScheduler(t, 1)
	ctx := testContext(t)
	s.Register(1)

	checks := map[string]error{
		"acquire": s.AcquireInitial(ctx, 5),
		"yield":   s.YieldAndReacquire(ctx, -1),
		"release": s.Release(1),
	}
	for op, err := range checks {
		if !errors.Is(err, ps.ErrUnknownProcess) {
			t.Fatalf("%s: err = %v; want ErrUnknownProcess", op, err)
		}
	}
	if _, err := s.State(9); !errors.Is(err, ps.ErrUnknownProcess) {
		t.Fatalf("State: err = %v; want ErrUnknownProcess", err)
	}

	snap := s.Snapshot()
	if snap.Free != 1 || len(snap.Levels) != 0 {
		t.Fatalf("state changed by invalid calls: %s", snap)
	}
}

func TestAlreadyQueued(t *testing.T) {
	s, _, _ := newTestScheduler(t, 1)
	ctx := testContext(t)

	p0 := s.Register(1)
	p1 := s.Register(1)
	if err := s.AcquireInitial(ctx, p0); err != nil {
		t.Fatalf("acquire p0: %v", err)
	}

	errs := make(chan error, 1)
	go func() { errs <- cycle(ctx, s, p1, 1) }()
	waitQueued(t, s, 1)

	if err := s.AcquireInitial(ctx, p1); !errors.Is(err, ps.ErrAlreadyQueued) {
		t.Fatalf("second acquire: err = %v; want ErrAlreadyQueued", err)
	}
	if got := s.Waiting(); got != 1 {
		t.Fatalf("waiting = %d; want 1", got)
	}

	if err := s.Release(p0); err != nil {
		t.Fatalf("release p0: %v", err)
	}
	collect(t, errs, 1)
}

func TestCancelWhileWaiting(t *testing.T) {
	s, metrics, grants := newTestScheduler(t, 1)
	ctx := testContext(t)

	p0 := s.Register(1)
	p1 := s.Register(1)
	p2 := s.Register(1)
	if err := s.AcquireInitial(ctx, p0); err != nil {
		t.Fatalf("acquire p0: %v", err)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	canceled := make(chan error, 1)
	go func() { canceled <- s.AcquireInitial(waitCtx, p1) }()
	waitQueued(t, s, 1)

	errs := make(chan error, 1)
	go func() { errs <- cycle(ctx, s, p2, 1) }()
	waitQueued(t, s, 2)

	cancel()
	select {
	case err := <-canceled:
		if !errors.Is(err, ps.ErrWaitCanceled) || !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v; want ErrWaitCanceled and context.Canceled", err)
		}
	case <-time.After(testTimeout):
		t.Fatal("canceled wait did not return")
	}

	snap := s.Snapshot()
	if len(snap.Levels) != 1 || !slices.Equal(snap.Levels[0].Waiting, []ps.ProcessID{p2}) {
		t.Fatalf("canceled process still queued: %s", snap)
	}
	if snap.Free != 0 {
		t.Fatalf("free = %d; want 0", snap.Free)
	}
	if metrics.Canceled() != 1 {
		t.Fatalf("canceled = %d; want 1", metrics.Canceled())
	}

	// the process behind the canceled one is next in line
	if err := s.Release(p0); err != nil {
		t.Fatalf("release p0: %v", err)
	}
	collect(t, errs, 1)
	if got, want := grants.get(), []ps.ProcessID{p0, p2}; !slices.Equal(got, want) {
		t.Fatalf("grants = %v; want %v", got, want)
	}

	// a canceled process may ask again
	if err := s.AcquireInitial(ctx, p1); err != nil {
		t.Fatalf("re-acquire p1: %v", err)
	}
}

func TestCancelDuringYieldKeepsProcessorFree(t *testing.T) {
	s, _, _ := newTestScheduler(t, 1)
	ctx := testContext(t)

	p0 := s.Register(1)
	p1 := s.Register(1)
	if err := s.AcquireInitial(ctx, p0); err != nil {
		t.Fatalf("acquire p0: %v", err)
	}

	acquired := make(chan error, 1)
	go func() { acquired <- s.AcquireInitial(ctx, p1) }()
	waitQueued(t, s, 1)

	// p0 hands its processor to p1 and parks behind it
	yieldCtx, cancel := context.WithCancel(ctx)
	yielded := make(chan error, 1)
	go func() { yielded <- s.YieldAndReacquire(yieldCtx, p0) }()
	collect(t, acquired, 1)
	waitQueued(t, s, 1)

	cancel()
	if err := <-yielded; !errors.Is(err, ps.ErrWaitCanceled) {
		t.Fatalf("yield: err = %v; want ErrWaitCanceled", err)
	}

	snap := s.Snapshot()
	if len(snap.Levels) != 0 || snap.Free != 0 || !slices.Equal(snap.Running, []ps.ProcessID{p1}) {
		t.Fatalf("unexpected state after canceled yield: %s", snap)
	}

	if err := s.Release(p1); err != nil {
		t.Fatalf("release p1: %v", err)
	}
	if snap := s.Snapshot(); snap.Free != 1 {
		t.Fatalf("free = %d; want 1", snap.Free)
	}
}

func TestReleaseMisuseIsAcceptedAndBounded(t *testing.T) {
	var reports []error
	s := ps.New(&ps.NoopMetrics{}, ps.Options{
		Processors: 2,
		OnMisuse:   func(err error) { reports = append(reports, err) },
	})

	id := s.Register(3)
	if err := s.Release(id); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := s.Release(id); err != nil {
		t.Fatalf("second release: %v", err)
	}

	if len(reports) != 2 {
		t.Fatalf("misuse reports = %d; want 2", len(reports))
	}
	for _, err := range reports {
		if !errors.Is(err, ps.ErrMisuse) {
			t.Fatalf("report %v does not wrap ErrMisuse", err)
		}
	}
	if snap := s.Snapshot(); snap.Free != 2 || snap.Capacity != 2 {
		t.Fatalf("pool grew past capacity: %s", snap)
	}
}

func TestYieldWithoutProcessorIsMisuse(t *testing.T) {
	var reports []error
	s := ps.New(&ps.NoopMetrics{}, ps.Options{
		Processors: 1,
		OnMisuse:   func(err error) { reports = append(reports, err) },
	})
	ctx := testContext(t)

	id := s.Register(1)
	if err := s.YieldAndReacquire(ctx, id); err != nil {
		t.Fatalf("yield: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("misuse reports = %d; want 1", len(reports))
	}
	if st, _ := s.State(id); st != ps.StateRunning {
		t.Fatalf("state = %s; want Running", st)
	}
	if snap := s.Snapshot(); snap.Free != 0 {
		t.Fatalf("free = %d; want 0", snap.Free)
	}
}

func TestConfigure(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	ctx := testContext(t)

	s.Configure(-3)
	if snap := s.Snapshot(); snap.Capacity != 0 || snap.Free != 0 {
		t.Fatalf("negative configure not clamped: %s", snap)
	}

	id := s.Register(1)
	errs := make(chan error, 1)
	go func() { errs <- s.AcquireInitial(ctx, id) }()
	waitQueued(t, s, 1)

	// growing the pool wakes the waiter
	s.Configure(1)
	collect(t, errs, 1)

	if snap := s.Snapshot(); snap.Free != 0 || !slices.Equal(snap.Running, []ps.ProcessID{id}) {
		t.Fatalf("unexpected state after grant: %s", snap)
	}
}

func TestStateTransitions(t *testing.T) {
	s, _, _ := newTestScheduler(t, 1)
	ctx := testContext(t)
	id := s.Register(1)

	steps := []struct {
		name string
		do   func() error
		want ps.State
	}{
		{"registered", func() error { return nil }, ps.StateRegistered},
		{"acquired", func() error { return s.AcquireInitial(ctx, id) }, ps.StateRunning},
		{"yielded", func() error { return s.YieldAndReacquire(ctx, id) }, ps.StateRunning},
		{"released", func() error { return s.Release(id) }, ps.StateReleased},
	}
	for _, st := range steps {
		if err := st.do(); err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		got, err := s.State(id)
		if err != nil || got != st.want {
			t.Fatalf("%s: state = %s, %v; want %s", st.name, got, err, st.want)
		}
	}
	if ps.State(42).String() != "Unknown" {
		t.Fatal("unexpected name for unknown state")
	}
}
