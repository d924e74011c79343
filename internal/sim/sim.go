// Package sim drives a scheduler the way an operating system would: one
// goroutine per simulated process, each running a fixed plan of sessions
// separated by voluntary yields.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
	lg "github.com/Andrej220/go-utils/zlog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Andrej220/go-utils/procsched"
)

// ErrEmptyPlan is returned by Run when a process has no sessions.
var ErrEmptyPlan = errors.New("sim: process has no sessions")

// Core is the part of the scheduler a driver talks to.
type Core interface {
	Register(prio procsched.Priority) procsched.ProcessID
	AcquireInitial(ctx context.Context, id procsched.ProcessID) error
	YieldAndReacquire(ctx context.Context, id procsched.ProcessID) error
	Release(id procsched.ProcessID) error
}

// Process is the plan for one simulated process.
type Process struct {
	Name     string
	Priority procsched.Priority

	// StartAfter delays the first admission request, measured from the
	// start of the run.
	StartAfter time.Duration

	// Sessions holds the length of every session. The process yields
	// between consecutive sessions.
	Sessions []time.Duration

	// Release returns the processor after the last session.
	Release bool

	// Retry overrides the driver's retry policy for this process.
	Retry *RetryPolicy
}

// Session describes one unit of simulated work handed to a Workload.
type Session struct {
	PID     procsched.ProcessID
	Name    string
	Index   int
	Length  time.Duration
	Attempt int
}

// Workload performs the work of one session while the process holds a
// processor. A non-nil error triggers a retry with backoff.
type Workload func(ctx context.Context, s Session) error

// SleepWorkload simulates work by sleeping for the session length.
func SleepWorkload(ctx context.Context, s Session) error {
	return sleep(ctx, s.Length)
}

// Report is the outcome of a run.
type Report struct {
	RunID string

	// PIDs maps process names to the ids the scheduler assigned.
	PIDs map[string]procsched.ProcessID

	// Events lists session starts in the order they were observed.
	Events []Event
}

// Lines returns the events formatted one per line.
func (r Report) Lines() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.String()
	}
	return out
}

// Driver runs simulated processes against a Core.
type Driver struct {
	core  Core
	work  Workload
	retry RetryPolicy
}

type Option func(*Driver)

// WithWorkload replaces the default sleeping workload.
func WithWorkload(w Workload) Option {
	return func(d *Driver) {
		if w != nil {
			d.work = w
		}
	}
}

// WithRetry sets the default retry policy for failing sessions.
func WithRetry(rp RetryPolicy) Option {
	return func(d *Driver) {
		d.retry = d.retry.merge(&rp)
	}
}

func New(core Core, opts ...Option) *Driver {
	d := &Driver{
		core:  core,
		work:  SleepWorkload,
		retry: DefaultRetryPolicy(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run registers every process in order, then starts one goroutine per
// process and waits for all of them. The first process failure cancels
// the others; their pending admission requests are abandoned.
func (d *Driver) Run(ctx context.Context, procs []Process) (Report, error) {
	for _, p := range procs {
		if len(p.Sessions) == 0 {
			return Report{}, fmt.Errorf("process %q: %w", p.Name, ErrEmptyPlan)
		}
	}

	runID := uuid.NewString()
	logger := lg.FromContext(ctx).With(lg.String("run", runID))

	report := Report{
		RunID: runID,
		PIDs:  make(map[string]procsched.ProcessID, len(procs)),
	}
	ids := make([]procsched.ProcessID, len(procs))
	for i, p := range procs {
		ids[i] = d.core.Register(p.Priority)
		report.PIDs[p.Name] = ids[i]
	}
	logger.Info("simulation started", lg.Int("processes", len(procs)))

	var rec eventLog
	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for i, p := range procs {
		id := ids[i]
		g.Go(func() error {
			if err := sleep(gctx, time.Until(start.Add(p.StartAfter))); err != nil {
				return fmt.Errorf("process %q: %w", p.Name, err)
			}
			return d.runProcess(gctx, runID, id, p, &rec)
		})
	}

	err := g.Wait()
	report.Events = rec.snapshot()
	if err != nil {
		logger.Error("simulation failed", lg.Any("error", err))
		return report, err
	}
	logger.Info("simulation finished", lg.Int("events", len(report.Events)))
	return report, nil
}

func (d *Driver) runProcess(ctx context.Context, runID string, id procsched.ProcessID, p Process, rec *eventLog) error {
	logger := lg.FromContext(ctx).With(
		lg.String("run", runID),
		lg.Int("pid", int(id)),
		lg.String("name", p.Name),
	)

	if err := d.core.AcquireInitial(ctx, id); err != nil {
		return fmt.Errorf("process %q: %w", p.Name, err)
	}
	for i, length := range p.Sessions {
		if i > 0 {
			if err := d.core.YieldAndReacquire(ctx, id); err != nil {
				return fmt.Errorf("process %q: %w", p.Name, err)
			}
		}
		rec.add(Event{PID: id, Session: i})
		logger.Info("session started", lg.Int("session", i))

		s := Session{PID: id, Name: p.Name, Index: i, Length: length}
		if err := d.runSession(ctx, s, d.retry.merge(p.Retry)); err != nil {
			if relErr := d.core.Release(id); relErr != nil {
				logger.Error("release after failed session", lg.Any("error", relErr))
				err = errors.Join(err, relErr)
			}
			return fmt.Errorf("process %q: %w", p.Name, err)
		}
	}

	if !p.Release {
		return nil
	}
	logger.Info("process released")
	return d.core.Release(id)
}

// runSession runs the workload for one session, retrying failures with
// exponential backoff. The process keeps its processor throughout.
func (d *Driver) runSession(ctx context.Context, s Session, pol RetryPolicy) error {
	logger := lg.FromContext(ctx).With(lg.Int("pid", int(s.PID)), lg.Int("session", s.Index))
	bo := boff.New(pol.Initial, pol.Max, time.Now().UnixNano())

	for attempt := 1; ; attempt++ {
		s.Attempt = attempt
		err := d.work(ctx, s)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt >= pol.Attempts {
			logger.Error("session failed", lg.Int("attempt", attempt), lg.Any("error", err))
			return fmt.Errorf("session %d: %w", s.Index, err)
		}

		delay := bo.Next()
		logger.Warn("session attempt failed; backing off",
			lg.Int("attempt", attempt),
			lg.String("sleep", delay.String()),
			lg.Any("error", err),
		)
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("session %d: %w", s.Index, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
