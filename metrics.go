package procsched

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// cachePad is used to prevent false sharing between hot fields.
type cachePad = cpu.CacheLinePad

// MetricsPolicy defines hooks used by the scheduler to report admission
// activity.
//
// Implementations must be safe for concurrent use. Every method is
// called with the scheduler lock held, so they are expected to be
// lightweight and non-blocking.
type MetricsPolicy interface {
	// IncRegistered counts a newly registered process.
	IncRegistered()

	// IncGranted counts a processor grant.
	IncGranted()

	// IncYielded counts a voluntary yield.
	IncYielded()

	// IncReleased counts a release.
	IncReleased()

	// IncWakeups counts wake signals posted by the notify policy.
	IncWakeups()

	// IncCanceled counts admission requests abandoned on cancellation.
	IncCanceled()

	// IncMisuse counts out-of-sequence calls.
	IncMisuse()
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
//
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	granted atomic.Uint64
	wakeups atomic.Uint64
	_       cachePad

	registered atomic.Uint64
	yielded    atomic.Uint64
	released   atomic.Uint64
	canceled   atomic.Uint64
	misuse     atomic.Uint64
}

func (m *AtomicMetrics) IncRegistered() { m.registered.Add(1) }
func (m *AtomicMetrics) IncGranted()    { m.granted.Add(1) }
func (m *AtomicMetrics) IncYielded()    { m.yielded.Add(1) }
func (m *AtomicMetrics) IncReleased()   { m.released.Add(1) }
func (m *AtomicMetrics) IncWakeups()    { m.wakeups.Add(1) }
func (m *AtomicMetrics) IncCanceled()   { m.canceled.Add(1) }
func (m *AtomicMetrics) IncMisuse()     { m.misuse.Add(1) }

// Registered returns the number of processes registered so far.
func (m *AtomicMetrics) Registered() uint64 { return m.registered.Load() }

// Granted returns the total number of processor grants.
func (m *AtomicMetrics) Granted() uint64 { return m.granted.Load() }

// Yielded returns the total number of yields.
func (m *AtomicMetrics) Yielded() uint64 { return m.yielded.Load() }

// Released returns the total number of releases.
func (m *AtomicMetrics) Released() uint64 { return m.released.Load() }

// Wakeups returns the number of wake signals posted.
func (m *AtomicMetrics) Wakeups() uint64 { return m.wakeups.Load() }

// Canceled returns the number of abandoned admission requests.
func (m *AtomicMetrics) Canceled() uint64 { return m.canceled.Load() }

// Misuse returns the number of out-of-sequence calls.
func (m *AtomicMetrics) Misuse() uint64 { return m.misuse.Load() }

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
type NoopMetrics struct{}

func (m *NoopMetrics) IncRegistered() {}
func (m *NoopMetrics) IncGranted()    {}
func (m *NoopMetrics) IncYielded()    {}
func (m *NoopMetrics) IncReleased()   {}
func (m *NoopMetrics) IncWakeups()    {}
func (m *NoopMetrics) IncCanceled()   {}
func (m *NoopMetrics) IncMisuse()     {}
