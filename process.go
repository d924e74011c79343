package procsched

// ProcessID identifies a registered process. Ids are assigned
// sequentially from 0 and never reused.
type ProcessID int

// Priority is a scheduling level. Smaller values take precedence.
type Priority int

// State is the lifecycle state the scheduler last observed for a process.
//
// It is bookkeeping for snapshots and misuse reports; the admission
// protocol never consults it.
type State int

const (
	StateRegistered State = iota
	StateReady
	StateRunning
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "Registered"
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateReleased:
		return "Released"
	default:
		return "Unknown"
	}
}

// process is a registry entry. prio never changes after Register; the
// remaining fields are guarded by the scheduler lock, except wake which
// is only ever sent to without blocking.
type process struct {
	id    ProcessID
	prio  Priority
	state State

	// wake parks the owner between admission attempts. Capacity 1 keeps
	// a signal sent before the owner parks.
	wake chan struct{}
}

func newProcess(id ProcessID, prio Priority) *process {
	return &process{
		id:    id,
		prio:  prio,
		state: StateRegistered,
		wake:  make(chan struct{}, 1),
	}
}

// signal posts a wake token unless one is already pending.
func (p *process) signal() bool {
	select {
	case p.wake <- struct{}{}:
		return true
	default:
		return false
	}
}

// registry owns every process ever registered. Entries are never removed.
type registry struct {
	procs []*process
}

func (r *registry) add(prio Priority) *process {
	p := newProcess(ProcessID(len(r.procs)), prio)
	r.procs = append(r.procs, p)
	return p
}

func (r *registry) lookup(id ProcessID) (*process, bool) {
	if id < 0 || int(id) >= len(r.procs) {
		return nil, false
	}
	return r.procs[id], true
}

func (r *registry) len() int { return len(r.procs) }
