package procsched

import (
	"context"
)

// Options configure a Scheduler.
//
// All zero values are replaced with defaults in FillDefaults.
type Options struct {
	// Processors is the initial size of the virtual processor pool.
	// It can be changed later with Configure.
	Processors int

	// Ctx carries the logger used for events that have no caller
	// context of their own (Configure, Register, Release).
	Ctx context.Context

	// OnGrant, if set, is called under the scheduler lock each time a
	// process is granted a processor. It must not call back into the
	// scheduler.
	OnGrant func(id ProcessID, prio Priority)

	// OnMisuse, if set, receives out-of-sequence calls that were
	// accepted as hints. It is called under the scheduler lock.
	OnMisuse func(err error)
}

func (o *Options) FillDefaults() {
	if o.Processors < 0 {
		o.Processors = 0
	}
	if o.Ctx == nil {
		o.Ctx = context.Background()
	}
}
