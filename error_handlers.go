package procsched

import (
	"fmt"

	lg "github.com/Andrej220/go-utils/zlog"
)

// reportMisuse reports a call that broke the expected per-process
// sequence but was accepted anyway.
//
// Misuse never changes the outcome of the call. If no handler is
// registered, the report only reaches the log.
func (s *Scheduler[M]) reportMisuse(p *process, op string) {
	err := fmt.Errorf("%w: %s by process %d in state %s", ErrMisuse, op, p.id, p.state)
	s.metrics.IncMisuse()
	lg.FromContext(s.opts.Ctx).Warn("scheduler misuse",
		lg.Int("pid", int(p.id)),
		lg.String("op", op),
		lg.String("state", p.state.String()),
	)
	if s.opts.OnMisuse != nil {
		s.opts.OnMisuse(err)
	}
}

// reportGrant notifies the grant hook, if any.
func (s *Scheduler[M]) reportGrant(p *process) {
	if s.opts.OnGrant != nil {
		s.opts.OnGrant(p.id, p.prio)
	}
}
