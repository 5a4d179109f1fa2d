package scheduler

import "sync/atomic"

// Timelock is the service-hours switch: while off, no new rides are
// accepted. Dispatchers flip it at the start and end of service.
type Timelock struct {
	on atomic.Bool
}

func NewTimelock(on bool) *Timelock {
	t := &Timelock{}
	t.on.Store(on)
	return t
}

func (t *Timelock) On() bool    { return t.on.Load() }
func (t *Timelock) Set(on bool) { t.on.Store(on) }
