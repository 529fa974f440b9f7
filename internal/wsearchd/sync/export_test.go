package sync

import "time"

// SetClock overrides the coordinator's time source
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// EffectiveResolveBudget exposes the resolution budget a run applies
func (c Config) EffectiveResolveBudget() time.Duration {
	return c.resolveBudget()
}
