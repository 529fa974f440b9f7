package retention

import "time"

// SetClock overrides the sweeper's time source
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}
