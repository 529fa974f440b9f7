package insights

import "time"

// SetClock overrides the service's time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
