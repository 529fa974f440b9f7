package opportunity

import "time"

// SetClock overrides the detector's time source
func (d *Detector) SetClock(now func() time.Time) {
	d.now = now
}
