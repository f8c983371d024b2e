package job

import "time"

// Clock small interface which allows for stubbing the time.Now() function for unit testing
type Clock interface {
	Now() time.Time
}

// TimeClock implementation of Clock interface which delegates to Go's Time package
type TimeClock struct{}

func (tc TimeClock) Now() time.Time {
	return time.Now()
}

// WindowCalculator computes the start and end time of the metrics lookback
// window. Always uses the wall clock time as starting point for calculations
// so that repeated runs line up on the same interval boundaries.
type WindowCalculator struct {
	clock Clock
}

func NewWindowCalculator(clock Clock) WindowCalculator {
	return WindowCalculator{clock: clock}
}

// Calculate returns [end-lookback, end] where end is now rounded down to a
// multiple of interval. With floating set, no rounding happens and the
// window ends exactly at the current time.
func (w WindowCalculator) Calculate(lookback, interval time.Duration, floating bool) (time.Time, time.Time) {
	end := w.clock.Now().UTC()
	if !floating && interval > 0 {
		end = end.Truncate(interval)
	}
	start := end.Add(-lookback)
	return start, end
}
