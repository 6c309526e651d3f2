package scheduler

import "time"

// Clock abstracts wall-clock access so slot allocation is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// SystemClock returns a Clock reporting the current time in loc.
// A nil loc means the process-local timezone.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time { return time.Now().In(c.loc) }
