// Package clock abstracts the wall clock so date bucketing is deterministic in tests.
package clock

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the real clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Func adapts a function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f()
}

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}
