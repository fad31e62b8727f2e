package clock

import "time"

// Clock provides current time abstraction for deterministic tests.
// Params: none.
// Returns: current wall-clock time.
type Clock interface {
	Now() time.Time
}

// RealClock reads current UTC time from system clock.
// Params: none.
// Returns: current UTC timestamp.
type RealClock struct{}

// Now returns current UTC time.
// Params: none.
// Returns: current UTC timestamp.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// FakeClock keeps programmable time for tests.
// Params: mutable current timestamp.
// Returns: deterministic clock implementation.
type FakeClock struct {
	Current time.Time
}

// Now returns configured fake timestamp.
// Params: none.
// Returns: current fake time.
func (c *FakeClock) Now() time.Time {
	return c.Current
}

// Advance moves fake time forward in place.
// Params: duration step.
// Returns: none.
func (c *FakeClock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}
