// Package clock provides an abstraction for time operations so that
// fingerprinting, cache metadata, and scheduler timeouts can be tested
// with a controllable notion of "now" instead of calling time.Now()
// directly throughout the engine.
package clock

import "time"

// Clock is an interface for time operations. Code that needs "now"
// should accept a Clock instead of calling time.Now() directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time from the system clock.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Ensure RealClock implements Clock.
var _ Clock = RealClock{}

// Frozen is a Clock that always returns the same instant, for
// deterministic tests.
type Frozen struct {
	At time.Time
}

// Now returns the frozen instant.
func (f Frozen) Now() time.Time {
	return f.At
}

var _ Clock = Frozen{}
