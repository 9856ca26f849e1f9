// Package clock provides the production ports.Clock implementation: the
// real wall clock, as opposed to the fixed/fake clocks usecases tests
// construct inline.
package clock

import "time"

// System is the real wall-clock ports.Clock.
type System struct{}

// Now returns the current unix time in seconds.
func (System) Now() int64 { return time.Now().Unix() }
