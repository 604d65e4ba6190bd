// Package clock provides time abstractions for production and testing
package clock

import "time"

// Clock abstracts time for production and testing.
// github.com/jonboulle/clockwork fake clocks satisfy it in tests.
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

// SystemClock provides production time implementation using the standard library
type SystemClock struct{}

// After returns a channel that sends the current time after the specified duration
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}
