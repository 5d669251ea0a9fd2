// Package system implements the fetch.Clock interface using the wall clock.
package system

import "time"

// Clock returns real wall-clock time.
type Clock struct{}

// New returns a system Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (c *Clock) Now() time.Time {
	return time.Now().UTC()
}
