// Package clock abstracts the time source so that hold expiry and the
// sweeper can be exercised deterministically in tests.  All times are UTC.
package clock

import "time"

// Clock supplies the current instant.
type Clock interface {
    Now() time.Time
}

type systemClock struct{}

// NewSystem returns a Clock backed by time.Now in UTC.
func NewSystem() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }

type fixedClock struct {
    now time.Time
}

// NewFixed returns a Clock frozen at the given instant.  Intended for tests.
func NewFixed(t time.Time) Clock { return fixedClock{now: t.UTC()} }

func (f fixedClock) Now() time.Time { return f.now }
