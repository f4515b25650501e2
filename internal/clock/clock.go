// Package clock abstracts delayed callbacks so timer-driven code can run on
// the host timer facility in production and on a virtual timeline in tests.
package clock

import "time"

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the timer
	// already fired or was already stopped.
	Stop() bool
}

// Clock schedules callbacks after a delay.
//
// Implementations may invoke f on any goroutine. Callers that share state
// with f must synchronize it themselves.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// System is the Clock backed by time.AfterFunc.
var System Clock = systemClock{}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
