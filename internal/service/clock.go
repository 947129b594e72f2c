package service

import "time"

// Clock abstracts wall time and one-shot timers so expiry can be driven in tests
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the part of *time.Timer the monitor needs
type Timer interface {
	Stop() bool
}

type systemClock struct{}

// SystemClock returns the real clock
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
