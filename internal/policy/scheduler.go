package policy

import "time"

// Scheduler runs one-shot delayed tasks. Tasks cannot be cancelled.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler schedules tasks on runtime timers.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
