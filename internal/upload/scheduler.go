package upload

import (
	"sync"
	"time"
)

// Scheduler runs callbacks on timers. Each method returns a cancel function that is safe to call more than once.
type Scheduler interface {
	Every(d time.Duration, fn func()) (cancel func())
	After(d time.Duration, fn func()) (cancel func())
}

// ClockScheduler schedules callbacks on the wall clock.
type ClockScheduler struct{}

// Every calls fn every d until cancelled.
func (ClockScheduler) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// After calls fn once after d unless cancelled first.
func (ClockScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
