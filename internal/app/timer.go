package app

import (
	"sync"
	"time"
)

// Scheduler arms at most one pending delayed callback per session. Schedule
// always replaces a previously pending callback for the same id; Cancel is a
// no-op when nothing is pending.
type Scheduler interface {
	Schedule(sessionID string, delay time.Duration, fn func())
	Cancel(sessionID string)
}

// TimerService is the production Scheduler built on time.AfterFunc.
type TimerService struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimerService() *TimerService {
	return &TimerService{timers: make(map[string]*time.Timer)}
}

func (t *TimerService) Schedule(sessionID string, delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.timers[sessionID]; ok {
		old.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		// A replaced timer that lost the Stop race must not clear its successor.
		if t.timers[sessionID] == timer {
			delete(t.timers, sessionID)
		}
		t.mu.Unlock()
		fn()
	})
	t.timers[sessionID] = timer
}

func (t *TimerService) Cancel(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[sessionID]; ok {
		timer.Stop()
		delete(t.timers, sessionID)
	}
}
