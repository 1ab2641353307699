package wizard

import (
	"sync"
	"time"
)

// autosaver collapses a burst of mutation triggers into a single save issued
// after a quiet period. It is the sole owner of the debounce and in-flight
// logic: the store's mutation paths only call Trigger, never the save itself.
type autosaver struct {
	mu       sync.Mutex
	debounce time.Duration
	timer    *time.Timer
	inFlight bool
	pending  bool
	save     func()
}

func newAutosaver(debounce time.Duration, save func()) *autosaver {
	return &autosaver{
		debounce: debounce,
		save:     save,
	}
}

// Trigger schedules a save after the quiet period, restarting the countdown
// on every call.
func (a *autosaver) Trigger() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, a.fire)
}

// Flush runs a save immediately, bypassing the debounce. A save already in
// flight is never duplicated; the flush is queued behind it instead.
func (a *autosaver) Flush() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	a.fire()
}

func (a *autosaver) fire() {
	a.mu.Lock()
	if a.inFlight {
		a.pending = true
		a.mu.Unlock()
		return
	}
	a.inFlight = true
	a.mu.Unlock()

	a.save()

	a.mu.Lock()
	a.inFlight = false
	rerun := a.pending
	a.pending = false
	a.mu.Unlock()

	if rerun {
		a.fire()
	}
}
