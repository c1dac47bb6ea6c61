package session

import "time"

// RestTimer is a pausable countdown. Remaining time is derived from timestamps rather than counted ticks so that
// late or missed ticks cannot make it drift.
type RestTimer struct {
	active  bool
	running bool
	// remaining is the time left at anchor.
	remaining time.Duration
	anchor    time.Time
}

// Start begins a countdown of d at now, replacing any countdown in progress.
func (t *RestTimer) Start(now time.Time, d time.Duration) {
	t.active = d > 0
	t.running = t.active
	t.remaining = max(d, 0)
	t.anchor = now
}

// Pause freezes the remaining time. It does nothing unless the timer is running.
func (t *RestTimer) Pause(now time.Time) {
	if !t.running {
		return
	}
	t.remaining = t.Remaining(now)
	t.anchor = now
	t.running = false
}

// Resume continues a paused countdown from the frozen remaining time.
func (t *RestTimer) Resume(now time.Time) {
	if !t.active || t.running {
		return
	}
	t.anchor = now
	t.running = true
}

// Stop clears the countdown immediately.
func (t *RestTimer) Stop() {
	t.active = false
	t.running = false
	t.remaining = 0
}

// Active reports whether a rest period is in progress, paused or not.
func (t *RestTimer) Active() bool {
	return t.active
}

// Paused reports whether an active rest period is paused.
func (t *RestTimer) Paused() bool {
	return t.active && !t.running
}

// Remaining returns the time left at now.
func (t *RestTimer) Remaining(now time.Time) time.Duration {
	if !t.active {
		return 0
	}
	if !t.running {
		return t.remaining
	}
	return max(t.remaining-now.Sub(t.anchor), 0)
}

// RemainingSeconds returns the time left rounded up to whole seconds.
func (t *RestTimer) RemainingSeconds(now time.Time) int {
	r := t.Remaining(now)
	return int((r + time.Second - 1) / time.Second)
}

// Expire ends the rest period if the countdown has reached zero and reports whether it did.
func (t *RestTimer) Expire(now time.Time) bool {
	if !t.active || !t.running || t.Remaining(now) > 0 {
		return false
	}
	t.Stop()
	return true
}
