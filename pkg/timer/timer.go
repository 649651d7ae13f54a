// Package timer provides countdown timers driven by an external clock.
//
// A Timer never reads the wall clock. Its owner advances it with Clock,
// so every timeout in the gateway is deterministic under test.
package timer

import "time"

// Timer is a countdown that expires once the clocked time reaches its timeout.
type Timer struct {
	timeout time.Duration
	elapsed time.Duration
	running bool
}

// New creates a stopped timer with the given timeout
func New(timeout time.Duration) *Timer {
	return &Timer{timeout: timeout}
}

// Start restarts the timer with its current timeout. A zero timeout leaves
// the timer stopped.
func (t *Timer) Start() {
	if t.timeout <= 0 {
		t.Stop()
		return
	}
	t.elapsed = 0
	t.running = true
}

// StartWith sets a new timeout and restarts the timer
func (t *Timer) StartWith(timeout time.Duration) {
	t.timeout = timeout
	t.Start()
}

// SetTimeout changes the timeout without touching the running state
func (t *Timer) SetTimeout(timeout time.Duration) {
	t.timeout = timeout
}

// Stop halts the timer. A stopped timer never expires.
func (t *Timer) Stop() {
	t.running = false
	t.elapsed = 0
}

// Clock advances a running timer by d
func (t *Timer) Clock(d time.Duration) {
	if t.running {
		t.elapsed += d
	}
}

// IsRunning reports whether the timer has been started and not stopped
func (t *Timer) IsRunning() bool {
	return t.running
}

// HasExpired reports whether a running timer has reached its timeout
func (t *Timer) HasExpired() bool {
	return t.running && t.timeout > 0 && t.elapsed >= t.timeout
}

// Timeout returns the configured timeout
func (t *Timer) Timeout() time.Duration {
	return t.timeout
}

// Remaining returns the time left before expiry, or zero when stopped or expired
func (t *Timer) Remaining() time.Duration {
	if !t.running || t.elapsed >= t.timeout {
		return 0
	}
	return t.timeout - t.elapsed
}
