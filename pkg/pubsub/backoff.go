package pubsub

import (
	"runtime"
	"time"
)

// backoff implements the spin -> yield -> sleep escalation BlockingSend
// waits on for a full connection to drain, the same three-stage shape as
// the wait_while(predicate) contract in
// iceoryx2-cal/src/zero_copy_connection/common.rs's blocking_send. The
// exact spin/yield/sleep thresholds aren't pinned by anything in reach,
// so these are chosen to keep the common case (buffer drains within a
// handful of microseconds) spin-bound, and only fall back to sleeping
// once it's clear the wait will outlast a scheduling quantum.
type backoff struct {
	attempt int
}

const (
	backoffSpinAttempts  = 64
	backoffYieldAttempts = 256
	backoffSleepStep     = 50 * time.Microsecond
	backoffSleepMax      = 5 * time.Millisecond
)

// wait advances the backoff by one step: a tight spin for the first
// backoffSpinAttempts calls, a runtime.Gosched for every later call up
// to and including call number backoffYieldAttempts, then a linearly
// escalating sleep capped at backoffSleepMax.
func (b *backoff) wait() {
	b.attempt++
	switch {
	case b.attempt <= backoffSpinAttempts:
		return
	case b.attempt <= backoffYieldAttempts:
		runtime.Gosched()
	default:
		d := backoffSleepStep * time.Duration(b.attempt-backoffYieldAttempts)
		if d > backoffSleepMax {
			d = backoffSleepMax
		}
		time.Sleep(d)
	}
}
