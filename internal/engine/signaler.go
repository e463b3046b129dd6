package engine

import (
	"sync"
	"time"
)

// signaler is the cross-goroutine wake-up primitive shared by the facade
// and the scheduling loop: a single-slot wake channel plus a guarded
// "intended wake-up time", so a signal can be skipped when it would not
// actually bring the loop's wait forward.
type signaler struct {
	mu           sync.Mutex
	wake         chan struct{}
	waitingUntil time.Time // zero if the loop isn't currently waiting
	enabled      bool
}

func newSignaler() *signaler {
	return &signaler{
		wake:    make(chan struct{}, 1),
		enabled: true,
	}
}

// setEnabled toggles signalOnSchedulingChange: when disabled,
// signalSchedulingChange becomes a no-op and the loop only discovers
// changes at its next idle-wait expiry.
func (s *signaler) setEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// signalSchedulingChange wakes the loop if it is waiting with an intended
// wake-up later than candidate, or if candidate is the zero value (meaning
// "something changed, re-evaluate now" with no specific earlier time).
// Safe to call from any goroutine.
func (s *signaler) signalSchedulingChange(candidate time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return
	}
	if !s.waitingUntil.IsZero() && !candidate.IsZero() && !candidate.Before(s.waitingUntil) {
		return
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// wakeNow unconditionally wakes the loop, regardless of the enabled flag or
// any intended wake-up time. Used for lifecycle transitions (standby,
// shutdown), which must reach the loop even when scheduling-change signals
// are suppressed.
func (s *signaler) wakeNow() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// wait records that the loop is about to wait until no later than
// until, then blocks up to maxDuration or until woken. Returns true if
// woken early by a signal, false on timeout.
func (s *signaler) wait(maxDuration time.Duration, until time.Time) bool {
	s.mu.Lock()
	s.waitingUntil = until
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.waitingUntil = time.Time{}
		s.mu.Unlock()
	}()

	timer := time.NewTimer(maxDuration)
	defer timer.Stop()

	select {
	case <-s.wake:
		return true
	case <-timer.C:
		return false
	}
}
