package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalerWakesEarlierCandidate(t *testing.T) {
	s := newSignaler()

	woken := make(chan bool, 1)
	go func() {
		woken <- s.wait(time.Second, time.Now().Add(time.Second))
	}()
	time.Sleep(20 * time.Millisecond)

	s.signalSchedulingChange(time.Now().Add(10 * time.Millisecond))
	select {
	case got := <-woken:
		assert.True(t, got, "an earlier candidate must cut the wait short")
	case <-time.After(500 * time.Millisecond):
		t.Fatal("wait was not woken by an earlier candidate")
	}
}

func TestSignalerIgnoresLaterCandidate(t *testing.T) {
	s := newSignaler()

	woken := make(chan bool, 1)
	go func() {
		woken <- s.wait(150*time.Millisecond, time.Now().Add(150*time.Millisecond))
	}()
	time.Sleep(20 * time.Millisecond)

	s.signalSchedulingChange(time.Now().Add(time.Hour))
	got := <-woken
	assert.False(t, got, "a candidate later than the intended wake-up must not shorten the wait")
}

func TestSignalerDisabledSuppressesSignals(t *testing.T) {
	s := newSignaler()
	s.setEnabled(false)

	woken := make(chan bool, 1)
	go func() {
		woken <- s.wait(150*time.Millisecond, time.Now().Add(150*time.Millisecond))
	}()
	time.Sleep(20 * time.Millisecond)

	s.signalSchedulingChange(time.Now())
	got := <-woken
	assert.False(t, got, "signals are no-ops while disabled")
}

func TestSignalerWakeNowBypassesDisabled(t *testing.T) {
	s := newSignaler()
	s.setEnabled(false)

	woken := make(chan bool, 1)
	go func() {
		woken <- s.wait(time.Second, time.Time{})
	}()
	time.Sleep(20 * time.Millisecond)

	s.wakeNow()
	select {
	case got := <-woken:
		assert.True(t, got, "wakeNow must reach the loop even when signals are disabled")
	case <-time.After(500 * time.Millisecond):
		t.Fatal("wakeNow did not wake the waiter")
	}
}
