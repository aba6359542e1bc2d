package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// eventually polls cond until it holds or a second has passed.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestScheduler_FiresAfterDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)

	var fired atomic.Int32
	h := s.AddTimer(20*time.Second, func() { fired.Add(1) })

	if !h.Armed() {
		t.Fatal("Timer should be armed right after AddTimer")
	}

	clock.Advance(19 * time.Second)
	time.Sleep(5 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("Timer fired before its delay elapsed")
	}

	clock.Advance(time.Second)
	eventually(t, func() bool { return fired.Load() == 1 })

	if h.Armed() {
		t.Error("Timer should not be armed after firing")
	}
	if s.Pending() != 0 {
		t.Errorf("Expected no pending timers, got %d", s.Pending())
	}
}

func TestScheduler_CancelPreventsFiring(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)

	var fired atomic.Int32
	h := s.AddTimer(time.Second, func() { fired.Add(1) })

	if !h.Cancel() {
		t.Error("Cancel of a pending timer should report true")
	}

	clock.Advance(2 * time.Second)
	time.Sleep(5 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("Cancelled timer should not fire")
	}
}

func TestScheduler_CancelIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)

	var fired atomic.Int32
	h := s.AddTimer(time.Second, func() { fired.Add(1) })
	clock.Advance(time.Second)
	eventually(t, func() bool { return fired.Load() == 1 })

	// already fired
	if h.Cancel() {
		t.Error("Cancel after firing should report false")
	}
	// twice
	if h.Cancel() {
		t.Error("Second cancel should report false")
	}

	var zero Handle
	if zero.Cancel() || zero.Armed() {
		t.Error("Zero handle should be inert")
	}
}

func TestScheduler_IndependentTimers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)

	var a, b atomic.Int32
	ha := s.AddTimer(time.Second, func() { a.Add(1) })
	s.AddTimer(2*time.Second, func() { b.Add(1) })

	if ha.ID() == 0 {
		t.Error("Armed handle should carry a non-zero id")
	}
	ha.Cancel()

	clock.Advance(2 * time.Second)
	eventually(t, func() bool { return b.Load() == 1 })
	if a.Load() != 0 {
		t.Error("Cancelling one timer must not affect the other")
	}
}
