// timer/timer.go
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler runs one-shot callbacks after a delay on the given clock.
// Every timer gets an id so it can be cancelled after the fact; cancelling a
// timer that already fired or was already cancelled does nothing.
type Scheduler struct {
	clock  clockwork.Clock
	mutex  sync.Mutex
	nextId int64
	timers map[int64]clockwork.Timer
}

func NewScheduler(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock:  clock,
		nextId: 1,
		timers: make(map[int64]clockwork.Timer),
	}
}

// Clock returns the clock the scheduler runs on.
func (m *Scheduler) Clock() clockwork.Clock {
	return m.clock
}

// AddTimer arms a one-shot timer and returns a handle to cancel it.
func (m *Scheduler) AddTimer(delay time.Duration, callback func()) Handle {
	m.mutex.Lock()
	id := m.nextId
	m.nextId++
	m.timers[id] = nil
	m.mutex.Unlock()

	// AfterFunc is called without the lock held: a clock may fire a
	// non-positive delay straight away.
	t := m.clock.AfterFunc(delay, func() { m.fire(id, callback) })

	m.mutex.Lock()
	_, pending := m.timers[id]
	if pending {
		m.timers[id] = t
	}
	m.mutex.Unlock()
	if !pending {
		t.Stop()
	}

	return Handle{id: id, scheduler: m}
}

// RemoveTimer cancels the timer with the given id. It reports whether the
// timer was still pending.
func (m *Scheduler) RemoveTimer(timerId int64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	t, exists := m.timers[timerId]
	if !exists {
		return false
	}
	delete(m.timers, timerId)
	if t != nil {
		t.Stop()
	}
	return true
}

// Pending returns the number of timers that have neither fired nor been cancelled.
func (m *Scheduler) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.timers)
}

func (m *Scheduler) fire(timerId int64, callback func()) {
	m.mutex.Lock()
	_, exists := m.timers[timerId]
	delete(m.timers, timerId)
	m.mutex.Unlock()

	// cancelled while the clock was already firing
	if !exists {
		return
	}
	callback()
}

func (m *Scheduler) pending(timerId int64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, exists := m.timers[timerId]
	return exists
}

// Handle refers to one armed timer. The zero Handle is valid and never armed.
type Handle struct {
	id        int64
	scheduler *Scheduler
}

// ID returns the scheduler id of the timer, 0 for the zero Handle.
func (h Handle) ID() int64 {
	return h.id
}

// Cancel stops the timer if it has not fired yet. It is always safe to call.
func (h Handle) Cancel() bool {
	if h.scheduler == nil {
		return false
	}
	return h.scheduler.RemoveTimer(h.id)
}

// Armed reports whether the timer is still waiting to fire.
func (h Handle) Armed() bool {
	if h.scheduler == nil {
		return false
	}
	return h.scheduler.pending(h.id)
}
