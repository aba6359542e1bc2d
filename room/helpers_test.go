package room

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wfunc/synergy/config"
	"github.com/wfunc/synergy/models"
	"github.com/wfunc/synergy/network"
)

type sent struct {
	room       string
	recipients []string
	to         string
	ev         network.Event
}

// RecordingBroadcaster is a test double for the Broadcaster interface.
type RecordingBroadcaster struct {
	mu     sync.Mutex
	events []sent
}

func (b *RecordingBroadcaster) BroadcastToRoom(roomCode string, recipients []string, ev network.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sent{room: roomCode, recipients: recipients, ev: ev})
	return nil
}

func (b *RecordingBroadcaster) SendTo(sessionID string, ev network.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sent{to: sessionID, ev: ev})
	return nil
}

func (b *RecordingBroadcaster) all(name string) []sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sent
	for _, s := range b.events {
		if s.ev.EventName() == name {
			out = append(out, s)
		}
	}
	return out
}

func (b *RecordingBroadcaster) count(name string) int {
	return len(b.all(name))
}

func (b *RecordingBroadcaster) last(name string) (network.Event, bool) {
	all := b.all(name)
	if len(all) == 0 {
		return nil, false
	}
	return all[len(all)-1].ev, true
}

func (b *RecordingBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

// MockRecorder is a test double for the Recorder interface.
type MockRecorder struct {
	mu      sync.Mutex
	records []models.GameRecord
}

func (r *MockRecorder) RecordSynergy(rec models.GameRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *MockRecorder) recorded() []models.GameRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.GameRecord(nil), r.records...)
}

// MockObserver counts lifecycle notifications.
type MockObserver struct {
	mu       sync.Mutex
	opened   int
	closed   int
	outcomes map[Outcome]int
	scores   []int
}

func (o *MockObserver) RoomOpened() { o.mu.Lock(); o.opened++; o.mu.Unlock() }
func (o *MockObserver) RoomClosed() { o.mu.Lock(); o.closed++; o.mu.Unlock() }
func (o *MockObserver) RoundResolved(outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[Outcome]int)
	}
	o.outcomes[outcome]++
}
func (o *MockObserver) SynergyScored(score int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scores = append(o.scores, score)
}

// sequenceCodes hands out the given codes in order, then repeats the last one.
type sequenceCodes struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (g *sequenceCodes) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[min(g.next, len(g.codes)-1)]
	g.next++
	return code
}

// fakeClock is the part of clockwork's fake clock the tests drive.
type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type testEnv struct {
	manager     *Manager
	clock       fakeClock
	broadcaster *RecordingBroadcaster
	recorder    *MockRecorder
	observer    *MockObserver
}

func newTestEnv(t *testing.T, codes ...string) *testEnv {
	t.Helper()
	if len(codes) == 0 {
		codes = []string{"ROOM01", "ROOM02", "ROOM03", "ROOM04"}
	}
	env := &testEnv{
		clock:       clockwork.NewFakeClock(),
		broadcaster: &RecordingBroadcaster{},
		recorder:    &MockRecorder{},
		observer:    &MockObserver{},
	}
	env.manager = NewRoomManager(config.DefaultGame(), env.broadcaster,
		WithClock(env.clock),
		WithCodeGenerator(&sequenceCodes{codes: codes}),
		WithRecorder(env.recorder),
		WithObserver(env.observer),
	)
	return env
}

// startedRoom creates a room hosted by "ann" with "bob" joined and starts round 1.
func (env *testEnv) startedRoom(t *testing.T) *Room {
	t.Helper()
	room, err := env.manager.CreateRoom("ann", "Ann")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := env.manager.JoinRoom("bob", room.Code, "Bob"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if err := env.manager.StartGame("ann", room.Code); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	return room
}

// waitFor polls cond until it holds; timer callbacks run on their own goroutine.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// settle gives stray timer goroutines a moment to run before asserting absence.
func settle() {
	time.Sleep(20 * time.Millisecond)
}

func (r *Room) currentEpoch() uint64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.epoch
}
