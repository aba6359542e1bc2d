package room

import (
	"github.com/wfunc/synergy/models"
	"github.com/wfunc/synergy/network"
)

// Broadcaster is the outbound side of the transport. Implementations must not
// block: rooms call it while holding their lock so that events keep their order.
type Broadcaster interface {
	BroadcastToRoom(roomCode string, recipients []string, ev network.Event) error
	SendTo(sessionID string, ev network.Event) error
}

// Recorder receives every game that ended in synergy. It must not block.
type Recorder interface {
	RecordSynergy(record models.GameRecord)
}

// Outcome classifies a resolved round.
type Outcome string

const (
	OutcomeSynergy  Outcome = "synergy"
	OutcomeMismatch Outcome = "mismatch"
	OutcomeTimeout  Outcome = "timeout"
)

// Observer is notified of room and round lifecycle events, for metrics.
type Observer interface {
	RoomOpened()
	RoomClosed()
	RoundResolved(outcome Outcome)
	SynergyScored(score int)
}

type nopRecorder struct{}

func (nopRecorder) RecordSynergy(models.GameRecord) {}

type nopObserver struct{}

func (nopObserver) RoomOpened()           {}
func (nopObserver) RoomClosed()           {}
func (nopObserver) RoundResolved(Outcome) {}
func (nopObserver) SynergyScored(int)     {}
