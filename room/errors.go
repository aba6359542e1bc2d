package room

import "errors"

// User-facing errors. They are reported to the acting connection only and
// never change room state.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrGameInProgress   = errors.New("game has already started")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("only the host can do that")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrGameNotFinished  = errors.New("game has not finished")
	ErrAlreadyInRoom    = errors.New("already in this room")
)

// ErrNoCodeAvailable means the generator kept colliding with live rooms.
var ErrNoCodeAvailable = errors.New("no room code available")
