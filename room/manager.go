package room

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/wfunc/synergy/config"
	"github.com/wfunc/synergy/logger"
	"github.com/wfunc/synergy/models"
	"github.com/wfunc/synergy/timer"
)

const maxCodeAttempts = 100

// Manager is the process-wide room registry. It maps room codes to rooms and
// remembers which room each connection is in.
type Manager struct {
	cfg         config.GameConfig
	codes       CodeGenerator
	scheduler   *timer.Scheduler
	broadcaster Broadcaster
	recorder    Recorder
	observer    Observer

	rooms   map[string]*Room
	members map[string]string // sessionID -> room code
	mutex   sync.RWMutex
}

type Option func(*Manager)

// WithClock runs round and reveal timers on the given clock.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) { m.scheduler = timer.NewScheduler(clock) }
}

func WithCodeGenerator(g CodeGenerator) Option {
	return func(m *Manager) { m.codes = g }
}

func WithRecorder(rec Recorder) Option {
	return func(m *Manager) { m.recorder = rec }
}

func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(cfg config.GameConfig, broadcaster Broadcaster, opts ...Option) *Manager {
	m := &Manager{
		cfg:         cfg,
		broadcaster: broadcaster,
		rooms:       make(map[string]*Room),
		members:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.scheduler == nil {
		m.scheduler = timer.NewScheduler(clockwork.NewRealClock())
	}
	if m.codes == nil {
		m.codes = NewRandomCodes(cfg.RoomCodeAlphabet, cfg.RoomCodeLength)
	}
	if m.recorder == nil {
		m.recorder = nopRecorder{}
	}
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	return m
}

// CreateRoom opens a room with the caller as host. A caller already in
// another room leaves it first.
func (m *Manager) CreateRoom(sessionID, playerName string) (*Room, error) {
	name, err := displayName(playerName, 1)
	if err != nil {
		return nil, err
	}
	m.Leave(sessionID)

	host := &Player{ID: sessionID, Name: name}

	m.mutex.Lock()
	code, err := m.uniqueCode()
	if err != nil {
		m.mutex.Unlock()
		return nil, err
	}
	room := newRoom(code, host, m.cfg, m.scheduler, m.broadcaster, m.recorder, m.observer)
	m.rooms[code] = room
	m.members[sessionID] = code
	m.mutex.Unlock()

	m.observer.RoomOpened()
	logger.Log.Infof("Player %s (%s) created room %s", name, sessionID, code)
	room.announceHost()
	return room, nil
}

// uniqueCode draws codes until one is free. Caller holds m.mutex.
func (m *Manager) uniqueCode() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := NormalizeCode(m.codes.Generate())
		if _, exists := m.rooms[code]; !exists && code != "" {
			return code, nil
		}
	}
	return "", ErrNoCodeAvailable
}

// JoinRoom adds the caller to the room with the given code.
func (m *Manager) JoinRoom(sessionID, code, playerName string) (Player, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Player{}, fmt.Errorf("%w: missing room code", ErrInvalidInput)
	}

	m.mutex.RLock()
	current, inRoom := m.members[sessionID]
	m.mutex.RUnlock()
	if inRoom && current == code {
		return Player{}, ErrAlreadyInRoom
	}

	room, exists := m.GetRoom(code)
	if !exists {
		return Player{}, ErrRoomNotFound
	}

	p, err := room.Join(sessionID, playerName)
	if err != nil {
		return Player{}, err
	}

	m.mutex.Lock()
	previous, hadPrevious := m.members[sessionID]
	m.members[sessionID] = code
	m.mutex.Unlock()

	// a connection is in at most one room: drop the old one only once the
	// new join has succeeded
	if hadPrevious && previous != code {
		m.leaveRoom(previous, sessionID)
	}
	return p, nil
}

// Leave removes the caller from its room, if any, and destroys the room when
// it becomes empty.
func (m *Manager) Leave(sessionID string) {
	m.mutex.Lock()
	code, inRoom := m.members[sessionID]
	delete(m.members, sessionID)
	m.mutex.Unlock()

	if inRoom {
		m.leaveRoom(code, sessionID)
	}
}

func (m *Manager) leaveRoom(code, sessionID string) {
	room, exists := m.GetRoom(code)
	if !exists {
		return
	}
	if empty := room.Leave(sessionID); !empty {
		return
	}

	m.mutex.Lock()
	if m.rooms[code] == room {
		delete(m.rooms, code)
	}
	m.mutex.Unlock()
	m.observer.RoomClosed()
}

// StartGame starts the caller's room.
func (m *Manager) StartGame(sessionID, code string) error {
	room, err := m.roomOf(sessionID, code)
	if err != nil {
		return err
	}
	return room.StartGame(sessionID)
}

// SubmitNumber records the caller's pick for the current round.
func (m *Manager) SubmitNumber(sessionID, code string, number int) error {
	room, err := m.roomOf(sessionID, code)
	if err != nil {
		return err
	}
	return room.Submit(sessionID, number)
}

// RequestNewGame restarts the caller's finished game.
func (m *Manager) RequestNewGame(sessionID, code string) error {
	room, err := m.roomOf(sessionID, code)
	if err != nil {
		return err
	}
	return room.RequestNewGame(sessionID)
}

// roomOf returns the room named by code, provided the caller is in it.
func (m *Manager) roomOf(sessionID, code string) (*Room, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: missing room code", ErrInvalidInput)
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[code]
	if !exists || m.members[sessionID] != code {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[NormalizeCode(code)]
	return room, exists
}

// RoomOf returns the code of the room the connection is in.
func (m *Manager) RoomOf(sessionID string) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	code, exists := m.members[sessionID]
	return code, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Stats summarizes the live rooms.
func (m *Manager) Stats() models.RoomStats {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.RUnlock()

	stats := models.RoomStats{Phases: make(map[string]int)}
	for _, r := range rooms {
		snap := r.Snapshot()
		stats.Rooms++
		stats.Players += len(snap.Players)
		stats.Phases[snap.Phase.String()]++
	}
	return stats
}
