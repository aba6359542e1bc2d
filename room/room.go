// room/room.go
package room

import (
	"math"
	"sync"
	"time"

	"github.com/wfunc/synergy/config"
	"github.com/wfunc/synergy/logger"
	"github.com/wfunc/synergy/models"
	"github.com/wfunc/synergy/network"
	"github.com/wfunc/synergy/state"
	"github.com/wfunc/synergy/timer"
)

const disconnectNotice = "A player disconnected. Returning to lobby."

// Score is what a synergy in the given round is worth.
func Score(round int) int {
	return max(10, 110-10*round)
}

// Room 是一个房间的完整游戏会话。所有修改都在 mutex 下串行执行，
// 因此"全部提交"与"超时"两条结算路径只会有一条生效。
type Room struct {
	Code string

	cfg         config.GameConfig
	scheduler   *timer.Scheduler
	broadcaster Broadcaster
	recorder    Recorder
	observer    Observer

	mutex     sync.Mutex
	players   *Players
	hostID    string
	round     int
	machine   *state.Machine
	deadline  timer.Handle
	reveal    timer.Handle
	epoch     uint64 // bumped on every entry into Playing
	startedAt time.Time
	closed    bool
}

func newRoom(code string, host *Player, cfg config.GameConfig, scheduler *timer.Scheduler,
	broadcaster Broadcaster, recorder Recorder, observer Observer) *Room {
	r := &Room{
		Code:        code,
		cfg:         cfg,
		scheduler:   scheduler,
		broadcaster: broadcaster,
		recorder:    recorder,
		observer:    observer,
		players:     NewPlayers(),
		hostID:      host.ID,
		round:       1,
	}
	host.IsHost = true
	r.players.Add(host)

	m := state.NewMachine(state.Lobby)
	m.AddTransition(state.Lobby, state.Playing, r.hasEnoughPlayers)
	m.AddTransition(state.Finished, state.Playing, r.hasEnoughPlayers)
	m.AddTransition(state.Playing, state.Reveal, nil)
	m.AddTransition(state.Reveal, state.Playing, nil)
	m.AddTransition(state.Reveal, state.Finished, nil)
	for _, from := range []state.Phase{state.Playing, state.Reveal, state.Finished} {
		m.AddTransition(from, state.Lobby, nil)
	}
	m.OnEnter(state.Playing, r.enterPlaying)
	m.OnExit(state.Playing, func(state.Phase) { r.deadline.Cancel() })
	m.OnExit(state.Reveal, func(state.Phase) { r.reveal.Cancel() })
	m.OnEnter(state.Lobby, r.enterLobby)
	r.machine = m

	return r
}

func (r *Room) hasEnoughPlayers() bool {
	return r.players.Len() >= r.cfg.MinPlayers
}

// --- 对外操作 ---

// Join adds a player to a room that is still in the lobby.
func (r *Room) Join(sessionID, name string) (Player, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return Player{}, ErrRoomNotFound
	}
	if _, exists := r.players.Get(sessionID); exists {
		return Player{}, ErrAlreadyInRoom
	}
	if r.players.Len() >= r.cfg.MaxPlayers {
		return Player{}, ErrRoomFull
	}
	if !r.machine.Is(state.Lobby) {
		return Player{}, ErrGameInProgress
	}
	displayed, err := displayName(name, r.players.Len()+1)
	if err != nil {
		return Player{}, err
	}

	p := &Player{ID: sessionID, Name: displayed}
	r.players.Add(p)
	logger.Log.Infof("Player %s (%s) joined room %s", p.Name, sessionID, r.Code)

	r.sendTo(sessionID, network.JoinSuccess{RoomCode: r.Code})
	r.broadcastLobby()
	return *p, nil
}

// announceHost tells the creator it joined and publishes the first lobby.
func (r *Room) announceHost() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sendTo(r.hostID, network.JoinSuccess{RoomCode: r.Code})
	r.broadcastLobby()
}

// StartGame starts round 1. Host only, from the lobby, with enough players.
func (r *Room) StartGame(sessionID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if sessionID != r.hostID {
		return ErrUnauthorized
	}
	if !r.machine.Is(state.Lobby) {
		return ErrGameInProgress
	}
	if !r.hasEnoughPlayers() {
		return ErrNotEnoughPlayers
	}

	r.round = 1
	return r.machine.ChangeState(state.Playing)
}

// RequestNewGame restarts a finished game at round 1. Host only.
func (r *Room) RequestNewGame(sessionID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if sessionID != r.hostID {
		return ErrUnauthorized
	}
	if !r.machine.Is(state.Finished) {
		return ErrGameNotFinished
	}

	r.round = 1
	return r.machine.ChangeState(state.Playing)
}

// Submit records a player's pick. A second pick in the same round, or a pick
// outside Playing, is ignored. The last outstanding pick resolves the round.
func (r *Room) Submit(sessionID string, number int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if !r.machine.Is(state.Playing) {
		return nil
	}
	p, exists := r.players.Get(sessionID)
	if !exists {
		return nil
	}
	if _, chosen := p.Choice(); chosen {
		return nil
	}
	if number < r.cfg.ChoiceMin || number > r.cfg.ChoiceMax {
		return ErrInvalidInput
	}

	p.choose(number)
	r.broadcast(network.PlayerChoiceMade{PlayerID: sessionID})

	if r.players.AllChosen() {
		r.resolve(false)
	}
	return nil
}

// Leave removes a player. It reports true when the room is now empty and has
// been closed; the caller then drops it from the registry.
func (r *Room) Leave(sessionID string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, removed := r.players.Remove(sessionID); !removed {
		return r.closed
	}

	if r.players.Len() == 0 {
		r.closed = true
		r.deadline.Cancel()
		r.reveal.Cancel()
		logger.Log.Infof("Room %s closed - no players remaining", r.Code)
		return true
	}

	if r.hostID == sessionID {
		next, _ := r.players.First()
		next.IsHost = true
		r.hostID = next.ID
		logger.Log.Infof("Host reassigned to %s in room %s", next.ID, r.Code)
	}

	if !r.machine.Is(state.Lobby) {
		from := r.machine.Current()
		if err := r.machine.ChangeState(state.Lobby); err != nil {
			logger.Log.Errorf("Room %s could not return to lobby from %s: %v", r.Code, from, err)
		} else {
			logger.Log.Infof("Room %s returned to lobby from %s after a disconnect", r.Code, from)
			r.broadcast(network.GameEndedByDisconnect{Message: disconnectNotice})
		}
	}

	r.broadcastLobby()
	return false
}

// --- 状态机回调 (持有 mutex) ---

func (r *Room) enterPlaying(from state.Phase) {
	r.epoch++
	r.players.ClearChoices()
	if r.round == 1 {
		r.startedAt = r.scheduler.Clock().Now()
	}

	epoch := r.epoch
	r.deadline = r.scheduler.AddTimer(r.cfg.RoundDuration, func() { r.onDeadline(epoch) })

	logger.Log.Infof("Starting round %d in room %s", r.round, r.Code)
	r.broadcast(network.GameStarted{
		Round:    r.round,
		Duration: int(math.Ceil(r.cfg.RoundDuration.Seconds())),
	})
}

func (r *Room) enterLobby(from state.Phase) {
	r.round = 1
	r.players.ClearChoices()
	r.startedAt = time.Time{}
}

// resolve moves Playing -> Reveal exactly once per round; any later trigger
// finds the room outside Playing and does nothing.
func (r *Room) resolve(timedOut bool) {
	if !r.machine.Is(state.Playing) {
		return
	}
	// leaving Playing cancels the deadline before anything else happens
	if err := r.machine.ChangeState(state.Reveal); err != nil {
		logger.Log.Errorf("Room %s failed to reveal round %d: %v", r.Code, r.round, err)
		return
	}

	results, synergy := evaluate(r.players.All(), timedOut)
	outcome := OutcomeMismatch
	switch {
	case synergy:
		outcome = OutcomeSynergy
	case timedOut:
		outcome = OutcomeTimeout
	}

	epoch := r.epoch
	r.reveal = r.scheduler.AddTimer(r.cfg.RevealDelay, func() { r.onRevealElapsed(epoch, synergy) })

	logger.Log.Infow("Round resolved",
		"room", r.Code, "round", r.round, "outcome", outcome, "timed_out", timedOut)
	r.broadcast(network.RoundResult{Results: results, IsSynergy: synergy, TimedOut: timedOut})
	r.observer.RoundResolved(outcome)
}

// evaluate builds the reveal payload and decides synergy: nobody timed out,
// everyone picked, and all picks are equal.
func evaluate(players []*Player, timedOut bool) ([]network.PlayerResult, bool) {
	results := make([]network.PlayerResult, 0, len(players))
	var first int
	submitted := 0
	allEqual := true

	for _, p := range players {
		res := network.PlayerResult{ID: p.ID, Name: p.Name}
		if n, chosen := p.Choice(); chosen {
			res.Choice = &n
			if submitted == 0 {
				first = n
			} else if n != first {
				allEqual = false
			}
			submitted++
		}
		results = append(results, res)
	}

	synergy := !timedOut && submitted > 0 && submitted == len(players) && allEqual
	return results, synergy
}

// --- 定时器回调 ---

func (r *Room) onDeadline(epoch uint64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed || r.epoch != epoch {
		return
	}
	logger.Log.Infof("Round %d timed out in room %s", r.round, r.Code)
	r.resolve(true)
}

func (r *Room) onRevealElapsed(epoch uint64, synergy bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed || r.epoch != epoch || !r.machine.Is(state.Reveal) {
		return
	}

	if !synergy {
		r.round++
		if err := r.machine.ChangeState(state.Playing); err != nil {
			logger.Log.Errorf("Room %s failed to start round %d: %v", r.Code, r.round, err)
		}
		return
	}

	if err := r.machine.ChangeState(state.Finished); err != nil {
		logger.Log.Errorf("Room %s failed to finish: %v", r.Code, err)
		return
	}

	now := r.scheduler.Clock().Now()
	score := Score(r.round)
	total := now.Sub(r.startedAt)

	logger.Log.Infow("Synergy achieved",
		"room", r.Code, "round", r.round, "score", score, "total_time", total)
	r.broadcast(network.SynergyAchieved{
		Round:     r.round,
		Score:     score,
		TotalTime: total.Milliseconds(),
		HostID:    r.hostID,
	})
	r.observer.SynergyScored(score)

	names := make([]string, 0, r.players.Len())
	for _, p := range r.players.All() {
		names = append(names, p.Name)
	}
	r.recorder.RecordSynergy(models.GameRecord{
		RoomCode:   r.Code,
		Round:      r.round,
		Score:      score,
		TotalTime:  total,
		Players:    names,
		FinishedAt: now,
	})
}

// --- 广播 ---

func (r *Room) broadcast(ev network.Event) {
	if err := r.broadcaster.BroadcastToRoom(r.Code, r.players.IDs(), ev); err != nil {
		logger.Log.Warnf("Broadcast %s to room %s failed: %v", ev.EventName(), r.Code, err)
	}
}

func (r *Room) sendTo(sessionID string, ev network.Event) {
	if err := r.broadcaster.SendTo(sessionID, ev); err != nil {
		logger.Log.Warnf("Send %s to %s failed: %v", ev.EventName(), sessionID, err)
	}
}

func (r *Room) broadcastLobby() {
	players := make([]network.LobbyPlayer, 0, r.players.Len())
	for _, p := range r.players.All() {
		players = append(players, network.LobbyPlayer{ID: p.ID, Name: p.Name, IsHost: p.IsHost})
	}
	r.broadcast(network.UpdateLobby{Players: players, HostID: r.hostID})
}

// --- 查询 ---

// Snapshot is a consistent copy of a room's state.
type Snapshot struct {
	Code    string
	Phase   state.Phase
	Round   int
	HostID  string
	Players []Player
}

func (r *Room) Snapshot() Snapshot {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	snap := Snapshot{
		Code:   r.Code,
		Phase:  r.machine.Current(),
		Round:  r.round,
		HostID: r.hostID,
	}
	for _, p := range r.players.All() {
		snap.Players = append(snap.Players, *p)
	}
	return snap
}
