package state

import (
	"errors"
	"fmt"
)

// Phase 是房间所处的游戏阶段
type Phase int

const (
	Lobby Phase = iota
	Playing
	Reveal
	Finished
)

func (p Phase) String() string {
	switch p {
	case Lobby:
		return "lobby"
	case Playing:
		return "playing"
	case Reveal:
		return "reveal"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Condition guards a transition; a nil condition always passes.
type Condition func() bool

// Machine is a phase machine with an explicit transition table. It has no
// lock of its own: the owning room serializes every call.
type Machine struct {
	current     Phase
	transitions map[Phase]map[Phase]Condition // from -> to -> condition
	onEnter     map[Phase]func(from Phase)
	onExit      map[Phase]func(to Phase)
}

func NewMachine(initial Phase) *Machine {
	return &Machine{
		current:     initial,
		transitions: make(map[Phase]map[Phase]Condition),
		onEnter:     make(map[Phase]func(Phase)),
		onExit:      make(map[Phase]func(Phase)),
	}
}

// AddTransition registers from -> to. Only registered transitions are allowed.
func (m *Machine) AddTransition(from, to Phase, condition Condition) {
	if _, exists := m.transitions[from]; !exists {
		m.transitions[from] = make(map[Phase]Condition)
	}
	m.transitions[from][to] = condition
}

// OnEnter sets the hook run after the machine has entered p.
func (m *Machine) OnEnter(p Phase, fn func(from Phase)) {
	m.onEnter[p] = fn
}

// OnExit sets the hook run before the machine leaves p.
func (m *Machine) OnExit(p Phase, fn func(to Phase)) {
	m.onExit[p] = fn
}

// Can reports whether ChangeState(to) would succeed right now.
func (m *Machine) Can(to Phase) bool {
	conditions, exists := m.transitions[m.current]
	if !exists {
		return false
	}
	condition, exists := conditions[to]
	if !exists {
		return false
	}
	return condition == nil || condition()
}

// ChangeState moves to the new phase, running the exit hook of the old phase
// and the enter hook of the new one.
func (m *Machine) ChangeState(to Phase) error {
	if !m.Can(to) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, m.current, to)
	}

	from := m.current
	if exit := m.onExit[from]; exit != nil {
		exit(to)
	}
	m.current = to
	if enter := m.onEnter[to]; enter != nil {
		enter(from)
	}
	return nil
}

func (m *Machine) Current() Phase {
	return m.current
}

func (m *Machine) Is(p Phase) bool {
	return m.current == p
}
