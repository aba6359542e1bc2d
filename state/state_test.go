package state

import (
	"errors"
	"testing"
)

func TestMachine_InitialState(t *testing.T) {
	sm := NewMachine(Lobby)

	if sm.Current() != Lobby {
		t.Errorf("Expected initial phase lobby, got %s", sm.Current())
	}
	if !sm.Is(Lobby) {
		t.Error("Is(Lobby) should be true for the initial phase")
	}
}

func TestMachine_ChangeState(t *testing.T) {
	sm := NewMachine(Lobby)
	sm.AddTransition(Lobby, Playing, nil)

	var exited, entered bool
	var enteredFrom Phase = -1
	sm.OnExit(Lobby, func(to Phase) {
		exited = true
		if sm.Current() != Lobby {
			t.Error("OnExit should run before the phase changes")
		}
	})
	sm.OnEnter(Playing, func(from Phase) {
		entered = true
		enteredFrom = from
	})

	if err := sm.ChangeState(Playing); err != nil {
		t.Fatalf("ChangeState should not return an error, but got: %v", err)
	}
	if !exited {
		t.Error("Expected OnExit to be called on the old phase")
	}
	if !entered {
		t.Error("Expected OnEnter to be called on the new phase")
	}
	if enteredFrom != Lobby {
		t.Errorf("Expected OnEnter to receive lobby as previous phase, got %s", enteredFrom)
	}
	if sm.Current() != Playing {
		t.Errorf("Expected current phase playing, got %s", sm.Current())
	}
}

func TestMachine_UnregisteredTransition(t *testing.T) {
	sm := NewMachine(Lobby)
	sm.AddTransition(Lobby, Playing, nil)

	err := sm.ChangeState(Reveal)
	if !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if sm.Current() != Lobby {
		t.Errorf("Expected phase to remain lobby, got %s", sm.Current())
	}
}

func TestMachine_BlockedCondition(t *testing.T) {
	sm := NewMachine(Lobby)
	allowed := false
	sm.AddTransition(Lobby, Playing, func() bool { return allowed })

	entered := false
	sm.OnEnter(Playing, func(Phase) { entered = true })

	if sm.Can(Playing) {
		t.Error("Can should be false while the condition fails")
	}
	if err := sm.ChangeState(Playing); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if entered {
		t.Error("OnEnter should not be called if the transition is blocked")
	}

	allowed = true
	if err := sm.ChangeState(Playing); err != nil {
		t.Errorf("Expected transition to be allowed once the condition passes, got: %v", err)
	}
}

func TestMachine_PlayingToRevealOnlyOnce(t *testing.T) {
	sm := NewMachine(Playing)
	sm.AddTransition(Playing, Reveal, nil)

	if err := sm.ChangeState(Reveal); err != nil {
		t.Fatalf("first resolution should succeed: %v", err)
	}
	if err := sm.ChangeState(Reveal); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("second resolution should be rejected, got: %v", err)
	}
}

func TestPhase_String(t *testing.T) {
	tests := map[Phase]string{
		Lobby:     "lobby",
		Playing:   "playing",
		Reveal:    "reveal",
		Finished:  "finished",
		Phase(42): "phase(42)",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}
