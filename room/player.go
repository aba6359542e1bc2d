package room

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxNameLength caps display names, counted in runes.
const MaxNameLength = 24

// Player is one participant of a room. A player without a choice has not
// acted in the current round.
type Player struct {
	ID     string
	Name   string
	IsHost bool
	choice int
	chosen bool
}

// Choice returns the pick for the current round, if any.
func (p *Player) Choice() (int, bool) {
	return p.choice, p.chosen
}

func (p *Player) choose(n int) {
	p.choice = n
	p.chosen = true
}

func (p *Player) clearChoice() {
	p.choice = 0
	p.chosen = false
}

// Players keeps the participants of one room in join order, which decides
// who inherits the host role.
type Players struct {
	order []string
	byID  map[string]*Player
}

func NewPlayers() *Players {
	return &Players{byID: make(map[string]*Player)}
}

func (ps *Players) Add(p *Player) {
	if _, exists := ps.byID[p.ID]; exists {
		return
	}
	ps.order = append(ps.order, p.ID)
	ps.byID[p.ID] = p
}

func (ps *Players) Remove(id string) (*Player, bool) {
	p, exists := ps.byID[id]
	if !exists {
		return nil, false
	}
	delete(ps.byID, id)
	for i, pid := range ps.order {
		if pid == id {
			ps.order = append(ps.order[:i], ps.order[i+1:]...)
			break
		}
	}
	return p, true
}

func (ps *Players) Get(id string) (*Player, bool) {
	p, exists := ps.byID[id]
	return p, exists
}

func (ps *Players) Len() int {
	return len(ps.order)
}

// First returns the earliest-joined remaining player.
func (ps *Players) First() (*Player, bool) {
	if len(ps.order) == 0 {
		return nil, false
	}
	return ps.byID[ps.order[0]], true
}

// All returns the players in join order.
func (ps *Players) All() []*Player {
	all := make([]*Player, 0, len(ps.order))
	for _, id := range ps.order {
		all = append(all, ps.byID[id])
	}
	return all
}

func (ps *Players) IDs() []string {
	ids := make([]string, len(ps.order))
	copy(ids, ps.order)
	return ids
}

func (ps *Players) ClearChoices() {
	for _, p := range ps.byID {
		p.clearChoice()
	}
}

// AllChosen reports whether every player has picked this round.
func (ps *Players) AllChosen() bool {
	for _, p := range ps.byID {
		if !p.chosen {
			return false
		}
	}
	return len(ps.byID) > 0
}

// displayName validates a requested name and falls back to "Player N".
func displayName(requested string, position int) (string, error) {
	name := strings.TrimSpace(requested)
	if name == "" {
		return fmt.Sprintf("Player %d", position), nil
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrInvalidInput, MaxNameLength)
	}
	return name, nil
}
