package battle

import (
	"cmp"
	"slices"

	"github.com/battlegrid/engine/pkg/core"
)

// State is a step of the battle state machine.
type State int

const (
	// StateTurnReady means the side holding the turn flag may act.
	StateTurnReady State = iota
	// StateRoundDraining means an action just resolved and the dead must be cleared.
	StateRoundDraining
	// StateRoundOver means no unit is left to act in this round.
	StateRoundOver
	// StateBattleOver is terminal.
	StateBattleOver
)

func (s State) String() string {
	switch s {
	case StateTurnReady:
		return "TurnReady"
	case StateRoundDraining:
		return "RoundDraining"
	case StateRoundOver:
		return "RoundOver"
	case StateBattleOver:
		return "BattleOver"
	default:
		return "Unknown"
	}
}

// side is one army's view of the current round.
type side struct {
	army  *core.Army
	order []*core.Unit
	acted map[*core.Unit]struct{}
}

func newSide(army *core.Army) *side {
	s := &side{army: army}
	s.reset()
	return s
}

// reset starts a new round for the side.
func (s *side) reset() {
	s.acted = make(map[*core.Unit]struct{})
	s.sortOrder()
}

// sortOrder rebuilds the turn order: living units by descending base attack,
// roster order on ties.
func (s *side) sortOrder() {
	s.order = s.army.AliveUnits()
	slices.SortStableFunc(s.order, func(a, b *core.Unit) int {
		return cmp.Compare(b.BaseAttack, a.BaseAttack)
	})
}

// next returns the first unit of the turn order that has not acted yet.
func (s *side) next() *core.Unit {
	for _, u := range s.order {
		if _, done := s.acted[u]; !done {
			return u
		}
	}
	return nil
}

// pending reports whether a living unit has yet to act this round.
func (s *side) pending() bool {
	for _, u := range s.order {
		if _, done := s.acted[u]; !done && u.IsAlive() {
			return true
		}
	}
	return false
}

// removeDead drops dead units from the roster and the acted set.
func (s *side) removeDead() {
	s.army.Units = slices.DeleteFunc(s.army.Units, func(u *core.Unit) bool {
		return !u.IsAlive()
	})
	for u := range s.acted {
		if !u.IsAlive() {
			delete(s.acted, u)
		}
	}
}

// machine drives a single battle. It is not safe for concurrent use.
type machine struct {
	player   *side
	computer *side
	log      core.BattleLog

	state        State
	computerTurn bool
	progress     bool

	// per-round counters folded into the result by the simulator
	actions int
	attacks int
	moves   int
	skipped int
}

func newMachine(player, computer *core.Army, log core.BattleLog) *machine {
	return &machine{
		player:   newSide(player),
		computer: newSide(computer),
		log:      log,
		state:    StateTurnReady,
	}
}

func (m *machine) bothAlive() bool {
	return m.player.army.HasAlive() && m.computer.army.HasAlive()
}

// beginRound rebuilds the turn orders. The computer side always opens a round.
func (m *machine) beginRound() {
	m.player.reset()
	m.computer.reset()
	m.computerTurn = true
	m.progress = false
	m.actions, m.attacks, m.moves, m.skipped = 0, 0, 0, 0
	m.state = StateTurnReady
}

func (m *machine) current() *side {
	if m.computerTurn {
		return m.computer
	}
	return m.player
}

// step advances the machine by one transition.
func (m *machine) step() {
	switch m.state {
	case StateTurnReady:
		m.takeTurn()
	case StateRoundDraining:
		m.drain()
	}
}

// runRound steps until the round or the battle is over.
func (m *machine) runRound() {
	for m.state == StateTurnReady || m.state == StateRoundDraining {
		m.step()
	}
}

// takeTurn lets the next unit of the side holding the flag act.
func (m *machine) takeTurn() {
	if !m.bothAlive() {
		m.state = StateRoundOver
		return
	}

	s := m.current()
	u := s.next()
	if u == nil {
		m.computerTurn = !m.computerTurn
		if m.current().next() == nil {
			m.state = StateRoundOver
		}
		return
	}
	s.acted[u] = struct{}{}

	// A unit killed before its turn only burns the turn.
	if !u.IsAlive() {
		m.skipped++
		m.computerTurn = !m.computerTurn
		return
	}

	before := u.Position()
	var target *core.Unit
	if u.Program != nil {
		target = u.Program.Attack()
	}
	moved := u.Position() != before

	m.actions++
	if target != nil {
		m.attacks++
		if m.log != nil {
			m.log.PrintBattleLog(u, target)
		}
	}
	if moved {
		m.moves++
	}
	if target != nil || moved {
		m.progress = true
	}

	m.computerTurn = !m.computerTurn
	m.state = StateRoundDraining
}

// drain clears the dead after an action and decides whether the round goes on.
func (m *machine) drain() {
	m.player.removeDead()
	m.computer.removeDead()
	m.player.sortOrder()
	m.computer.sortOrder()

	if !m.player.pending() && !m.computer.pending() {
		m.state = StateRoundOver
		return
	}
	m.state = StateTurnReady
}
