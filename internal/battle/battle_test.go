package battle

import (
	"context"
	"errors"
	"testing"

	"github.com/battlegrid/engine/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLog collects every attack notification.
type recordingLog struct {
	pairs [][2]string
}

func (l *recordingLog) PrintBattleLog(attacker, target *core.Unit) {
	l.pairs = append(l.pairs, [2]string{attacker.Name, target.Name})
}

func newUnit(name string, attack, health int) *core.Unit {
	return &core.Unit{Name: name, UnitType: "Test", BaseAttack: attack, Health: health}
}

// script installs a program that appends the unit's name to trace and then
// defers to fn with the 1-based call count. A nil fn does nothing.
func script(u *core.Unit, trace *[]string, fn func(call int) *core.Unit) {
	calls := 0
	u.Program = core.ProgramFunc(func() *core.Unit {
		calls++
		*trace = append(*trace, u.Name)
		if fn == nil {
			return nil
		}
		return fn(calls)
	})
}

// moveOnce shifts the unit one cell on its first call only.
func moveOnce(u *core.Unit) func(int) *core.Unit {
	return func(call int) *core.Unit {
		if call == 1 {
			u.X++
		}
		return nil
	}
}

func newSimulator(t *testing.T, opts ...Option) *Simulator {
	t.Helper()
	s, err := New(opts...)
	require.NoError(t, err)
	return s
}

func TestSimulate_NilArmies(t *testing.T) {
	var trace []string
	u := newUnit("u", 1, 1)
	script(u, &trace, nil)
	army := core.NewArmy([]*core.Unit{u})

	s := newSimulator(t)

	res, err := s.Simulate(context.Background(), nil, army)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	res, err = s.Simulate(context.Background(), army, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	assert.Empty(t, trace)
	assert.Len(t, army.Units, 1)
}

func TestSimulate_OneShotKill(t *testing.T) {
	var trace []string
	p := newUnit("player", 1, 5)
	c := newUnit("computer", 10, 10)
	script(p, &trace, func(int) *core.Unit {
		t.Fatal("defeated unit must not act")
		return nil
	})
	script(c, &trace, func(int) *core.Unit {
		p.Health -= 10
		return p
	})
	player := core.NewArmy([]*core.Unit{p})
	computer := core.NewArmy([]*core.Unit{c})
	log := &recordingLog{}

	res, err := newSimulator(t, WithBattleLog(log)).Simulate(context.Background(), player, computer)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Actions)
	assert.Equal(t, 1, res.Attacks)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, OutcomeComputerWon, res.Outcome)
	assert.Empty(t, player.Units)
	require.Len(t, computer.Units, 1)
	assert.Same(t, c, computer.Units[0])
	assert.Equal(t, [][2]string{{"computer", "player"}}, log.pairs)
}

func TestSimulate_NoProgressEndsAfterOneRound(t *testing.T) {
	var trace []string
	p1, p2 := newUnit("p1", 4, 10), newUnit("p2", 8, 10)
	c1, c2 := newUnit("c1", 6, 10), newUnit("c2", 2, 10)
	for _, u := range []*core.Unit{p1, p2, c1, c2} {
		script(u, &trace, nil)
	}
	player := core.NewArmy([]*core.Unit{p1, p2})
	computer := core.NewArmy([]*core.Unit{c1, c2})
	log := &recordingLog{}

	res, err := newSimulator(t, WithBattleLog(log)).Simulate(context.Background(), player, computer)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, OutcomeStalled, res.Outcome)
	assert.Equal(t, 4, res.Actions)
	assert.Zero(t, res.Attacks)
	assert.Zero(t, res.Moves)
	assert.Equal(t, []string{"c1", "p2", "c2", "p1"}, trace)
	assert.Empty(t, log.pairs)
	assert.Len(t, player.Units, 2)
	assert.Len(t, computer.Units, 2)
}

func TestSimulate_TurnOrderAlternatesAndIsStable(t *testing.T) {
	var trace []string
	p1, p2 := newUnit("p1", 5, 10), newUnit("p2", 10, 10)
	c1, c2, c3 := newUnit("c1", 3, 10), newUnit("c2", 3, 10), newUnit("c3", 7, 10)
	for _, u := range []*core.Unit{p1, p2, c1, c2, c3} {
		script(u, &trace, moveOnce(u))
	}
	player := core.NewArmy([]*core.Unit{p1, p2})
	computer := core.NewArmy([]*core.Unit{c1, c2, c3})

	res, err := newSimulator(t).Simulate(context.Background(), player, computer)

	require.NoError(t, err)
	round := []string{"c3", "p2", "c1", "p1", "c2"}
	assert.Equal(t, append(append([]string{}, round...), round...), trace)
	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, 10, res.Actions)
	assert.Equal(t, 5, res.Moves)
	assert.Equal(t, OutcomeStalled, res.Outcome)
}

func TestSimulate_KilledUnitLosesItsTurn(t *testing.T) {
	var trace []string
	p1, p2 := newUnit("p1", 9, 5), newUnit("p2", 1, 5)
	c1 := newUnit("c1", 10, 5)
	script(c1, &trace, func(call int) *core.Unit {
		if call == 1 {
			p1.Health = 0
			return p1
		}
		return nil
	})
	script(p1, &trace, nil)
	script(p2, &trace, nil)
	player := core.NewArmy([]*core.Unit{p1, p2})
	computer := core.NewArmy([]*core.Unit{c1})
	log := &recordingLog{}

	res, err := newSimulator(t, WithBattleLog(log)).Simulate(context.Background(), player, computer)

	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "p2", "c1", "p2"}, trace)
	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, OutcomeStalled, res.Outcome)
	require.Len(t, player.Units, 1)
	assert.Same(t, p2, player.Units[0])
	assert.Equal(t, [][2]string{{"c1", "p1"}}, log.pairs)
}

func TestSimulate_FightToTheEnd(t *testing.T) {
	var trace []string
	p := newUnit("p", 3, 9)
	c := newUnit("c", 2, 9)
	script(p, &trace, func(int) *core.Unit {
		c.Health -= p.BaseAttack
		return c
	})
	script(c, &trace, func(int) *core.Unit {
		p.Health -= c.BaseAttack
		return p
	})
	player := core.NewArmy([]*core.Unit{p})
	computer := core.NewArmy([]*core.Unit{c})

	res, err := newSimulator(t).Simulate(context.Background(), player, computer)

	require.NoError(t, err)
	// c hits 2,4,6 while p hits 3,6,9: c falls on p's third swing.
	assert.Equal(t, []string{"c", "p", "c", "p", "c", "p"}, trace)
	assert.Equal(t, 3, res.Rounds)
	assert.Equal(t, 6, res.Attacks)
	assert.Equal(t, OutcomePlayerWon, res.Outcome)
	assert.Empty(t, computer.Units)
	assert.Equal(t, 3, p.Health)
}

func TestSimulate_NilBattleLog(t *testing.T) {
	var trace []string
	p := newUnit("p", 1, 1)
	c := newUnit("c", 1, 1)
	script(c, &trace, func(int) *core.Unit {
		p.Health = 0
		return p
	})
	script(p, &trace, nil)

	res, err := newSimulator(t).Simulate(context.Background(),
		core.NewArmy([]*core.Unit{p}), core.NewArmy([]*core.Unit{c}))

	require.NoError(t, err)
	assert.Equal(t, OutcomeComputerWon, res.Outcome)
}

func TestSimulate_NilProgramIsANoOp(t *testing.T) {
	p := newUnit("p", 1, 1)
	c := newUnit("c", 1, 1)

	res, err := newSimulator(t).Simulate(context.Background(),
		core.NewArmy([]*core.Unit{p}), core.NewArmy([]*core.Unit{c}))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, 2, res.Actions)
	assert.Equal(t, OutcomeStalled, res.Outcome)
}

func TestSimulate_DeadUnitsAtStartAreRemoved(t *testing.T) {
	var trace []string
	dead := newUnit("dead", 100, 0)
	p := newUnit("p", 1, 3)
	c := newUnit("c", 1, 3)
	script(dead, &trace, nil)
	script(p, &trace, nil)
	script(c, &trace, func(int) *core.Unit {
		p.Health = 0
		return p
	})
	player := core.NewArmy([]*core.Unit{dead, p})

	_, err := newSimulator(t).Simulate(context.Background(), player, core.NewArmy([]*core.Unit{c}))

	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, trace)
	assert.Empty(t, player.Units)
}

func TestSimulate_ContextCancelledBeforeStart(t *testing.T) {
	var trace []string
	p := newUnit("p", 1, 1)
	c := newUnit("c", 1, 1)
	script(p, &trace, nil)
	script(c, &trace, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newSimulator(t).Simulate(ctx, core.NewArmy([]*core.Unit{p}), core.NewArmy([]*core.Unit{c}))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInterrupted))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, OutcomeInterrupted, res.Outcome)
	assert.Zero(t, res.Rounds)
	assert.Empty(t, trace)
}

func TestSimulate_ContextCheckedBetweenRounds(t *testing.T) {
	var trace []string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newUnit("p", 1, 1)
	c := newUnit("c", 2, 1)
	script(c, &trace, func(int) *core.Unit {
		cancel()
		c.Y++
		return nil
	})
	script(p, &trace, func(int) *core.Unit {
		p.Y++
		return nil
	})

	res, err := newSimulator(t).Simulate(ctx, core.NewArmy([]*core.Unit{p}), core.NewArmy([]*core.Unit{c}))

	require.ErrorIs(t, err, ErrInterrupted)
	// the round that saw the cancel still ran to completion
	assert.Equal(t, []string{"c", "p"}, trace)
	assert.Equal(t, 1, res.Rounds)
}

func TestSimulate_MaxRounds(t *testing.T) {
	var trace []string
	p := newUnit("p", 1, 1)
	c := newUnit("c", 1, 1)
	script(p, &trace, func(int) *core.Unit { p.X = 1 - p.X; return nil })
	script(c, &trace, func(int) *core.Unit { c.X = 1 - c.X; return nil })

	res, err := newSimulator(t, WithMaxRounds(3)).Simulate(context.Background(),
		core.NewArmy([]*core.Unit{p}), core.NewArmy([]*core.Unit{c}))

	require.NoError(t, err)
	assert.Equal(t, 3, res.Rounds)
	assert.Equal(t, 6, res.Moves)
	assert.Equal(t, OutcomeStalled, res.Outcome)
}

func TestSimulate_MutualDestructionIsDraw(t *testing.T) {
	var trace []string
	p := newUnit("player", 1, 5)
	c := newUnit("computer", 10, 10)
	script(p, &trace, nil)
	// the computer's blow also finishes itself off
	script(c, &trace, func(int) *core.Unit {
		p.Health = 0
		c.Health = 0
		return p
	})
	player := core.NewArmy([]*core.Unit{p})
	computer := core.NewArmy([]*core.Unit{c})
	log := &recordingLog{}

	res, err := newSimulator(t, WithBattleLog(log)).Simulate(context.Background(), player, computer)

	require.NoError(t, err)
	assert.Equal(t, OutcomeDraw, res.Outcome)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, 1, res.Actions)
	assert.Equal(t, []string{"computer"}, trace)
	assert.Equal(t, [][2]string{{"computer", "player"}}, log.pairs)
	assert.Empty(t, player.Units)
	assert.Empty(t, computer.Units)
}
