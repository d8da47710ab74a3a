// Package battle runs a turn-based battle between two armies.
//
// A battle is a sequence of rounds. In a round the two armies take turns,
// computer side first, and every living unit acts at most once, strongest
// base attack first. The battle ends when one army is wiped out, or when a
// whole round passes without any unit attacking or moving.
package battle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/battlegrid/engine/pkg/core"
)

// ErrInterrupted is returned when the context is done between two rounds.
var ErrInterrupted = errors.New("battle interrupted")

// Outcome is how a battle ended.
type Outcome string

const (
	OutcomeNone        Outcome = ""
	OutcomePlayerWon   Outcome = "player_won"
	OutcomeComputerWon Outcome = "computer_won"
	OutcomeDraw        Outcome = "draw"
	OutcomeStalled     Outcome = "stalled"
	OutcomeInterrupted Outcome = "interrupted"
)

// Result summarises a finished battle.
type Result struct {
	Outcome Outcome
	Rounds  int
	Actions int
	Attacks int
	Moves   int
	// Skipped counts turns burnt by units that were already dead.
	Skipped int
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithBattleLog sets the sink notified of every attack.
func WithBattleLog(log core.BattleLog) Option {
	return func(s *Simulator) {
		s.battleLog = log
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxRounds stops the battle as stalled after n rounds. Zero means no limit.
func WithMaxRounds(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

// Simulator resolves battles. One Simulator may run many battles, one at a time
// per pair of armies.
type Simulator struct {
	battleLog core.BattleLog
	logger    *slog.Logger
	maxRounds int

	// OTEL metrics
	rounds  metric.Int64Counter
	actions metric.Int64Counter
	attacks metric.Int64Counter
}

// New creates a Simulator.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(opts ...Option) (*Simulator, error) {
	s := &Simulator{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	m := meter()

	var err error
	s.rounds, err = m.Int64Counter(
		"battle.rounds",
		metric.WithDescription("Total rounds played"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rounds counter: %w", err)
	}

	s.actions, err = m.Int64Counter(
		"battle.actions",
		metric.WithDescription("Total unit actions taken"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating actions counter: %w", err)
	}

	s.attacks, err = m.Int64Counter(
		"battle.attacks",
		metric.WithDescription("Total attacks performed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating attacks counter: %w", err)
	}

	return s, nil
}

// Simulate runs the battle to the end, removing dead units from both rosters
// as it goes. It does nothing if either army is nil.
//
// ctx is only checked between rounds; a round in progress always completes.
func (s *Simulator) Simulate(ctx context.Context, playerArmy, computerArmy *core.Army) (Result, error) {
	var res Result
	if playerArmy == nil || computerArmy == nil {
		return res, nil
	}

	m := newMachine(playerArmy, computerArmy, s.battleLog)

	for m.bothAlive() {
		if err := ctx.Err(); err != nil {
			res.Outcome = OutcomeInterrupted
			s.logger.Warn("Battle interrupted", "rounds", res.Rounds, "error", err)
			return res, fmt.Errorf("%w: %w", ErrInterrupted, err)
		}

		m.beginRound()
		m.runRound()
		m.state = StateRoundOver

		res.Rounds++
		res.Actions += m.actions
		res.Attacks += m.attacks
		res.Moves += m.moves
		res.Skipped += m.skipped

		s.rounds.Add(ctx, 1)
		s.actions.Add(ctx, int64(m.actions))
		s.attacks.Add(ctx, int64(m.attacks))

		s.logger.Debug("Round over",
			"round", res.Rounds,
			"actions", m.actions,
			"attacks", m.attacks,
			"moves", m.moves,
			"playerAlive", len(playerArmy.Units),
			"computerAlive", len(computerArmy.Units),
		)

		if !m.progress {
			s.logger.Info("No progress in round, ending battle", "round", res.Rounds)
			if m.bothAlive() {
				res.Outcome = OutcomeStalled
			}
			break
		}
		if s.maxRounds > 0 && res.Rounds >= s.maxRounds && m.bothAlive() {
			s.logger.Info("Round limit reached, ending battle", "maxRounds", s.maxRounds)
			res.Outcome = OutcomeStalled
			break
		}
	}
	m.state = StateBattleOver

	if res.Outcome == OutcomeNone {
		res.Outcome = decide(playerArmy, computerArmy)
	}

	s.logger.Info("Battle over",
		"outcome", string(res.Outcome),
		"rounds", res.Rounds,
		"actions", res.Actions,
		"attacks", res.Attacks,
	)
	return res, nil
}

func decide(player, computer *core.Army) Outcome {
	p, c := player.HasAlive(), computer.HasAlive()
	switch {
	case p && !c:
		return OutcomePlayerWon
	case c && !p:
		return OutcomeComputerWon
	case !p && !c:
		return OutcomeDraw
	default:
		return OutcomeStalled
	}
}
