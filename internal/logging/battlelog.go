package logging

import (
	"io"

	"github.com/battlegrid/engine/internal/pathfind"
	"github.com/battlegrid/engine/pkg/core"
	"github.com/rs/zerolog"
)

// BattleLogger writes one line per attack through zerolog.
type BattleLogger struct {
	logger zerolog.Logger
}

// NewBattleLogger creates a BattleLogger wrapping a zerolog.Logger.
func NewBattleLogger(logger zerolog.Logger) *BattleLogger {
	return &BattleLogger{logger: logger}
}

// NewConsoleBattleLogger writes human-readable attack lines to w.
func NewConsoleBattleLogger(w io.Writer) *BattleLogger {
	out := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05"}
	return NewBattleLogger(zerolog.New(out).With().Timestamp().Logger())
}

// PrintBattleLog implements core.BattleLog.
func (l *BattleLogger) PrintBattleLog(attacker, target *core.Unit) {
	if attacker == nil || target == nil {
		return
	}
	ev := l.logger.Info().
		Str("attacker", attacker.Name).
		Str("attackerType", attacker.UnitType).
		Int("attackerX", attacker.X).
		Int("attackerY", attacker.Y).
		Str("target", target.Name).
		Int("range", pathfind.Distance(attacker.Position(), target.Position())).
		Int("targetHealth", target.Health)
	if !target.IsAlive() {
		ev = ev.Bool("killed", true)
	}
	ev.Msg("attack")
}

var _ core.BattleLog = (*BattleLogger)(nil)
