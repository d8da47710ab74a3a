package storage

import (
	"errors"

	"github.com/battlegrid/engine/pkg/core"
)

// ErrUnknownBackend is returned for an unsupported storage.type.
var ErrUnknownBackend = errors.New("unknown storage type")

// ErrNoBattle is returned when events arrive before StartBattle.
var ErrNoBattle = errors.New("no battle in progress")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// StartBattle registers a battle and assigns its ID.
	StartBattle(b *core.Battle) error
	// RecordAttack stores one attack of the current battle.
	RecordAttack(e *core.AttackEvent) error
	// EndBattle stores the final summary and flushes pending writes.
	EndBattle(s *core.BattleSummary) error
}

// Exportable is an optional interface for backends that write a file per
// battle.
type Exportable interface {
	ExportedFilePath() string
}
