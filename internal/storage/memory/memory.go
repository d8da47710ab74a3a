// Package memory keeps a battle in memory and exports it as JSON when it ends.
package memory

import (
	"sync"

	"github.com/battlegrid/engine/internal/config"
	"github.com/battlegrid/engine/internal/storage"
	"github.com/battlegrid/engine/pkg/core"
)

// Backend stores battle data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	battle  *core.Battle
	attacks []core.AttackEvent
	summary *core.BattleSummary

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartBattle begins recording a new battle and assigns its ID.
func (b *Backend) StartBattle(battle *core.Battle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	battle.ID = b.idCounter

	cp := *battle
	b.battle = &cp
	b.attacks = nil
	b.summary = nil
	b.lastExportPath = ""
	return nil
}

// RecordAttack appends an attack to the current battle.
func (b *Backend) RecordAttack(e *core.AttackEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.battle == nil {
		return storage.ErrNoBattle
	}
	ev := *e
	ev.BattleID = b.battle.ID
	b.attacks = append(b.attacks, ev)
	return nil
}

// EndBattle stores the summary and exports the battle when an output
// directory is configured.
func (b *Backend) EndBattle(s *core.BattleSummary) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.battle == nil {
		return storage.ErrNoBattle
	}
	sum := *s
	sum.BattleID = b.battle.ID
	b.summary = &sum

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// Battle returns a copy of the current battle.
func (b *Backend) Battle() (core.Battle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.battle == nil {
		return core.Battle{}, false
	}
	return *b.battle, true
}

// Attacks returns the attacks recorded so far.
func (b *Backend) Attacks() []core.AttackEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.AttackEvent, len(b.attacks))
	copy(out, b.attacks)
	return out
}

// Summary returns the summary of the last finished battle.
func (b *Backend) Summary() (core.BattleSummary, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.summary == nil {
		return core.BattleSummary{}, false
	}
	return *b.summary, true
}

// ExportedFilePath returns the file written by the last EndBattle.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
