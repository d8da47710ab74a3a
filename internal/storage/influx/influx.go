// Package influxstorage implements the storage.Backend interface on InfluxDB.
// Each battle becomes a battle_start point, one attack point per attack and a
// battle_end point, all tagged with the battle name and ID.
package influxstorage

import (
	"context"
	"strconv"
	"sync"

	"github.com/battlegrid/engine/internal/config"
	"github.com/battlegrid/engine/internal/influx"
	"github.com/battlegrid/engine/internal/storage"
	"github.com/battlegrid/engine/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

// Measurement names.
const (
	MeasurementBattleStart = "battle_start"
	MeasurementAttack      = "attack"
	MeasurementBattleEnd   = "battle_end"
)

// Backend writes battles as InfluxDB points.
type Backend struct {
	manager *influx.Manager

	mu        sync.Mutex
	battle    *core.Battle
	idCounter uint
}

// New creates an influx backend. backupPath receives gzip line protocol when
// the server is unreachable.
func New(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Backend {
	return &Backend{manager: influx.NewManager(cfg, log, backupPath)}
}

// Manager exposes the underlying connection manager.
func (b *Backend) Manager() *influx.Manager {
	return b.manager
}

// Init connects to the server or opens the backup file.
func (b *Backend) Init() error {
	return b.manager.Connect(context.Background())
}

// Close flushes and closes the connection.
func (b *Backend) Close() error {
	return b.manager.Close()
}

// ExportedFilePath returns the backup file when points went there.
func (b *Backend) ExportedFilePath() string {
	if b.manager.IsValid {
		return ""
	}
	return b.manager.BackupPath
}

// StartBattle assigns the battle ID and writes the battle_start point.
func (b *Backend) StartBattle(battle *core.Battle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	battle.ID = b.idCounter
	cp := *battle
	b.battle = &cp

	p := influxdb2_write.NewPoint(MeasurementBattleStart,
		b.tags(),
		map[string]any{
			"seed":           battle.Seed,
			"playerPoints":   battle.PlayerPoints,
			"computerPoints": battle.ComputerPoints,
			"playerUnits":    len(battle.PlayerArmy),
			"computerUnits":  len(battle.ComputerArmy),
		},
		battle.StartTime,
	)
	return b.manager.WritePoint(p)
}

// RecordAttack writes one attack point.
func (b *Backend) RecordAttack(e *core.AttackEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.battle == nil {
		return storage.ErrNoBattle
	}

	p := influxdb2_write.NewPoint(MeasurementAttack, b.tags(), nil, e.Time)
	p.AddTag("attackerType", e.Attacker.UnitType)
	p.AddTag("targetType", e.Target.UnitType)
	p.AddField("sequence", e.Sequence)
	p.AddField("attacker", e.Attacker.Name)
	p.AddField("attackerX", e.Attacker.X)
	p.AddField("attackerY", e.Attacker.Y)
	p.AddField("target", e.Target.Name)
	p.AddField("targetX", e.Target.X)
	p.AddField("targetY", e.Target.Y)
	p.AddField("targetHealth", e.Target.Health)
	p.AddField("killed", e.Killed)
	return b.manager.WritePoint(p)
}

// EndBattle writes the battle_end point and flushes.
func (b *Backend) EndBattle(s *core.BattleSummary) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.battle == nil {
		return storage.ErrNoBattle
	}

	p := influxdb2_write.NewPoint(MeasurementBattleEnd,
		b.tags(),
		map[string]any{
			"rounds":        s.Rounds,
			"actions":       s.Actions,
			"attacks":       s.Attacks,
			"moves":         s.Moves,
			"playerAlive":   len(s.PlayerAlive),
			"computerAlive": len(s.ComputerAlive),
		},
		s.EndTime,
	)
	p.AddTag("outcome", s.Outcome)

	b.battle = nil
	if err := b.manager.WritePoint(p); err != nil {
		return err
	}
	return b.manager.Flush()
}

func (b *Backend) tags() map[string]string {
	return map[string]string{
		"battle":   b.battle.Name,
		"battleId": strconv.FormatUint(uint64(b.battle.ID), 10),
	}
}
