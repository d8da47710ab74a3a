// Package gormstorage implements the storage.Backend interface on top of GORM.
// Attacks are queued and written in batches by a background writer, on
// EndBattle and on Close. The SQLite and Postgres backends embed it.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/battlegrid/engine/internal/logging"
	"github.com/battlegrid/engine/internal/model"
	"github.com/battlegrid/engine/internal/model/convert"
	"github.com/battlegrid/engine/internal/queue"
	"github.com/battlegrid/engine/internal/storage"
	"github.com/battlegrid/engine/pkg/core"

	"gorm.io/gorm"
)

// Defaults for Dependencies.
const (
	DefaultBatchSize     = 500
	DefaultFlushInterval = 2 * time.Second
)

// ErrNoDatabase is returned by Init when neither DB nor Connect is set.
var ErrNoDatabase = errors.New("no database configured")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB is used as is when set; otherwise Connect is called by Init.
	DB      *gorm.DB
	Connect func() (*gorm.DB, error)
	// Migrate prepares the schema after connecting. Defaults to AutoMigrate
	// of model.DatabaseModels.
	Migrate func() error

	LogManager    *logging.SlogManager
	BatchSize     int
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	attacks  *queue.Queue[model.AttackEvent]
	battleID atomic.Uint64

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:    deps,
		attacks: queue.New[model.AttackEvent](),
	}
}

// DB returns the connection, nil before Init.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init connects if needed, migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		if b.deps.Connect == nil {
			return ErrNoDatabase
		}
		db, err := b.deps.Connect()
		if err != nil {
			return err
		}
		b.deps.DB = db
	}

	if err := b.migrate(); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

func (b *Backend) migrate() error {
	if b.deps.Migrate != nil {
		return b.deps.Migrate()
	}
	b.deps.LogManager.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if b.deps.DB == nil {
		return nil
	}
	return b.Flush()
}

// StartBattle inserts the battle and its rosters and assigns the battle ID.
func (b *Backend) StartBattle(battle *core.Battle) error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}

	gormBattle := convert.CoreToBattle(*battle)
	if err := b.deps.DB.Create(&gormBattle).Error; err != nil {
		b.deps.LogManager.WriteLog("StartBattle", fmt.Sprintf("Failed to insert battle: %v", err), "ERROR")
		return fmt.Errorf("failed to insert new battle: %w", err)
	}

	battle.ID = gormBattle.ID
	b.battleID.Store(uint64(gormBattle.ID))
	return nil
}

// RecordAttack converts and queues an attack.
func (b *Backend) RecordAttack(e *core.AttackEvent) error {
	id := uint(b.battleID.Load())
	if id == 0 {
		return storage.ErrNoBattle
	}

	gormObj := convert.CoreToAttackEvent(*e)
	gormObj.BattleID = id
	b.attacks.Push(gormObj)
	return nil
}

// EndBattle flushes queued attacks and stores the summary on the battle row.
func (b *Backend) EndBattle(s *core.BattleSummary) error {
	id := uint(b.battleID.Load())
	if id == 0 {
		return storage.ErrNoBattle
	}
	if err := b.Flush(); err != nil {
		return err
	}

	sum := *s
	sum.BattleID = id
	summary, err := convert.SummaryToJSON(sum)
	if err != nil {
		return err
	}

	endTime := sum.EndTime
	err = b.deps.DB.Model(&model.Battle{}).Where("id = ?", id).Updates(map[string]any{
		"end_time": &endTime,
		"outcome":  sum.Outcome,
		"rounds":   sum.Rounds,
		"attacks":  sum.Attacks,
		"summary":  summary,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update battle %d: %w", id, err)
	}

	b.battleID.Store(0)
	return nil
}

// Pending returns the number of queued attacks.
func (b *Backend) Pending() int {
	return b.attacks.Len()
}

// Flush writes all queued attacks.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	return b.attacks.Drain(b.deps.BatchSize, func(batch []model.AttackEvent) error {
		if err := b.deps.DB.CreateInBatches(batch, b.deps.BatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert attack events: %w", err)
		}
		return nil
	})
}

// writeLoop periodically drains the attack queue into the DB.
func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if b.attacks.Empty() {
				continue
			}
			start := time.Now()
			if err := b.Flush(); err != nil {
				b.deps.LogManager.WriteLog("writeLoop", err.Error(), "ERROR")
				continue
			}
			b.deps.LogManager.WriteLog("writeLoop", fmt.Sprintf("Wrote attack events in %s", time.Since(start)), "DEBUG")
		}
	}
}
