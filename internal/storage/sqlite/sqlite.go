// Package sqlitestorage implements the storage.Backend interface on SQLite.
// It wraps the GORM backend. A file path writes straight to disk; an empty
// path keeps the database in memory and dumps it via VACUUM INTO after each
// battle, periodically and on close.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/battlegrid/engine/internal/config"
	"github.com/battlegrid/engine/internal/database"
	"github.com/battlegrid/engine/internal/logging"
	gormstorage "github.com/battlegrid/engine/internal/storage/gorm"
	"github.com/battlegrid/engine/pkg/core"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	manager  *database.Manager
	cfg      config.SQLiteConfig
	log      *logging.SlogManager
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite storage backend. The database is opened by Init.
func New(cfg config.SQLiteConfig, logManager *logging.SlogManager, dbLog zerolog.Logger) *Backend {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	manager := database.NewManager(dbLog)
	manager.SqliteFilePath = cfg.DumpPath

	b := &Backend{
		manager: manager,
		cfg:     cfg,
		log:     logManager,
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		Connect:    b.connect,
		Migrate:    b.manager.Setup,
		LogManager: logManager,
	})
	return b
}

func (b *Backend) connect() (*gorm.DB, error) {
	if err := b.manager.ConnectSqlite(b.cfg.Path); err != nil {
		return nil, err
	}
	return b.manager.DB, nil
}

// inMemory reports whether dumps apply.
func (b *Backend) inMemory() bool {
	return b.cfg.Path == "" && b.cfg.DumpPath != ""
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.inMemory() && b.cfg.DumpInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dumpLoop()
	}
	return nil
}

// EndBattle stores the summary and dumps an in-memory database to disk.
func (b *Backend) EndBattle(s *core.BattleSummary) error {
	if err := b.Backend.EndBattle(s); err != nil {
		return err
	}
	if b.inMemory() {
		return b.manager.DumpMemoryToDisk()
	}
	return nil
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.manager.DB == nil {
		return nil
	}
	if b.inMemory() {
		if err := b.manager.DumpMemoryToDisk(); err != nil {
			b.log.WriteLog("sqlite:Close", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
		}
	}
	return b.manager.Close()
}

// ExportedFilePath returns the file holding the battle, the dump target for
// an in-memory database.
func (b *Backend) ExportedFilePath() string {
	if b.cfg.Path != "" {
		return b.cfg.Path
	}
	return b.cfg.DumpPath
}

// dumpLoop periodically dumps the in-memory SQLite database to disk.
// VACUUM INTO creates a point-in-time snapshot, so writers keep going.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.manager.DumpMemoryToDisk(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			}
		}
	}
}
