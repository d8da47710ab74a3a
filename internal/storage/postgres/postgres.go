// Package postgres implements the storage.Backend interface on PostgreSQL.
// Writes go through the embedded GORM backend's queue and background writer.
package postgres

import (
	"github.com/battlegrid/engine/internal/config"
	"github.com/battlegrid/engine/internal/database"
	"github.com/battlegrid/engine/internal/logging"
	gormstorage "github.com/battlegrid/engine/internal/storage/gorm"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Backend implements storage.Backend using GORM/PostgreSQL.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
	cfg     config.PostgresConfig
}

// New creates a postgres backend. The connection is opened by Init.
func New(cfg config.PostgresConfig, logManager *logging.SlogManager, dbLog zerolog.Logger) *Backend {
	b := &Backend{
		manager: database.NewManager(dbLog),
		cfg:     cfg,
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		Connect:    b.connect,
		Migrate:    b.manager.Setup,
		LogManager: logManager,
	})
	return b
}

func (b *Backend) connect() (*gorm.DB, error) {
	if err := b.manager.ConnectPostgres(b.cfg); err != nil {
		return nil, err
	}
	return b.manager.DB, nil
}

// Close flushes queued writes and closes the connection pool.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.manager.Close()
}
