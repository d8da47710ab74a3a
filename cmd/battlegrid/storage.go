package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/battlegrid/engine/internal/config"
	"github.com/battlegrid/engine/internal/logging"
	"github.com/battlegrid/engine/internal/storage"
	influxstorage "github.com/battlegrid/engine/internal/storage/influx"
	"github.com/battlegrid/engine/internal/storage/memory"
	pgstorage "github.com/battlegrid/engine/internal/storage/postgres"
	sqlitestorage "github.com/battlegrid/engine/internal/storage/sqlite"

	"github.com/rs/zerolog"
)

// storageDeps carries what the backends need besides their config section.
type storageDeps struct {
	LogManager   *logging.SlogManager
	DBLogger     zerolog.Logger
	SessionStart time.Time
}

func createStorageBackend(storageCfg config.StorageConfig, deps storageDeps) (storage.Backend, error) {
	stamp := deps.SessionStart.Format("20060102_150405")

	switch storageCfg.Type {
	case "", "memory":
		return memory.New(storageCfg.Memory), nil

	case "sqlite":
		cfg := storageCfg.SQLite
		if cfg.Path == "" && cfg.DumpPath == "" {
			if err := os.MkdirAll(storageCfg.Memory.OutputDir, 0755); err != nil {
				return nil, fmt.Errorf("creating output dir: %w", err)
			}
			cfg.DumpPath = filepath.Join(storageCfg.Memory.OutputDir, fmt.Sprintf("%s_%s.db", AppName, stamp))
		}
		return sqlitestorage.New(cfg, deps.LogManager, deps.DBLogger), nil

	case "postgres":
		return pgstorage.New(storageCfg.Postgres, deps.LogManager, deps.DBLogger), nil

	case "influx":
		if err := os.MkdirAll(storageCfg.Memory.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("creating output dir: %w", err)
		}
		backupPath := filepath.Join(storageCfg.Memory.OutputDir, fmt.Sprintf("%s_%s.influx.gz", AppName, stamp))
		return influxstorage.New(storageCfg.Influx, deps.DBLogger, backupPath), nil

	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, storageCfg.Type)
	}
}
