package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/battlegrid/engine/internal/config"
	"github.com/battlegrid/engine/internal/database"
	"github.com/battlegrid/engine/internal/model"
	"github.com/battlegrid/engine/internal/storage"
	"github.com/battlegrid/engine/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Backend    = (*Backend)(nil)
	_ storage.Exportable = (*Backend)(nil)
)

func runBattle(t *testing.T, b *Backend) uint {
	t.Helper()
	battle := &core.Battle{
		Name:         "Skirmish",
		StartTime:    time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		PlayerArmy:   []core.UnitSnapshot{{Name: "Knight 1", UnitType: "Knight", Health: 70}},
		ComputerArmy: []core.UnitSnapshot{{Name: "Archer 1", UnitType: "Archer", Health: 30}},
	}
	require.NoError(t, b.StartBattle(battle))
	require.NoError(t, b.RecordAttack(&core.AttackEvent{Sequence: 1, Killed: true}))
	require.NoError(t, b.EndBattle(&core.BattleSummary{EndTime: battle.StartTime.Add(time.Second), Outcome: "player_won", Attacks: 1}))
	return battle.ID
}

func countAttacks(t *testing.T, path string) int64 {
	t.Helper()
	db, err := database.GetSqliteDB(path)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	var n int64
	require.NoError(t, db.Model(&model.AttackEvent{}).Count(&n).Error)
	return n
}

func TestFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battles.db")
	b := New(config.SQLiteConfig{Path: path}, nil, zerolog.Nop())
	require.NoError(t, b.Init())

	id := runBattle(t, b)
	assert.NotZero(t, id)
	require.NoError(t, b.Close())

	assert.Equal(t, path, b.ExportedFilePath())
	assert.Equal(t, int64(1), countAttacks(t, path))
}

func TestInMemoryDumpsAfterBattle(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")
	b := New(config.SQLiteConfig{DumpPath: dump}, nil, zerolog.Nop())
	require.NoError(t, b.Init())
	defer b.Close()

	runBattle(t, b)

	_, err := os.Stat(dump)
	require.NoError(t, err, "EndBattle dumps the database")
	assert.Equal(t, int64(1), countAttacks(t, dump))
	assert.Equal(t, dump, b.ExportedFilePath())
}

func TestInMemoryWithoutDumpPath(t *testing.T) {
	b := New(config.SQLiteConfig{}, nil, zerolog.Nop())
	require.NoError(t, b.Init())

	runBattle(t, b)
	assert.Empty(t, b.ExportedFilePath())
	assert.NoError(t, b.Close())
}

func TestDumpLoop_DumpsBeforeBattleEnds(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "periodic.db")
	b := New(config.SQLiteConfig{DumpPath: dump, DumpInterval: 10 * time.Millisecond}, nil, zerolog.Nop())
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartBattle(&core.Battle{Name: "Siege"}))
	require.NoError(t, b.RecordAttack(&core.AttackEvent{Sequence: 1}))
	require.NoError(t, b.Flush())

	// the file may be replaced mid-read, so failures just retry
	assert.Eventually(t, func() bool {
		db, err := database.GetSqliteDB(dump)
		if err != nil {
			return false
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		var n int64
		return db.Model(&model.AttackEvent{}).Count(&n).Error == nil && n == 1
	}, 2*time.Second, 20*time.Millisecond, "the periodic dump carries attacks of the running battle")
}

func TestDumpLoop_ZeroIntervalOnlyDumpsAtEnd(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "final.db")
	b := New(config.SQLiteConfig{DumpPath: dump}, nil, zerolog.Nop())
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartBattle(&core.Battle{Name: "Siege"}))
	time.Sleep(30 * time.Millisecond)
	_, err := os.Stat(dump)
	assert.True(t, os.IsNotExist(err))
}

func TestCloseWithoutInit(t *testing.T) {
	b := New(config.SQLiteConfig{}, nil, zerolog.Nop())
	assert.NoError(t, b.Close())
}
