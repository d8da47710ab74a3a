package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/battlegrid/engine/internal/config"
	"github.com/battlegrid/engine/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runBattle(t *testing.T, b *Backend) {
	t.Helper()
	require.NoError(t, b.StartBattle(testBattle()))
	require.NoError(t, b.RecordAttack(&core.AttackEvent{
		Sequence: 1,
		Time:     time.Date(2026, 4, 5, 10, 30, 1, 0, time.UTC),
		Attacker: core.UnitSnapshot{Name: "Archer 1", UnitType: "Archer"},
		Target:   core.UnitSnapshot{Name: "Knight 1", UnitType: "Knight", Health: 55},
	}))
	require.NoError(t, b.EndBattle(&core.BattleSummary{
		EndTime:     time.Date(2026, 4, 5, 10, 30, 2, 0, time.UTC),
		Outcome:     "player_won",
		Rounds:      9,
		Actions:     17,
		Moves:       12,
		PlayerAlive: []core.UnitSnapshot{{Name: "Knight 1", Health: 10}},
	}))
}

func TestExportFileName(t *testing.T) {
	start := time.Date(2026, 4, 5, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "Border_Skirmish_20260405_103000.json", exportFileName("Border Skirmish", start, false))
	assert.Equal(t, "a_b_c_20260405_103000.json.gz", exportFileName("a:b/c", start, true))
	assert.Equal(t, "battle_20260405_103000.json", exportFileName("", start, false))
}

func TestExport_PlainJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	b := New(config.MemoryConfig{OutputDir: dir})

	runBattle(t, b)

	path := b.ExportedFilePath()
	require.Equal(t, filepath.Join(dir, "Border_Skirmish_20260405_103000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var export BattleExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, uint(1), export.ID)
	assert.Equal(t, "player_won", export.Outcome)
	assert.Equal(t, 9, export.Rounds)
	assert.Equal(t, 12, export.Moves)
	assert.Equal(t, 120, export.PlayerPoints)
	require.Len(t, export.Armies.Player, 1)
	require.Len(t, export.Attacks, 1)
	assert.Equal(t, 55, export.Attacks[0].Target.Health)
	assert.Equal(t, []core.UnitSnapshot{{Name: "Knight 1", Health: 10}}, export.Survivors.Player)
	assert.Empty(t, export.Survivors.Computer)
}

func TestExport_Gzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})

	runBattle(t, b)

	path := b.ExportedFilePath()
	assert.Equal(t, ".gz", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export BattleExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, "Border Skirmish", export.Name)
	assert.Len(t, export.Attacks, 1)
}

func TestExport_EmptyCollectionsAreArrays(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})

	require.NoError(t, b.StartBattle(&core.Battle{Name: "empty"}))
	require.NoError(t, b.EndBattle(&core.BattleSummary{Outcome: "draw"}))

	data, err := os.ReadFile(b.ExportedFilePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"attacks":[]`)
	assert.Contains(t, string(data), `"player":[]`)
}

func TestExport_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	b := New(config.MemoryConfig{OutputDir: filepath.Join(file, "sub")})
	require.NoError(t, b.StartBattle(testBattle()))

	err := b.EndBattle(&core.BattleSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output directory")
	assert.Empty(t, b.ExportedFilePath())
}
