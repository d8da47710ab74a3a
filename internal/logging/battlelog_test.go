package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/battlegrid/engine/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBattleLogger_PrintBattleLog(t *testing.T) {
	var buf bytes.Buffer
	bl := NewBattleLogger(zerolog.New(&buf))

	attacker := &core.Unit{Name: "Knight 1", UnitType: "Knight", Health: 70, X: 3, Y: 4}
	target := &core.Unit{Name: "Archer 2", UnitType: "Archer", Health: 12}

	bl.PrintBattleLog(attacker, target)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "attack", entry["message"])
	assert.Equal(t, "Knight 1", entry["attacker"])
	assert.Equal(t, "Knight", entry["attackerType"])
	assert.Equal(t, float64(3), entry["attackerX"])
	assert.Equal(t, float64(4), entry["attackerY"])
	assert.Equal(t, "Archer 2", entry["target"])
	assert.Equal(t, float64(12), entry["targetHealth"])
	assert.Equal(t, float64(4), entry["range"])
	assert.NotContains(t, entry, "killed")
}

func TestBattleLogger_MarksKills(t *testing.T) {
	var buf bytes.Buffer
	bl := NewBattleLogger(zerolog.New(&buf))

	bl.PrintBattleLog(&core.Unit{Name: "a", Health: 1}, &core.Unit{Name: "b", Health: -3})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, true, entry["killed"])
}

func TestBattleLogger_IgnoresNil(t *testing.T) {
	var buf bytes.Buffer
	bl := NewBattleLogger(zerolog.New(&buf))

	bl.PrintBattleLog(nil, &core.Unit{})
	bl.PrintBattleLog(&core.Unit{}, nil)

	assert.Empty(t, buf.String())
}

func TestConsoleBattleLogger(t *testing.T) {
	var buf bytes.Buffer
	bl := NewConsoleBattleLogger(&buf)

	bl.PrintBattleLog(&core.Unit{Name: "Knight 1", Health: 5}, &core.Unit{Name: "Pikeman 3", Health: 0})

	out := buf.String()
	assert.Contains(t, out, "attack")
	assert.Contains(t, out, "Knight 1")
	assert.Contains(t, out, "Pikeman 3")
	assert.Contains(t, out, "killed=true")
}
