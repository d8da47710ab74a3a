package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/battlegrid/engine/pkg/core"
)

// BattleExport is the root JSON structure
type BattleExport struct {
	ID             uint         `json:"id"`
	Name           string       `json:"name"`
	Seed           int64        `json:"seed"`
	StartTime      time.Time    `json:"startTime"`
	EndTime        time.Time    `json:"endTime"`
	Outcome        string       `json:"outcome"`
	Rounds         int          `json:"rounds"`
	Actions        int          `json:"actions"`
	Moves          int          `json:"moves"`
	PlayerPoints   int          `json:"playerPoints"`
	ComputerPoints int          `json:"computerPoints"`
	Armies         ArmiesJSON   `json:"armies"`
	Survivors      ArmiesJSON   `json:"survivors"`
	Attacks        []AttackJSON `json:"attacks"`
}

// ArmiesJSON holds one roster per side.
type ArmiesJSON struct {
	Player   []core.UnitSnapshot `json:"player"`
	Computer []core.UnitSnapshot `json:"computer"`
}

// AttackJSON is one attack in the export.
type AttackJSON struct {
	Sequence uint              `json:"seq"`
	Time     time.Time         `json:"time"`
	Attacker core.UnitSnapshot `json:"attacker"`
	Target   core.UnitSnapshot `json:"target"`
	Killed   bool              `json:"killed,omitempty"`
}

// exportFileName builds "<name>_<start>.json[.gz]" with unsafe characters replaced.
func exportFileName(name string, start time.Time, compressed bool) string {
	name = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(name)
	if name == "" {
		name = "battle"
	}
	ext := ".json"
	if compressed {
		ext = ".json.gz"
	}
	return fmt.Sprintf("%s_%s%s", name, start.Format("20060102_150405"), ext)
}

// exportJSON writes the battle to the output directory. Callers hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(b.battle.Name, b.battle.StartTime, b.cfg.CompressOutput))

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() BattleExport {
	export := BattleExport{
		ID:             b.battle.ID,
		Name:           b.battle.Name,
		Seed:           b.battle.Seed,
		StartTime:      b.battle.StartTime,
		PlayerPoints:   b.battle.PlayerPoints,
		ComputerPoints: b.battle.ComputerPoints,
		Armies: ArmiesJSON{
			Player:   nonNil(b.battle.PlayerArmy),
			Computer: nonNil(b.battle.ComputerArmy),
		},
		Attacks: make([]AttackJSON, 0, len(b.attacks)),
	}

	if b.summary != nil {
		export.EndTime = b.summary.EndTime
		export.Outcome = b.summary.Outcome
		export.Rounds = b.summary.Rounds
		export.Actions = b.summary.Actions
		export.Moves = b.summary.Moves
		export.Survivors = ArmiesJSON{
			Player:   nonNil(b.summary.PlayerAlive),
			Computer: nonNil(b.summary.ComputerAlive),
		}
	}

	for _, e := range b.attacks {
		export.Attacks = append(export.Attacks, AttackJSON{
			Sequence: e.Sequence,
			Time:     e.Time,
			Attacker: e.Attacker,
			Target:   e.Target,
			Killed:   e.Killed,
		})
	}

	return export
}

func nonNil(units []core.UnitSnapshot) []core.UnitSnapshot {
	if units == nil {
		return []core.UnitSnapshot{}
	}
	return units
}

func writeJSON(path string, data BattleExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data BattleExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		_ = gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
