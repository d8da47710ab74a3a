// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/battlegrid/engine/internal/model"
	"github.com/battlegrid/engine/pkg/core"
	"gorm.io/datatypes"
)

// CoreToBattle converts a core.Battle to a GORM model.Battle including its
// starting rosters. A non-zero core ID is kept as primary key.
func CoreToBattle(b core.Battle) model.Battle {
	out := model.Battle{
		Name:           b.Name,
		Seed:           b.Seed,
		StartTime:      b.StartTime,
		PlayerPoints:   b.PlayerPoints,
		ComputerPoints: b.ComputerPoints,
		Summary:        datatypes.JSON("{}"),
	}
	out.ID = b.ID

	out.Units = make([]model.BattleUnit, 0, len(b.PlayerArmy)+len(b.ComputerArmy))
	for _, u := range b.PlayerArmy {
		out.Units = append(out.Units, CoreToBattleUnit(u, model.SidePlayer))
	}
	for _, u := range b.ComputerArmy {
		out.Units = append(out.Units, CoreToBattleUnit(u, model.SideComputer))
	}
	return out
}

// CoreToBattleUnit converts a roster snapshot.
func CoreToBattleUnit(u core.UnitSnapshot, side string) model.BattleUnit {
	return model.BattleUnit{
		Side:       side,
		Name:       u.Name,
		UnitType:   u.UnitType,
		Health:     u.Health,
		BaseAttack: u.BaseAttack,
		Cost:       u.Cost,
		X:          u.X,
		Y:          u.Y,
	}
}

// CoreToAttackEvent converts a core.AttackEvent to a GORM model.AttackEvent.
func CoreToAttackEvent(e core.AttackEvent) model.AttackEvent {
	return model.AttackEvent{
		Time:         e.Time,
		BattleID:     e.BattleID,
		Sequence:     e.Sequence,
		AttackerName: e.Attacker.Name,
		AttackerType: e.Attacker.UnitType,
		AttackerX:    e.Attacker.X,
		AttackerY:    e.Attacker.Y,
		TargetName:   e.Target.Name,
		TargetType:   e.Target.UnitType,
		TargetX:      e.Target.X,
		TargetY:      e.Target.Y,
		TargetHealth: e.Target.Health,
		Killed:       e.Killed,
	}
}

// SummaryToJSON encodes a summary for the battles.summary column.
func SummaryToJSON(s core.BattleSummary) (datatypes.JSON, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}
	return datatypes.JSON(data), nil
}
