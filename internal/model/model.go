package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&Battle{},
	&BattleUnit{},
	&AttackEvent{},
}

// Side names stored with every roster entry.
const (
	SidePlayer   = "player"
	SideComputer = "computer"
)

// Battle is one simulated battle.
type Battle struct {
	gorm.Model
	Name           string     `json:"name" gorm:"size:200"`
	Seed           int64      `json:"seed"`
	StartTime      time.Time  `json:"startTime" gorm:"index:idx_battle_start"`
	EndTime        *time.Time `json:"endTime"`
	PlayerPoints   int        `json:"playerPoints"`
	ComputerPoints int        `json:"computerPoints"`
	Outcome        string     `json:"outcome" gorm:"size:32"`
	Rounds         int        `json:"rounds"`
	Attacks        int        `json:"attacks"`

	// Summary holds the final BattleSummary as JSON.
	Summary datatypes.JSON `json:"summary"`

	Units        []BattleUnit
	AttackEvents []AttackEvent
}

func (*Battle) TableName() string {
	return "battles"
}

// BattleUnit is a unit as deployed at the start of a battle.
type BattleUnit struct {
	ID         uint   `json:"id" gorm:"primarykey;autoIncrement"`
	BattleID   uint   `json:"battleId" gorm:"index:idx_unit_battle_id"`
	Battle     Battle `gorm:"foreignkey:BattleID"`
	Side       string `json:"side" gorm:"size:16"`
	Name       string `json:"name" gorm:"size:100"`
	UnitType   string `json:"type" gorm:"size:64"`
	Health     int    `json:"health"`
	BaseAttack int    `json:"baseAttack"`
	Cost       int    `json:"cost"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
}

func (*BattleUnit) TableName() string {
	return "battle_units"
}

// AttackEvent is one resolved attack.
type AttackEvent struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Time         time.Time `json:"time" gorm:"type:timestamptz;"`
	BattleID     uint      `json:"battleId" gorm:"index:idx_attack_battle_id"`
	Battle       Battle    `gorm:"foreignkey:BattleID"`
	Sequence     uint      `json:"sequence" gorm:"index:idx_attack_sequence"`
	AttackerName string    `json:"attackerName" gorm:"size:100"`
	AttackerType string    `json:"attackerType" gorm:"size:64"`
	AttackerX    int       `json:"attackerX"`
	AttackerY    int       `json:"attackerY"`
	TargetName   string    `json:"targetName" gorm:"size:100"`
	TargetType   string    `json:"targetType" gorm:"size:64"`
	TargetX      int       `json:"targetX"`
	TargetY      int       `json:"targetY"`
	TargetHealth int       `json:"targetHealth"`
	Killed       bool      `json:"killed"`
}

func (*AttackEvent) TableName() string {
	return "attack_events"
}
