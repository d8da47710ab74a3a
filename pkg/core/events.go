package core

import (
	"time"
)

// UnitSnapshot is a point-in-time copy of a unit, safe to hand to storage.
type UnitSnapshot struct {
	Name       string `json:"name"`
	UnitType   string `json:"type"`
	Health     int    `json:"health"`
	BaseAttack int    `json:"baseAttack"`
	Cost       int    `json:"cost"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
}

// Snapshot copies the recordable fields of u.
func Snapshot(u *Unit) UnitSnapshot {
	if u == nil {
		return UnitSnapshot{}
	}
	return UnitSnapshot{
		Name:       u.Name,
		UnitType:   u.UnitType,
		Health:     u.Health,
		BaseAttack: u.BaseAttack,
		Cost:       u.Cost,
		X:          u.X,
		Y:          u.Y,
	}
}

// SnapshotArmy copies every unit of the roster.
func SnapshotArmy(a *Army) []UnitSnapshot {
	if a == nil {
		return nil
	}
	out := make([]UnitSnapshot, 0, len(a.Units))
	for _, u := range a.Units {
		if u != nil {
			out = append(out, Snapshot(u))
		}
	}
	return out
}

// Battle describes a battle about to be recorded.
type Battle struct {
	ID             uint
	Name           string
	Seed           int64
	StartTime      time.Time
	PlayerPoints   int
	ComputerPoints int
	PlayerArmy     []UnitSnapshot
	ComputerArmy   []UnitSnapshot
}

// AttackEvent is one attack reported by the scheduler.
// Target health is taken after the attack resolved.
type AttackEvent struct {
	BattleID uint
	Sequence uint
	Time     time.Time
	Attacker UnitSnapshot
	Target   UnitSnapshot
	Killed   bool
}

// BattleSummary is the final state of a finished battle.
type BattleSummary struct {
	BattleID      uint
	EndTime       time.Time
	Outcome       string
	Rounds        int
	Actions       int
	Attacks       int
	Moves         int
	PlayerAlive   []UnitSnapshot
	ComputerAlive []UnitSnapshot
}
