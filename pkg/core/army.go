package core

// Army is one side's ordered roster plus the points spent on it.
type Army struct {
	Units  []*Unit
	Points int
}

// NewArmy builds an army and totals its cost.
func NewArmy(units []*Unit) *Army {
	a := &Army{Units: units}
	for _, u := range units {
		if u != nil {
			a.Points += u.Cost
		}
	}
	return a
}

// HasAlive reports whether at least one unit of the army is alive.
func (a *Army) HasAlive() bool {
	if a == nil {
		return false
	}
	for _, u := range a.Units {
		if u.IsAlive() {
			return true
		}
	}
	return false
}

// AliveUnits returns the living units in roster order.
func (a *Army) AliveUnits() []*Unit {
	if a == nil {
		return nil
	}
	alive := make([]*Unit, 0, len(a.Units))
	for _, u := range a.Units {
		if u.IsAlive() {
			alive = append(alive, u)
		}
	}
	return alive
}

// Contains reports whether u is part of the roster.
func (a *Army) Contains(u *Unit) bool {
	if a == nil || u == nil {
		return false
	}
	for _, v := range a.Units {
		if v == u {
			return true
		}
	}
	return false
}

// BattleLog receives a notification for every attack that happened.
type BattleLog interface {
	PrintBattleLog(attacker, target *Unit)
}

// BattleLogFunc adapts a plain function to the BattleLog interface.
type BattleLogFunc func(attacker, target *Unit)

// PrintBattleLog calls f.
func (f BattleLogFunc) PrintBattleLog(attacker, target *Unit) {
	f(attacker, target)
}

// MultiBattleLog notifies every non-nil log in order.
type MultiBattleLog []BattleLog

// PrintBattleLog forwards the notification.
func (m MultiBattleLog) PrintBattleLog(attacker, target *Unit) {
	for _, l := range m {
		if l != nil {
			l.PrintBattleLog(attacker, target)
		}
	}
}
