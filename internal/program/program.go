// Package program holds the default attack-or-move behaviors of units.
//
// Ranged units shoot the weakest uncovered enemy. Melee units walk towards the
// closest uncovered enemy and strike once they stand next to it.
package program

import (
	"math"

	"github.com/battlegrid/engine/internal/pathfind"
	"github.com/battlegrid/engine/internal/targeting"
	"github.com/battlegrid/engine/pkg/core"
)

// DefaultSpeed is how many cells a melee unit walks per turn.
const DefaultSpeed = 1

// Field is the battlefield as the programs see it. The computer army deploys
// on the left edge, the player army on the right.
type Field struct {
	Player   *core.Army
	Computer *core.Army
}

// enemyOf returns the army opposing u and whether that army is the left one.
func (f *Field) enemyOf(u *core.Unit) (*core.Army, bool) {
	switch {
	case f.Player.Contains(u):
		return f.Computer, true
	case f.Computer.Contains(u):
		return f.Player, false
	default:
		return nil, false
	}
}

// living returns every living unit on the field.
func (f *Field) living() []*core.Unit {
	units := f.Player.AliveUnits()
	return append(units, f.Computer.AliveUnits()...)
}

// Program is the default behavior bound to one unit.
type Program struct {
	unit  *core.Unit
	field *Field
	speed int
}

// New binds a program to u.
func New(u *core.Unit, field *Field) *Program {
	return &Program{unit: u, field: field, speed: DefaultSpeed}
}

// Bind installs a default program on every unit of the field that has none.
func Bind(field *Field) {
	for _, army := range []*core.Army{field.Player, field.Computer} {
		if army == nil {
			continue
		}
		for _, u := range army.Units {
			if u != nil && u.Program == nil {
				u.Program = New(u, field)
			}
		}
	}
}

// Attack performs the unit's turn. It returns the unit it struck, or nil when
// it only moved or had nothing to do.
func (p *Program) Attack() *core.Unit {
	if !p.unit.IsAlive() {
		return nil
	}
	enemy, leftArmyTarget := p.field.enemyOf(p.unit)
	if enemy == nil {
		return nil
	}

	candidates := targeting.SuitableUnits(targeting.GroupByRow(enemy.Units), leftArmyTarget)
	if len(candidates) == 0 {
		return nil
	}

	if p.unit.AttackType == core.AttackRanged {
		target := weakest(candidates)
		Strike(p.unit, target)
		return target
	}
	return p.melee(candidates)
}

func (p *Program) melee(candidates []*core.Unit) *core.Unit {
	occupied := p.field.living()

	var (
		target *core.Unit
		route  []core.Edge
	)
	for _, c := range candidates {
		r := pathfind.Route(p.unit, c, occupied)
		if len(r) == 0 {
			continue
		}
		if route == nil || len(r) < len(route) {
			target, route = c, r
		}
	}
	if target == nil {
		return nil
	}

	// adjacent: start and target are the whole route
	if len(route) <= 2 {
		Strike(p.unit, target)
		return target
	}

	step := min(p.speed, len(route)-2)
	dest := route[step]
	p.unit.X, p.unit.Y = dest.X, dest.Y
	return nil
}

func weakest(units []*core.Unit) *core.Unit {
	best := units[0]
	for _, u := range units[1:] {
		if u.Health < best.Health {
			best = u
		}
	}
	return best
}

// Damage is what attacker deals to target: base attack scaled by the
// attacker's bonus against the target's type and divided by the target's
// defence against the attacker's type. Never less than 1.
func Damage(attacker, target *core.Unit) int {
	dmg := float64(attacker.BaseAttack) *
		bonus(attacker.AttackBonuses, target.UnitType) /
		bonus(target.DefenceBonuses, attacker.UnitType)
	return max(int(math.Round(dmg)), 1)
}

// Strike applies one attack.
func Strike(attacker, target *core.Unit) {
	target.Health -= Damage(attacker, target)
}

func bonus(m map[string]float64, unitType string) float64 {
	if b, ok := m[unitType]; ok && b > 0 {
		return b
	}
	return 1
}
