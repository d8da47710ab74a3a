package core

// Attack types understood by the default programs.
const (
	AttackMelee  = "Melee"
	AttackRanged = "Ranged"
)

// Edge is a grid cell. It is used both as a route waypoint and as a row key.
type Edge struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Program is the per-unit attack-or-move behavior invoked once per turn.
// It returns the unit it attacked, or nil if it only moved (or did nothing).
type Program interface {
	Attack() *Unit
}

// ProgramFunc adapts a plain function to the Program interface.
type ProgramFunc func() *Unit

// Attack calls f.
func (f ProgramFunc) Attack() *Unit {
	return f()
}

// Unit is a combat unit positioned on the battle grid.
// Health and coordinates are mutated by programs; the scheduler only reads them.
type Unit struct {
	Name           string
	UnitType       string
	Health         int
	BaseAttack     int
	Cost           int
	AttackType     string
	AttackBonuses  map[string]float64
	DefenceBonuses map[string]float64
	X              int
	Y              int

	Program Program
}

// IsAlive reports whether the unit still has health left.
func (u *Unit) IsAlive() bool {
	return u != nil && u.Health > 0
}

// Position returns the cell the unit currently occupies.
func (u *Unit) Position() Edge {
	return Edge{X: u.X, Y: u.Y}
}

// Clone returns a copy of the template without its program. Bonus maps are shared.
func (u Unit) Clone() *Unit {
	u.Program = nil
	return &u
}
