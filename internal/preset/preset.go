// Package preset composes armies within a points budget.
package preset

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"

	"github.com/battlegrid/engine/internal/pathfind"
	"github.com/battlegrid/engine/pkg/core"
)

// MaxUnitsPerType caps how many units of one type an army may field.
const MaxUnitsPerType = 11

// Options controls where generated units are deployed.
type Options struct {
	// XFrom and XTo are the inclusive deployment columns.
	XFrom int
	XTo   int
}

// DefaultOptions deploys on the three left-most columns.
func DefaultOptions() Options {
	return Options{XFrom: 0, XTo: 2}
}

// NewRand returns a seeded source. A zero seed is replaced by 1.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}

// Generate builds an army on the default columns.
func Generate(templates []core.Unit, maxPoints int, rng *rand.Rand) *core.Army {
	return GenerateWith(templates, maxPoints, rng, DefaultOptions())
}

// GenerateWith builds an army greedily: one unit of every type per pass, most
// cost-efficient types first, until nothing else fits the budget, the per-type
// cap or the deployment area.
func GenerateWith(templates []core.Unit, maxPoints int, rng *rand.Rand, opts Options) *core.Army {
	units := []*core.Unit{}
	if len(templates) == 0 || maxPoints <= 0 {
		return core.NewArmy(units)
	}
	if rng == nil {
		rng = NewRand(1)
	}

	best := bestPerType(templates)
	if len(best) == 0 {
		return core.NewArmy(units)
	}

	// shuffle first so that equally efficient types come out in seeded order
	rng.Shuffle(len(best), func(i, j int) { best[i], best[j] = best[j], best[i] })
	slices.SortStableFunc(best, compareTemplates)

	positions := freePositions(opts)
	rng.Shuffle(len(positions), func(i, j int) { positions[i], positions[j] = positions[j], positions[i] })

	counts := make(map[string]int, len(best))
	next, points := 0, 0

	for added := true; added; {
		added = false
		for _, tmpl := range best {
			if counts[tmpl.UnitType] >= MaxUnitsPerType {
				continue
			}
			if points+tmpl.Cost > maxPoints {
				continue
			}
			if next >= len(positions) {
				break
			}

			pos := positions[next]
			next++
			counts[tmpl.UnitType]++

			u := tmpl.Clone()
			u.Name = fmt.Sprintf("%s %d", tmpl.UnitType, counts[tmpl.UnitType])
			u.X, u.Y = pos.X, pos.Y

			units = append(units, u)
			points += tmpl.Cost
			added = true
		}
	}

	return core.NewArmy(units)
}

// Mirror moves an army to the opposite side of the grid.
func Mirror(army *core.Army) *core.Army {
	if army == nil {
		return nil
	}
	for _, u := range army.Units {
		if u != nil {
			u.X = pathfind.Width - 1 - u.X
		}
	}
	return army
}

// bestPerType keeps the most efficient template of every type, in the order
// types first appear. Free templates stay in; they rank last and the per-type
// cap bounds them.
func bestPerType(templates []core.Unit) []core.Unit {
	index := make(map[string]int)
	best := make([]core.Unit, 0, len(templates))
	for _, t := range templates {
		if t.UnitType == "" {
			continue
		}
		i, ok := index[t.UnitType]
		if !ok {
			index[t.UnitType] = len(best)
			best = append(best, t)
			continue
		}
		if compareTemplates(t, best[i]) < 0 {
			best[i] = t
		}
	}
	return best
}

// compareTemplates orders by attack per point, then health per point, both descending.
func compareTemplates(a, b core.Unit) int {
	if c := cmp.Compare(ratio(b.BaseAttack, b.Cost), ratio(a.BaseAttack, a.Cost)); c != 0 {
		return c
	}
	return cmp.Compare(ratio(b.Health, b.Cost), ratio(a.Health, a.Cost))
}

func ratio(value, cost int) float64 {
	if cost <= 0 {
		return 0
	}
	return float64(value) / float64(cost)
}

func freePositions(opts Options) []core.Edge {
	from, to := max(opts.XFrom, 0), min(opts.XTo, pathfind.Width-1)
	if to < from {
		return nil
	}
	positions := make([]core.Edge, 0, (to-from+1)*pathfind.Height)
	for x := from; x <= to; x++ {
		for y := 0; y < pathfind.Height; y++ {
			positions = append(positions, core.Edge{X: x, Y: y})
		}
	}
	return positions
}
