// Package targeting decides which units may legally be attacked.
//
// A unit is covered when another living unit stands next to it in the same
// row, one cell towards the attacker. Covered units cannot be targeted. The
// covering check looks at every living unit of the row, whichever army it
// belongs to.
package targeting

import (
	"sort"

	"github.com/battlegrid/engine/pkg/core"
)

// neighborOffset returns the Y offset of the covering cell.
func neighborOffset(isLeftArmyTarget bool) int {
	if isLeftArmyTarget {
		return -1
	}
	return 1
}

// SuitableUnits returns the living, uncovered units of unitsByRow in row
// order, then input order within a row. Nil rows and nil or dead units are
// skipped. The input is never modified.
func SuitableUnits(unitsByRow [][]*core.Unit, isLeftArmyTarget bool) []*core.Unit {
	result := make([]*core.Unit, 0)
	if len(unitsByRow) == 0 {
		return result
	}

	dy := neighborOffset(isLeftArmyTarget)

	for _, row := range unitsByRow {
		if len(row) == 0 {
			continue
		}

		occupied := make(map[int]struct{}, len(row))
		for _, u := range row {
			if u.IsAlive() {
				occupied[u.Y] = struct{}{}
			}
		}

		for _, u := range row {
			if !u.IsAlive() {
				continue
			}
			if _, covered := occupied[u.Y+dy]; !covered {
				result = append(result, u)
			}
		}
	}

	return result
}

// GroupByRow groups the living units by X coordinate, ascending.
// Units keep their input order inside a row.
func GroupByRow(units []*core.Unit) [][]*core.Unit {
	byX := make(map[int][]*core.Unit)
	for _, u := range units {
		if !u.IsAlive() {
			continue
		}
		byX[u.X] = append(byX[u.X], u)
	}

	xs := make([]int, 0, len(byX))
	for x := range byX {
		xs = append(xs, x)
	}
	sort.Ints(xs)

	rows := make([][]*core.Unit, 0, len(xs))
	for _, x := range xs {
		rows = append(rows, byX[x])
	}
	return rows
}
