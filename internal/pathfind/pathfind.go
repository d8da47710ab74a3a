// Package pathfind finds shortest routes across the battle grid.
//
// Movement is 8-directional and every step costs 1, diagonal or not, so a
// route's length is the Chebyshev distance when nothing is in the way.
// Routes are found with a breadth-first search; the neighbor order below is
// fixed so that among equally short routes the same one is always returned.
package pathfind

import (
	"github.com/battlegrid/engine/pkg/core"
)

// Grid dimensions.
const (
	Width  = 27
	Height = 21
)

var directions = [8]core.Edge{
	{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1},
	{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1},
}

// InBounds reports whether e lies on the grid.
func InBounds(e core.Edge) bool {
	return e.X >= 0 && e.X < Width && e.Y >= 0 && e.Y < Height
}

// Route returns the shortest route from attacker to target, both cells
// included. Living units in existing block their cell, except the attacker's
// and the target's own cells. An empty route means there is no way through,
// or one of the endpoints is nil or off the grid.
func Route(attacker, target *core.Unit, existing []*core.Unit) []core.Edge {
	if attacker == nil || target == nil {
		return []core.Edge{}
	}

	var blocked [Width][Height]bool
	for _, u := range existing {
		if !u.IsAlive() {
			continue
		}
		if p := u.Position(); InBounds(p) {
			blocked[p.X][p.Y] = true
		}
	}

	return Between(attacker.Position(), target.Position(), func(e core.Edge) bool {
		return blocked[e.X][e.Y]
	})
}

// Between runs the search from one cell to another. blocked is only asked
// about in-bounds cells other than from and to; a nil blocked means an empty
// grid.
func Between(from, to core.Edge, blocked func(core.Edge) bool) []core.Edge {
	if !InBounds(from) || !InBounds(to) {
		return []core.Edge{}
	}

	var (
		visited [Width][Height]bool
		parent  [Width][Height]core.Edge
	)

	queue := make([]core.Edge, 0, Width*Height)
	queue = append(queue, from)
	visited[from.X][from.Y] = true

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if cur == to {
			return buildPath(&parent, from, cur)
		}

		for _, d := range directions {
			next := core.Edge{X: cur.X + d.X, Y: cur.Y + d.Y}
			if !InBounds(next) || visited[next.X][next.Y] {
				continue
			}
			if next != to && blocked != nil && blocked(next) {
				continue
			}
			visited[next.X][next.Y] = true
			parent[next.X][next.Y] = cur
			queue = append(queue, next)
		}
	}

	return []core.Edge{}
}

func buildPath(parent *[Width][Height]core.Edge, from, end core.Edge) []core.Edge {
	path := []core.Edge{end}
	for cur := end; cur != from; {
		cur = parent[cur.X][cur.Y]
		path = append(path, cur)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Distance is the number of steps between two cells on an empty grid.
func Distance(a, b core.Edge) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
