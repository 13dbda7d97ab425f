package sim

import (
	"github.com/pthm-cable/frogpond/components"
)

// Hunter is the headless player controller. It attacks an adjacent agent,
// otherwise walks towards the nearest agent in sight, otherwise waits.
type Hunter struct {
	world *World
	sight int
}

// NewHunter creates a player controller for w.
func NewHunter(w *World, sightRadius int) *Hunter {
	return &Hunter{world: w, sight: sightRadius}
}

// Act takes the player's turn.
func (h *Hunter) Act(id components.AgentID) {
	w := h.world
	pos := w.Position(id)

	target := components.NoAgent
	best := h.sight + 1
	for _, other := range w.Nearby(pos, h.sight) {
		if other == id {
			continue
		}
		if d := chebyshev(pos, w.Position(other)); d < best {
			target, best = other, d
		}
	}
	if target == components.NoAgent {
		return
	}

	goal := w.Position(target)
	if best == 1 {
		w.Combat(id, target)
		return
	}

	step, stepDist := pos, best
	for _, n := range pos.Neighbours() {
		if !w.CanEnter(id, n) {
			continue
		}
		if d := chebyshev(n, goal); d < stepDist {
			step, stepDist = n, d
		}
	}
	if step != pos {
		w.Move(id, step)
	}
}

func chebyshev(a, b components.Position) int {
	return max(abs(a.X-b.X), abs(a.Y-b.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
