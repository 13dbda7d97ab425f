package catalog

import (
	"github.com/pthm-cable/frogpond/components"
	"github.com/pthm-cable/frogpond/sim"
)

// Move costs relative to a target tile.
const (
	costReachesTarget = -3
	costReducesBoth   = -2
	costReducesOne    = -1
	costNeutral       = 0
)

func attackPlayer(env sim.Environment, agent components.AgentID) {
	env.Combat(agent, env.Player())
}

// moveTowardsPlayer takes the cheapest move. Stepping onto the player
// attacks instead.
func moveTowardsPlayer(env sim.Environment, agent components.AgentID) {
	start, target := env.Position(agent), env.Position(env.Player())
	moves := moveCandidates(env, agent, target)
	if len(moves) == 0 {
		return
	}

	best := 0
	bestCost := moveCost(start, moves[0], target)
	for i := 1; i < len(moves); i++ {
		if c := moveCost(start, moves[i], target); c < bestCost {
			best, bestCost = i, c
		}
	}

	if moves[best] == target {
		attackPlayer(env, agent)
		return
	}
	env.Move(agent, moves[best])
}

// runAway takes the most expensive move. When the only option is the
// player's tile it attacks.
func runAway(env sim.Environment, agent components.AgentID) {
	start, target := env.Position(agent), env.Position(env.Player())
	moves := moveCandidates(env, agent, target)
	if len(moves) == 0 {
		return
	}

	best := 0
	bestCost := moveCost(start, moves[0], target)
	for i := 1; i < len(moves); i++ {
		if c := moveCost(start, moves[i], target); c > bestCost {
			best, bestCost = i, c
		}
	}

	if bestCost == costReachesTarget {
		attackPlayer(env, agent)
		return
	}
	env.Move(agent, moves[best])
}

func wait(sim.Environment, components.AgentID) {}

// moveCandidates lists the neighbouring tiles the agent could step onto.
// The target tile always counts.
func moveCandidates(env sim.Environment, agent components.AgentID, target components.Position) []components.Position {
	pos := env.Position(agent)
	var out []components.Position
	for _, n := range pos.Neighbours() {
		if n == target || (env.InBounds(n) && env.CanEnter(agent, n)) {
			out = append(out, n)
		}
	}
	return out
}

// moveCost scores stepping from start to move when heading for target.
// Moving away scores the same as standing still.
func moveCost(start, move, target components.Position) int {
	if move == target {
		return costReachesTarget
	}
	sx, sy := axisDistance(start, target)
	mx, my := axisDistance(move, target)
	if sx == mx && sy == my {
		return costNeutral
	}

	xReduced, yReduced := mx < sx, my < sy
	switch {
	case xReduced && yReduced:
		return costReducesBoth
	case xReduced || yReduced:
		return costReducesOne
	default:
		return costNeutral
	}
}

func axisDistance(a, b components.Position) (int, int) {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx, dy
}
