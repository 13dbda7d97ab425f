// Package components defines ECS components for the simulation.
package components

import "fmt"

// AgentID is the stable identity of a character in the world.
// It survives death and respawn; ECS entity handles do not leak out of sim.
type AgentID uint32

// NoAgent is the zero AgentID, never assigned to a character.
const NoAgent AgentID = 0

// Position is a tile coordinate.
type Position struct {
	X, Y int
}

// Add returns p offset by (dx, dy).
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Adjacent reports whether q is one of the eight neighbours of p.
func (p Position) Adjacent(q Position) bool {
	dx, dy := abs(p.X-q.X), abs(p.Y-q.Y)
	return dx <= 1 && dy <= 1 && (dx != 0 || dy != 0)
}

// Neighbours returns the eight surrounding coordinates.
func (p Position) Neighbours() [8]Position {
	return [8]Position{
		p.Add(0, 1), p.Add(0, -1),
		p.Add(1, 0), p.Add(1, 1), p.Add(1, -1),
		p.Add(-1, 0), p.Add(-1, 1), p.Add(-1, -1),
	}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Health tracks hit points and regeneration.
type Health struct {
	HP              int
	MaxHP           int
	RegenInterval   int // turns between +1 HP while wounded (0 = no regen)
	TurnsSinceRegen int
}

// Combat holds the stats used by the combat resolver.
type Combat struct {
	Offense int
	Defense int
}

// Identity names a character and its species.
type Identity struct {
	ID      AgentID
	Species string
	Player  bool
	Mark    int // respawn mark, -1 until first respawn
}

// Performance is the per-agent record read by the evolutionary engine.
type Performance struct {
	Kills       int
	DamageDealt int
	GotKilled   bool
	Fitness     int // derived, written at each generation step
}

// Reset zeroes the record.
func (p *Performance) Reset() {
	*p = Performance{}
}

// Presence tracks whether a character is placed on the map and whether it
// takes turns.
type Presence struct {
	OnMap  bool
	Active bool
}
