// Package sim is the turn-based grid world the evolved agents live in.
package sim

import (
	"errors"

	"github.com/pthm-cable/frogpond/components"
)

var (
	// ErrNoOpenTile is returned when no floor tile is free.
	ErrNoOpenTile = errors.New("sim: no open tile")
	// ErrTileOccupied is returned when placing a character on a taken or walled tile.
	ErrTileOccupied = errors.New("sim: tile is not open")
	// ErrUnknownSpecies is returned when spawning a species without a stat block.
	ErrUnknownSpecies = errors.New("sim: unknown species")
)

// Environment is the query/command surface predicates, actions and the
// population manager use to read and change the world.
type Environment interface {
	Position(id components.AgentID) components.Position
	Player() components.AgentID
	// Nearby lists characters on the map within Chebyshev distance radius of pos,
	// including any character standing on pos itself.
	Nearby(pos components.Position, radius int) []components.AgentID
	Health(id components.AgentID) *components.Health
	CombatStats(id components.AgentID) components.Combat
	Species(id components.AgentID) string

	// Combat resolves one attack. It does nothing unless the two are adjacent.
	Combat(attacker, victim components.AgentID) (damage int, killed bool)
	Move(id components.AgentID, dest components.Position) bool
	CanEnter(id components.AgentID, pos components.Position) bool
	InBounds(pos components.Position) bool
	ChooseOpenTile() (components.Position, error)

	SpawnAgent(species string, pos components.Position) (components.AgentID, error)
	SetPosition(id components.AgentID, pos components.Position)
	SetMark(id components.AgentID, mark int)
	AddAgent(id components.AgentID) error
	RemoveAgent(id components.AgentID)
	ActivateAgent(id components.AgentID)
	DeactivateAgent(id components.AgentID)
	RestoreHealth(id components.AgentID)
	Performance(id components.AgentID) *components.Performance
}

// Controller decides and performs one character's turn.
type Controller interface {
	Act(id components.AgentID)
}

// ControllerFunc adapts a function to the Controller interface.
type ControllerFunc func(id components.AgentID)

// Act calls f(id).
func (f ControllerFunc) Act(id components.AgentID) { f(id) }
