package population

import (
	"github.com/pthm-cable/frogpond/components"
	"github.com/pthm-cable/frogpond/dtree"
)

// Observer receives engine events. Calls happen synchronously inside the
// turn that caused them.
type Observer interface {
	GenerationCompleted(r GenerationReport)
	AgentRespawned(r RespawnReport)
}

// GenerationReport describes one generation step.
type GenerationReport struct {
	Generation int

	// Fitness holds every agent's score in population order at evaluation
	// time, before any tree was replaced.
	Fitness     []int
	MeanFitness float64
	Worst       int
	Best        int
	BestAgent   components.AgentID
	BestTree    *dtree.Tree // copy of the best agent's tree after mutation

	MutatedNodes int
	Sampled      []components.AgentID // worst to best
	Breed        []components.AgentID
	Classified   int // replace pool size before reconciliation
	Padded       int
	Truncated    int
	Replaced     []components.AgentID // in install order
}

// RespawnReport describes one instant respawn.
type RespawnReport struct {
	Agent      components.AgentID
	Mark       int
	Position   components.Position
	Generation int
}
