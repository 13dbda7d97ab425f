package telemetry

import (
	"github.com/pthm-cable/frogpond/population"
)

// Collector accumulates events between generation steps and produces
// GenerationStats.
type Collector struct {
	// Event counters for the current generation
	deaths       int
	respawns     int
	playerDeaths int
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordDeath records an agent death.
func (c *Collector) RecordDeath() {
	c.deaths++
}

// RecordRespawn records an instant respawn.
func (c *Collector) RecordRespawn() {
	c.respawns++
}

// RecordPlayerDeath records the player being killed.
func (c *Collector) RecordPlayerDeath() {
	c.playerDeaths++
}

// Flush produces GenerationStats for report and resets counters for the
// next generation.
func (c *Collector) Flush(report population.GenerationReport, turn int) GenerationStats {
	fs := ComputeFitnessStats(report.Fitness)

	stats := GenerationStats{
		Generation: report.Generation,
		Turn:       turn,
		Agents:     len(report.Fitness),

		FitnessMean: fs.Mean,
		FitnessStd:  fs.Std,
		FitnessMin:  fs.Min,
		FitnessP10:  fs.P10,
		FitnessP50:  fs.P50,
		FitnessP90:  fs.P90,
		FitnessMax:  fs.Max,
		BestAgent:   uint32(report.BestAgent),

		Deaths:       c.deaths,
		Respawns:     c.respawns,
		PlayerDeaths: c.playerDeaths,

		MutatedNodes: report.MutatedNodes,
		Breed:        len(report.Breed),
		Classified:   report.Classified,
		Padded:       report.Padded,
		Truncated:    report.Truncated,
		Replaced:     len(report.Replaced),
	}
	if report.BestTree != nil {
		stats.BestTreeDepth = report.BestTree.Depth()
		stats.BestTreeDuplicates = report.BestTree.DuplicatePathPredicates()
	}

	// Reset for next generation
	c.deaths = 0
	c.respawns = 0
	c.playerDeaths = 0

	return stats
}
