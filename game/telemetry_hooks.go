package game

import (
	"github.com/pthm-cable/frogpond/components"
	"github.com/pthm-cable/frogpond/population"
	"github.com/pthm-cable/frogpond/telemetry"
)

// GenerationCompleted flushes the generation's stats to the log, CSV output,
// metrics, the hall of fame and the bookmark detector.
func (g *Game) GenerationCompleted(report population.GenerationReport) {
	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)

	turn := g.world.Turn()
	stats := g.collector.Flush(report, turn)
	perfStats := g.perfCollector.Stats()

	g.hallOfFame.Consider(report.Generation, uint32(report.BestAgent), report.Best, report.BestTree)
	g.metrics.ObserveGeneration(stats)

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteGeneration(stats); err != nil {
		g.logger.Error("failed to write generation", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, turn); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}

	for _, bm := range g.bookmarks.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			g.logger.Error("failed to write bookmark", "error", err)
		}
	}
}

// AgentRespawned records an instant respawn.
func (g *Game) AgentRespawned(report population.RespawnReport) {
	g.collector.RecordRespawn()
	g.metrics.ObserveRespawn()

	// Respawns happen mid-turn, before the turn counter advances.
	record := telemetry.RespawnRecord{
		Turn:       g.world.Turn() + 1,
		Generation: report.Generation,
		Agent:      uint32(report.Agent),
		Mark:       report.Mark,
		X:          report.Position.X,
		Y:          report.Position.Y,
	}
	if err := g.outputManager.WriteRespawn(record); err != nil {
		g.logger.Error("failed to write respawn", "error", err)
	}
}

func (g *Game) recordAgentDeath(_ components.AgentID, species string) {
	g.collector.RecordDeath()
	g.metrics.ObserveDeath(species)
}

func (g *Game) recordPlayerDeath(components.AgentID) {
	g.collector.RecordPlayerDeath()
	g.metrics.ObservePlayerDeath()
}
