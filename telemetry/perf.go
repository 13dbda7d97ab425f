package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one world turn.
const (
	PhasePlayer     = "player"
	PhaseAgents     = "agents"
	PhaseRegen      = "regen"
	PhaseGeneration = "generation"
	PhaseTelemetry  = "telemetry"
)

var phaseOrder = []string{PhasePlayer, PhaseAgents, PhaseRegen, PhaseGeneration, PhaseTelemetry}

// PerfSample holds timing data for a single turn.
type PerfSample struct {
	TurnDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks turn timing over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	turnStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of turns to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 100
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTurn begins timing a new turn.
func (p *PerfCollector) StartTurn() {
	p.turnStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTurn finishes timing the current turn and records the sample.
func (p *PerfCollector) EndTurn() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		TurnDuration: now.Sub(p.turnStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.lastPhase = ""
}

// SampleCount returns how many turns the window currently holds.
func (p *PerfCollector) SampleCount() int {
	return p.sampleCount
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgTurnDuration time.Duration
	MinTurnDuration time.Duration
	MaxTurnDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total turn time
	PhasePct map[string]float64

	TurnsPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minTurn, maxTurn time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.TurnDuration
		if i == 0 || s.TurnDuration < minTurn {
			minTurn = s.TurnDuration
		}
		if s.TurnDuration > maxTurn {
			maxTurn = s.TurnDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var perSec float64
	if avg > 0 {
		perSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgTurnDuration: avg,
		MinTurnDuration: minTurn,
		MaxTurnDuration: maxTurn,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		TurnsPerSecond:  perSec,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_turn_us", s.AvgTurnDuration.Microseconds(),
		"min_turn_us", s.MinTurnDuration.Microseconds(),
		"max_turn_us", s.MaxTurnDuration.Microseconds(),
		"turns_per_sec", int(s.TurnsPerSecond),
	}
	for _, phase := range phaseOrder {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_turn_us", s.AvgTurnDuration.Microseconds()),
		slog.Int64("min_turn_us", s.MinTurnDuration.Microseconds()),
		slog.Int64("max_turn_us", s.MaxTurnDuration.Microseconds()),
		slog.Float64("turns_per_sec", s.TurnsPerSecond),
	}
	for _, phase := range phaseOrder {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Turn          int     `csv:"turn"`
	AvgTurnUS     int64   `csv:"avg_turn_us"`
	MinTurnUS     int64   `csv:"min_turn_us"`
	MaxTurnUS     int64   `csv:"max_turn_us"`
	TurnsPerSec   float64 `csv:"turns_per_sec"`
	PlayerPct     float64 `csv:"player_pct"`
	AgentsPct     float64 `csv:"agents_pct"`
	RegenPct      float64 `csv:"regen_pct"`
	GenerationPct float64 `csv:"generation_pct"`
	TelemetryPct  float64 `csv:"telemetry_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(turn int) PerfStatsCSV {
	return PerfStatsCSV{
		Turn:          turn,
		AvgTurnUS:     s.AvgTurnDuration.Microseconds(),
		MinTurnUS:     s.MinTurnDuration.Microseconds(),
		MaxTurnUS:     s.MaxTurnDuration.Microseconds(),
		TurnsPerSec:   s.TurnsPerSecond,
		PlayerPct:     s.PhasePct[PhasePlayer],
		AgentsPct:     s.PhasePct[PhaseAgents],
		RegenPct:      s.PhasePct[PhaseRegen],
		GenerationPct: s.PhasePct[PhaseGeneration],
		TelemetryPct:  s.PhasePct[PhaseTelemetry],
	}
}
