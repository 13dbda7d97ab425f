// Package telemetry provides generation statistics, run output, the hall of
// fame and metrics for the frog pond.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GenerationStats holds aggregated statistics for one generation step.
type GenerationStats struct {
	Generation int `csv:"generation"`
	Turn       int `csv:"turn"`

	// Population at evaluation time
	Agents int `csv:"agents"`

	// Fitness distribution
	FitnessMean float64 `csv:"fitness_mean"`
	FitnessStd  float64 `csv:"fitness_std"`
	FitnessMin  float64 `csv:"fitness_min"`
	FitnessP10  float64 `csv:"fitness_p10"`
	FitnessP50  float64 `csv:"fitness_p50"`
	FitnessP90  float64 `csv:"fitness_p90"`
	FitnessMax  float64 `csv:"fitness_max"`
	BestAgent   uint32  `csv:"best_agent"`

	// Events since the previous generation
	Deaths       int `csv:"deaths"`
	Respawns     int `csv:"respawns"`
	PlayerDeaths int `csv:"player_deaths"`

	// Selection
	MutatedNodes int `csv:"mutated_nodes"`
	Breed        int `csv:"breed"`
	Classified   int `csv:"classified_replace"`
	Padded       int `csv:"padded"`
	Truncated    int `csv:"truncated"`
	Replaced     int `csv:"replaced"`

	// Tree shape drift
	BestTreeDepth      int `csv:"best_tree_depth"`
	BestTreeDuplicates int `csv:"best_tree_duplicate_paths"`
}

// FitnessStats summarizes a set of fitness values.
type FitnessStats struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
	P10  float64
	P50  float64
	P90  float64
}

// ComputeFitnessStats calculates mean, spread and empirical quantiles.
func ComputeFitnessStats(values []int) FitnessStats {
	n := len(values)
	if n == 0 {
		return FitnessStats{}
	}

	sorted := make([]float64, n)
	for i, v := range values {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)

	var fs FitnessStats
	if n == 1 {
		fs.Mean = sorted[0]
	} else {
		fs.Mean, fs.Std = stat.MeanStdDev(sorted, nil)
	}
	fs.Min = floats.Min(sorted)
	fs.Max = floats.Max(sorted)
	fs.P10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	fs.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	fs.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return fs
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("turn", s.Turn),
		slog.Int("agents", s.Agents),
		slog.Float64("fitness_mean", s.FitnessMean),
		slog.Float64("fitness_std", s.FitnessStd),
		slog.Float64("fitness_min", s.FitnessMin),
		slog.Float64("fitness_p50", s.FitnessP50),
		slog.Float64("fitness_max", s.FitnessMax),
		slog.Int("best_agent", int(s.BestAgent)),
		slog.Int("deaths", s.Deaths),
		slog.Int("respawns", s.Respawns),
		slog.Int("player_deaths", s.PlayerDeaths),
		slog.Int("mutated_nodes", s.MutatedNodes),
		slog.Int("breed", s.Breed),
		slog.Int("classified_replace", s.Classified),
		slog.Int("padded", s.Padded),
		slog.Int("truncated", s.Truncated),
		slog.Int("replaced", s.Replaced),
		slog.Int("best_tree_depth", s.BestTreeDepth),
		slog.Int("best_tree_duplicate_paths", s.BestTreeDuplicates),
	)
}

// LogStats logs the generation stats using slog.
func (s GenerationStats) LogStats() {
	slog.Info("stats", "generation", s)
}
