// Package population runs the evolutionary engine: it owns the agents, keeps
// them alive with instant respawn and evolves their decision trees every few
// turns.
package population

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/frogpond/config"
)

var (
	// ErrPopulationTooSmall is returned by Start when fewer than two agents are configured.
	ErrPopulationTooSmall = errors.New("population: need at least two agents")
	// ErrSampleTooLarge is returned by Start when the selection sample exceeds the population.
	ErrSampleTooLarge = errors.New("population: sample larger than population")
	// ErrBreedTable is returned when the breed probability table does not fit the sample.
	ErrBreedTable = errors.New("population: breed probability table does not match sample size")
	// ErrBadInterval is returned for an evaluation interval below one turn.
	ErrBadInterval = errors.New("population: eval interval must be at least one turn")
	// ErrPoolMismatch is returned if offspring and replacement slots disagree after reconciliation.
	ErrPoolMismatch = errors.New("population: offspring and replace pool sizes differ")
	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("population: already running")
)

// DefaultBreedProbabilities is the per-slot breed chance, worst sample first.
var DefaultBreedProbabilities = []float64{0.20, 0.30, 0.40, 0.50, 0.60}

// Config holds the static parameters of a run.
type Config struct {
	InitialPopulation  int
	EvalInterval       int
	SampleSize         int
	BreedProbabilities []float64
	TrackedSpecies     string
	MutationRate       float64 // 0 = 1/(2*predicates+1)
	ResetOnRespawn     bool    // zero the performance record when an agent respawns
}

// DefaultConfig returns the standard frog pond parameters.
func DefaultConfig() Config {
	return Config{
		InitialPopulation:  30,
		EvalInterval:       5,
		SampleSize:         5,
		BreedProbabilities: append([]float64(nil), DefaultBreedProbabilities...),
		TrackedSpecies:     "giant_frog",
		ResetOnRespawn:     true,
	}
}

// FromConfig converts the population section of the loaded config.
func FromConfig(c config.PopulationConfig) Config {
	return Config{
		InitialPopulation:  c.Initial,
		EvalInterval:       c.EvalInterval,
		SampleSize:         c.SampleSize,
		BreedProbabilities: append([]float64(nil), c.BreedProbabilities...),
		TrackedSpecies:     c.TrackedSpecies,
		MutationRate:       c.MutationRate,
		ResetOnRespawn:     c.ResetOnRespawn,
	}
}

// Validate reports the first configuration error.
func (c Config) Validate() error {
	switch {
	case c.InitialPopulation < 2:
		return fmt.Errorf("%w: got %d", ErrPopulationTooSmall, c.InitialPopulation)
	case c.SampleSize > c.InitialPopulation:
		return fmt.Errorf("%w: sample %d, population %d", ErrSampleTooLarge, c.SampleSize, c.InitialPopulation)
	case c.SampleSize < 1 || len(c.BreedProbabilities) != c.SampleSize:
		return fmt.Errorf("%w: %d entries for sample of %d", ErrBreedTable, len(c.BreedProbabilities), c.SampleSize)
	case c.EvalInterval < 1:
		return fmt.Errorf("%w: got %d", ErrBadInterval, c.EvalInterval)
	}
	return nil
}
