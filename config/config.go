// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// PlayerCreature is the creature name used for the player's stat block.
const PlayerCreature = "player"

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Population PopulationConfig `yaml:"population"`
	Creatures  []CreatureConfig `yaml:"creatures"`
	Player     PlayerConfig     `yaml:"player"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the grid world parameters.
type WorldConfig struct {
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	ObstacleDensity float64 `yaml:"obstacle_density"` // fraction of interior tiles that are walls
	Seed            int64   `yaml:"seed"`             // 0 = time-based
}

// PopulationConfig holds the evolutionary engine parameters.
type PopulationConfig struct {
	Initial            int       `yaml:"initial"`
	EvalInterval       int       `yaml:"eval_interval"`       // turns between generation steps
	SampleSize         int       `yaml:"sample_size"`         // agents drawn for selection each generation
	BreedProbabilities []float64 `yaml:"breed_probabilities"` // one per sample slot, worst to best
	TrackedSpecies     string    `yaml:"tracked_species"`
	MutationRate       float64   `yaml:"mutation_rate"`    // 0 = 1/(2*predicates+1)
	ResetOnRespawn     bool      `yaml:"reset_on_respawn"` // false keeps got_killed until the next evaluation
}

// CreatureConfig is a stat block for one species.
type CreatureConfig struct {
	Name          string `yaml:"name"`
	MaxHP         int    `yaml:"max_hp"`
	Offense       int    `yaml:"offense"`
	Defense       int    `yaml:"defense"`
	RegenInterval int    `yaml:"regen_interval"` // turns per +1 HP while wounded
}

// PlayerConfig holds the headless player controller settings.
type PlayerConfig struct {
	SightRadius int `yaml:"sight_radius"`
}

// CatalogConfig holds predicate tuning and extra expression predicates.
type CatalogConfig struct {
	FriendsRadius       int                   `yaml:"friends_radius"`
	FriendsThreshold    int                   `yaml:"friends_threshold"`
	AboutToDieThreshold int                   `yaml:"about_to_die_threshold"`
	ExprPredicates      []ExprPredicateConfig `yaml:"expr_predicates"`
}

// ExprPredicateConfig defines a predicate as a boolean expression.
type ExprPredicateConfig struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	HallOfFameSize int  `yaml:"hall_of_fame_size"`
	LogStats       bool `yaml:"log_stats"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	CreatureIndex map[string]int // name -> index into Creatures
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.CreatureIndex = make(map[string]int, len(c.Creatures))
	for i, cr := range c.Creatures {
		c.Derived.CreatureIndex[cr.Name] = i
	}
}

// Creature returns the stat block for name.
func (c *Config) Creature(name string) (CreatureConfig, bool) {
	i, ok := c.Derived.CreatureIndex[name]
	if !ok {
		return CreatureConfig{}, false
	}
	return c.Creatures[i], true
}

// Validate checks the static constraints the engine relies on.
func (c *Config) Validate() error {
	var errs []error

	if c.World.Width < 3 || c.World.Height < 3 {
		errs = append(errs, fmt.Errorf("world must be at least 3x3, got %dx%d", c.World.Width, c.World.Height))
	}
	if c.World.ObstacleDensity < 0 || c.World.ObstacleDensity >= 1 {
		errs = append(errs, fmt.Errorf("world.obstacle_density must be in [0,1), got %v", c.World.ObstacleDensity))
	}

	p := c.Population
	if p.Initial < 2 {
		errs = append(errs, fmt.Errorf("population.initial must be >= 2, got %d", p.Initial))
	}
	if p.EvalInterval < 1 {
		errs = append(errs, fmt.Errorf("population.eval_interval must be >= 1, got %d", p.EvalInterval))
	}
	if p.SampleSize < 1 || p.SampleSize > p.Initial {
		errs = append(errs, fmt.Errorf("population.sample_size must be in [1, %d], got %d", p.Initial, p.SampleSize))
	}
	if len(p.BreedProbabilities) != p.SampleSize {
		errs = append(errs, fmt.Errorf("population.breed_probabilities needs %d entries, got %d", p.SampleSize, len(p.BreedProbabilities)))
	}
	for i, v := range p.BreedProbabilities {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("population.breed_probabilities[%d] = %v outside [0,1]", i, v))
		}
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		errs = append(errs, fmt.Errorf("population.mutation_rate must be in [0,1], got %v", p.MutationRate))
	}

	for _, name := range []string{p.TrackedSpecies, PlayerCreature} {
		cr, ok := c.Creature(name)
		if !ok {
			errs = append(errs, fmt.Errorf("no creature stat block named %q", name))
			continue
		}
		if cr.MaxHP < 1 {
			errs = append(errs, fmt.Errorf("creature %q: max_hp must be >= 1", name))
		}
	}
	if len(c.Derived.CreatureIndex) != len(c.Creatures) {
		errs = append(errs, errors.New("creature names must be unique"))
	}

	return errors.Join(errs...)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
