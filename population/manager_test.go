package population

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/frogpond/catalog"
	"github.com/pthm-cable/frogpond/components"
	"github.com/pthm-cable/frogpond/config"
	"github.com/pthm-cable/frogpond/dtree"
	"github.com/pthm-cable/frogpond/sim"
)

// fixedFloatRand draws integers from a seeded source but always returns the
// same float, forcing every pool classification and mutation decision.
type fixedFloatRand struct {
	*rand.Rand
	f float64
}

func (r fixedFloatRand) Float64() float64 { return r.f }

type recorder struct {
	generations []GenerationReport
	respawns    []RespawnReport
}

func (r *recorder) GenerationCompleted(g GenerationReport) { r.generations = append(r.generations, g) }
func (r *recorder) AgentRespawned(s RespawnReport)         { r.respawns = append(r.respawns, s) }

type fixture struct {
	world   *sim.World
	catalog *catalog.Catalog
	manager *Manager
	rec     *recorder
}

func newFixture(t *testing.T, cfg Config, rng dtree.Rand) *fixture {
	t.Helper()
	c, err := config.Load("")
	require.NoError(t, err)
	c.World.ObstacleDensity = 0

	w, err := sim.NewWorld(c, rand.New(rand.NewSource(11)), nil)
	require.NoError(t, err)
	w.SetPlayerController(nil)

	cat, err := catalog.Default(c.Catalog)
	require.NoError(t, err)

	if rng == nil {
		rng = rand.New(rand.NewSource(5))
	}
	m := NewManager(cfg, w, cat, rng, nil)
	rec := &recorder{}
	m.Observe(rec)
	return &fixture{world: w, catalog: cat, manager: m, rec: rec}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.manager.Start())
	f.world.OnAgentDeath(f.manager.HandleAgentDeath)
}

func TestFitness(t *testing.T) {
	tests := []struct {
		name string
		perf components.Performance
		want int
	}{
		{"empty", components.Performance{}, 0},
		{"damage only", components.Performance{DamageDealt: 7}, 7},
		{"kills", components.Performance{Kills: 2, DamageDealt: 3}, 23},
		{"killed", components.Performance{GotKilled: true}, -10},
		{"everything", components.Performance{Kills: 1, DamageDealt: 4, GotKilled: true}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fitness(tt.perf))
		})
	}
}

func TestFitnessMonotonic(t *testing.T) {
	base := components.Performance{Kills: 1, DamageDealt: 5}
	for i := 0; i < 5; i++ {
		more := base
		more.Kills += i
		assert.GreaterOrEqual(t, Fitness(more), Fitness(base))
		more = base
		more.DamageDealt += i
		assert.GreaterOrEqual(t, Fitness(more), Fitness(base))
	}
	killed := base
	killed.GotKilled = true
	assert.Equal(t, Fitness(base)-10, Fitness(killed))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults", func(*Config) {}, nil},
		{"population of one", func(c *Config) { c.InitialPopulation = 1 }, ErrPopulationTooSmall},
		{"sample too large", func(c *Config) { c.InitialPopulation = 4 }, ErrSampleTooLarge},
		{"short table", func(c *Config) { c.BreedProbabilities = c.BreedProbabilities[:3] }, ErrBreedTable},
		{"zero interval", func(c *Config) { c.EvalInterval = 0 }, ErrBadInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFromConfigMatchesDefaults(t *testing.T) {
	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), FromConfig(c.Population))
}

func TestStartErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialPopulation = 1
	f := newFixture(t, cfg, nil)
	assert.ErrorIs(t, f.manager.Start(), ErrPopulationTooSmall)
	assert.False(t, f.manager.Running())

	cfg = DefaultConfig()
	cfg.InitialPopulation = 4
	f = newFixture(t, cfg, nil)
	assert.ErrorIs(t, f.manager.Start(), ErrSampleTooLarge)

	f = newFixture(t, DefaultConfig(), nil)
	require.NoError(t, f.manager.Start())
	assert.ErrorIs(t, f.manager.Start(), ErrAlreadyRunning)
}

func TestStartSeedsPopulation(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.start(t)

	agents := f.manager.Agents()
	require.Len(t, agents, 30)
	assert.Len(t, f.world.Active(), 30)
	for _, a := range agents {
		assert.Equal(t, uint32(a.ID), a.Tree.Owner)
		assert.Equal(t, int(catalog.NumBuiltinPredicates), a.Tree.Depth(), "full spine")
		assert.Zero(t, a.Tree.DuplicatePathPredicates())
		assert.Equal(t, "giant_frog", f.world.Species(a.ID))
		assert.Same(t, a, f.manager.Agent(a.ID))
	}
}

// Scenario A: five turn-end notifications fire exactly one generation, and
// fitness is computed for every agent before selection.
func TestGenerationFiresOnInterval(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.start(t)

	agents := f.manager.Agents()
	for i, a := range agents {
		f.world.Performance(a.ID).DamageDealt = i + 1
	}

	for i := 0; i < 4; i++ {
		require.NoError(t, f.manager.HandleTurnEnded())
	}
	assert.Zero(t, f.manager.Generations())
	assert.Empty(t, f.rec.generations)

	require.NoError(t, f.manager.HandleTurnEnded())
	assert.Equal(t, 1, f.manager.Generations())
	require.Len(t, f.rec.generations, 1)

	report := f.rec.generations[0]
	require.Len(t, report.Fitness, 30)
	for i, got := range report.Fitness {
		assert.Equal(t, i+1, got)
	}
	assert.InDelta(t, 15.5, report.MeanFitness, 1e-9)
	assert.Equal(t, 1, report.Worst)
	assert.Equal(t, 30, report.Best)
	assert.Equal(t, agents[29].ID, report.BestAgent)

	replaced := make(map[components.AgentID]bool)
	for _, id := range report.Replaced {
		replaced[id] = true
	}
	for i, a := range agents {
		if !replaced[a.ID] {
			assert.Equal(t, i+1, f.world.Performance(a.ID).Fitness)
		}
	}

	for i := 0; i < 4; i++ {
		require.NoError(t, f.manager.HandleTurnEnded())
	}
	assert.Equal(t, 1, f.manager.Generations(), "counter restarts after a generation")
	require.NoError(t, f.manager.HandleTurnEnded())
	assert.Equal(t, 2, f.manager.Generations())
}

// Scenario B: draws of 0.1 put every sampled agent in the breed pool and none
// in the replace pool, so all five replacements come from the worse half.
func TestBreedPoolPaddedFromWorseHalf(t *testing.T) {
	rng := fixedFloatRand{Rand: rand.New(rand.NewSource(9)), f: 0.1}
	f := newFixture(t, DefaultConfig(), rng)
	f.start(t)

	rank := make(map[components.AgentID]int)
	for i, a := range f.manager.Agents() {
		f.world.Performance(a.ID).Kills = i
		rank[a.ID] = i
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, f.manager.HandleTurnEnded())
	}
	require.Len(t, f.rec.generations, 1)
	report := f.rec.generations[0]

	assert.Len(t, report.Sampled, 5)
	assert.Equal(t, report.Sampled, report.Breed, "every sampled agent breeds, in sample order")
	assert.Zero(t, report.Classified)
	assert.Equal(t, 5, report.Padded)
	assert.Zero(t, report.Truncated)
	assert.Zero(t, report.MutatedNodes, "0.1 is above the mutation rate")
	require.Len(t, report.Replaced, 5)
	for _, id := range report.Replaced {
		assert.Less(t, rank[id], 15, "agent %d is not in the worse half", id)
	}

	for i := 1; i < len(report.Sampled); i++ {
		assert.LessOrEqual(t, rank[report.Sampled[i-1]], rank[report.Sampled[i]], "sample sorted worst to best")
	}
}

func TestReplacePoolTruncated(t *testing.T) {
	rng := fixedFloatRand{Rand: rand.New(rand.NewSource(9)), f: 0.99}
	f := newFixture(t, DefaultConfig(), rng)
	f.start(t)

	before := make(map[components.AgentID]*dtree.Tree)
	for _, a := range f.manager.Agents() {
		before[a.ID] = a.Tree
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, f.manager.HandleTurnEnded())
	}
	report := f.rec.generations[0]
	assert.Empty(t, report.Breed)
	assert.Equal(t, 5, report.Classified)
	assert.Equal(t, 5, report.Truncated)
	assert.Empty(t, report.Replaced)
	for _, a := range f.manager.Agents() {
		assert.Same(t, before[a.ID], a.Tree, "no tree replaced")
	}
}

func TestReplacementInstallsOffspring(t *testing.T) {
	rng := fixedFloatRand{Rand: rand.New(rand.NewSource(21)), f: 0.1}
	f := newFixture(t, DefaultConfig(), rng)
	f.start(t)

	before := make(map[components.AgentID]*dtree.Tree)
	for i, a := range f.manager.Agents() {
		before[a.ID] = a.Tree
		f.world.Performance(a.ID).DamageDealt = i
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, f.manager.HandleTurnEnded())
	}
	report := f.rec.generations[0]
	require.NotEmpty(t, report.Replaced)

	for _, id := range report.Replaced {
		a := f.manager.Agent(id)
		assert.NotSame(t, before[id], a.Tree)
		assert.Equal(t, uint32(id), a.Tree.Owner)
		assert.Equal(t, int(catalog.NumBuiltinPredicates), a.Tree.Depth(), "crossover keeps the spine")
		assert.Equal(t, components.Performance{}, *f.world.Performance(id))
	}
	assert.Len(t, f.manager.Agents(), 30)
}

// Scenario C: a dead agent is respawned within the death notification.
func TestRespawnOnDeath(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.start(t)

	victim := f.manager.Agents()[0].ID
	old := f.world.Position(victim)
	player := f.world.Player()

	var spot components.Position
	found := false
	for _, n := range old.Neighbours() {
		if f.world.Grid().Open(n) {
			spot, found = n, true
			break
		}
	}
	require.True(t, found)
	f.world.SetPosition(player, spot)
	f.world.Health(victim).HP = 1

	_, killed := f.world.Combat(player, victim)
	require.True(t, killed)

	assert.Equal(t, 0, f.world.Identity(victim).Mark)
	pos := f.world.Position(victim)
	assert.NotEqual(t, old, pos)
	assert.Equal(t, victim, f.world.Grid().Occupant(pos))
	assert.Contains(t, f.world.Active(), victim)
	assert.Len(t, f.world.Active(), 30)
	assert.Len(t, f.manager.Agents(), 30)
	assert.Equal(t, f.world.Health(victim).MaxHP, f.world.Health(victim).HP)
	assert.Equal(t, components.Performance{}, *f.world.Performance(victim))

	require.Len(t, f.rec.respawns, 1)
	assert.Equal(t, RespawnReport{Agent: victim, Mark: 0, Position: pos}, f.rec.respawns[0])

	other := f.manager.Agents()[1].ID
	f.manager.HandleAgentDeath(other, "giant_frog")
	assert.Equal(t, 1, f.world.Identity(other).Mark, "marks come from one running counter")
}

func TestRespawnKeepsRecordWhenResetDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResetOnRespawn = false
	f := newFixture(t, cfg, nil)
	f.start(t)

	victim := f.manager.Agents()[0].ID
	f.world.Performance(victim).DamageDealt = 4
	f.world.Performance(victim).GotKilled = true
	f.manager.HandleAgentDeath(victim, "giant_frog")

	perf := f.world.Performance(victim)
	assert.True(t, perf.GotKilled, "death counts against the next evaluation")
	assert.Equal(t, 4, perf.DamageDealt)
	assert.Equal(t, -6, Fitness(*perf))
}

func TestDeathOfOtherSpeciesIgnored(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.start(t)

	id := f.manager.Agents()[0].ID
	f.manager.HandleAgentDeath(id, "player")
	assert.Equal(t, -1, f.world.Identity(id).Mark)
	assert.Empty(t, f.rec.respawns)
}

func TestStoppedManagerIgnoresNotifications(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.start(t)
	f.manager.Stop()

	for i := 0; i < 10; i++ {
		require.NoError(t, f.manager.HandleTurnEnded())
	}
	assert.Zero(t, f.manager.Generations())

	id := f.manager.Agents()[0].ID
	f.manager.HandleAgentDeath(id, "giant_frog")
	assert.Equal(t, -1, f.world.Identity(id).Mark)
}

func TestActAppliesTreeDecision(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.start(t)

	agent := f.manager.Agents()[0]
	agent.Tree = dtree.NewWithRoot(uint32(agent.ID), dtree.NewTest(catalog.AdjacentToPlayer,
		dtree.NewLeaf(catalog.AttackPlayer),
		dtree.NewLeaf(catalog.Wait),
	))

	pos := f.world.Position(agent.ID)
	for f.world.Position(f.world.Player()).Adjacent(pos) {
		tile, err := f.world.ChooseOpenTile()
		require.NoError(t, err)
		f.world.SetPosition(f.world.Player(), tile)
	}
	f.manager.Act(agent.ID)
	assert.Equal(t, pos, f.world.Position(agent.ID))
	assert.Zero(t, f.world.Performance(agent.ID).DamageDealt)

	moved := false
	for _, n := range pos.Neighbours() {
		if f.world.Grid().Open(n) {
			f.world.SetPosition(f.world.Player(), n)
			moved = true
			break
		}
	}
	require.True(t, moved)
	f.manager.Act(agent.ID)
	assert.Equal(t, 1, f.world.Performance(agent.ID).DamageDealt)

	f.manager.Act(f.world.Player())
	assert.Equal(t, 1, f.world.Performance(agent.ID).DamageDealt, "unowned characters are ignored")
}

func TestWorldDrivenRun(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.start(t)
	f.world.SetAgentController(f.manager)
	f.world.SetPlayerController(sim.NewHunter(f.world, 10))
	f.world.OnTurnEnded(func(int) {
		require.NoError(t, f.manager.HandleTurnEnded())
	})

	for i := 0; i < 50; i++ {
		f.world.Step()
	}
	assert.Equal(t, 10, f.manager.Generations())
	assert.Len(t, f.world.Active(), 30, "instant respawn keeps the population constant")
}
