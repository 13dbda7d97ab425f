package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/frogpond/components"
	"github.com/pthm-cable/frogpond/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.World.Width = 12
	cfg.World.Height = 12
	cfg.World.ObstacleDensity = 0
	return cfg
}

// newTestWorld builds an empty world and parks the player at (1,1).
func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := NewWorld(testConfig(t), rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)
	w.SetPosition(w.Player(), components.Position{X: 1, Y: 1})
	w.SetPlayerController(nil)
	return w
}

func spawnFrog(t *testing.T, w *World, x, y int) components.AgentID {
	t.Helper()
	id, err := w.SpawnAgent("giant_frog", components.Position{X: x, Y: y})
	require.NoError(t, err)
	w.ActivateAgent(id)
	return id
}

func TestGridBorderWalls(t *testing.T) {
	g := NewGrid(5, 4)
	for _, p := range []components.Position{
		{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 3}, {X: 4, Y: 3}, {X: 2, Y: 0}, {X: 0, Y: 2},
	} {
		assert.True(t, g.Wall(p), "border %v", p)
	}
	assert.False(t, g.Wall(components.Position{X: 2, Y: 2}))
	assert.True(t, g.Wall(components.Position{X: -1, Y: 2}), "out of bounds counts as wall")
	assert.Equal(t, 6, g.OpenTiles())
}

func TestSpawnRejectsTakenTile(t *testing.T) {
	w := newTestWorld(t)
	spawnFrog(t, w, 5, 5)

	_, err := w.SpawnAgent("giant_frog", components.Position{X: 5, Y: 5})
	assert.ErrorIs(t, err, ErrTileOccupied)

	_, err = w.SpawnAgent("giant_frog", components.Position{X: 0, Y: 5})
	assert.ErrorIs(t, err, ErrTileOccupied, "walls are not open")

	_, err = w.SpawnAgent("newt", components.Position{X: 6, Y: 6})
	assert.ErrorIs(t, err, ErrUnknownSpecies)
}

func TestCombatRequiresAdjacency(t *testing.T) {
	w := newTestWorld(t)
	frog := spawnFrog(t, w, 4, 4)

	damage, killed := w.Combat(frog, w.Player())
	assert.Zero(t, damage)
	assert.False(t, killed)
	assert.Zero(t, w.Performance(frog).DamageDealt)
}

func TestCombatDamageAndKill(t *testing.T) {
	w := newTestWorld(t)
	frog := spawnFrog(t, w, 2, 2)

	var deaths []components.AgentID
	w.OnAgentDeath(func(id components.AgentID, species string) {
		assert.Equal(t, "giant_frog", species)
		deaths = append(deaths, id)
	})

	// Frog offense 2 vs player defense 1.
	damage, killed := w.Combat(frog, w.Player())
	assert.Equal(t, 1, damage)
	assert.False(t, killed)
	assert.Equal(t, 1, w.Performance(frog).DamageDealt)
	assert.Equal(t, 39, w.Health(w.Player()).HP)

	// Player offense 3 vs frog defense 1, frog has 8 hp.
	for i := 0; i < 3; i++ {
		_, killed = w.Combat(w.Player(), frog)
		assert.False(t, killed)
	}
	damage, killed = w.Combat(w.Player(), frog)
	assert.Equal(t, 2, damage)
	assert.True(t, killed)

	assert.Equal(t, []components.AgentID{frog}, deaths)
	assert.True(t, w.Performance(frog).GotKilled)
	assert.Equal(t, 1, w.Performance(w.Player()).Kills)
	assert.Empty(t, w.Active())
	assert.Equal(t, components.NoAgent, w.Grid().Occupant(components.Position{X: 2, Y: 2}))
}

func TestCombatZeroDamageFloor(t *testing.T) {
	w := newTestWorld(t)
	frog := spawnFrog(t, w, 2, 1)
	w.combatMap.Get(w.entity(frog)).Offense = 0

	damage, _ := w.Combat(frog, w.Player())
	assert.Zero(t, damage)
	assert.Equal(t, 40, w.Health(w.Player()).HP)
}

func TestPlayerDeathRespawns(t *testing.T) {
	w := newTestWorld(t)
	frog := spawnFrog(t, w, 2, 2)
	w.Health(w.Player()).HP = 1

	var deaths int
	w.OnAgentDeath(func(components.AgentID, string) { deaths++ })
	var killers []components.AgentID
	w.OnPlayerDeath(func(killer components.AgentID) { killers = append(killers, killer) })

	_, killed := w.Combat(frog, w.Player())
	require.True(t, killed)
	assert.Zero(t, deaths, "player death is not an agent death")
	assert.Equal(t, []components.AgentID{frog}, killers)
	assert.Equal(t, 1, w.Performance(frog).Kills)
	assert.Equal(t, 40, w.Health(w.Player()).HP)
	assert.Equal(t, w.Player(), w.Grid().Occupant(w.Position(w.Player())))
}

func TestMoveAndCanEnter(t *testing.T) {
	w := newTestWorld(t)
	frog := spawnFrog(t, w, 3, 3)

	assert.False(t, w.Move(frog, components.Position{X: 0, Y: 3}), "wall")
	assert.False(t, w.Move(frog, components.Position{X: 1, Y: 1}), "player tile")
	assert.True(t, w.CanEnter(frog, components.Position{X: 3, Y: 3}), "own tile")

	require.True(t, w.Move(frog, components.Position{X: 4, Y: 4}))
	assert.Equal(t, components.Position{X: 4, Y: 4}, w.Position(frog))
	assert.Equal(t, frog, w.Grid().Occupant(components.Position{X: 4, Y: 4}))
	assert.Equal(t, components.NoAgent, w.Grid().Occupant(components.Position{X: 3, Y: 3}))
}

func TestNearbyIncludesCenter(t *testing.T) {
	w := newTestWorld(t)
	a := spawnFrog(t, w, 5, 5)
	b := spawnFrog(t, w, 7, 7)
	spawnFrog(t, w, 9, 9)

	got := w.Nearby(components.Position{X: 5, Y: 5}, 2)
	assert.ElementsMatch(t, []components.AgentID{a, b}, got)
}

func TestRemoveAddActivate(t *testing.T) {
	w := newTestWorld(t)
	frog := spawnFrog(t, w, 5, 5)

	w.DeactivateAgent(frog)
	w.RemoveAgent(frog)
	assert.Empty(t, w.Active())
	assert.Equal(t, components.NoAgent, w.Grid().Occupant(components.Position{X: 5, Y: 5}))

	w.SetPosition(frog, components.Position{X: 6, Y: 6})
	require.NoError(t, w.AddAgent(frog))
	w.ActivateAgent(frog)
	w.ActivateAgent(frog)
	assert.Equal(t, []components.AgentID{frog}, w.Active())
	assert.Equal(t, frog, w.Grid().Occupant(components.Position{X: 6, Y: 6}))

	other := spawnFrog(t, w, 7, 7)
	w.RemoveAgent(other)
	w.SetPosition(other, components.Position{X: 6, Y: 6})
	assert.ErrorIs(t, w.AddAgent(other), ErrTileOccupied)
}

func TestChooseOpenTile(t *testing.T) {
	w := newTestWorld(t)
	for i := 0; i < 50; i++ {
		p, err := w.ChooseOpenTile()
		require.NoError(t, err)
		assert.True(t, w.Grid().Open(p))
	}
}

func TestChooseOpenTileFullMap(t *testing.T) {
	cfg := testConfig(t)
	cfg.World.Width, cfg.World.Height = 3, 3
	w, err := NewWorld(cfg, rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err, "the single interior tile holds the player")

	_, err = w.ChooseOpenTile()
	assert.ErrorIs(t, err, ErrNoOpenTile)
}

func TestStepOrderAndTurnEnd(t *testing.T) {
	w := newTestWorld(t)
	a := spawnFrog(t, w, 5, 5)
	b := spawnFrog(t, w, 7, 7)

	var order []components.AgentID
	w.SetPlayerController(ControllerFunc(func(id components.AgentID) { order = append(order, id) }))
	w.SetAgentController(ControllerFunc(func(id components.AgentID) { order = append(order, id) }))

	var ended []int
	w.OnTurnEnded(func(turn int) { ended = append(ended, turn) })
	var phases []string
	w.SetPhaseHook(func(phase string) { phases = append(phases, phase) })

	w.Step()
	w.Step()
	assert.Equal(t, []components.AgentID{w.Player(), a, b, w.Player(), a, b}, order)
	assert.Equal(t, []int{1, 2}, ended)
	assert.Equal(t, []string{PhasePlayer, PhaseAgents, PhaseRegen, PhasePlayer, PhaseAgents, PhaseRegen}, phases)
	assert.Equal(t, 2, w.Turn())
}

func TestStepSkipsAgentsKilledThisTurn(t *testing.T) {
	w := newTestWorld(t)
	killer := spawnFrog(t, w, 5, 5)
	victim := spawnFrog(t, w, 6, 5)
	w.Health(victim).HP = 1

	var acted []components.AgentID
	w.SetAgentController(ControllerFunc(func(id components.AgentID) {
		acted = append(acted, id)
		if id == killer {
			w.Combat(killer, victim)
		}
	}))

	w.Step()
	assert.Equal(t, []components.AgentID{killer}, acted)
}

func TestRegeneration(t *testing.T) {
	w := newTestWorld(t)
	frog := spawnFrog(t, w, 5, 5)
	h := w.Health(frog)
	h.HP = h.MaxHP - 2

	for i := 0; i < h.RegenInterval-1; i++ {
		w.Step()
	}
	assert.Equal(t, h.MaxHP-2, w.Health(frog).HP)
	w.Step()
	assert.Equal(t, h.MaxHP-1, w.Health(frog).HP)

	for i := 0; i < 3*h.RegenInterval; i++ {
		w.Step()
	}
	assert.Equal(t, h.MaxHP, w.Health(frog).HP, "never above max")
}

func TestHunterAttacksAndChases(t *testing.T) {
	w := newTestWorld(t)
	hunter := NewHunter(w, 8)

	frog := spawnFrog(t, w, 4, 4)
	hunter.Act(w.Player())
	assert.Equal(t, components.Position{X: 2, Y: 2}, w.Position(w.Player()), "diagonal step towards the frog")

	hunter.Act(w.Player())
	hunter.Act(w.Player())
	assert.Equal(t, components.Position{X: 3, Y: 3}, w.Position(w.Player()))
	assert.Equal(t, 2, w.Performance(w.Player()).DamageDealt, "attacks once adjacent")
	assert.Equal(t, 6, w.Health(frog).HP)
}

func TestCensus(t *testing.T) {
	w := newTestWorld(t)
	spawnFrog(t, w, 5, 5)
	b := spawnFrog(t, w, 7, 7)
	w.Health(b).HP = 4

	census := w.Census()
	require.Len(t, census, 2)
	assert.Equal(t, "giant_frog", census[0].Species)
	assert.Equal(t, 2, census[0].Active)
	assert.InDelta(t, 6.0, census[0].MeanHP, 1e-9)
	assert.Equal(t, "player", census[1].Species)
	assert.Zero(t, census[1].Active)
}
