package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/frogpond/components"
	"github.com/pthm-cable/frogpond/config"
)

// World is the ECS-backed grid world. Characters are never removed from the
// ECS; death only changes their Presence.
type World struct {
	ecs *ecs.World

	mapper *ecs.Map6[
		components.Position,
		components.Health,
		components.Combat,
		components.Identity,
		components.Performance,
		components.Presence,
	]
	posMap       *ecs.Map1[components.Position]
	healthMap    *ecs.Map1[components.Health]
	combatMap    *ecs.Map1[components.Combat]
	identityMap  *ecs.Map1[components.Identity]
	perfMap      *ecs.Map1[components.Performance]
	presenceMap  *ecs.Map1[components.Presence]
	censusFilter *ecs.Filter3[components.Identity, components.Health, components.Presence]

	regen *RegenSystem

	grid     *Grid
	entities []ecs.Entity // indexed by AgentID; slot 0 unused
	active   []components.AgentID
	player   components.AgentID
	species  map[string]config.CreatureConfig
	rng      *rand.Rand
	logger   *slog.Logger
	turn     int

	playerCtl    Controller
	agentCtl     Controller
	diedThisTurn map[components.AgentID]bool

	turnEnded   []func(turn int)
	agentDeath  []func(id components.AgentID, species string)
	playerDeath []func(killer components.AgentID)
	phaseHook   func(phase string)
}

// Turn phases reported to the phase hook.
const (
	PhasePlayer = "player"
	PhaseAgents = "agents"
	PhaseRegen  = "regen"
)

var _ Environment = (*World)(nil)

// NewWorld builds the map and places the player on a random open tile.
func NewWorld(cfg *config.Config, rng *rand.Rand, logger *slog.Logger) (*World, error) {
	if logger == nil {
		logger = slog.Default()
	}
	world := ecs.NewWorld()

	w := &World{
		ecs: world,
		mapper: ecs.NewMap6[
			components.Position,
			components.Health,
			components.Combat,
			components.Identity,
			components.Performance,
			components.Presence,
		](world),
		posMap:       ecs.NewMap1[components.Position](world),
		healthMap:    ecs.NewMap1[components.Health](world),
		combatMap:    ecs.NewMap1[components.Combat](world),
		identityMap:  ecs.NewMap1[components.Identity](world),
		perfMap:      ecs.NewMap1[components.Performance](world),
		presenceMap:  ecs.NewMap1[components.Presence](world),
		censusFilter: ecs.NewFilter3[components.Identity, components.Health, components.Presence](world),
		regen:        NewRegenSystem(world),
		grid:         NewGrid(cfg.World.Width, cfg.World.Height),
		entities:     []ecs.Entity{{}},
		species:      make(map[string]config.CreatureConfig, len(cfg.Creatures)),
		rng:          rng,
		logger:       logger,
		diedThisTurn: make(map[components.AgentID]bool),
	}
	for _, c := range cfg.Creatures {
		w.species[c.Name] = c
	}
	w.grid.Scatter(rng, cfg.World.ObstacleDensity)

	pos, err := w.ChooseOpenTile()
	if err != nil {
		return nil, fmt.Errorf("placing player: %w", err)
	}
	player, err := w.spawn(config.PlayerCreature, pos, true)
	if err != nil {
		return nil, fmt.Errorf("spawning player: %w", err)
	}
	w.player = player
	w.playerCtl = NewHunter(w, cfg.Player.SightRadius)

	return w, nil
}

// Grid exposes the tile map.
func (w *World) Grid() *Grid { return w.grid }

// Turn returns the number of completed turns.
func (w *World) Turn() int { return w.turn }

// SetPlayerController replaces the controller driving the player.
// A nil controller leaves the player idle.
func (w *World) SetPlayerController(c Controller) { w.playerCtl = c }

// SetAgentController sets the controller driving every active agent.
func (w *World) SetAgentController(c Controller) { w.agentCtl = c }

// OnTurnEnded subscribes fn to the end of every turn.
func (w *World) OnTurnEnded(fn func(turn int)) {
	w.turnEnded = append(w.turnEnded, fn)
}

// OnAgentDeath subscribes fn to every non-player death.
func (w *World) OnAgentDeath(fn func(id components.AgentID, species string)) {
	w.agentDeath = append(w.agentDeath, fn)
}

// OnPlayerDeath subscribes fn to the player being killed. It fires after the
// player has respawned.
func (w *World) OnPlayerDeath(fn func(killer components.AgentID)) {
	w.playerDeath = append(w.playerDeath, fn)
}

// SetPhaseHook installs fn to be called as each turn phase begins.
func (w *World) SetPhaseHook(fn func(phase string)) { w.phaseHook = fn }

func (w *World) phase(name string) {
	if w.phaseHook != nil {
		w.phaseHook(name)
	}
}

// Step runs one turn: the player acts, then each active agent in activation
// order, then regeneration, then the turn-end subscribers fire once.
func (w *World) Step() {
	clear(w.diedThisTurn)

	w.phase(PhasePlayer)
	if w.playerCtl != nil {
		w.playerCtl.Act(w.player)
	}
	w.phase(PhaseAgents)
	if w.agentCtl != nil {
		for _, id := range slices.Clone(w.active) {
			if w.diedThisTurn[id] || !w.presenceMap.Get(w.entities[id]).Active {
				continue
			}
			w.agentCtl.Act(id)
		}
	}
	w.phase(PhaseRegen)
	w.regen.Update()

	w.turn++
	for _, fn := range w.turnEnded {
		fn(w.turn)
	}
}

func (w *World) spawn(species string, pos components.Position, player bool) (components.AgentID, error) {
	stats, ok := w.species[species]
	if !ok {
		return components.NoAgent, fmt.Errorf("%w: %q", ErrUnknownSpecies, species)
	}
	if !w.grid.Open(pos) {
		return components.NoAgent, fmt.Errorf("%w: %v", ErrTileOccupied, pos)
	}

	id := components.AgentID(len(w.entities))
	p := pos
	health := components.Health{HP: stats.MaxHP, MaxHP: stats.MaxHP, RegenInterval: stats.RegenInterval}
	combat := components.Combat{Offense: stats.Offense, Defense: stats.Defense}
	ident := components.Identity{ID: id, Species: species, Player: player, Mark: -1}
	perf := components.Performance{}
	presence := components.Presence{OnMap: true}

	entity := w.mapper.NewEntity(&p, &health, &combat, &ident, &perf, &presence)
	w.entities = append(w.entities, entity)
	w.grid.place(id, pos)
	return id, nil
}

func (w *World) entity(id components.AgentID) ecs.Entity {
	if id == components.NoAgent || int(id) >= len(w.entities) {
		panic(fmt.Sprintf("sim: unknown agent %d", id))
	}
	return w.entities[id]
}

// SpawnAgent creates a character of species standing on pos. It is inactive
// until ActivateAgent is called.
func (w *World) SpawnAgent(species string, pos components.Position) (components.AgentID, error) {
	return w.spawn(species, pos, false)
}

// Position returns the tile a character stands on (or last stood on).
func (w *World) Position(id components.AgentID) components.Position {
	return *w.posMap.Get(w.entity(id))
}

// Player returns the player's id.
func (w *World) Player() components.AgentID { return w.player }

// Nearby lists characters within Chebyshev distance radius of pos.
func (w *World) Nearby(pos components.Position, radius int) []components.AgentID {
	var ids []components.AgentID
	w.grid.Square(pos, radius, func(id components.AgentID, _ components.Position) {
		ids = append(ids, id)
	})
	return ids
}

// Health returns the character's mutable health record.
func (w *World) Health(id components.AgentID) *components.Health {
	return w.healthMap.Get(w.entity(id))
}

// CombatStats returns the character's offense and defense.
func (w *World) CombatStats(id components.AgentID) components.Combat {
	return *w.combatMap.Get(w.entity(id))
}

// Species returns the character's species name.
func (w *World) Species(id components.AgentID) string {
	return w.identityMap.Get(w.entity(id)).Species
}

// Identity returns the character's identity record.
func (w *World) Identity(id components.AgentID) components.Identity {
	return *w.identityMap.Get(w.entity(id))
}

// SetMark records a respawn mark on the character.
func (w *World) SetMark(id components.AgentID, mark int) {
	w.identityMap.Get(w.entity(id)).Mark = mark
}

// Performance returns the character's mutable performance record.
func (w *World) Performance(id components.AgentID) *components.Performance {
	return w.perfMap.Get(w.entity(id))
}

// Combat resolves one attack. Damage is offense minus defense, floored at
// zero. A killed agent leaves the map and the death subscribers fire; a
// killed player respawns on an open tile at full health.
func (w *World) Combat(attacker, victim components.AgentID) (int, bool) {
	if !w.Position(attacker).Adjacent(w.Position(victim)) {
		return 0, false
	}

	damage := max(w.CombatStats(attacker).Offense-w.CombatStats(victim).Defense, 0)
	health := w.Health(victim)
	health.HP -= damage

	perf := w.Performance(attacker)
	perf.DamageDealt += damage
	if health.HP > 0 {
		return damage, false
	}
	perf.Kills++

	if victim == w.player {
		w.respawnPlayer()
		for _, fn := range w.playerDeath {
			fn(attacker)
		}
		return damage, true
	}

	species := w.Species(victim)
	w.DeactivateAgent(victim)
	w.RemoveAgent(victim)
	w.Performance(victim).GotKilled = true
	w.diedThisTurn[victim] = true
	w.logger.Debug("agent_killed", "agent", victim, "species", species, "by", attacker, "turn", w.turn)

	for _, fn := range w.agentDeath {
		fn(victim, species)
	}
	return damage, true
}

func (w *World) respawnPlayer() {
	w.RemoveAgent(w.player)
	w.RestoreHealth(w.player)
	pos, err := w.ChooseOpenTile()
	if err != nil {
		// The tile the player just left is free again, so this cannot happen.
		panic(fmt.Sprintf("sim: respawning player: %v", err))
	}
	w.SetPosition(w.player, pos)
	if err := w.AddAgent(w.player); err != nil {
		panic(fmt.Sprintf("sim: respawning player: %v", err))
	}
	w.logger.Info("player_killed", "turn", w.turn, "respawn", pos.String())
}

// Move steps a character onto dest if it can enter it.
func (w *World) Move(id components.AgentID, dest components.Position) bool {
	if !w.CanEnter(id, dest) {
		return false
	}
	pos := w.posMap.Get(w.entity(id))
	w.grid.clear(*pos)
	*pos = dest
	w.grid.place(id, dest)
	return true
}

// CanEnter reports whether id may step onto pos.
func (w *World) CanEnter(id components.AgentID, pos components.Position) bool {
	occ := w.grid.Occupant(pos)
	return !w.grid.Wall(pos) && (occ == components.NoAgent || occ == id)
}

// InBounds reports whether pos lies on the map.
func (w *World) InBounds(pos components.Position) bool {
	return w.grid.InBounds(pos)
}

// ChooseOpenTile picks a uniformly random free floor tile.
func (w *World) ChooseOpenTile() (components.Position, error) {
	// A few blind probes find a tile quickly on a sparse map.
	for range 16 {
		p := components.Position{X: w.rng.Intn(w.grid.width), Y: w.rng.Intn(w.grid.height)}
		if w.grid.Open(p) {
			return p, nil
		}
	}

	var open []components.Position
	for y := 0; y < w.grid.height; y++ {
		for x := 0; x < w.grid.width; x++ {
			if p := (components.Position{X: x, Y: y}); w.grid.Open(p) {
				open = append(open, p)
			}
		}
	}
	if len(open) == 0 {
		return components.Position{}, ErrNoOpenTile
	}
	return open[w.rng.Intn(len(open))], nil
}

// SetPosition moves a character without passability checks. A character on
// the map keeps its occupancy in step.
func (w *World) SetPosition(id components.AgentID, pos components.Position) {
	e := w.entity(id)
	p := w.posMap.Get(e)
	if w.presenceMap.Get(e).OnMap {
		w.grid.clear(*p)
		w.grid.place(id, pos)
	}
	*p = pos
}

// AddAgent places a character back on the map at its current position.
func (w *World) AddAgent(id components.AgentID) error {
	e := w.entity(id)
	presence := w.presenceMap.Get(e)
	if presence.OnMap {
		return nil
	}
	pos := *w.posMap.Get(e)
	if !w.grid.Open(pos) {
		return fmt.Errorf("%w: %v", ErrTileOccupied, pos)
	}
	w.grid.place(id, pos)
	presence.OnMap = true
	return nil
}

// RemoveAgent takes a character off the map.
func (w *World) RemoveAgent(id components.AgentID) {
	e := w.entity(id)
	presence := w.presenceMap.Get(e)
	if !presence.OnMap {
		return
	}
	w.grid.clear(*w.posMap.Get(e))
	presence.OnMap = false
}

// ActivateAgent appends the character to the turn order.
func (w *World) ActivateAgent(id components.AgentID) {
	presence := w.presenceMap.Get(w.entity(id))
	if presence.Active {
		return
	}
	presence.Active = true
	w.active = append(w.active, id)
}

// DeactivateAgent drops the character from the turn order.
func (w *World) DeactivateAgent(id components.AgentID) {
	presence := w.presenceMap.Get(w.entity(id))
	if !presence.Active {
		return
	}
	presence.Active = false
	if i := slices.Index(w.active, id); i >= 0 {
		w.active = slices.Delete(w.active, i, i+1)
	}
}

// Active returns the turn order.
func (w *World) Active() []components.AgentID {
	return slices.Clone(w.active)
}

// RestoreHealth refills hit points and restarts regeneration.
func (w *World) RestoreHealth(id components.AgentID) {
	h := w.Health(id)
	h.HP = h.MaxHP
	h.TurnsSinceRegen = 0
}

// SpeciesCensus summarizes one species.
type SpeciesCensus struct {
	Species string
	OnMap   int
	Active  int
	MeanHP  float64
}

// Census counts characters per species.
func (w *World) Census() []SpeciesCensus {
	byName := make(map[string]*SpeciesCensus)
	hpSum := make(map[string]int)

	query := w.censusFilter.Query()
	for query.Next() {
		ident, health, presence := query.Get()
		c, ok := byName[ident.Species]
		if !ok {
			c = &SpeciesCensus{Species: ident.Species}
			byName[ident.Species] = c
		}
		if presence.OnMap {
			c.OnMap++
			hpSum[ident.Species] += health.HP
		}
		if presence.Active {
			c.Active++
		}
	}

	out := make([]SpeciesCensus, 0, len(byName))
	for name, c := range byName {
		if c.OnMap > 0 {
			c.MeanHP = float64(hpSum[name]) / float64(c.OnMap)
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Species < out[j].Species })
	return out
}
