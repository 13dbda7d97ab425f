package population

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/pthm-cable/frogpond/catalog"
	"github.com/pthm-cable/frogpond/components"
	"github.com/pthm-cable/frogpond/dtree"
	"github.com/pthm-cable/frogpond/sim"
)

// Agent pairs a character in the world with the tree that drives it.
type Agent struct {
	ID   components.AgentID
	Tree *dtree.Tree
}

// Manager owns the population. It is the only writer of the agent list.
type Manager struct {
	cfg       Config
	env       sim.Environment
	catalog   *catalog.Catalog
	rng       dtree.Rand
	logger    *slog.Logger
	observers []Observer

	predicates   []dtree.PredicateID
	actions      []dtree.ActionID
	mutationRate float64

	agents         []*Agent
	byID           map[components.AgentID]*Agent
	running        bool
	turnsSinceEval int
	generations    int
	nextMark       int
}

// NewManager creates a stopped manager. rng is shared by every stochastic
// operation the manager performs.
func NewManager(cfg Config, env sim.Environment, cat *catalog.Catalog, rng dtree.Rand, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	rate := cfg.MutationRate
	if rate == 0 {
		rate = dtree.DefaultMutationRate(cat.NumPredicates())
	}
	return &Manager{
		cfg:          cfg,
		env:          env,
		catalog:      cat,
		rng:          rng,
		logger:       logger,
		predicates:   cat.PredicateIDs(),
		actions:      cat.ActionIDs(),
		mutationRate: rate,
		byID:         make(map[components.AgentID]*Agent),
	}
}

// Observe subscribes o to generation and respawn events.
func (m *Manager) Observe(o Observer) {
	m.observers = append(m.observers, o)
}

// Start seeds the population: each agent spawns on an open tile with a
// random tree and joins the turn order.
func (m *Manager) Start() error {
	if m.running {
		return ErrAlreadyRunning
	}
	if err := m.cfg.Validate(); err != nil {
		return err
	}

	for range m.cfg.InitialPopulation {
		pos, err := m.env.ChooseOpenTile()
		if err != nil {
			return fmt.Errorf("seeding population: %w", err)
		}
		id, err := m.env.SpawnAgent(m.cfg.TrackedSpecies, pos)
		if err != nil {
			return fmt.Errorf("seeding population: %w", err)
		}

		tree := dtree.New(uint32(id))
		tree.Randomize(m.rng, m.predicates, m.actions)
		agent := &Agent{ID: id, Tree: tree}
		m.agents = append(m.agents, agent)
		m.byID[id] = agent
		m.env.ActivateAgent(id)
	}

	m.running = true
	m.logger.Info("population_started",
		"agents", len(m.agents),
		"species", m.cfg.TrackedSpecies,
		"eval_interval", m.cfg.EvalInterval,
		"mutation_rate", m.mutationRate,
	)
	return nil
}

// Stop halts evolution and respawning. Agents stay in the world.
func (m *Manager) Stop() {
	m.running = false
}

// Running reports whether the manager reacts to notifications.
func (m *Manager) Running() bool { return m.running }

// Generations returns the number of completed generation steps.
func (m *Manager) Generations() int { return m.generations }

// Agents returns the population in its current order.
func (m *Manager) Agents() []*Agent {
	return slices.Clone(m.agents)
}

// Agent returns the agent with the given id, or nil.
func (m *Manager) Agent(id components.AgentID) *Agent {
	return m.byID[id]
}

// Act evaluates the agent's tree against the world and performs the chosen
// action. Characters the manager does not own are left alone.
func (m *Manager) Act(id components.AgentID) {
	agent, ok := m.byID[id]
	if !ok {
		return
	}
	action := m.catalog.Evaluate(agent.Tree, m.env, id)
	m.catalog.Apply(m.env, id, action)
}

// HandleTurnEnded counts turns and runs a generation step every
// EvalInterval notifications.
func (m *Manager) HandleTurnEnded() error {
	if !m.running {
		return nil
	}
	m.turnsSinceEval++
	if m.turnsSinceEval < m.cfg.EvalInterval {
		return nil
	}
	m.turnsSinceEval = 0
	return m.generationStep()
}

// HandleAgentDeath respawns a dead agent of the tracked species on a fresh
// open tile at full health, with the next respawn mark. The performance
// record is zeroed unless ResetOnRespawn is off, in which case it is kept
// until the agent's tree is replaced.
func (m *Manager) HandleAgentDeath(id components.AgentID, species string) {
	if !m.running || species != m.cfg.TrackedSpecies {
		return
	}
	if _, ok := m.byID[id]; !ok {
		return
	}

	mark := m.nextMark
	m.nextMark++
	m.env.SetMark(id, mark)

	old := m.env.Position(id)
	pos, err := m.env.ChooseOpenTile()
	for attempt := 0; err == nil && pos == old && attempt < 8; attempt++ {
		pos, err = m.env.ChooseOpenTile()
	}
	if err != nil {
		m.logger.Error("respawn_failed", "agent", id, "mark", mark, "error", err)
		return
	}

	m.env.SetPosition(id, pos)
	if err := m.env.AddAgent(id); err != nil {
		m.logger.Error("respawn_failed", "agent", id, "mark", mark, "error", err)
		return
	}
	m.env.ActivateAgent(id)
	m.env.RestoreHealth(id)
	if m.cfg.ResetOnRespawn {
		m.env.Performance(id).Reset()
	}

	m.logger.Debug("agent_respawned", "agent", id, "mark", mark, "pos", pos.String())
	report := RespawnReport{Agent: id, Mark: mark, Position: pos, Generation: m.generations}
	for _, o := range m.observers {
		o.AgentRespawned(report)
	}
}
