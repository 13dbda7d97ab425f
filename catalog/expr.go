package catalog

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/pthm-cable/frogpond/components"
	"github.com/pthm-cable/frogpond/config"
	"github.com/pthm-cable/frogpond/sim"
)

// PredicateEnv is what an expression predicate sees of the world.
type PredicateEnv struct {
	HP             int
	MaxHP          int
	Offense        int
	Defense        int
	PlayerHP       int
	PlayerMaxHP    int
	PlayerOffense  int
	PlayerDefense  int
	Friends        int // own species in the friends radius, self included
	PlayerDistance int // Chebyshev distance to the player
	Adjacent       bool
}

// NewPredicateEnv snapshots the world for agent.
func NewPredicateEnv(env sim.Environment, agent components.AgentID, cfg config.CatalogConfig) PredicateEnv {
	player := env.Player()
	h, ph := env.Health(agent), env.Health(player)
	c, pc := env.CombatStats(agent), env.CombatStats(player)
	pos, ppos := env.Position(agent), env.Position(player)
	dx, dy := axisDistance(pos, ppos)

	return PredicateEnv{
		HP:             h.HP,
		MaxHP:          h.MaxHP,
		Offense:        c.Offense,
		Defense:        c.Defense,
		PlayerHP:       ph.HP,
		PlayerMaxHP:    ph.MaxHP,
		PlayerOffense:  pc.Offense,
		PlayerDefense:  pc.Defense,
		Friends:        countFriends(env, agent, cfg.FriendsRadius),
		PlayerDistance: max(dx, dy),
		Adjacent:       pos.Adjacent(ppos),
	}
}

// CompilePredicate compiles a boolean expression over PredicateEnv.
// Expressions that do not yield a bool are rejected here.
func CompilePredicate(src string, cfg config.CatalogConfig) (PredicateFunc, error) {
	prog, err := expr.Compile(src, expr.Env(PredicateEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return exprPredicate(prog, cfg), nil
}

func exprPredicate(prog *vm.Program, cfg config.CatalogConfig) PredicateFunc {
	return func(env sim.Environment, agent components.AgentID) bool {
		out, err := vm.Run(prog, NewPredicateEnv(env, agent, cfg))
		if err != nil {
			panic(fmt.Sprintf("catalog: expression predicate failed: %v", err))
		}
		return out.(bool)
	}
}
