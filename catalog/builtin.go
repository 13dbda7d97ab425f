package catalog

import (
	"fmt"

	"github.com/pthm-cable/frogpond/components"
	"github.com/pthm-cable/frogpond/config"
	"github.com/pthm-cable/frogpond/dtree"
	"github.com/pthm-cable/frogpond/sim"
)

// Builtin predicate ids, in catalog order.
const (
	FullLife dtree.PredicateID = iota
	LessThanHalfLife
	MoreThanHalfLife
	AboutToDie
	PlayerAboutToDie
	CanKillPlayer
	FriendsNearby
	AdjacentToPlayer
	NumBuiltinPredicates
)

// Builtin action ids, in catalog order.
const (
	AttackPlayer dtree.ActionID = iota
	MoveTowardsPlayer
	RunAway
	Wait
	NumBuiltinActions
)

// Default builds the builtin catalog followed by any expression predicates
// from cfg.
func Default(cfg config.CatalogConfig) (*Catalog, error) {
	preds := BuiltinPredicates(cfg)
	for _, e := range cfg.ExprPredicates {
		fn, err := CompilePredicate(e.Expr, cfg)
		if err != nil {
			return nil, fmt.Errorf("predicate %q: %w", e.Name, err)
		}
		preds = append(preds, Predicate{Name: e.Name, Fn: fn})
	}
	return New(preds, BuiltinActions())
}

// BuiltinPredicates returns the predicates every frog knows, tuned by cfg.
func BuiltinPredicates(cfg config.CatalogConfig) []Predicate {
	return []Predicate{
		{"full_life", fullLife},
		{"less_than_half_life", lessThanHalfLife},
		{"more_than_half_life", moreThanHalfLife},
		{"about_to_die", aboutToDie(cfg.AboutToDieThreshold)},
		{"player_about_to_die", playerAboutToDie(cfg.AboutToDieThreshold)},
		{"can_kill_player", canKillPlayer},
		{"friends_nearby", friendsNearby(cfg.FriendsRadius, cfg.FriendsThreshold)},
		{"adjacent_to_player", adjacentToPlayer},
	}
}

// BuiltinActions returns the actions every frog can take.
func BuiltinActions() []Action {
	return []Action{
		{"attack_player", attackPlayer},
		{"move_towards_player", moveTowardsPlayer},
		{"run_away", runAway},
		{"wait", wait},
	}
}

func fullLife(env sim.Environment, agent components.AgentID) bool {
	h := env.Health(agent)
	return h.HP == h.MaxHP
}

func lessThanHalfLife(env sim.Environment, agent components.AgentID) bool {
	h := env.Health(agent)
	return 2*h.HP < h.MaxHP
}

func moreThanHalfLife(env sim.Environment, agent components.AgentID) bool {
	return !lessThanHalfLife(env, agent)
}

func aboutToDie(threshold int) PredicateFunc {
	return func(env sim.Environment, agent components.AgentID) bool {
		hp := env.Health(agent).HP
		return hp > 0 && hp < threshold
	}
}

func playerAboutToDie(threshold int) PredicateFunc {
	return func(env sim.Environment, _ components.AgentID) bool {
		hp := env.Health(env.Player()).HP
		return hp > 0 && hp < threshold
	}
}

func canKillPlayer(env sim.Environment, agent components.AgentID) bool {
	player := env.Player()
	return env.CombatStats(agent).Offense-env.CombatStats(player).Defense >= env.Health(player).HP
}

// friendsNearby counts characters of the agent's own species in the square
// around it, the agent itself included.
func friendsNearby(radius, threshold int) PredicateFunc {
	return func(env sim.Environment, agent components.AgentID) bool {
		return countFriends(env, agent, radius) >= threshold
	}
}

func countFriends(env sim.Environment, agent components.AgentID, radius int) int {
	species := env.Species(agent)
	n := 0
	for _, id := range env.Nearby(env.Position(agent), radius) {
		if env.Species(id) == species {
			n++
		}
	}
	return n
}

func adjacentToPlayer(env sim.Environment, agent components.AgentID) bool {
	return env.Position(agent).Adjacent(env.Position(env.Player()))
}
