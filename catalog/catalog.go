// Package catalog holds the named predicates and actions decision trees are
// built from. Trees refer to entries by their index in the catalog.
package catalog

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/frogpond/components"
	"github.com/pthm-cable/frogpond/dtree"
	"github.com/pthm-cable/frogpond/sim"
)

var (
	// ErrEmpty is returned when a catalog has no predicates or no actions.
	ErrEmpty = errors.New("catalog: needs at least one predicate and one action")
	// ErrDuplicateName is returned when two entries share a name.
	ErrDuplicateName = errors.New("catalog: duplicate name")
	// ErrTooLarge is returned when entries do not fit the id type.
	ErrTooLarge = errors.New("catalog: too many entries")
	// ErrNilFunc is returned for an entry without an implementation.
	ErrNilFunc = errors.New("catalog: entry has no function")
	// ErrUnknownPredicate is returned when looking up a name that is not registered.
	ErrUnknownPredicate = errors.New("catalog: unknown predicate")
	// ErrUnknownAction is returned when looking up a name that is not registered.
	ErrUnknownAction = errors.New("catalog: unknown action")
)

// PredicateFunc is a side-effect free test of the world from an agent's view.
type PredicateFunc func(env sim.Environment, agent components.AgentID) bool

// ActionFunc changes the world on behalf of an agent.
type ActionFunc func(env sim.Environment, agent components.AgentID)

// Predicate is a named test.
type Predicate struct {
	Name string
	Fn   PredicateFunc
}

// Action is a named behavior.
type Action struct {
	Name string
	Fn   ActionFunc
}

// Catalog is a fixed, ordered set of predicates and actions.
type Catalog struct {
	predicates []Predicate
	actions    []Action
}

// New validates the entries and builds a catalog. The slices are copied.
func New(predicates []Predicate, actions []Action) (*Catalog, error) {
	if len(predicates) == 0 || len(actions) == 0 {
		return nil, ErrEmpty
	}
	if len(predicates) > math.MaxUint8+1 || len(actions) > math.MaxUint8+1 {
		return nil, fmt.Errorf("%w: %d predicates, %d actions", ErrTooLarge, len(predicates), len(actions))
	}

	seen := make(map[string]bool)
	for _, p := range predicates {
		if p.Fn == nil {
			return nil, fmt.Errorf("%w: predicate %q", ErrNilFunc, p.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: predicate %q", ErrDuplicateName, p.Name)
		}
		seen[p.Name] = true
	}
	clear(seen)
	for _, a := range actions {
		if a.Fn == nil {
			return nil, fmt.Errorf("%w: action %q", ErrNilFunc, a.Name)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("%w: action %q", ErrDuplicateName, a.Name)
		}
		seen[a.Name] = true
	}

	return &Catalog{
		predicates: append([]Predicate(nil), predicates...),
		actions:    append([]Action(nil), actions...),
	}, nil
}

// NumPredicates returns the predicate count.
func (c *Catalog) NumPredicates() int { return len(c.predicates) }

// NumActions returns the action count.
func (c *Catalog) NumActions() int { return len(c.actions) }

// PredicateIDs returns every predicate id in catalog order.
func (c *Catalog) PredicateIDs() []dtree.PredicateID {
	ids := make([]dtree.PredicateID, len(c.predicates))
	for i := range ids {
		ids[i] = dtree.PredicateID(i)
	}
	return ids
}

// ActionIDs returns every action id in catalog order.
func (c *Catalog) ActionIDs() []dtree.ActionID {
	ids := make([]dtree.ActionID, len(c.actions))
	for i := range ids {
		ids[i] = dtree.ActionID(i)
	}
	return ids
}

// PredicateNames returns predicate names in catalog order.
func (c *Catalog) PredicateNames() []string {
	names := make([]string, len(c.predicates))
	for i, p := range c.predicates {
		names[i] = p.Name
	}
	return names
}

// ActionNames returns action names in catalog order.
func (c *Catalog) ActionNames() []string {
	names := make([]string, len(c.actions))
	for i, a := range c.actions {
		names[i] = a.Name
	}
	return names
}

// Names returns the labels used to print trees.
func (c *Catalog) Names() dtree.Names {
	return dtree.Names{Predicates: c.PredicateNames(), Actions: c.ActionNames()}
}

// PredicateID looks up a predicate by name.
func (c *Catalog) PredicateID(name string) (dtree.PredicateID, error) {
	for i, p := range c.predicates {
		if p.Name == name {
			return dtree.PredicateID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPredicate, name)
}

// ActionID looks up an action by name.
func (c *Catalog) ActionID(name string) (dtree.ActionID, error) {
	for i, a := range c.actions {
		if a.Name == name {
			return dtree.ActionID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Test runs predicate id for agent. An id outside the catalog panics.
func (c *Catalog) Test(env sim.Environment, agent components.AgentID, id dtree.PredicateID) bool {
	if int(id) >= len(c.predicates) {
		panic(fmt.Sprintf("catalog: predicate id %d outside catalog of %d", id, len(c.predicates)))
	}
	return c.predicates[id].Fn(env, agent)
}

// Apply performs action id for agent. An id outside the catalog panics.
func (c *Catalog) Apply(env sim.Environment, agent components.AgentID, id dtree.ActionID) {
	if int(id) >= len(c.actions) {
		panic(fmt.Sprintf("catalog: action id %d outside catalog of %d", id, len(c.actions)))
	}
	c.actions[id].Fn(env, agent)
}

// Tester binds the catalog to one agent for tree evaluation.
func (c *Catalog) Tester(env sim.Environment, agent components.AgentID) dtree.Tester {
	return dtree.TesterFunc(func(id dtree.PredicateID) bool {
		return c.Test(env, agent, id)
	})
}

// Evaluate walks tree for agent and returns the chosen action.
func (c *Catalog) Evaluate(tree *dtree.Tree, env sim.Environment, agent components.AgentID) dtree.ActionID {
	return tree.Evaluate(c.Tester(env, agent))
}
