package dtree

// DefaultMutationRate is the per-node mutation probability 1/(2n+1) for a
// catalog of n predicates.
func DefaultMutationRate(numPredicates int) float64 {
	return 1.0 / (2.0*float64(numPredicates) + 1.0)
}

// Mutate visits every node and, with the given probability, reassigns a leaf's
// action or a test node's predicate to a uniformly chosen catalog entry. The
// tree shape never changes. Children are visited whether or not their parent
// mutated. Returns the number of mutated nodes.
func (t *Tree) Mutate(rng Rand, probability float64, predicates []PredicateID, actions []ActionID) int {
	if t.root == nil {
		return 0
	}
	return mutateNode(t.root, rng, probability, predicates, actions)
}

func mutateNode(n *Node, rng Rand, probability float64, predicates []PredicateID, actions []ActionID) int {
	hit := rng.Float64() < probability

	if n.IsLeaf() {
		if hit {
			n.Action = actions[rng.Intn(len(actions))]
			return 1
		}
		return 0
	}

	mutated := 0
	if hit {
		n.Predicate = predicates[rng.Intn(len(predicates))]
		mutated++
	}
	mutated += mutateNode(n.Left, rng, probability, predicates, actions)
	mutated += mutateNode(n.Right, rng, probability, predicates, actions)
	return mutated
}
