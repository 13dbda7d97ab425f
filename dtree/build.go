package dtree

// Build constructs a random spine. While predicates remain, one is picked
// uniformly, removed for the left branch, and the right child is forced to an
// action leaf. With no predicates left it returns a leaf holding a uniformly
// chosen action. The second return value is the number of nodes created.
//
// Every root-to-leaf path of the result visits each predicate at most once
// and the left chain is exactly len(remaining) test nodes long.
func Build(rng Rand, remaining []PredicateID, actions []ActionID) (*Node, int) {
	if len(actions) == 0 {
		panic("dtree: build needs at least one action")
	}
	if len(remaining) == 0 {
		return NewLeaf(actions[rng.Intn(len(actions))]), 1
	}

	i := rng.Intn(len(remaining))
	predicate := remaining[i]

	reduced := make([]PredicateID, 0, len(remaining)-1)
	reduced = append(reduced, remaining[:i]...)
	reduced = append(reduced, remaining[i+1:]...)

	left, nl := Build(rng, reduced, actions)
	right, nr := Build(rng, nil, actions)
	return NewTest(predicate, left, right), nl + nr + 1
}
