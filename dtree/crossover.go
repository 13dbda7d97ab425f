package dtree

import "fmt"

// Cross breeds a new tree from a and b. A splice depth d is drawn uniformly
// from [0, numPredicates-2] and CrossAt(a, b, d) is returned.
func Cross(rng Rand, a, b *Tree, numPredicates int) (*Tree, error) {
	if numPredicates < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrCatalogTooSmall, numPredicates)
	}
	return CrossAt(a, b, rng.Intn(numPredicates-1))
}

// CrossAt copies a and replaces the left child of its node at left depth d
// with a copy of b's node at left depth d+1. The offspring keeps a's top d
// levels and b's lower levels; it shares no nodes with either parent.
// Predicates are not deduplicated across the splice.
func CrossAt(a, b *Tree, depth int) (*Tree, error) {
	child := a.Clone()

	splice, err := child.NodeAtLeftDepth(depth)
	if err != nil {
		return nil, fmt.Errorf("locating splice point in first parent: %w", err)
	}
	if splice.IsLeaf() {
		return nil, fmt.Errorf("%w: splice point at depth %d is a leaf", ErrDepthOutOfRange, depth)
	}

	donor, err := b.NodeAtLeftDepth(depth + 1)
	if err != nil {
		return nil, fmt.Errorf("locating donor subtree in second parent: %w", err)
	}

	graft, graftSize := donor.clone()
	child.nodeCount += graftSize - splice.Left.count()
	splice.Left = graft

	return child, nil
}
