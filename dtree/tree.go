// Package dtree implements the binary decision trees that drive evolved agents
// and the genetic operators (construction, crossover, mutation) that act on them.
package dtree

import (
	"errors"
	"fmt"
)

// PredicateID identifies a predicate in a catalog.
type PredicateID uint8

// ActionID identifies an action in a catalog.
type ActionID uint8

var (
	// ErrDepthOutOfRange is returned when a left-depth lookup runs past the end of the chain.
	ErrDepthOutOfRange = errors.New("dtree: depth exceeds left chain")
	// ErrCatalogTooSmall is returned when crossover has no valid splice depth.
	ErrCatalogTooSmall = errors.New("dtree: crossover needs at least two predicates")
	// ErrEmptyTree is returned by operations that need a populated tree.
	ErrEmptyTree = errors.New("dtree: tree has no root")
)

// Rand is the random source consumed by the genetic operators.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Tester resolves predicates for the agent being evaluated.
type Tester interface {
	Test(id PredicateID) bool
}

// TesterFunc adapts a function to the Tester interface.
type TesterFunc func(id PredicateID) bool

// Test calls f(id).
func (f TesterFunc) Test(id PredicateID) bool { return f(id) }

// Node is either a test node (Predicate with both children set) or an
// action leaf (Action, no children).
type Node struct {
	Predicate PredicateID
	Action    ActionID
	Left      *Node
	Right     *Node
}

// NewLeaf returns an action leaf.
func NewLeaf(action ActionID) *Node {
	return &Node{Action: action}
}

// NewTest returns a test node owning the given children.
func NewTest(predicate PredicateID, left, right *Node) *Node {
	return &Node{Predicate: predicate, Left: left, Right: right}
}

// IsLeaf reports whether n is an action leaf.
// A node with exactly one child is malformed and panics.
func (n *Node) IsLeaf() bool {
	switch {
	case n.Left == nil && n.Right == nil:
		return true
	case n.Left != nil && n.Right != nil:
		return false
	default:
		panic(fmt.Sprintf("dtree: malformed test node (predicate %d) is missing a child", n.Predicate))
	}
}

// clone deep-copies the subtree rooted at n and returns the copy and its size.
func (n *Node) clone() (*Node, int) {
	if n.IsLeaf() {
		return NewLeaf(n.Action), 1
	}
	left, nl := n.Left.clone()
	right, nr := n.Right.clone()
	return NewTest(n.Predicate, left, right), nl + nr + 1
}

func (n *Node) count() int {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return 1
	}
	return 1 + n.Left.count() + n.Right.count()
}

func (n *Node) depth() int {
	if n.IsLeaf() {
		return 0
	}
	return 1 + max(n.Left.depth(), n.Right.depth())
}

func (n *Node) equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.IsLeaf() != o.IsLeaf() {
		return false
	}
	if n.IsLeaf() {
		return n.Action == o.Action
	}
	return n.Predicate == o.Predicate && n.Left.equal(o.Left) && n.Right.equal(o.Right)
}

// Tree owns a root node. Owner is the id of the agent the tree controls; it is
// a plain reference and does not affect tree semantics.
type Tree struct {
	Owner     uint32
	root      *Node
	nodeCount int
}

// New returns an empty tree for the given owner.
func New(owner uint32) *Tree {
	return &Tree{Owner: owner}
}

// NewWithRoot returns a tree that takes ownership of root.
func NewWithRoot(owner uint32, root *Node) *Tree {
	return &Tree{Owner: owner, root: root, nodeCount: root.count()}
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node { return t.root }

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() int { return t.nodeCount }

// Depth returns the length of the longest root-to-leaf path in edges.
func (t *Tree) Depth() int {
	if t.root == nil {
		return 0
	}
	return t.root.depth()
}

// Randomize replaces the tree contents with a freshly built spine.
func (t *Tree) Randomize(rng Rand, predicates []PredicateID, actions []ActionID) {
	t.root, t.nodeCount = Build(rng, predicates, actions)
}

// Evaluate walks from the root to an action leaf, taking the left child when
// the node's predicate holds and the right child otherwise.
func (t *Tree) Evaluate(tester Tester) ActionID {
	if t.root == nil {
		panic(ErrEmptyTree)
	}
	n := t.root
	for !n.IsLeaf() {
		if tester.Test(n.Predicate) {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Action
}

// NodeAtLeftDepth follows the left-child chain exactly depth steps.
func (t *Tree) NodeAtLeftDepth(depth int) (*Node, error) {
	if t.root == nil {
		return nil, ErrEmptyTree
	}
	if depth < 0 {
		return nil, fmt.Errorf("%w: negative depth %d", ErrDepthOutOfRange, depth)
	}
	n := t.root
	for i := 0; i < depth; i++ {
		if n.IsLeaf() {
			return nil, fmt.Errorf("%w: chain ends at %d, wanted %d", ErrDepthOutOfRange, i, depth)
		}
		n = n.Left
	}
	return n, nil
}

// Clone returns a deep copy with fresh nodes and the same owner.
func (t *Tree) Clone() *Tree {
	c := &Tree{Owner: t.Owner}
	if t.root != nil {
		c.root, c.nodeCount = t.root.clone()
	}
	return c
}

// Equal reports whether both trees have the same shape and assignments.
func (t *Tree) Equal(o *Tree) bool {
	return t.root.equal(o.root)
}

// DuplicatePathPredicates counts root-to-leaf paths on which some predicate
// appears more than once. Freshly built trees always report zero.
func (t *Tree) DuplicatePathPredicates() int {
	if t.root == nil {
		return 0
	}
	seen := make(map[PredicateID]int)
	return countDuplicatePaths(t.root, seen, 0)
}

func countDuplicatePaths(n *Node, seen map[PredicateID]int, dups int) int {
	if n.IsLeaf() {
		if dups > 0 {
			return 1
		}
		return 0
	}
	if seen[n.Predicate] > 0 {
		dups++
	}
	seen[n.Predicate]++
	total := countDuplicatePaths(n.Left, seen, dups) + countDuplicatePaths(n.Right, seen, dups)
	seen[n.Predicate]--
	return total
}
