package dtree

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Names maps ids to human-readable names for rendering.
type Names struct {
	Predicates []string
	Actions    []string
}

func (nm Names) predicate(id PredicateID) string {
	if int(id) < len(nm.Predicates) {
		return nm.Predicates[id]
	}
	return fmt.Sprintf("p%d", id)
}

func (nm Names) action(id ActionID) string {
	if int(id) < len(nm.Actions) {
		return nm.Actions[id]
	}
	return fmt.Sprintf("a%d", id)
}

// String renders the tree with numeric ids.
func (t *Tree) String() string {
	return t.Format(Names{})
}

// Format renders the tree one node per line, children indented under their
// test node with the branch taken ("yes"/"no") as prefix.
func (t *Tree) Format(names Names) string {
	if t.root == nil {
		return "<empty>\n"
	}
	var b strings.Builder
	formatNode(&b, t.root, names, "", "")
	return b.String()
}

func formatNode(b *strings.Builder, n *Node, names Names, indent, branch string) {
	b.WriteString(indent)
	b.WriteString(branch)
	if n.IsLeaf() {
		fmt.Fprintf(b, "-> %s\n", names.action(n.Action))
		return
	}
	fmt.Fprintf(b, "%s?\n", names.predicate(n.Predicate))
	formatNode(b, n.Left, names, indent+"  ", "yes: ")
	formatNode(b, n.Right, names, indent+"  ", "no:  ")
}

// nodeJSON is the wire form of a node: {"p":id,"l":...,"r":...} or {"a":id}.
type nodeJSON struct {
	Predicate *PredicateID `json:"p,omitempty"`
	Action    *ActionID    `json:"a,omitempty"`
	Left      *nodeJSON    `json:"l,omitempty"`
	Right     *nodeJSON    `json:"r,omitempty"`
}

func toJSON(n *Node) *nodeJSON {
	if n.IsLeaf() {
		a := n.Action
		return &nodeJSON{Action: &a}
	}
	p := n.Predicate
	return &nodeJSON{Predicate: &p, Left: toJSON(n.Left), Right: toJSON(n.Right)}
}

func fromJSON(j *nodeJSON) (*Node, error) {
	switch {
	case j == nil:
		return nil, errors.New("dtree: missing node")
	case j.Action != nil:
		if j.Left != nil || j.Right != nil || j.Predicate != nil {
			return nil, errors.New("dtree: action leaf with test fields")
		}
		return NewLeaf(*j.Action), nil
	case j.Predicate != nil:
		left, err := fromJSON(j.Left)
		if err != nil {
			return nil, err
		}
		right, err := fromJSON(j.Right)
		if err != nil {
			return nil, err
		}
		return NewTest(*j.Predicate, left, right), nil
	default:
		return nil, errors.New("dtree: node is neither test nor action")
	}
}

// MarshalJSON encodes the tree structure (owner is not included).
func (t *Tree) MarshalJSON() ([]byte, error) {
	if t.root == nil {
		return []byte("null"), nil
	}
	return json.Marshal(toJSON(t.root))
}

// UnmarshalJSON decodes a tree structure, rejecting malformed nodes.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var j *nodeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("decoding tree: %w", err)
	}
	if j == nil {
		t.root, t.nodeCount = nil, 0
		return nil
	}
	root, err := fromJSON(j)
	if err != nil {
		return err
	}
	t.root, t.nodeCount = root, root.count()
	return nil
}
