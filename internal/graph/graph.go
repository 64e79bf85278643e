// Package graph holds the declarative behavior graph: nodes and transitions as
// persisted, before any capability is bound.
package graph

import (
	"fmt"
	"strings"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
)

// Kind is the node variant tag.
type Kind int

const (
	KindEntry Kind = iota
	KindAction
	KindCondition
	KindLoop
	KindTimeLoop
	KindSkill
)

var kindNames = [...]string{"Entry", "Action", "Condition", "Loop", "TimeLoop", "Skill"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind matches a persisted type name case-insensitively.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Kind(i), true
		}
	}
	return 0, false
}

// Rect is editor layout metadata. It is carried only so documents round-trip.
type Rect struct {
	X, Y, Width, Height float64
}

// Color is editor metadata for a transition.
type Color struct {
	R, G, B float64
}

// Node is one graph node. Which fields are meaningful depends on Kind:
// Action, Condition and Loop reference a capability by Category and Ordinal;
// TimeLoop uses MinTime/MaxTime; Skill uses SkillName.
type Node struct {
	ID   int
	Kind Kind
	Name string

	Category     capability.Category
	Ordinal      int // -1 when the document gave no numeric functionID
	FunctionName string
	Negated      bool

	MinTime, MaxTime float64

	SkillName          string
	ExecuteImmediately bool

	Rect *Rect

	// Outgoing lists transition IDs in declaration order.
	Outgoing []int
}

// UsesCapability reports whether the node binds a registry function.
func (n *Node) UsesCapability() bool {
	switch n.Kind {
	case KindAction, KindCondition, KindLoop:
		return true
	}
	return false
}

// Label is the node's name, or a name derived from what it does.
func (n *Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	switch {
	case n.Kind == KindSkill && n.SkillName != "":
		return n.SkillName
	case n.UsesCapability() && n.FunctionName != "":
		return n.FunctionName
	}
	return fmt.Sprintf("%s#%d", n.Kind, n.ID)
}

// Variant holds one set of firing parameters for a transition.
type Variant struct {
	MinRate, MaxRate         float64 // percent, 0..100
	MinCooldown, MaxCooldown float64 // seconds
	Terminate                bool
}

// DefaultVariant always fires and never cools down.
func DefaultVariant() Variant {
	return Variant{MinRate: 100, MaxRate: 100}
}

// Transition is a directed edge. A negated transition fires when the start
// node's gate is false.
type Transition struct {
	ID         int
	Start, End int
	Negated    bool
	Variants   []Variant
	Color      *Color
}

// Definition is a loaded graph. It is not modified after loading.
type Definition struct {
	Nodes       []*Node
	Transitions []*Transition
}

// Node returns the node with id, or nil.
func (d *Definition) Node(id int) *Node {
	if id < 0 || id >= len(d.Nodes) {
		return nil
	}
	return d.Nodes[id]
}

// NodesOfKind returns every node of kind k in declaration order.
func (d *Definition) NodesOfKind(k Kind) []*Node {
	var out []*Node
	for _, n := range d.Nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Link rebuilds every node's Outgoing list from the transitions. Call it
// after building or editing a Definition by hand.
func (d *Definition) Link() {
	for _, n := range d.Nodes {
		n.Outgoing = nil
	}
	for _, t := range d.Transitions {
		if n := d.Node(t.Start); n != nil {
			n.Outgoing = append(n.Outgoing, t.ID)
		}
	}
}
