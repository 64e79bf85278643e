package behavior

import (
	"fmt"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/graph"
)

// Reason classifies a structural compile failure.
type Reason string

const (
	NoEntryNode           Reason = "no entry node"
	MultipleEntryNodes    Reason = "multiple entry nodes"
	DanglingTransition    Reason = "dangling transition"
	EntryWithoutSuccessor Reason = "entry without successor"
)

// CompileError reports a graph whose topology cannot be executed.
type CompileError struct {
	Reason     Reason
	Node       int
	Transition int
}

func (e *CompileError) Error() string {
	switch e.Reason {
	case DanglingTransition:
		return fmt.Sprintf("graph compile: %s (transition %d)", e.Reason, e.Transition)
	case EntryWithoutSuccessor, MultipleEntryNodes:
		return fmt.Sprintf("graph compile: %s (node %d)", e.Reason, e.Node)
	}
	return "graph compile: " + string(e.Reason)
}

// OrdinalMismatchError reports a node whose stored function name no longer
// matches the function its ordinal resolves to, usually because the
// registration table changed after the graph was saved.
type OrdinalMismatchError struct {
	Node     int
	Category capability.Category
	Ordinal  int
	Stored   string
	Bound    string
}

func (e *OrdinalMismatchError) Error() string {
	return fmt.Sprintf("graph compile: node %d: %s ordinal %d is %s, graph expects %s",
		e.Node, e.Category, e.Ordinal, e.Bound, e.Stored)
}

// SkillNotFoundError reports a Skill node naming an asset the skill source
// does not have.
type SkillNotFoundError struct {
	Node  int
	Skill string
}

func (e *SkillNotFoundError) Error() string {
	return fmt.Sprintf("graph compile: node %d: skill not found: %q", e.Node, e.Skill)
}

// KindMismatchError reports a Condition or Loop node bound to an action.
// Those nodes evaluate every tick, so an action there would repeat its side
// effect.
type KindMismatchError struct {
	Node     int
	Kind     graph.Kind
	Category capability.Category
	Bound    string
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("graph compile: node %d: %s node bound to action %s.%s",
		e.Node, e.Kind, e.Category, e.Bound)
}
