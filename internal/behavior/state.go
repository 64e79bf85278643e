package behavior

import (
	"fmt"
	"strconv"

	"github.com/AaronLay10/behaviorgraph/internal/graph"
)

// NodeState is a point-in-time view of one node.
type NodeState struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Binding string `json:"binding,omitempty"`
	Active  bool   `json:"active"`
	Entries int    `json:"entries"`
	Gate    bool   `json:"gate"`
	Looping bool   `json:"looping,omitempty"`

	// WindowRemaining is the time left in a TimeLoop's current window.
	WindowRemaining float64 `json:"window_remaining,omitempty"`
}

// TransitionState is a point-in-time view of one transition.
type TransitionState struct {
	ID      int     `json:"id"`
	From    int     `json:"from"`
	To      int     `json:"to"`
	Negated bool    `json:"negated"`
	Fired   int     `json:"fired"`
	ReadyAt float64 `json:"ready_at"`
}

// Status summarizes an interpreter.
type Status struct {
	Agent    string  `json:"agent"`
	Current  int     `json:"current"`
	Clock    float64 `json:"clock"`
	Finished bool    `json:"finished"`
	Halted   bool    `json:"halted"`
	Error    string  `json:"error,omitempty"`
}

func (in *Interpreter) nodeState(n *node) NodeState {
	s := NodeState{
		ID:      n.def.ID,
		Name:    n.def.Label(),
		Kind:    n.def.Kind.String(),
		Active:  n.def.ID == in.current,
		Entries: n.entries,
		Gate:    n.gate,
		Looping: n.looping,
	}
	switch {
	case n.fn != nil:
		s.Binding = fmt.Sprintf("%s.%s", n.fn.Category, n.fn.Name)
	case n.skill != nil:
		s.Binding = n.skill.Name
	}
	if n.def.Kind == graph.KindTimeLoop && s.Active {
		if rem := n.windowLen - (in.clock - n.windowStart); rem > 0 {
			s.WindowRemaining = rem
		}
	}
	return s
}

// Current returns the active node.
func (in *Interpreter) Current() NodeState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.nodeState(in.nodes[in.current])
}

// Node returns the node with id.
func (in *Interpreter) Node(id int) (NodeState, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if id < 0 || id >= len(in.nodes) {
		return NodeState{}, false
	}
	return in.nodeState(in.nodes[id]), true
}

// NodeByName returns the first node whose label is name.
func (in *Interpreter) NodeByName(name string) (NodeState, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	id, ok := in.byName[name]
	if !ok {
		return NodeState{}, false
	}
	return in.nodeState(in.nodes[id]), true
}

// Lookup resolves ref as a node ID when numeric, otherwise as a name.
func (in *Interpreter) Lookup(ref string) (NodeState, bool) {
	if id, err := strconv.Atoi(ref); err == nil {
		return in.Node(id)
	}
	return in.NodeByName(ref)
}

// Nodes returns every node in declaration order.
func (in *Interpreter) Nodes() []NodeState {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]NodeState, 0, len(in.nodes))
	for _, n := range in.nodes {
		out = append(out, in.nodeState(n))
	}
	return out
}

// Transitions returns every transition in declaration order.
func (in *Interpreter) Transitions() []TransitionState {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]TransitionState, 0, len(in.transitions))
	for _, t := range in.transitions {
		out = append(out, TransitionState{
			ID:      t.def.ID,
			From:    t.def.Start,
			To:      t.def.End,
			Negated: t.def.Negated,
			Fired:   t.fired,
			ReadyAt: t.readyAt,
		})
	}
	return out
}

// Status returns a summary of the interpreter.
func (in *Interpreter) Status() Status {
	in.mu.Lock()
	defer in.mu.Unlock()
	s := Status{
		Agent:    in.agent,
		Current:  in.current,
		Clock:    in.clock,
		Finished: in.finished,
		Halted:   in.halted,
	}
	if in.err != nil {
		s.Error = in.err.Error()
	}
	return s
}
