package world

import (
	"fmt"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/events"
)

// AgentNotFoundError indicates an unknown agent ID.
type AgentNotFoundError struct {
	ID string
}

func (e *AgentNotFoundError) Error() string {
	return "agent not found: " + e.ID
}

// NodeNotFoundError indicates a node reference that matches no node ID or
// name in the agent's graph.
type NodeNotFoundError struct {
	Agent string
	Ref   string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s (agent %s)", e.Ref, e.Agent)
}

// Reset returns an agent's interpreter to its initial state.
func (w *World) Reset(id, source string) error {
	a, err := w.Agent(id)
	if err != nil {
		return err
	}
	a.Interp.Reset()
	events.Emit("info", "operator.reset", "", map[string]interface{}{
		"agent":  id,
		"source": source,
	})
	return nil
}

// Jump moves an agent's cursor to the node named or numbered ref.
func (w *World) Jump(id, ref, source string) error {
	a, err := w.Agent(id)
	if err != nil {
		return err
	}
	st, ok := a.Interp.Lookup(ref)
	if !ok {
		return &NodeNotFoundError{Agent: id, Ref: ref}
	}
	if err := a.Interp.Jump(st.ID); err != nil {
		return err
	}
	events.Emit("info", "operator.jump", "", map[string]interface{}{
		"agent":  id,
		"node":   st.ID,
		"name":   st.Name,
		"source": source,
	})
	return nil
}

// Detach removes the agent's provider for cat. The interpreter halts the
// next time it needs that category.
func (w *World) Detach(id string, cat capability.Category, source string) error {
	a, err := w.Agent(id)
	if err != nil {
		return err
	}
	a.Providers.Detach(cat)
	events.Emit("warning", "operator.detach", "", map[string]interface{}{
		"agent":    id,
		"category": string(cat),
		"source":   source,
	})
	return nil
}

// Attach re-attaches the agent's body for cat. A halted agent stays halted
// until it is reset.
func (w *World) Attach(id string, cat capability.Category, source string) error {
	a, err := w.Agent(id)
	if err != nil {
		return err
	}
	a.Providers.Attach(cat, a.Body)
	events.Emit("info", "operator.attach", "", map[string]interface{}{
		"agent":    id,
		"category": string(cat),
		"source":   source,
	})
	return nil
}
