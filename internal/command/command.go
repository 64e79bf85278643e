// Package command defines operator commands and the queues that carry them
// to a running world.
package command

import (
	"encoding/json"
	"fmt"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
)

// Operations an operator may apply to an agent.
const (
	OpReset  = "reset"
	OpJump   = "jump"
	OpDetach = "detach"
	OpAttach = "attach"
)

// Command is the JSON form of an operator command. Agent is implied by the
// topic on MQTT and required on queues.
//
//	{"agent": "4f1c...", "op": "jump", "node": "patrol"}
//	{"op": "detach", "category": "Perception"}
type Command struct {
	Agent    string `json:"agent,omitempty"`
	Op       string `json:"op"`
	Node     string `json:"node,omitempty"`
	Category string `json:"category,omitempty"`
}

// Controller applies operator commands to agents. *world.World satisfies it.
type Controller interface {
	Reset(id, source string) error
	Jump(id, ref, source string) error
	Detach(id string, cat capability.Category, source string) error
	Attach(id string, cat capability.Category, source string) error
}

// Parse decodes and validates a command payload.
func Parse(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("invalid command JSON: %w", err)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// Validate checks that the fields required by Op are present.
func (c *Command) Validate() error {
	switch c.Op {
	case OpReset:
		return nil
	case OpJump:
		if c.Node == "" {
			return fmt.Errorf("jump requires node")
		}
		return nil
	case OpDetach, OpAttach:
		if _, ok := capability.ParseCategory(c.Category); !ok {
			return fmt.Errorf("%s: unknown category %q", c.Op, c.Category)
		}
		return nil
	case "":
		return fmt.Errorf("op required")
	default:
		return fmt.Errorf("unknown op: %s", c.Op)
	}
}

// Apply validates cmd and runs it against ctrl for cmd.Agent. source tags
// the operator event the world records.
func Apply(ctrl Controller, cmd *Command, source string) error {
	if cmd.Agent == "" {
		return fmt.Errorf("agent required")
	}
	if err := cmd.Validate(); err != nil {
		return err
	}

	switch cmd.Op {
	case OpReset:
		return ctrl.Reset(cmd.Agent, source)
	case OpJump:
		return ctrl.Jump(cmd.Agent, cmd.Node, source)
	case OpDetach:
		cat, _ := capability.ParseCategory(cmd.Category)
		return ctrl.Detach(cmd.Agent, cat, source)
	default:
		cat, _ := capability.ParseCategory(cmd.Category)
		return ctrl.Attach(cmd.Agent, cat, source)
	}
}
