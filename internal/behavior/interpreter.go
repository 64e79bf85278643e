package behavior

import (
	"fmt"
	"sync"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/graph"
	"github.com/AaronLay10/behaviorgraph/internal/skills"
)

type node struct {
	def   *graph.Node
	fn    *capability.Descriptor
	skill *skills.Asset
	out   []*transition

	entries int
	invoked bool
	result  bool
	gate    bool

	looping     bool
	windowStart float64
	windowLen   float64
}

type transition struct {
	def     *graph.Transition
	readyAt float64
	fired   int
}

// Interpreter runs one agent's compiled graph. Step is meant to be called
// from a single goroutine; the introspection and mutation methods may be
// called concurrently with it.
type Interpreter struct {
	mu sync.Mutex

	def       *graph.Definition
	agent     string
	providers *capability.Set
	rand      Rand
	observer  Observer

	nodes       []*node
	transitions []*transition
	byName      map[string]int
	start       int

	current  int
	clock    float64
	finished bool
	halted   bool
	err      error

	pending []record
}

// Step advances the clock by dt seconds and evaluates the active node. At
// most one transition is taken; the node it enters runs on the next Step.
// A missing provider halts the interpreter and is returned exactly once.
func (in *Interpreter) Step(dt float64) error {
	in.mu.Lock()
	err := in.step(dt)
	pending := in.takePending()
	in.mu.Unlock()

	in.flush(pending)
	return err
}

func (in *Interpreter) step(dt float64) error {
	if in.finished || in.halted {
		return nil
	}
	if !(dt > 0) {
		dt = 0
	}
	in.clock += dt

	n := in.nodes[in.current]
	gate, err := in.evaluate(n, dt)
	if err != nil {
		in.halted = true
		in.err = err
		in.record("agent.halted", map[string]interface{}{
			"node":  n.def.ID,
			"name":  n.def.Label(),
			"error": err.Error(),
		})
		return err
	}
	n.gate = gate

	for _, t := range n.out {
		v, ok := in.passes(t, gate)
		if !ok {
			continue
		}
		in.fire(n, t, v)
		break
	}
	return nil
}

func (in *Interpreter) evaluate(n *node, dt float64) (bool, error) {
	switch n.def.Kind {
	case graph.KindEntry:
		return true, nil

	case graph.KindAction:
		if n.invoked {
			return n.result, nil
		}
		res, err := n.fn.Call(in.providers, dt)
		if err != nil {
			return false, err
		}
		n.invoked, n.result = true, res
		return res, nil

	case graph.KindSkill:
		if n.invoked {
			return n.result, nil
		}
		caster, err := skillCaster(in.providers, n.def.SkillName)
		if err != nil {
			return false, err
		}
		res := caster.CastSkill(n.skill, n.def.ExecuteImmediately)
		n.invoked, n.result = true, res
		return res, nil

	case graph.KindCondition, graph.KindLoop:
		res, err := n.fn.Call(in.providers, dt)
		if err != nil {
			return false, err
		}
		return res != n.def.Negated, nil

	case graph.KindTimeLoop:
		return in.clock-n.windowStart < n.windowLen, nil
	}
	return false, fmt.Errorf("behavior: node %d: unsupported kind %s", n.def.ID, n.def.Kind)
}

// passes applies the transition gate: polarity, then cooldown, then the
// probability draw against the selected variant.
func (in *Interpreter) passes(t *transition, gate bool) (graph.Variant, bool) {
	if t.def.Negated == gate {
		return graph.Variant{}, false
	}
	if in.clock < t.readyAt {
		return graph.Variant{}, false
	}
	v := in.variant(t)
	p := uniform(in.rand, v.MinRate, v.MaxRate)
	if in.rand.Float64()*100 >= p {
		return graph.Variant{}, false
	}
	return v, true
}

func (in *Interpreter) variant(t *transition) graph.Variant {
	switch len(t.def.Variants) {
	case 0:
		return graph.DefaultVariant()
	case 1:
		return t.def.Variants[0]
	}
	i := int(in.rand.Float64() * float64(len(t.def.Variants)))
	if i >= len(t.def.Variants) {
		i = len(t.def.Variants) - 1
	}
	return t.def.Variants[i]
}

func (in *Interpreter) fire(from *node, t *transition, v graph.Variant) {
	cooldown := uniform(in.rand, v.MinCooldown, v.MaxCooldown)
	t.readyAt = in.clock + cooldown
	t.fired++

	if from.def.Kind == graph.KindLoop || from.def.Kind == graph.KindTimeLoop {
		switch {
		case !t.def.Negated && !from.looping:
			from.looping = true
			in.record("loop.started", map[string]interface{}{"node": from.def.ID, "name": from.def.Label()})
		case t.def.Negated && from.looping:
			from.looping = false
			in.record("loop.stopped", map[string]interface{}{"node": from.def.ID, "name": from.def.Label()})
		}
	}

	in.record("transition.fired", map[string]interface{}{
		"transition": t.def.ID,
		"from":       t.def.Start,
		"to":         t.def.End,
		"cooldown":   cooldown,
		"terminate":  v.Terminate,
	})
	in.enter(t.def.End)

	if v.Terminate {
		in.finished = true
		in.record("agent.finished", map[string]interface{}{"node": t.def.End})
	}
}

func (in *Interpreter) enter(id int) {
	n := in.nodes[id]
	in.current = id
	n.entries++
	n.invoked = false
	n.result = false
	if n.def.Kind == graph.KindTimeLoop && !n.looping {
		n.windowStart = in.clock
		n.windowLen = uniform(in.rand, n.def.MinTime, n.def.MaxTime)
	}
	in.record("node.entered", map[string]interface{}{"node": id, "name": n.def.Label()})
}

func (in *Interpreter) record(name string, fields map[string]interface{}) {
	fields["agent"] = in.agent
	fields["clock"] = in.clock
	in.pending = append(in.pending, record{name: name, fields: fields})
}

func (in *Interpreter) takePending() []record {
	p := in.pending
	in.pending = nil
	return p
}

func (in *Interpreter) flush(pending []record) {
	for _, r := range pending {
		in.observer.Observe(r.name, r.fields)
	}
}

// Jump moves the cursor to node id as a fresh entry and clears the finished
// flag. Cooldowns and the clock are kept. A halted interpreter stays halted.
func (in *Interpreter) Jump(id int) error {
	in.mu.Lock()
	if id < 0 || id >= len(in.nodes) {
		in.mu.Unlock()
		return fmt.Errorf("node not found: %d", id)
	}
	in.finished = false
	in.enter(id)
	pending := in.takePending()
	in.mu.Unlock()

	in.flush(pending)
	return nil
}

// Reset discards all runtime state and returns to the Entry node's
// successor with the clock at zero.
func (in *Interpreter) Reset() {
	in.mu.Lock()
	in.clock = 0
	in.finished = false
	in.halted = false
	in.err = nil
	for _, n := range in.nodes {
		n.entries = 0
		n.invoked = false
		n.result = false
		n.gate = false
		n.looping = false
		n.windowStart, n.windowLen = 0, 0
	}
	for _, t := range in.transitions {
		t.readyAt = 0
		t.fired = 0
	}
	in.enter(in.start)
	pending := in.takePending()
	in.mu.Unlock()

	in.flush(pending)
}

// Agent returns the agent ID the interpreter was compiled for.
func (in *Interpreter) Agent() string {
	return in.agent
}

// Definition returns the compiled graph.
func (in *Interpreter) Definition() *graph.Definition {
	return in.def
}

func (in *Interpreter) Clock() float64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.clock
}

func (in *Interpreter) Finished() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.finished
}

func (in *Interpreter) Halted() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.halted
}

// Err returns the error that halted the interpreter, if any.
func (in *Interpreter) Err() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.err
}
