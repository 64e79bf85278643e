package behavior

import (
	"sync"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/graph"
	"github.com/AaronLay10/behaviorgraph/internal/skills"
)

// fakeBody implements every provider interface and records what was called.
type fakeBody struct {
	calls []string

	sees       bool
	inRange    bool
	healthLow  bool
	eatResult  bool
	castResult bool

	casts     []string
	immediate []bool
}

func (b *fakeBody) call(name string) { b.calls = append(b.calls, name) }

func (b *fakeBody) count(name string) int {
	n := 0
	for _, c := range b.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (b *fakeBody) Wander()          { b.call("Wander") }
func (b *fakeBody) Patrol()          { b.call("Patrol") }
func (b *fakeBody) Chase()           { b.call("Chase") }
func (b *fakeBody) Flee()            { b.call("Flee") }
func (b *fakeBody) Stop()            { b.call("Stop") }
func (b *fakeBody) IsMoving() bool   { return false }
func (b *fakeBody) HasArrived() bool { return false }
func (b *fakeBody) IsStuck() bool    { return false }

func (b *fakeBody) SeesEnemy() bool     { return b.sees }
func (b *fakeBody) HearsNoise() bool    { return false }
func (b *fakeBody) TargetInRange() bool { return b.inRange }
func (b *fakeBody) IsAlone() bool       { return true }
func (b *fakeBody) ForgetTarget()       { b.call("ForgetTarget") }

func (b *fakeBody) HasWeapon() bool   { return false }
func (b *fakeBody) HasFood() bool     { return false }
func (b *fakeBody) IsFull() bool      { return false }
func (b *fakeBody) EquipWeapon() bool { b.call("EquipWeapon"); return true }
func (b *fakeBody) Eat() bool         { b.call("Eat"); return b.eatResult }
func (b *fakeBody) DropAll()          { b.call("DropAll") }

func (b *fakeBody) IsHealthLow() bool     { return b.healthLow }
func (b *fakeBody) IsTired() bool         { return false }
func (b *fakeBody) IsHungry() bool        { return false }
func (b *fakeBody) Rest(dt float64)       { b.call("Rest") }
func (b *fakeBody) Regenerate(dt float64) { b.call("Regenerate") }

func (b *fakeBody) Idle()           { b.call("Idle") }
func (b *fakeBody) Alert()          { b.call("Alert") }
func (b *fakeBody) IsAlerted() bool { return false }

func (b *fakeBody) CastSkill(a *skills.Asset, immediate bool) bool {
	b.casts = append(b.casts, a.Name)
	b.immediate = append(b.immediate, immediate)
	return b.castResult
}
func (b *fakeBody) IsCasting() bool { return false }

func attachAll(b *fakeBody) *capability.Set {
	set := capability.NewSet()
	for _, cat := range capability.KnownCategories() {
		set.Attach(cat, b)
	}
	return set
}

type recorder struct {
	mu     sync.Mutex
	names  []string
	fields []map[string]interface{}
}

func (r *recorder) Observe(name string, fields map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.fields = append(r.fields, fields)
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.names {
		if got == name {
			n++
		}
	}
	return n
}

// entered lists the names of entered nodes in order.
func (r *recorder) entered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for i, name := range r.names {
		if name == "node.entered" {
			out = append(out, r.fields[i]["name"].(string))
		}
	}
	return out
}

func entryNode() *graph.Node {
	return &graph.Node{Kind: graph.KindEntry, Ordinal: -1}
}

func actionNode(cat capability.Category, fn string) *graph.Node {
	return &graph.Node{Kind: graph.KindAction, Category: cat, Ordinal: -1, FunctionName: fn}
}

func conditionNode(cat capability.Category, fn string, negated bool) *graph.Node {
	return &graph.Node{Kind: graph.KindCondition, Category: cat, Ordinal: -1, FunctionName: fn, Negated: negated}
}

func edge(from, to int) *graph.Transition {
	return &graph.Transition{Start: from, End: to, Variants: []graph.Variant{graph.DefaultVariant()}}
}

func negEdge(from, to int) *graph.Transition {
	t := edge(from, to)
	t.Negated = true
	return t
}

func build(nodes []*graph.Node, transitions ...*graph.Transition) *graph.Definition {
	for i, n := range nodes {
		n.ID = i
	}
	for i, t := range transitions {
		t.ID = i
	}
	def := &graph.Definition{Nodes: nodes, Transitions: transitions}
	def.Link()
	return def
}
