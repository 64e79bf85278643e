// Package behavior compiles behavior graphs against an agent's capability
// providers and runs them one tick at a time.
package behavior

import (
	"fmt"
	"log/slog"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/graph"
	"github.com/AaronLay10/behaviorgraph/internal/providers"
	"github.com/AaronLay10/behaviorgraph/internal/skills"
)

// SkillSource resolves skill names to assets.
type SkillSource interface {
	Skill(name string) (*skills.Asset, bool)
}

// Options configures Compile. Zero values fall back to the builtin registry,
// an empty provider set, a randomly seeded Rand and EventsObserver.
type Options struct {
	Registry  *capability.Registry
	Providers *capability.Set
	Skills    SkillSource
	Rand      Rand
	Observer  Observer
	AgentID   string

	// LenientNames resolves by functionName when it disagrees with the
	// stored ordinal instead of failing.
	LenientNames bool

	Logger *slog.Logger
}

// Compile binds every node of def and returns an interpreter positioned on
// the Entry node's successor. On error no interpreter is returned.
func Compile(def *graph.Definition, opts Options) (*Interpreter, error) {
	if def == nil {
		return nil, &CompileError{Reason: NoEntryNode, Node: -1, Transition: -1}
	}
	if opts.Registry == nil {
		opts.Registry = providers.Registry()
	}
	if opts.Providers == nil {
		opts.Providers = capability.NewSet()
	}
	if opts.Rand == nil {
		opts.Rand = defaultRand()
	}
	if opts.Observer == nil {
		opts.Observer = EventsObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	entries := def.NodesOfKind(graph.KindEntry)
	switch {
	case len(entries) == 0:
		return nil, &CompileError{Reason: NoEntryNode, Node: -1, Transition: -1}
	case len(entries) > 1:
		return nil, &CompileError{Reason: MultipleEntryNodes, Node: entries[1].ID, Transition: -1}
	}
	entry := entries[0]

	for _, t := range def.Transitions {
		if def.Node(t.Start) == nil || def.Node(t.End) == nil {
			return nil, &CompileError{Reason: DanglingTransition, Node: -1, Transition: t.ID}
		}
	}
	if len(entry.Outgoing) == 0 {
		return nil, &CompileError{Reason: EntryWithoutSuccessor, Node: entry.ID, Transition: -1}
	}

	in := &Interpreter{
		def:       def,
		agent:     opts.AgentID,
		providers: opts.Providers,
		rand:      opts.Rand,
		observer:  opts.Observer,
		byName:    make(map[string]int, len(def.Nodes)),
	}

	byID := make(map[int]*transition, len(def.Transitions))
	for _, t := range def.Transitions {
		ct := &transition{def: t}
		in.transitions = append(in.transitions, ct)
		byID[t.ID] = ct
	}
	for _, gn := range def.Nodes {
		n := &node{def: gn}
		if err := bind(n, opts); err != nil {
			return nil, err
		}
		for _, tid := range gn.Outgoing {
			if t, ok := byID[tid]; ok {
				n.out = append(n.out, t)
			}
		}
		in.nodes = append(in.nodes, n)
		if _, dup := in.byName[gn.Label()]; !dup {
			in.byName[gn.Label()] = gn.ID
		}
	}

	first, ok := byID[entry.Outgoing[0]]
	if !ok {
		return nil, &CompileError{Reason: EntryWithoutSuccessor, Node: entry.ID, Transition: -1}
	}
	in.start = first.def.End
	in.enter(in.start)
	in.flush(in.takePending())
	return in, nil
}

func bind(n *node, opts Options) error {
	gn := n.def
	switch {
	case gn.UsesCapability():
		d, err := resolve(gn, opts)
		if err != nil {
			return err
		}
		if d.Kind == capability.KindAction && (gn.Kind == graph.KindCondition || gn.Kind == graph.KindLoop) {
			return &KindMismatchError{Node: gn.ID, Kind: gn.Kind, Category: gn.Category, Bound: d.Name}
		}
		p, ok := opts.Providers.Provider(gn.Category)
		if !ok || !d.Accepts(p) {
			e := &capability.ProviderMissingError{Category: gn.Category, Capability: d.Name}
			if ok {
				e.Got = fmt.Sprintf("%T", p)
			}
			return e
		}
		n.fn = d

	case gn.Kind == graph.KindSkill:
		var asset *skills.Asset
		ok := false
		if opts.Skills != nil {
			asset, ok = opts.Skills.Skill(gn.SkillName)
		}
		if !ok {
			return &SkillNotFoundError{Node: gn.ID, Skill: gn.SkillName}
		}
		if _, err := skillCaster(opts.Providers, gn.SkillName); err != nil {
			return err
		}
		n.skill = asset
	}
	return nil
}

func resolve(gn *graph.Node, opts Options) (*capability.Descriptor, error) {
	if gn.Ordinal < 0 {
		if gn.FunctionName == "" {
			return nil, &capability.NotFoundError{Category: gn.Category, Ordinal: gn.Ordinal}
		}
		return opts.Registry.ResolveByName(gn.Category, gn.FunctionName)
	}

	d, err := opts.Registry.Resolve(gn.Category, gn.Ordinal)
	if err != nil {
		return nil, err
	}
	if gn.FunctionName == "" || gn.FunctionName == d.Name {
		return d, nil
	}
	if !opts.LenientNames {
		return nil, &OrdinalMismatchError{
			Node:     gn.ID,
			Category: gn.Category,
			Ordinal:  gn.Ordinal,
			Stored:   gn.FunctionName,
			Bound:    d.Name,
		}
	}
	opts.Logger.Warn("ordinal does not match function name, binding by name",
		"agent", opts.AgentID,
		"node", gn.ID,
		"category", gn.Category,
		"ordinal", gn.Ordinal,
		"bound", d.Name,
		"stored", gn.FunctionName,
	)
	return opts.Registry.ResolveByName(gn.Category, gn.FunctionName)
}

func skillCaster(set *capability.Set, skill string) (providers.SkillCaster, error) {
	p, ok := set.Provider(capability.Skills)
	if !ok {
		return nil, &capability.ProviderMissingError{Category: capability.Skills, Capability: skill}
	}
	c, ok := p.(providers.SkillCaster)
	if !ok {
		return nil, &capability.ProviderMissingError{
			Category:   capability.Skills,
			Capability: skill,
			Got:        fmt.Sprintf("%T", p),
		}
	}
	return c, nil
}
