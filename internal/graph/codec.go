package graph

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/document"
)

// FromDocument reads a definition from a parsed document. Scalar fields are
// read leniently; only structural problems (no document, unknown node type)
// are errors here. Reference problems are left for the compiler.
func FromDocument(doc *document.Node) (*Definition, error) {
	if doc == nil {
		return nil, fmt.Errorf("graph: empty document")
	}
	def := &Definition{}

	for i, el := range doc.Get("nodes").Elements() {
		n, err := readNode(i, el)
		if err != nil {
			return nil, err
		}
		def.Nodes = append(def.Nodes, n)
	}
	for i, el := range doc.Get("transitions").Elements() {
		def.Transitions = append(def.Transitions, readTransition(i, el))
	}
	def.Link()
	return def, nil
}

func readNode(id int, el *document.Node) (*Node, error) {
	typ := el.Get("type").TextOr("")
	kind, ok := ParseKind(typ)
	if !ok {
		return nil, fmt.Errorf("graph: node %d: unknown type %q", id, typ)
	}

	n := &Node{
		ID:      id,
		Kind:    kind,
		Name:    el.Get("name").TextOr(""),
		Ordinal: -1,
	}

	if r := el.Get("rect"); r != nil {
		n.Rect = &Rect{
			X:      floatOr(r, "posX", 0),
			Y:      floatOr(r, "posY", 0),
			Width:  floatOr(r, "width", 0),
			Height: floatOr(r, "height", 0),
		}
	}

	// A Loop without a capability reference but with a time window is a
	// TimeLoop in older documents.
	if kind == KindLoop && !el.Has("functionID") && !el.Has("functionName") &&
		(el.Has("minTime") || el.Has("maxTime")) {
		kind = KindTimeLoop
		n.Kind = kind
	}

	switch kind {
	case KindAction, KindCondition, KindLoop:
		primary, fallback := "conditionGroup", "actionGroup"
		if kind == KindAction {
			primary, fallback = fallback, primary
		}
		group := el.Get(primary).TextOr(el.Get(fallback).TextOr(""))
		if cat, ok := capability.ParseCategory(group); ok {
			n.Category = cat
		} else {
			n.Category = capability.Category(group)
		}
		n.FunctionName = el.Get("functionName").TextOr("")
		readFunctionID(n, el.Get("functionID"))
		if kind != KindAction {
			n.Negated = boolOr(el, "reverse", false)
		}
	case KindTimeLoop:
		n.MinTime = nonNegative(floatOr(el, "minTime", 0))
		n.MaxTime = nonNegative(floatOr(el, "maxTime", n.MinTime))
		if n.MaxTime < n.MinTime {
			n.MinTime, n.MaxTime = n.MaxTime, n.MinTime
		}
	case KindSkill:
		n.SkillName = el.Get("skillName").TextOr(el.Get("functionName").TextOr(""))
		n.ExecuteImmediately = boolOr(el, "executeSkill", false)
	}
	return n, nil
}

// readFunctionID accepts an int, a numeric string, or a function name.
func readFunctionID(n *Node, v *document.Node) {
	if v == nil {
		return
	}
	if v.IsScalar() || v.Len() == 1 {
		if text, ok := v.Text(); ok {
			text = strings.TrimSpace(text)
			if i, err := strconv.Atoi(text); err == nil {
				n.Ordinal = i
				return
			}
			if f, err := strconv.ParseFloat(text, 64); err == nil && f == math.Trunc(f) &&
				f >= math.MinInt && f < math.MaxInt {
				n.Ordinal = int(f)
				return
			}
			if n.FunctionName == "" {
				n.FunctionName = text
			}
			return
		}
	}
	if i := v.Int(); i != document.IntSentinel {
		n.Ordinal = i
	}
}

func readTransition(id int, el *document.Node) *Transition {
	t := &Transition{
		ID:      id,
		Start:   intOr(el, "startID", -1),
		End:     intOr(el, "endID", -1),
		Negated: strings.EqualFold(el.Get("type").TextOr("positive"), "negative"),
	}
	if c := el.Get("color"); c != nil {
		t.Color = &Color{R: floatOr(c, "r", 0), G: floatOr(c, "g", 0), B: floatOr(c, "b", 0)}
	}
	if vs := el.Get("variants"); vs != nil {
		for _, v := range vs.Elements() {
			t.Variants = append(t.Variants, readVariant(v))
		}
	}
	if len(t.Variants) == 0 {
		t.Variants = []Variant{readVariant(el)}
	}
	return t
}

func readVariant(el *document.Node) Variant {
	v := Variant{
		MinRate:     clampPercent(floatOr(el, "minRate", 100)),
		MaxRate:     clampPercent(floatOr(el, "maxRate", 100)),
		MinCooldown: nonNegative(floatOr(el, "minCooldown", 0)),
		MaxCooldown: nonNegative(floatOr(el, "maxCooldown", 0)),
		Terminate:   boolOr(el, "terminate", false),
	}
	if !el.Has("maxCooldown") {
		v.MaxCooldown = v.MinCooldown
	}
	if v.MaxRate < v.MinRate {
		v.MinRate, v.MaxRate = v.MaxRate, v.MinRate
	}
	if v.MaxCooldown < v.MinCooldown {
		v.MinCooldown, v.MaxCooldown = v.MaxCooldown, v.MinCooldown
	}
	return v
}

// Document writes the definition back in the persisted format.
func (d *Definition) Document() *document.Node {
	nodes := document.Array("nodes")
	for _, n := range d.Nodes {
		nodes.Children = append(nodes.Children, writeNode(n))
	}
	transitions := document.Array("transitions")
	for _, t := range d.Transitions {
		transitions.Children = append(transitions.Children, writeTransition(t))
	}
	return document.Object("", nodes, transitions)
}

// Encode serializes the definition as indented JSON.
func (d *Definition) Encode() []byte {
	return document.EncodeIndent(d.Document(), "  ")
}

func writeNode(n *Node) *document.Node {
	obj := document.Object("", document.Member("type", document.StringValue(n.Kind.String())))
	add := func(name string, v *document.Node) {
		obj.Children = append(obj.Children, document.Member(name, v))
	}
	if n.Name != "" {
		add("name", document.StringValue(n.Name))
	}
	if n.Rect != nil {
		obj.Children = append(obj.Children, document.Object("rect",
			document.Member("posX", document.NumberValue(n.Rect.X)),
			document.Member("posY", document.NumberValue(n.Rect.Y)),
			document.Member("width", document.NumberValue(n.Rect.Width)),
			document.Member("height", document.NumberValue(n.Rect.Height)),
		))
	}
	switch n.Kind {
	case KindAction, KindCondition, KindLoop:
		group := "conditionGroup"
		if n.Kind == KindAction {
			group = "actionGroup"
		}
		add(group, document.StringValue(string(n.Category)))
		if n.Ordinal >= 0 {
			add("functionID", document.IntValue(n.Ordinal))
		}
		if n.FunctionName != "" {
			add("functionName", document.StringValue(n.FunctionName))
		}
		if n.Kind != KindAction {
			add("reverse", document.BoolValue(n.Negated))
		}
	case KindTimeLoop:
		add("minTime", document.NumberValue(n.MinTime))
		add("maxTime", document.NumberValue(n.MaxTime))
	case KindSkill:
		add("skillName", document.StringValue(n.SkillName))
		add("executeSkill", document.BoolValue(n.ExecuteImmediately))
	}
	return obj
}

func writeTransition(t *Transition) *document.Node {
	typ := "positive"
	if t.Negated {
		typ = "negative"
	}
	obj := document.Object("",
		document.Member("startID", document.IntValue(t.Start)),
		document.Member("endID", document.IntValue(t.End)),
		document.Member("type", document.StringValue(typ)),
	)
	if len(t.Variants) == 1 {
		obj.Children = append(obj.Children, variantMembers(t.Variants[0])...)
	} else if len(t.Variants) > 1 {
		arr := document.Array("variants")
		for _, v := range t.Variants {
			arr.Children = append(arr.Children, document.Object("", variantMembers(v)...))
		}
		obj.Children = append(obj.Children, arr)
	}
	if t.Color != nil {
		obj.Children = append(obj.Children, document.Object("color",
			document.Member("r", document.NumberValue(t.Color.R)),
			document.Member("g", document.NumberValue(t.Color.G)),
			document.Member("b", document.NumberValue(t.Color.B)),
		))
	}
	return obj
}

func variantMembers(v Variant) []*document.Node {
	return []*document.Node{
		document.Member("minRate", document.NumberValue(v.MinRate)),
		document.Member("maxRate", document.NumberValue(v.MaxRate)),
		document.Member("minCooldown", document.NumberValue(v.MinCooldown)),
		document.Member("maxCooldown", document.NumberValue(v.MaxCooldown)),
		document.Member("terminate", document.BoolValue(v.Terminate)),
	}
}

func floatOr(n *document.Node, name string, def float64) float64 {
	v := n.Get(name)
	if v == nil {
		return def
	}
	if f := v.Float(); f != document.FloatSentinel {
		return f
	}
	return def
}

func intOr(n *document.Node, name string, def int) int {
	v := n.Get(name)
	if v == nil {
		return def
	}
	if i := v.Int(); i != document.IntSentinel {
		return i
	}
	return def
}

func boolOr(n *document.Node, name string, def bool) bool {
	v := n.Get(name)
	if v == nil {
		return def
	}
	return v.Bool()
}

func clampPercent(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 100:
		return 100
	}
	return f
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
