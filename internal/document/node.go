// Package document implements the ordered tree used for persisted
// behavior graphs.
//
// A document is parsed from a restricted JSON dialect into Nodes that keep
// member insertion order (objects are never alphabetized) and allow both
// named and positional lookup. Member names must be non-empty. Lookups never fail: a missing child is a nil
// *Node and every accessor is safe on a nil receiver, so chains such as
//
//	doc.Get("nodes").At(2).Get("functionID").Int()
//
// degrade to a sentinel value instead of panicking.
package document

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// Sentinel values returned by the lenient scalar accessors.
const (
	IntSentinel   = math.MinInt
	FloatSentinel = -math.MaxFloat64
)

// Kind identifies the JSON type a scalar was written as.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	}
	return "unknown"
}

// Scalar is a leaf value kept as its raw text. Coercion happens on access.
type Scalar struct {
	Kind Kind
	Raw  string
}

// Node is an element of the document tree.
//
// A node with Scalar set is a leaf. Object members are nodes carrying the
// member name whose children are the member's content; array elements are
// unnamed children of a node with IsArray set.
type Node struct {
	Name     string
	Children []*Node
	IsArray  bool
	Scalar   *Scalar
}

// IsScalar reports whether n is a scalar leaf.
func (n *Node) IsScalar() bool {
	return n != nil && n.Scalar != nil
}

// Len returns the number of children.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

// Get returns the first child named name, or nil.
func (n *Node) Get(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Has reports whether a child named name exists.
func (n *Node) Has(name string) bool {
	return n.Get(name) != nil
}

// At returns the child at position i, or nil when i is out of range.
func (n *Node) At(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Elements returns the children to iterate when n is used as a list. A
// non-array node is treated as a single-element list of itself.
func (n *Node) Elements() []*Node {
	if n == nil {
		return nil
	}
	if n.IsArray {
		return n.Children
	}
	return []*Node{n}
}

// scalar returns the scalar held by n itself or by its single child.
func (n *Node) scalar() *Scalar {
	if n == nil {
		return nil
	}
	if n.Scalar != nil {
		return n.Scalar
	}
	if len(n.Children) == 1 && n.Children[0].Scalar != nil {
		return n.Children[0].Scalar
	}
	return nil
}

// Int coerces n to an int. Strings holding numbers and integral floats are
// accepted. A missing node yields IntSentinel silently; a failed coercion is
// logged as a leniency warning and also yields IntSentinel.
func (n *Node) Int() int {
	if n == nil {
		return IntSentinel
	}
	s := n.scalar()
	if s != nil && (s.Kind == KindNumber || s.Kind == KindString) {
		raw := strings.TrimSpace(s.Raw)
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f == math.Trunc(f) &&
			f >= math.MinInt && f < math.MaxInt {
			return int(f)
		}
	}
	n.warn("int", s)
	return IntSentinel
}

// Float coerces n to a float64, returning FloatSentinel on failure.
func (n *Node) Float() float64 {
	if n == nil {
		return FloatSentinel
	}
	s := n.scalar()
	if s != nil && (s.Kind == KindNumber || s.Kind == KindString) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s.Raw), 64); err == nil {
			return v
		}
	}
	n.warn("float", s)
	return FloatSentinel
}

// Bool coerces n to a bool. Accepts JSON booleans and the strconv.ParseBool
// spellings ("1", "t", "True", ...). Returns false on failure.
func (n *Node) Bool() bool {
	if n == nil {
		return false
	}
	s := n.scalar()
	if s != nil && s.Kind != KindNull {
		if v, err := strconv.ParseBool(strings.TrimSpace(s.Raw)); err == nil {
			return v
		}
	}
	n.warn("bool", s)
	return false
}

// Text returns the scalar's text. Null and non-scalar nodes are absent.
func (n *Node) Text() (string, bool) {
	if n == nil {
		return "", false
	}
	s := n.scalar()
	if s == nil || s.Kind == KindNull {
		if s == nil {
			n.warn("string", s)
		}
		return "", false
	}
	return s.Raw, true
}

// TextOr returns the scalar's text or def when absent.
func (n *Node) TextOr(def string) string {
	if n == nil {
		return def
	}
	if v, ok := n.Text(); ok {
		return v
	}
	return def
}

// ParseLeniencyWarning is the message logged when a scalar cannot be coerced.
const ParseLeniencyWarning = "document: scalar coercion failed"

func (n *Node) warn(want string, s *Scalar) {
	attrs := []any{"name", n.Name, "want", want}
	if s != nil {
		attrs = append(attrs, "kind", s.Kind.String(), "raw", s.Raw)
	} else {
		attrs = append(attrs, "children", len(n.Children))
	}
	slog.Warn(ParseLeniencyWarning, attrs...)
}
