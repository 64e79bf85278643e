package document

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Encode serializes n as compact JSON. Parsing the output yields a tree equal
// to n for any tree produced by Parse.
func Encode(n *Node) []byte {
	var b bytes.Buffer
	w := encoder{buf: &b}
	w.value(n, 0)
	return b.Bytes()
}

// EncodeIndent serializes n with one indent step per nesting level.
func EncodeIndent(n *Node, indent string) []byte {
	var b bytes.Buffer
	w := encoder{buf: &b, indent: indent}
	w.value(n, 0)
	b.WriteByte('\n')
	return b.Bytes()
}

// String returns the compact encoding of n.
func (n *Node) String() string {
	return string(Encode(n))
}

// MarshalJSON lets a document be embedded in other JSON payloads.
func (n *Node) MarshalJSON() ([]byte, error) {
	return Encode(n), nil
}

type encoder struct {
	buf    *bytes.Buffer
	indent string
}

func (e encoder) value(n *Node, depth int) {
	switch {
	case n == nil:
		e.buf.WriteString("null")
	case n.Scalar != nil:
		e.scalar(n.Scalar)
	case !n.IsArray && len(n.Children) == 1 && n.Children[0].Scalar != nil && n.Children[0].Name == "":
		e.scalar(n.Children[0].Scalar)
	case n.IsArray || hasUnnamed(n.Children):
		e.array(n.Children, depth)
	default:
		e.object(n.Children, depth)
	}
}

func (e encoder) scalar(s *Scalar) {
	switch s.Kind {
	case KindString:
		e.str(s.Raw)
	case KindNull:
		e.buf.WriteString("null")
	default:
		e.buf.WriteString(s.Raw)
	}
}

func (e encoder) array(children []*Node, depth int) {
	e.buf.WriteByte('[')
	for i, c := range children {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.newline(depth + 1)
		if c.Name != "" {
			// A named node inside an array is written as a one-member object.
			e.buf.WriteByte('{')
			e.str(c.Name)
			e.colon()
			e.value(c, depth+1)
			e.buf.WriteByte('}')
			continue
		}
		e.value(c, depth+1)
	}
	if len(children) > 0 {
		e.newline(depth)
	}
	e.buf.WriteByte(']')
}

func (e encoder) object(children []*Node, depth int) {
	e.buf.WriteByte('{')
	for i, c := range children {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.newline(depth + 1)
		e.str(c.Name)
		e.colon()
		e.value(c, depth+1)
	}
	if len(children) > 0 {
		e.newline(depth)
	}
	e.buf.WriteByte('}')
}

func (e encoder) str(s string) {
	b, _ := json.Marshal(s)
	e.buf.Write(b)
}

func (e encoder) colon() {
	e.buf.WriteByte(':')
	if e.indent != "" {
		e.buf.WriteByte(' ')
	}
}

func (e encoder) newline(depth int) {
	if e.indent == "" {
		return
	}
	e.buf.WriteByte('\n')
	e.buf.WriteString(strings.Repeat(e.indent, depth))
}

func hasUnnamed(children []*Node) bool {
	for _, c := range children {
		if c.Name == "" {
			return true
		}
	}
	return false
}
