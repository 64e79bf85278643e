package document

import (
	"math"
	"strconv"
)

// Object builds an object node. Pass "" for an unnamed object.
func Object(name string, members ...*Node) *Node {
	return &Node{Name: name, Children: compact(members)}
}

// Array builds an array node.
func Array(name string, elems ...*Node) *Node {
	return &Node{Name: name, IsArray: true, Children: compact(elems)}
}

// Member names a value. Scalars are wrapped in a member node; containers are
// renamed in place.
func Member(name string, v *Node) *Node {
	if v == nil {
		return nil
	}
	if v.Scalar != nil {
		return &Node{Name: name, Children: []*Node{v}}
	}
	v.Name = name
	return v
}

func StringValue(s string) *Node {
	return &Node{Scalar: &Scalar{Kind: KindString, Raw: s}}
}

func NumberValue(f float64) *Node {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return &Node{Scalar: &Scalar{Kind: KindNumber, Raw: strconv.FormatFloat(f, 'g', -1, 64)}}
}

func IntValue(i int) *Node {
	return &Node{Scalar: &Scalar{Kind: KindNumber, Raw: strconv.Itoa(i)}}
}

func BoolValue(b bool) *Node {
	return &Node{Scalar: &Scalar{Kind: KindBool, Raw: strconv.FormatBool(b)}}
}

func Null() *Node {
	return &Node{Scalar: &Scalar{Kind: KindNull, Raw: "null"}}
}

// compact drops nil entries so optional members can be built inline.
func compact(nodes []*Node) []*Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
