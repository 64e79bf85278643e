package document

import "strconv"

// Equal reports whether a and b have the same named and positional structure
// and equal scalars. Numbers compare by value, so 1 and 1.0 are equal.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || a.IsArray != b.IsArray || len(a.Children) != len(b.Children) {
		return false
	}
	if !scalarEqual(a.Scalar, b.Scalar) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func scalarEqual(a, b *Scalar) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == KindNumber {
		fa, errA := strconv.ParseFloat(a.Raw, 64)
		fb, errB := strconv.ParseFloat(b.Raw, 64)
		if errA == nil && errB == nil {
			return fa == fb
		}
	}
	return a.Raw == b.Raw
}
