package document

// Reducible reports whether n wraps a single unnamed container child that can
// be collapsed into it. Arrays are never reduced into their element.
func Reducible(n *Node) bool {
	if n == nil || n.IsArray || n.Scalar != nil || len(n.Children) != 1 {
		return false
	}
	c := n.Children[0]
	return c.Name == "" && c.Scalar == nil
}

// Reduce collapses reducible nodes bottom-up, in place, and returns n.
// Applying Reduce to an already reduced tree is a no-op.
func Reduce(n *Node) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		Reduce(c)
	}
	for Reducible(n) {
		c := n.Children[0]
		n.Children = c.Children
		n.IsArray = c.IsArray
	}
	return n
}
