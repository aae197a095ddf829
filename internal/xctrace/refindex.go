package xctrace

// RefIndex maps every identifier-bearing node in a document, so that ref
// nodes can be swapped for the node they point at. Built once per document
// in a single traversal, read-only afterwards.
type RefIndex struct {
	byID map[string]*Node
}

// BuildRefIndex scans the whole tree and indexes every node that declares
// an id attribute.
func BuildRefIndex(root *Node) *RefIndex {
	idx := &RefIndex{byID: make(map[string]*Node)}
	root.Walk(func(n *Node) {
		if n.ID != "" {
			idx.byID[n.ID] = n
		}
	})
	return idx
}

// Resolve substitutes a reference node with its target. A ref to an unknown
// identifier returns the node unchanged; partial data beats aborting the
// parse. Chains are followed with a visited set, so a reference cycle also
// falls back to the last node reached instead of looping.
func (idx *RefIndex) Resolve(n *Node) *Node {
	if n == nil {
		return nil
	}
	seen := make(map[*Node]bool)
	for n.Ref != "" && !seen[n] {
		target, ok := idx.byID[n.Ref]
		if !ok {
			return n
		}
		seen[n] = true
		n = target
	}
	return n
}
