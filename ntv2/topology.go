package ntv2

import "github.com/golang/glog"

// buildTopology links the flat node array into a parent/child/sibling
// tree. It is O(n^2) by design: children are not guaranteed to follow
// their parents in the file, so every node must be able to scan every
// other node looking for its parent or its children.
func buildTopology(h *Header) error {
	nodes := h.Nodes

	h.FirstParent = noIndex
	var lastParent *Node
	numParents := 0

	// pass 1: parent linking
	for _, n := range nodes {
		if !n.Active {
			continue
		}
		n.Parent = noIndex
		n.FirstChild = noIndex
		n.NextSibling = noIndex

		if isTopLevelParentName(n.ParentName) {
			if h.FirstParent == noIndex {
				h.FirstParent = n.Index
			} else {
				lastParent.NextSibling = n.Index
			}
			lastParent = n
			numParents++
			continue
		}

		if trimmed(n.ParentName) == trimmed(n.Name) {
			return newErr(ErrInvalidParentName, "sub-file %q names itself as its own parent", trimmed(n.Name))
		}

		parentIdx := findByName(nodes, n.ParentName)
		if parentIdx == noIndex && isBlankName(n.ParentName) {
			glog.Warningf("ntv2: sub-file %q has a blank parent name, substituting NONE", trimmed(n.Name))
			h.Fixed = setFlag(h.Fixed, FixBlankParent)
			n.ParentName = noParentName
			if h.FirstParent == noIndex {
				h.FirstParent = n.Index
			} else {
				lastParent.NextSibling = n.Index
			}
			lastParent = n
			numParents++
			continue
		}
		if parentIdx == noIndex {
			return newErr(ErrParentNotFound, "sub-file %q: parent %q not found", trimmed(n.Name), trimmed(n.ParentName))
		}
		n.Parent = parentIdx
	}
	if h.FirstParent == noIndex {
		return newErr(ErrNoTopLevelParent, "no top-level parent (no sub-file has parent NONE)")
	}
	h.NumParents = numParents

	// pass 2: loop detection
	maxChain := len(nodes) - numParents + 1
	for _, n := range nodes {
		if !n.Active || n.Parent == noIndex {
			continue
		}
		chain := 0
		cur := n
		for cur.Parent != noIndex {
			cur = nodes[cur.Parent]
			chain++
			if chain > maxChain {
				return newErr(ErrParentLoop, "parent loop detected starting at sub-file %q", trimmed(n.Name))
			}
		}
	}

	// pass 3: child/sibling linking (array order for siblings under one parent)
	for _, n := range nodes {
		if !n.Active {
			continue
		}
		n.FirstChild = noIndex
		var lastChild *Node
		for _, cand := range nodes {
			if !cand.Active || cand.Parent != n.Index {
				continue
			}
			cand.NextSibling = noIndex
			if lastChild == nil {
				n.FirstChild = cand.Index
			} else {
				lastChild.NextSibling = cand.Index
			}
			lastChild = cand
		}
	}

	glog.V(1).Infof("ntv2: topology resolved: %d records, %d top-level parents", h.NumRecs, h.NumParents)
	return nil
}

func findByName(nodes []*Node, name string) int {
	target := trimmed(name)
	for _, n := range nodes {
		if !n.Active {
			continue
		}
		if trimmed(n.Name) == target {
			return n.Index
		}
	}
	return noIndex
}

func trimmed(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == ' ' {
		i--
	}
	return s[:i]
}

// children returns the active children of n, in topology order.
func (h *Header) children(n *Node) []*Node {
	var out []*Node
	for c := n.FirstChild; c != noIndex; {
		child := h.Nodes[c]
		out = append(out, child)
		c = child.NextSibling
	}
	return out
}

// topLevelParents returns the active top-level parents in chain order.
func (h *Header) topLevelParents() []*Node {
	var out []*Node
	for p := h.FirstParent; p != noIndex; {
		n := h.Nodes[p]
		out = append(out, n)
		p = n.NextSibling
	}
	return out
}
