// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cluster

// Candidate is an immutable, ordered set of nodes eligible for selection,
// along with the caller's region and the requested size it was built for.
//
// Narrowing a Candidate never changes it; a new Candidate is returned
// instead.
type Candidate struct {
	nodes  []*Node
	region Region
	size   int
}

// NewCandidate builds a candidate over a copy of nodes.
func NewCandidate(nodes []*Node, region Region, size int) *Candidate {
	copied := make([]*Node, len(nodes))
	copy(copied, nodes)
	return &Candidate{nodes: copied, region: region, size: size}
}

// Nodes returns the nodes of the candidate. The returned slice MUST NOT be
// changed.
func (c *Candidate) Nodes() []*Node {
	if c == nil {
		return nil
	}
	return c.nodes
}

// Len is the number of nodes in the candidate.
func (c *Candidate) Len() int {
	if c == nil {
		return 0
	}
	return len(c.nodes)
}

// Region is the caller's region the candidate was built for.
func (c *Candidate) Region() Region { return c.region }

// Size is the number of nodes the candidate was requested to hold.
func (c *Candidate) Size() int { return c.size }

// Contains reports whether a node with the given name is in the candidate.
func (c *Candidate) Contains(name string) bool {
	for _, n := range c.Nodes() {
		if n.Name() == name {
			return true
		}
	}
	return false
}

// Narrow returns a candidate over the nodes that satisfy pred. The receiver
// itself is returned when every node matches.
func (c *Candidate) Narrow(pred func(*Node) bool) *Candidate {
	if c == nil {
		return nil
	}
	var kept []*Node
	for i, n := range c.nodes {
		if pred(n) {
			if kept != nil {
				kept = append(kept, n)
			}
			continue
		}
		if kept == nil {
			kept = make([]*Node, i, len(c.nodes)-1)
			copy(kept, c.nodes[:i])
		}
	}
	if kept == nil {
		return c
	}
	return &Candidate{nodes: kept, region: c.region, size: c.size}
}

// Subset returns a candidate over the given nodes, keeping the region and
// size of the receiver. It is returned as is when nodes has the same length
// as the receiver, so callers must only pass nodes taken from it.
func (c *Candidate) Subset(nodes []*Node) *Candidate {
	if len(nodes) == c.Len() {
		return c
	}
	return NewCandidate(nodes, c.region, c.size)
}

// Without returns a candidate that excludes the given node.
func (c *Candidate) Without(node *Node) *Candidate {
	if node == nil {
		return c
	}
	name := node.Name()
	return c.Narrow(func(n *Node) bool { return n.Name() != name })
}
