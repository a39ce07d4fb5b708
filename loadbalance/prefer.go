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

package loadbalance

import (
	"go.uber.org/atomic"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/transport"
)

// Predicate decides whether a node is preferred.
type Predicate func(*cluster.Node) bool

// Preference builds the predicate for one selection. A nil Predicate means
// no node is preferred.
type Preference func(c *cluster.Candidate, req *transport.Request) Predicate

type preferLoadBalance struct {
	inner      cluster.LoadBalance
	preference Preference
}

// Prefer wraps a load balance so that it only considers the nodes matching
// the preference, unless none of them does.
func Prefer(inner cluster.LoadBalance, preference Preference) cluster.LoadBalance {
	return &preferLoadBalance{inner: inner, preference: preference}
}

func (p *preferLoadBalance) Select(c *cluster.Candidate, req *transport.Request) *cluster.Node {
	return selectPreferred(p.inner, p.preference, c, req)
}

func selectPreferred(inner cluster.LoadBalance, preference Preference, c *cluster.Candidate, req *transport.Request) *cluster.Node {
	nodes := c.Nodes()
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	}

	var pred Predicate
	if preference != nil {
		pred = preference(c, req)
	}
	if pred == nil {
		return inner.Select(c, req)
	}

	var preferred []*cluster.Node
	for _, n := range nodes {
		if pred(n) {
			preferred = append(preferred, n)
		}
	}
	switch len(preferred) {
	case 0:
		return inner.Select(c, req)
	case 1:
		return preferred[0]
	case len(nodes):
		return inner.Select(c, req)
	}
	return inner.Select(c.Subset(preferred), req)
}

// Sticky keeps sending calls to the node it returned last, as long as that
// node is part of the candidate. Otherwise it behaves like the inner load
// balance and sticks to its choice.
//
// Concurrent calls may briefly disagree on the sticky node; the last
// selection wins.
type Sticky struct {
	inner cluster.LoadBalance
	last  atomic.String
}

var _ cluster.LoadBalance = (*Sticky)(nil)

// NewSticky wraps inner with stickiness.
func NewSticky(inner cluster.LoadBalance) *Sticky {
	return &Sticky{inner: inner}
}

// Select implements cluster.LoadBalance.
func (s *Sticky) Select(c *cluster.Candidate, req *transport.Request) *cluster.Node {
	node := selectPreferred(s.inner, s.preference, c, req)
	if node != nil {
		s.last.Store(node.Name())
	}
	return node
}

func (s *Sticky) preference(*cluster.Candidate, *transport.Request) Predicate {
	name := s.last.Load()
	if name == "" {
		return nil
	}
	return func(n *cluster.Node) bool { return n.Name() == name }
}

// Local prefers the nodes closest to the caller: those of its data center,
// or else those of its region.
func Local(inner cluster.LoadBalance, region cluster.Region) cluster.LoadBalance {
	return Prefer(inner, func(c *cluster.Candidate, _ *transport.Request) Predicate {
		best := cluster.Remote
		for _, n := range c.Nodes() {
			if l := region.Locality(n.Shard()); l > best {
				best = l
			}
		}
		if best == cluster.Remote {
			return nil
		}
		return func(n *cluster.Node) bool { return region.Locality(n.Shard()) == best }
	})
}
