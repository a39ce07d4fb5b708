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

// RoundRobin cycles through the nodes of the candidate it is given.
// Weights are ignored.
type RoundRobin struct {
	next atomic.Uint64
}

var _ cluster.LoadBalance = (*RoundRobin)(nil)

// NewRoundRobin builds a round robin load balance.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Select implements cluster.LoadBalance.
func (r *RoundRobin) Select(c *cluster.Candidate, _ *transport.Request) *cluster.Node {
	nodes := c.Nodes()
	if len(nodes) == 0 {
		return nil
	}
	i := r.next.Inc() - 1
	return nodes[i%uint64(len(nodes))]
}
