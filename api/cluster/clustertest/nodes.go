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

package clustertest

import (
	"fmt"

	"go.uber.org/meshroute/api/cluster"
)

// NewNodes builds connected nodes named "node-0", "node-1", ... with the
// given weights and addresses 10.0.0.1, 10.0.0.2, ...
func NewNodes(weights ...int) []*cluster.Node {
	nodes := make([]*cluster.Node, len(weights))
	for i, w := range weights {
		nodes[i] = cluster.NewNode(cluster.Shard{
			Name:    fmt.Sprintf("node-%d", i),
			Address: fmt.Sprintf("10.0.0.%d:8080", i+1),
			Weight:  w,
			State:   cluster.Connected,
		}, nil)
	}
	return nodes
}

// NewCandidate is shorthand for a candidate over NewNodes(weights...).
func NewCandidate(weights ...int) *cluster.Candidate {
	return cluster.NewCandidate(NewNodes(weights...), cluster.Region{}, len(weights))
}
