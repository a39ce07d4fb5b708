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

package policy

import (
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/transport"
)

// RetrySelector derives the candidate of the next attempt from the
// candidate of the failed one.
type RetrySelector interface {
	Select(c *cluster.Candidate, failed *cluster.Node, req *transport.Request) *cluster.Candidate
}

// RetrySelectorFunc adapts a function into a RetrySelector.
type RetrySelectorFunc func(c *cluster.Candidate, failed *cluster.Node, req *transport.Request) *cluster.Candidate

// Select calls f.
func (f RetrySelectorFunc) Select(c *cluster.Candidate, failed *cluster.Node, req *transport.Request) *cluster.Candidate {
	return f(c, failed, req)
}

// ExcludeFailed removes the failed node from the candidate. When that
// leaves no node and a node may serve a call more than once, the candidate
// is kept as is.
func ExcludeFailed(onlyOncePerNode bool) RetrySelector {
	return RetrySelectorFunc(func(c *cluster.Candidate, failed *cluster.Node, _ *transport.Request) *cluster.Candidate {
		next := c.Without(failed)
		if next.Len() == 0 && !onlyOncePerNode {
			return c
		}
		return next
	})
}
