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

import (
	"context"

	"go.uber.org/meshroute/api/transport"
)

// LoadBalance selects exactly one node of a candidate for a request. It
// returns nil only when the candidate is empty.
//
// Implementations must be safe for concurrent use.
type LoadBalance interface {
	Select(c *Candidate, req *transport.Request) *Node
}

// LoadBalanceFunc adapts a function into a LoadBalance.
type LoadBalanceFunc func(c *Candidate, req *transport.Request) *Node

// Select calls f(c, req).
func (f LoadBalanceFunc) Select(c *Candidate, req *transport.Request) *Node {
	return f(c, req)
}

// NodeSelector narrows the nodes of a candidate to those allowed to serve a
// request. The full node list is returned when no restriction applies.
type NodeSelector interface {
	Select(c *Candidate, req *transport.Request) []*Node
}

// Invoker sends a request to a node. Previous is the node of the preceding
// failed attempt of the same call, nil on the first attempt.
//
// Transports mark errors that are safe to send elsewhere with
// routeerrors.Status.WithRetryable.
type Invoker interface {
	Invoke(ctx context.Context, node, previous *Node, req *transport.Request) (*transport.Response, error)
}

// InvokerFunc adapts a function into an Invoker.
type InvokerFunc func(ctx context.Context, node, previous *Node, req *transport.Request) (*transport.Response, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, node, previous *Node, req *transport.Request) (*transport.Response, error) {
	return f(ctx, node, previous, req)
}
