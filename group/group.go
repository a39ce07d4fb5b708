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

package group

import (
	"context"

	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/transport"
	"go.uber.org/meshroute/failover"
	"go.uber.org/meshroute/routeerrors"
)

// Invoker sends a request to a service group.
type Invoker interface {
	Invoke(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// InvokerFunc adapts a function into an Invoker.
type InvokerFunc func(ctx context.Context, req *transport.Request) (*transport.Response, error)

// Invoke calls f(ctx, req).
func (f InvokerFunc) Invoke(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return f(ctx, req)
}

// Group is a service group addressed by its alias.
type Group struct {
	Alias   string
	Invoker Invoker
}

// Routed returns an Invoker that routes calls with the given router over the
// current candidate of a group, as returned by candidate.
//
// When the router runs out of nodes or attempts, the error is marked
// retryable so that a Failover moves on to the next group. Errors of the
// remote application are returned unchanged.
func Routed(router *failover.Router, candidate func() *cluster.Candidate) Invoker {
	return InvokerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		res, err := router.Route(ctx, req, candidate())
		if routeerrors.IsExhausted(err) {
			return nil, routeerrors.FromError(err).WithRetryable(true)
		}
		return res, err
	})
}

func validateGroups(groups []Group) error {
	seen := make(map[string]struct{}, len(groups))
	for i, g := range groups {
		if g.Invoker == nil {
			return routeerrors.InvalidArgumentErrorf("service group %d (%q) has no invoker", i, g.Alias)
		}
		if _, ok := seen[g.Alias]; ok {
			return routeerrors.InvalidArgumentErrorf("service group %q is configured more than once", g.Alias)
		}
		seen[g.Alias] = struct{}{}
	}
	return nil
}

// bind returns a copy of req bound to the given group.
func bind(req *transport.Request, alias string) *transport.Request {
	req = req.Clone()
	req.Alias = alias
	return req
}
