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

package failover

import (
	"context"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/uber-go/tally"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/transport"
	"go.uber.org/meshroute/policy"
	"go.uber.org/meshroute/routeerrors"
	"go.uber.org/zap"
)

// RetryHeader is the attachment carrying the attempt number of a retried
// call. It is absent on the first attempt.
const RetryHeader = "rpc-retry"

// Option customizes a Router.
type Option interface {
	apply(*routerOptions)
}

type optionFunc func(*routerOptions)

func (f optionFunc) apply(opts *routerOptions) { f(opts) }

type routerOptions struct {
	provider policy.Provider
	selector cluster.NodeSelector
	logger   *zap.Logger
	scope    tally.Scope
	clock    clockwork.Clock
}

var defaultRouterOptions = routerOptions{
	logger: zap.NewNop(),
	scope:  tally.NoopScope,
	clock:  clockwork.NewRealClock(),
}

// WithPolicyProvider sets where the FailoverPolicy of each call comes from.
// Without a provider, calls are never retried.
func WithPolicyProvider(p policy.Provider) Option {
	return optionFunc(func(opts *routerOptions) {
		opts.provider = p
	})
}

// WithNodeSelector narrows the candidate of each call once, before the
// first attempt.
func WithNodeSelector(s cluster.NodeSelector) Option {
	return optionFunc(func(opts *routerOptions) {
		opts.selector = s
	})
}

// WithLogger sets a zap Logger that will be used to record routing logs.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *routerOptions) {
		opts.logger = logger
	})
}

// WithTally sets a Tally scope that will be used to record routing metrics.
func WithTally(scope tally.Scope) Option {
	return optionFunc(func(opts *routerOptions) {
		opts.scope = scope
	})
}

// WithClock sets the clock backoff waits on.
func WithClock(clock clockwork.Clock) Option {
	return optionFunc(func(opts *routerOptions) {
		opts.clock = clock
	})
}

// Router sends calls to the nodes of a candidate, failing over to other
// nodes as the call's policy allows. It is safe for concurrent use.
type Router struct {
	lb       cluster.LoadBalance
	invoker  cluster.Invoker
	provider policy.Provider
	selector cluster.NodeSelector
	clock    clockwork.Clock
	observer *observer
}

// NewRouter builds a Router over the given load balancer and transport.
func NewRouter(lb cluster.LoadBalance, invoker cluster.Invoker, opts ...Option) *Router {
	options := defaultRouterOptions
	for _, opt := range opts {
		opt.apply(&options)
	}
	return &Router{
		lb:       lb,
		invoker:  invoker,
		provider: options.provider,
		selector: options.selector,
		clock:    options.clock,
		observer: newObserver(options.logger, options.scope),
	}
}

// RouteAsync runs Route on a new goroutine.
func (r *Router) RouteAsync(ctx context.Context, req *transport.Request, c *cluster.Candidate) *transport.Future {
	return transport.Go(func() (*transport.Response, error) {
		return r.Route(ctx, req, c)
	})
}

// Route sends the request to a node of the candidate and returns the first
// successful response.
//
// The request is cloned first; the caller's copy is never changed.
func (r *Router) Route(ctx context.Context, req *transport.Request, c *cluster.Candidate) (*transport.Response, error) {
	if err := transport.ValidateRequest(req); err != nil {
		return nil, err
	}
	req = req.Clone()

	pol := r.policy(ctx, req)
	if r.selector != nil {
		c = c.Subset(r.selector.Select(c, req))
	}
	if tp := pol.Timeout(); tp != nil {
		tp.Reset(ctx, req)
	}

	call := r.observer.begin(ctx, req)
	if pol.MaxRetry() == 0 {
		return r.once(ctx, call, req, c)
	}
	return r.failover(ctx, call, pol, req, c)
}

// once makes a single attempt and reports its outcome as is.
func (r *Router) once(ctx context.Context, call *call, req *transport.Request, c *cluster.Candidate) (*transport.Response, error) {
	node := r.lb.Select(c, req)
	if node == nil {
		err := routeerrors.NoCandidate(0, false, nil)
		call.fail(_reasonNoCandidate, 0, err)
		return nil, err
	}
	res, err := r.invoke(ctx, call, node, nil, req, 0)
	if err != nil {
		call.fail(_reasonNoRetry, 1, err)
		return nil, err
	}
	call.succeed(0, node)
	return res, nil
}

func (r *Router) failover(ctx context.Context, call *call, pol *policy.FailoverPolicy, req *transport.Request, c *cluster.Candidate) (*transport.Response, error) {
	var (
		original = c
		previous *cluster.Node
		lastErr  error
		boff     = pol.Backoff()
	)
	for n := 0; ; n++ {
		node := r.lb.Select(c, req)
		if node == nil {
			var err error
			if n == 0 {
				err = routeerrors.NoCandidate(0, false, nil)
			} else {
				err = routeerrors.NoCandidate(n, c.Len() < original.Len(), lastErr)
			}
			call.fail(_reasonNoCandidate, n, err)
			return nil, err
		}

		res, err := r.invoke(ctx, call, node, previous, req, n)
		if err == nil {
			call.succeed(n, node)
			return res, nil
		}
		lastErr = err

		if pol.Expired(ctx, req) {
			err = routeerrors.Timeout(n+1, err)
			call.fail(_reasonTimeout, n+1, err)
			return nil, err
		}
		if !pol.Retryable(err) {
			call.fail(_reasonUnretryable, n+1, err)
			return nil, err
		}
		if n >= pol.MaxRetry() {
			err = routeerrors.Overload(n+1, err)
			call.fail(_reasonMaxAttempts, n+1, err)
			return nil, err
		}
		if c.Len() == 1 && pol.OnlyOncePerNode() {
			err = routeerrors.NoCandidate(n, false, err)
			call.fail(_reasonOnlyOnce, n+1, err)
			return nil, err
		}
		if !pol.AllowRetry() {
			err = routeerrors.Overload(n+1, err)
			call.fail(_reasonBudget, n+1, err)
			return nil, err
		}
		if !r.wait(ctx, boff.Duration(uint(n))) {
			err = routeerrors.Timeout(n+1, err)
			call.fail(_reasonTimeout, n+1, err)
			return nil, err
		}
		if tp := pol.Timeout(); tp != nil {
			tp.Reset(ctx, req)
		}

		c = pol.RetrySelector().Select(c, node, req)
		previous = node
		call.retry(n+1, node, err)
	}
}

func (r *Router) invoke(ctx context.Context, call *call, node, previous *cluster.Node, req *transport.Request, n int) (*transport.Response, error) {
	if n > 0 {
		req.Headers = req.Headers.With(RetryHeader, strconv.Itoa(n))
	}
	req.Retries = n

	metrics := node.Metrics()
	metrics.Distribute()
	metrics.StartRequest()
	defer metrics.EndRequest()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	call.attempt(n, node)
	res, err := r.invoker.Invoke(ctx, node, previous, req)
	if res != nil && res.Node == "" {
		res.Node = node.Name()
	}
	return res, err
}

// wait blocks for the backoff duration. It reports false when the context
// ends first.
func (r *Router) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-r.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Router) policy(ctx context.Context, req *transport.Request) *policy.FailoverPolicy {
	if r.provider == nil {
		return nil
	}
	return r.provider.Policy(ctx, req)
}
