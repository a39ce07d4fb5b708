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
	"context"

	"go.uber.org/meshroute/api/backoff"
	"go.uber.org/meshroute/api/transport"
	ibackoff "go.uber.org/meshroute/internal/backoff"
	"go.uber.org/meshroute/routeerrors"
	"golang.org/x/time/rate"
)

// FailoverPolicy defines how the router reacts to a failed attempt.
//
// A nil *FailoverPolicy never retries.
type FailoverPolicy struct {
	opts failoverOptions
}

type failoverOptions struct {
	maxRetry        int
	onlyOncePerNode bool
	exception       ExceptionPolicy
	timeout         TimeoutPolicy
	retrySelector   RetrySelector
	backoffStrategy backoff.Strategy
	budget          *rate.Limiter
}

var defaultFailoverOpts = failoverOptions{
	onlyOncePerNode: true,
	backoffStrategy: ibackoff.None,
}

// FailoverOption customizes a FailoverPolicy.
type FailoverOption interface {
	apply(*failoverOptions)
}

type failoverOptionFunc func(*failoverOptions)

func (f failoverOptionFunc) apply(opts *failoverOptions) { f(opts) }

// NewFailoverPolicy builds a FailoverPolicy.
func NewFailoverPolicy(opts ...FailoverOption) *FailoverPolicy {
	options := defaultFailoverOpts
	for _, opt := range opts {
		opt.apply(&options)
	}
	if options.maxRetry < 0 {
		options.maxRetry = 0
	}
	if options.retrySelector == nil {
		options.retrySelector = ExcludeFailed(options.onlyOncePerNode)
	}
	return &FailoverPolicy{opts: options}
}

// MaxRetry is the number of attempts made after the first one.
//
// Defaults to 0.
func MaxRetry(n int) FailoverOption {
	return failoverOptionFunc(func(opts *failoverOptions) {
		opts.maxRetry = n
	})
}

// OnlyOncePerNode forbids sending the same call twice to a node.
//
// Defaults to true.
func OnlyOncePerNode(once bool) FailoverOption {
	return failoverOptionFunc(func(opts *failoverOptions) {
		opts.onlyOncePerNode = once
	})
}

// Exceptions makes failures matching the policy retryable even when the
// transport did not flag them so.
func Exceptions(p ExceptionPolicy) FailoverOption {
	return failoverOptionFunc(func(opts *failoverOptions) {
		opts.exception = p
	})
}

// Timeout sets the policy deciding when a call ran out of time.
func Timeout(p TimeoutPolicy) FailoverOption {
	return failoverOptionFunc(func(opts *failoverOptions) {
		opts.timeout = p
	})
}

// WithRetrySelector sets how the candidate of the next attempt is derived.
//
// Defaults to excluding the failed node.
func WithRetrySelector(s RetrySelector) FailoverOption {
	return failoverOptionFunc(func(opts *failoverOptions) {
		opts.retrySelector = s
	})
}

// BackoffStrategy sets the backoff strategy used before each retry.
//
// Defaults to no backoff.
func BackoffStrategy(strategy backoff.Strategy) FailoverOption {
	return failoverOptionFunc(func(opts *failoverOptions) {
		if strategy != nil {
			opts.backoffStrategy = strategy
		}
	})
}

// RetryBudget bounds the rate of retries across every call sharing the
// policy. Retries beyond the budget fail the call as overloaded.
func RetryBudget(limiter *rate.Limiter) FailoverOption {
	return failoverOptionFunc(func(opts *failoverOptions) {
		opts.budget = limiter
	})
}

// MaxRetry returns the number of attempts made after the first one.
func (p *FailoverPolicy) MaxRetry() int {
	if p == nil {
		return 0
	}
	return p.opts.maxRetry
}

// OnlyOncePerNode reports whether a call may go to a node only once.
func (p *FailoverPolicy) OnlyOncePerNode() bool {
	if p == nil {
		return true
	}
	return p.opts.onlyOncePerNode
}

// Exception returns the exception policy, or nil.
func (p *FailoverPolicy) Exception() ExceptionPolicy {
	if p == nil {
		return nil
	}
	return p.opts.exception
}

// Timeout returns the timeout policy, or nil.
func (p *FailoverPolicy) Timeout() TimeoutPolicy {
	if p == nil {
		return nil
	}
	return p.opts.timeout
}

// RetrySelector returns the selector of the next attempt's candidate.
func (p *FailoverPolicy) RetrySelector() RetrySelector {
	if p == nil {
		return ExcludeFailed(true)
	}
	return p.opts.retrySelector
}

// Backoff returns the backoff of one call.
func (p *FailoverPolicy) Backoff() backoff.Backoff {
	if p == nil {
		return ibackoff.None.Backoff()
	}
	return p.opts.backoffStrategy.Backoff()
}

// AllowRetry consumes one token of the retry budget, if any.
func (p *FailoverPolicy) AllowRetry() bool {
	if p == nil || p.opts.budget == nil {
		return true
	}
	return p.opts.budget.Allow()
}

// Expired reports whether the call ran out of time: according to the
// timeout policy when there is one, or to ctx otherwise.
func (p *FailoverPolicy) Expired(ctx context.Context, req *transport.Request) bool {
	if tp := p.Timeout(); tp != nil {
		return tp.Expired(ctx, req)
	}
	return ctx.Err() != nil
}

// Retryable reports whether err may be sent elsewhere: the transport marked
// it retryable, or the exception policy matches it.
func (p *FailoverPolicy) Retryable(err error) bool {
	if routeerrors.IsRetryable(err) {
		return true
	}
	exc := p.Exception()
	return exc != nil && exc.Retryable(err)
}
