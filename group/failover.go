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
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/meshroute/api/transport"
	"go.uber.org/meshroute/failover"
	"go.uber.org/meshroute/policy"
	"go.uber.org/meshroute/routeerrors"
	"go.uber.org/zap"
)

// FailoverOption customizes a Failover.
type FailoverOption interface {
	applyFailover(*Failover)
}

type failoverOptionFunc func(*Failover)

func (f failoverOptionFunc) applyFailover(fo *Failover) { f(fo) }

// WithPolicyProvider sets where the FailoverPolicy of each call comes from.
// Without a provider, calls only go to the first group.
func WithPolicyProvider(p policy.Provider) FailoverOption {
	return failoverOptionFunc(func(f *Failover) {
		f.provider = p
	})
}

// FailoverLogger sets the logger failovers are reported to.
func FailoverLogger(logger *zap.Logger) FailoverOption {
	return failoverOptionFunc(func(f *Failover) {
		f.logger = logger
	})
}

// FailoverClock sets the clock backoffs between groups are waited on.
func FailoverClock(clock clockwork.Clock) FailoverOption {
	return failoverOptionFunc(func(f *Failover) {
		f.clock = clock
	})
}

// Failover sends a call to its groups in order, one group per attempt.
// Attempt n goes to group n modulo the number of groups.
//
// A group that ran out of nodes or attempts, as reported by Routed, fails
// over to the next group like a retryable transport error.
type Failover struct {
	groups   []Group
	provider policy.Provider
	logger   *zap.Logger
	clock    clockwork.Clock
}

var _ Invoker = (*Failover)(nil)

// NewFailover builds a Failover over the given groups.
func NewFailover(groups []Group, opts ...FailoverOption) (*Failover, error) {
	if len(groups) == 0 {
		return nil, routeerrors.InvalidArgumentErrorf("no service group to fail over to")
	}
	if err := validateGroups(groups); err != nil {
		return nil, err
	}
	f := &Failover{
		groups: append([]Group(nil), groups...),
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt.applyFailover(f)
	}
	return f, nil
}

// Invoke implements Invoker.
func (f *Failover) Invoke(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if err := transport.ValidateRequest(req); err != nil {
		return nil, err
	}
	var pol *policy.FailoverPolicy
	if f.provider != nil {
		pol = f.provider.Policy(ctx, req)
	}
	req = req.Clone()
	if tp := pol.Timeout(); tp != nil {
		tp.Reset(ctx, req)
	}
	boff := pol.Backoff()

	for n := 0; ; n++ {
		g := f.groups[n%len(f.groups)]
		attempt := bind(req, g.Alias)
		attempt.Retries = n
		if n > 0 {
			attempt.Headers = attempt.Headers.With(failover.RetryHeader, strconv.Itoa(n))
		}

		res, err := g.Invoker.Invoke(ctx, attempt)
		if err == nil {
			return res, nil
		}
		if pol.MaxRetry() == 0 {
			return nil, err
		}

		switch {
		case pol.Expired(ctx, req):
			err = routeerrors.Timeout(n+1, err)
		case !pol.Retryable(err):
		case n >= pol.MaxRetry():
			err = routeerrors.Overload(n+1, err)
		case len(f.groups) == 1 && pol.OnlyOncePerNode():
			err = routeerrors.NoCandidate(n, false, err)
		case !pol.AllowRetry():
			err = routeerrors.Overload(n+1, err)
		case !f.wait(ctx, boff.Duration(uint(n))):
			err = routeerrors.Timeout(n+1, err)
		default:
			f.logger.Debug("failing over to the next service group",
				zap.String("failedGroup", g.Alias),
				zap.String("nextGroup", f.groups[(n+1)%len(f.groups)].Alias),
				zap.Int("attempt", n+1),
				zap.Error(err))
			if tp := pol.Timeout(); tp != nil {
				tp.Reset(ctx, req)
			}
			continue
		}
		f.logger.Debug("service group failover ended",
			zap.String("service", req.Service),
			zap.String("procedure", req.Procedure),
			zap.Int("attempts", n+1),
			zap.Error(err))
		return nil, err
	}
}

func (f *Failover) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-f.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
