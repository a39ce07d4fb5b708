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
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/meshroute/api/backoff"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/cluster/clustertest"
	"go.uber.org/meshroute/api/transport"
	"go.uber.org/meshroute/failover"
	"go.uber.org/meshroute/policy"
	"go.uber.org/meshroute/routeerrors"
)

func refused() error {
	return routeerrors.Newf(routeerrors.CodeUnavailable, "connection refused").WithRetryable(true)
}

func newRequest() *transport.Request {
	return &transport.Request{Service: "svc", Procedure: "echo"}
}

// recorder is a group Invoker that records the requests it receives and
// replays the given results in order.
type recorder struct {
	alias   string
	results []error
	got     []*transport.Request
}

func (r *recorder) Invoke(_ context.Context, req *transport.Request) (*transport.Response, error) {
	r.got = append(r.got, req)
	var err error
	if i := len(r.got) - 1; i < len(r.results) {
		err = r.results[i]
	}
	if err != nil {
		return nil, err
	}
	return &transport.Response{Service: req.Service, Node: r.alias}, nil
}

func groupsOf(recorders ...*recorder) []Group {
	groups := make([]Group, len(recorders))
	for i, r := range recorders {
		groups[i] = Group{Alias: r.alias, Invoker: r}
	}
	return groups
}

func TestNewFailoverErrors(t *testing.T) {
	_, err := NewFailover(nil)
	assert.True(t, routeerrors.IsInvalidArgument(err))

	a := &recorder{alias: "a"}
	_, err = NewFailover(groupsOf(a, a))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `service group "a" is configured more than once`)

	_, err = NewFailover([]Group{{Alias: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no invoker")
}

func TestFailoverRoundRobinsGroups(t *testing.T) {
	a := &recorder{alias: "a", results: []error{refused(), refused()}}
	b := &recorder{alias: "b", results: []error{refused()}}

	f, err := NewFailover(groupsOf(a, b), WithPolicyProvider(policy.Fixed(policy.NewFailoverPolicy(policy.MaxRetry(5)))))
	require.NoError(t, err)

	req := newRequest()
	req.Headers = req.Headers.With("trace", "abc")
	res, err := f.Invoke(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Node, "attempts 0, 1, 2, 3 go to a, b, a, b")

	require.Len(t, a.got, 2)
	require.Len(t, b.got, 2)
	attempts := []*transport.Request{a.got[0], b.got[0], a.got[1], b.got[1]}
	for n, got := range attempts {
		assert.Equal(t, n, got.Retries)
		assert.Equal(t, []string{"a", "b"}[n%2], got.Alias)
		v, _ := got.Headers.Get("trace")
		assert.Equal(t, "abc", v)
		retry, ok := got.Headers.Get(failover.RetryHeader)
		assert.Equal(t, n > 0, ok)
		if n > 0 {
			assert.Equal(t, []string{"", "1", "2", "3"}[n], retry)
		}
	}

	a.got[0].Headers.Del("trace")
	v, _ := b.got[0].Headers.Get("trace")
	assert.Equal(t, "abc", v, "each group sees its own copy of the request")
	assert.Equal(t, "", req.Alias, "the caller's request is left alone")
	assert.Equal(t, 1, req.Headers.Len())
}

func TestFailoverGroupErrors(t *testing.T) {
	appErr := routeerrors.Newf(routeerrors.CodeInternal, "out of stock")

	tests := []struct {
		desc      string
		groups    int
		opts      []policy.FailoverOption
		results   []error
		wantCalls int
		wantErr   func(*testing.T, error)
	}{
		{
			desc:      "no policy",
			groups:    2,
			results:   []error{refused()},
			wantCalls: 1,
			wantErr: func(t *testing.T, err error) {
				assert.True(t, routeerrors.IsRetryable(err), "errors are returned as is")
			},
		},
		{
			desc:      "application error",
			groups:    2,
			opts:      []policy.FailoverOption{policy.MaxRetry(3)},
			results:   []error{appErr},
			wantCalls: 1,
			wantErr: func(t *testing.T, err error) {
				assert.Equal(t, error(appErr), err)
			},
		},
		{
			desc:      "max retries",
			groups:    3,
			opts:      []policy.FailoverOption{policy.MaxRetry(1)},
			results:   []error{refused(), refused()},
			wantCalls: 2,
			wantErr: func(t *testing.T, err error) {
				assert.True(t, routeerrors.IsResourceExhausted(err))
				assert.Contains(t, err.Error(), "after 2 attempts")
			},
		},
		{
			desc:      "single group called once",
			groups:    1,
			opts:      []policy.FailoverOption{policy.MaxRetry(3)},
			results:   []error{refused()},
			wantCalls: 1,
			wantErr: func(t *testing.T, err error) {
				assert.True(t, routeerrors.IsUnavailable(err))
				assert.Contains(t, err.Error(), "connection refused")
			},
		},
		{
			desc:      "single group called again",
			groups:    1,
			opts:      []policy.FailoverOption{policy.MaxRetry(2), policy.OnlyOncePerNode(false)},
			results:   []error{refused(), refused(), refused()},
			wantCalls: 3,
			wantErr: func(t *testing.T, err error) {
				assert.True(t, routeerrors.IsResourceExhausted(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			calls := 0
			invoker := InvokerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
				calls++
				if calls <= len(tt.results) {
					return nil, tt.results[calls-1]
				}
				return &transport.Response{}, nil
			})
			groups := make([]Group, tt.groups)
			for i := range groups {
				groups[i] = Group{Alias: string(rune('a' + i)), Invoker: invoker}
			}

			var opts []FailoverOption
			if tt.opts != nil {
				opts = append(opts, WithPolicyProvider(policy.Fixed(policy.NewFailoverPolicy(tt.opts...))))
			}
			f, err := NewFailover(groups, opts...)
			require.NoError(t, err)

			_, err = f.Invoke(context.Background(), newRequest())
			require.Error(t, err)
			tt.wantErr(t, err)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestFailoverTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	groups := []Group{
		{Alias: "a", Invoker: InvokerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
			calls++
			cancel()
			return nil, refused()
		})},
		{Alias: "b", Invoker: InvokerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
			calls++
			return &transport.Response{}, nil
		})},
	}
	f, err := NewFailover(groups, WithPolicyProvider(policy.Fixed(policy.NewFailoverPolicy(policy.MaxRetry(3)))))
	require.NoError(t, err)

	_, err = f.Invoke(ctx, newRequest())
	require.Error(t, err)
	assert.True(t, routeerrors.IsDeadlineExceeded(err))
	assert.Equal(t, 1, calls)
}

func TestRouted(t *testing.T) {
	c := clustertest.NewCandidate(1)
	router := failover.NewRouter(
		cluster.LoadBalanceFunc(func(c *cluster.Candidate, _ *transport.Request) *cluster.Node {
			return c.Nodes()[0]
		}),
		cluster.InvokerFunc(func(_ context.Context, node, _ *cluster.Node, req *transport.Request) (*transport.Response, error) {
			return &transport.Response{Service: req.Alias, Node: node.Name()}, nil
		}),
	)

	f, err := NewFailover([]Group{{Alias: "blue", Invoker: Routed(router, func() *cluster.Candidate { return c })}})
	require.NoError(t, err)

	res, err := f.Invoke(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Equal(t, "blue", res.Service)
	assert.Equal(t, "node-0", res.Node)
}

func TestRoutedGroupsFailOver(t *testing.T) {
	appErr := routeerrors.Newf(routeerrors.CodeInternal, "out of stock")

	tests := []struct {
		desc      string
		candidate *cluster.Candidate
		fail      error
		wantCalls []string
		wantErr   error
	}{
		{
			desc:      "drained group",
			candidate: clustertest.NewCandidate(),
			wantCalls: []string{"b/node-0"},
		},
		{
			desc:      "every node of the group fails",
			candidate: clustertest.NewCandidate(1, 1),
			fail:      refused(),
			wantCalls: []string{"a/node-0", "a/node-1", "b/node-0"},
		},
		{
			desc:      "application error",
			candidate: clustertest.NewCandidate(1, 1),
			fail:      appErr,
			wantCalls: []string{"a/node-0"},
			wantErr:   appErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			var (
				mu    sync.Mutex
				calls []string
			)
			router := failover.NewRouter(
				cluster.LoadBalanceFunc(func(c *cluster.Candidate, _ *transport.Request) *cluster.Node {
					if c.Len() == 0 {
						return nil
					}
					return c.Nodes()[0]
				}),
				cluster.InvokerFunc(func(_ context.Context, node, _ *cluster.Node, req *transport.Request) (*transport.Response, error) {
					mu.Lock()
					calls = append(calls, req.Alias+"/"+node.Name())
					mu.Unlock()
					if req.Alias == "a" && tt.fail != nil {
						return nil, tt.fail
					}
					return &transport.Response{Service: req.Alias}, nil
				}),
				failover.WithPolicyProvider(policy.Fixed(policy.NewFailoverPolicy(policy.MaxRetry(2)))),
			)

			healthy := clustertest.NewCandidate(1)
			f, err := NewFailover([]Group{
				{Alias: "a", Invoker: Routed(router, func() *cluster.Candidate { return tt.candidate })},
				{Alias: "b", Invoker: Routed(router, func() *cluster.Candidate { return healthy })},
			}, WithPolicyProvider(policy.Fixed(policy.NewFailoverPolicy(policy.MaxRetry(2)))))
			require.NoError(t, err)

			res, err := f.Invoke(context.Background(), newRequest())
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err, "application errors must not fail over")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "b", res.Service)
		})
	}
}

func TestRoutedMarksExhaustionRetryable(t *testing.T) {
	router := failover.NewRouter(
		cluster.LoadBalanceFunc(func(*cluster.Candidate, *transport.Request) *cluster.Node { return nil }),
		cluster.InvokerFunc(func(context.Context, *cluster.Node, *cluster.Node, *transport.Request) (*transport.Response, error) {
			return nil, errors.New("unreachable")
		}),
	)
	g := Routed(router, func() *cluster.Candidate { return nil })

	_, err := g.Invoke(context.Background(), newRequest())
	require.Error(t, err)
	assert.True(t, routeerrors.IsUnavailable(err))
	assert.True(t, routeerrors.IsRetryable(err))
	assert.Equal(t, "no suitable node", routeerrors.FromError(err).Message())
}

type constantBackoff time.Duration

func (b constantBackoff) Backoff() backoff.Backoff    { return b }
func (b constantBackoff) Duration(uint) time.Duration { return time.Duration(b) }

func TestFailoverBackoff(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := &recorder{alias: "a", results: []error{refused()}}
	b := &recorder{alias: "b"}
	clock := clockwork.NewFakeClock()
	f, err := NewFailover(groupsOf(a, b),
		WithPolicyProvider(policy.Fixed(policy.NewFailoverPolicy(
			policy.MaxRetry(1),
			policy.BackoffStrategy(constantBackoff(time.Minute)),
		))),
		FailoverClock(clock),
	)
	require.NoError(t, err)

	type result struct {
		res *transport.Response
		err error
	}
	done := make(chan result)
	go func() {
		res, err := f.Invoke(context.Background(), newRequest())
		done <- result{res, err}
	}()

	clock.BlockUntil(1)
	assert.Len(t, b.got, 0, "group b must wait for the backoff")
	clock.Advance(time.Minute)

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "b", r.res.Node)
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
}

func TestFailoverBackoffInterrupted(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := &recorder{alias: "a", results: []error{refused()}}
	b := &recorder{alias: "b"}
	clock := clockwork.NewFakeClock()
	f, err := NewFailover(groupsOf(a, b),
		WithPolicyProvider(policy.Fixed(policy.NewFailoverPolicy(
			policy.MaxRetry(1),
			policy.BackoffStrategy(constantBackoff(time.Hour)),
		))),
		FailoverClock(clock),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		_, err := f.Invoke(ctx, newRequest())
		done <- err
	}()

	clock.BlockUntil(1)
	cancel()
	err = <-done
	require.Error(t, err)
	assert.True(t, routeerrors.IsDeadlineExceeded(err), fmt.Sprint(err))
	assert.Len(t, b.got, 0)
}
