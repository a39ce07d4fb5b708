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
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/meshroute/api/transport"
)

// TimeoutPolicy decides when a call ran out of time, and how much time the
// next attempt gets.
type TimeoutPolicy interface {
	// Expired reports whether the call must stop retrying.
	Expired(ctx context.Context, req *transport.Request) bool

	// Reset sets req.Timeout for the next attempt and returns it. A zero
	// timeout means the attempt is bounded by the context only.
	Reset(ctx context.Context, req *transport.Request) time.Duration
}

// DeadlineOption customizes a Deadline policy.
type DeadlineOption interface {
	apply(*Deadline)
}

type deadlineOptionFunc func(*Deadline)

func (f deadlineOptionFunc) apply(d *Deadline) { f(d) }

// Clock sets the clock the deadline is checked against.
func Clock(clock clockwork.Clock) DeadlineOption {
	return deadlineOptionFunc(func(d *Deadline) {
		d.clock = clock
	})
}

// Deadline is a TimeoutPolicy bounding each attempt to a fixed duration,
// itself bounded by the deadline of the call's context.
type Deadline struct {
	attempt time.Duration
	clock   clockwork.Clock
}

var _ TimeoutPolicy = (*Deadline)(nil)

// NewDeadline builds a Deadline policy giving each attempt up to the given
// duration. A zero duration leaves attempts bounded by the context only.
func NewDeadline(attempt time.Duration, opts ...DeadlineOption) *Deadline {
	d := &Deadline{
		attempt: attempt,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt.apply(d)
	}
	return d
}

// Expired implements TimeoutPolicy.
func (d *Deadline) Expired(ctx context.Context, _ *transport.Request) bool {
	if ctx.Err() != nil {
		return true
	}
	deadline, ok := ctx.Deadline()
	return ok && !d.clock.Now().Before(deadline)
}

// Reset implements TimeoutPolicy.
func (d *Deadline) Reset(ctx context.Context, req *transport.Request) time.Duration {
	timeout := d.attempt
	if deadline, ok := ctx.Deadline(); ok {
		remaining := deadline.Sub(d.clock.Now())
		if remaining < 0 {
			remaining = 0
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	req.Timeout = timeout
	return timeout
}
