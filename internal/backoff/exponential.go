// Copyright (c) 2017 Uber Technologies, Inc.
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

package backoff

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/meshroute/api/backoff"
	"go.uber.org/multierr"
)

// ExponentialOption defines options that can be applied to an
// exponential backoff strategy.
type ExponentialOption func(*exponentialOptions)

type exponentialOptions struct {
	base, min, max time.Duration
	source         rand.Source
}

func (e exponentialOptions) validate() (err error) {
	if e.base <= 0 {
		err = multierr.Append(err, errors.New("invalid base for exponential backoff, need greater than zero"))
	}
	if e.min < 0 {
		err = multierr.Append(err, errors.New("invalid min for exponential backoff, need greater than or equal to zero"))
	}
	if e.max < 0 {
		err = multierr.Append(err, errors.New("invalid max for exponential backoff, need greater than or equal to zero"))
	}
	if e.max < e.min {
		err = multierr.Append(err, errors.New("exponential max value must be greater than min value"))
	}
	return err
}

// BaseJump sets the default "jump" the exponential backoff strategy will use.
func BaseJump(t time.Duration) ExponentialOption {
	return func(options *exponentialOptions) {
		options.base = t
	}
}

// MaxBackoff sets absolute max time that will ever be returned for a backoff.
func MaxBackoff(t time.Duration) ExponentialOption {
	return func(options *exponentialOptions) {
		options.max = t
	}
}

// MinBackoff sets absolute min time that will ever be returned for a backoff.
func MinBackoff(t time.Duration) ExponentialOption {
	return func(options *exponentialOptions) {
		options.min = t
	}
}

// randSource overrides the random number source. Tests only.
func randSource(src rand.Source) ExponentialOption {
	return func(options *exponentialOptions) {
		options.source = src
	}
}

// Exponential is an exponential backoff strategy with full jitter, bounded
// to the closed [Min, Max] interval. It is safe to use concurrently.
type Exponential struct {
	base, min  time.Duration
	minMaxDiff int64

	mu   sync.Mutex
	rand *rand.Rand
}

var _ backoff.Strategy = (*Exponential)(nil)

// NewExponential returns a new Exponential Backoff Strategy.
func NewExponential(opts ...ExponentialOption) (*Exponential, error) {
	options := exponentialOptions{
		base: 10 * time.Millisecond,
		max:  time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}
	if options.source == nil {
		options.source = rand.NewSource(time.Now().UnixNano())
	}

	return &Exponential{
		base:       options.base,
		min:        options.min,
		minMaxDiff: options.max.Nanoseconds() - options.min.Nanoseconds(),
		rand:       rand.New(options.source),
	}, nil
}

// Backoff returns the strategy itself; it keeps no per-call state.
func (e *Exponential) Backoff() backoff.Backoff {
	return e
}

// Duration takes an attempt number and returns the duration the caller should
// wait.
func (e *Exponential) Duration(attempts uint) time.Duration {
	minlessBackoff := (int64(1) << attempts) * e.base.Nanoseconds()

	// either the bit shift went negative, or we went past the max
	// duration we're willing to backoff.
	if minlessBackoff > e.minMaxDiff || minlessBackoff <= 0 {
		minlessBackoff = e.minMaxDiff
	}

	e.mu.Lock()
	jitter := e.rand.Int63n(minlessBackoff + 1)
	e.mu.Unlock()
	return e.min + time.Duration(jitter)
}
