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
	"errors"

	"go.uber.org/meshroute/routeerrors"
)

// ExceptionPolicy decides whether a failure the transport did not flag as
// retryable should be retried anyway.
type ExceptionPolicy interface {
	Retryable(err error) bool
}

// ExceptionFunc adapts a function into an ExceptionPolicy.
type ExceptionFunc func(error) bool

// Retryable calls f(err).
func (f ExceptionFunc) Retryable(err error) bool { return f(err) }

// RetryOnCodes retries failures carrying one of the given codes.
func RetryOnCodes(codes ...routeerrors.Code) ExceptionPolicy {
	set := make(map[routeerrors.Code]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return ExceptionFunc(func(err error) bool {
		var st *routeerrors.Status
		if !errors.As(err, &st) {
			return false
		}
		_, ok := set[st.Code()]
		return ok
	})
}

// RetryOnNames retries failures whose status carries one of the given
// names.
func RetryOnNames(names ...string) ExceptionPolicy {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return ExceptionFunc(func(err error) bool {
		var st *routeerrors.Status
		if !errors.As(err, &st) || st.Name() == "" {
			return false
		}
		_, ok := set[st.Name()]
		return ok
	})
}

// AnyException retries failures matched by any of the given policies. Nil
// policies are skipped.
func AnyException(policies ...ExceptionPolicy) ExceptionPolicy {
	var ps []ExceptionPolicy
	for _, p := range policies {
		if p != nil {
			ps = append(ps, p)
		}
	}
	switch len(ps) {
	case 0:
		return nil
	case 1:
		return ps[0]
	}
	return ExceptionFunc(func(err error) bool {
		for _, p := range ps {
			if p.Retryable(err) {
				return true
			}
		}
		return false
	})
}
