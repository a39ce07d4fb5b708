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

package routeerrors

import "fmt"

// NoCandidate returns the error reported when the load balancer has no node
// to offer.
//
// A zero retries count means the call never had a node to go to. Otherwise
// cause is the failure of the last attempt and retryable tells the caller
// whether the candidate set shrank during the call, in which case a later
// call against a fresh topology may still succeed.
func NoCandidate(retries int, retryable bool, cause error) *Status {
	var err error
	switch {
	case retries == 0 && cause == nil:
		err = fmt.Errorf("no suitable node")
	case cause == nil:
		err = fmt.Errorf("no suitable node after retrying %d times", retries)
	default:
		err = fmt.Errorf("no suitable node after retrying %d times: %w", retries, cause)
	}
	return &Status{
		code:      CodeUnavailable,
		err:       err,
		retryable: retryable,
		exhausted: true,
	}
}

// Overload returns the error reported when a call spent its retry budget.
// The message states the number of attempts made and the last cause, which
// remains reachable through errors.Unwrap.
func Overload(attempts int, cause error) *Status {
	return &Status{
		code:      CodeResourceExhausted,
		err:       fmt.Errorf("max retries reached after %d attempts: %w", attempts, cause),
		exhausted: true,
	}
}

// Timeout returns the error reported when the deadline of a call expired
// between attempts. Causes that already carry CodeDeadlineExceeded are
// returned unchanged.
func Timeout(attempts int, cause error) error {
	if IsDeadlineExceeded(cause) {
		return cause
	}
	return &Status{
		code: CodeDeadlineExceeded,
		err:  fmt.Errorf("deadline exceeded after %d attempts: %w", attempts, cause),
	}
}
