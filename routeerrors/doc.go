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

// Package routeerrors contains the error taxonomy of the router.
//
// Every failure produced by routing is a *Status carrying a Code. Callers
// can tell the failure classes apart with the Is* helpers:
//
//	switch {
//	case routeerrors.IsDeadlineExceeded(err):
//		// the call ran out of time
//	case routeerrors.IsResourceExhausted(err):
//		// every retry failed; errors.Unwrap(err) is the last cause
//	case routeerrors.IsUnavailable(err):
//		// no node could be chosen
//	default:
//		// the application's own error, unchanged
//	}
//
// Transports mark failures that are safe to send to another node with
// WithRetryable(true). The router never inspects error types to decide
// whether to retry.
package routeerrors
