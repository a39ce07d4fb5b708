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

package transport

import "context"

// Future is the pending result of an asynchronous call. It is completed
// exactly once.
type Future struct {
	done chan struct{}
	res  *Response
	err  error
}

// NewFuture returns a Future that has not completed yet.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Go runs fn on a new goroutine and returns a Future that completes with its
// result.
func Go(fn func() (*Response, error)) *Future {
	f := NewFuture()
	go func() {
		f.Complete(fn())
	}()
	return f
}

// Complete records the outcome of the call and wakes up waiters. It must be
// called once.
func (f *Future) Complete(res *Response, err error) {
	f.res, f.err = res, err
	close(f.done)
}

// Done returns a channel that is closed once the Future completes.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the Future completes or ctx is done. Abandoning a Future
// does not abort the call behind it.
func (f *Future) Get(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
