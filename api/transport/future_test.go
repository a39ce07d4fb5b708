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

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFutureGo(t *testing.T) {
	defer goleak.VerifyNone(t)

	want := &Response{Service: "billing"}
	f := Go(func() (*Response, error) { return want, nil })

	res, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, res)

	select {
	case <-f.Done():
	default:
		t.Fatal("expected the future to be done")
	}

	res, err = f.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, res, "results must be readable more than once")
}

func TestFutureError(t *testing.T) {
	f := NewFuture()
	f.Complete(nil, errors.New("great sadness"))

	_, err := f.Get(context.Background())
	assert.EqualError(t, err, "great sadness")
}

func TestFutureGetCanceled(t *testing.T) {
	f := NewFuture()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err := f.Get(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)

	f.Complete(&Response{}, nil)
	res, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res)
}
