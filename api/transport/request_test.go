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
	"go.uber.org/meshroute/routeerrors"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		desc    string
		req     *Request
		wantErr string
	}{
		{desc: "nil", wantErr: "missing request"},
		{desc: "empty", req: &Request{}, wantErr: "missing service name, procedure"},
		{desc: "no procedure", req: &Request{Service: "echo"}, wantErr: "missing procedure"},
		{desc: "valid", req: &Request{Service: "echo", Procedure: "say"}},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, routeerrors.IsInvalidArgument(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequestArg(t *testing.T) {
	req := &Request{Args: []interface{}{"a", 2}}
	assert.Equal(t, "a", req.Arg(0))
	assert.Equal(t, 2, req.Arg(1))
	assert.Nil(t, req.Arg(2))
	assert.Nil(t, req.Arg(-1))

	var nilReq *Request
	assert.Nil(t, nilReq.Arg(0))
}

func TestRequestClone(t *testing.T) {
	req := &Request{
		Service:   "echo",
		Procedure: "say",
		Args:      []interface{}{"hello"},
		Headers:   NewHeaders().With("trace", "1"),
	}
	clone := req.Clone()
	clone.Args[0] = "bye"
	clone.Headers = clone.Headers.With("rpc-retry", "1")
	clone.Alias = "blue"

	assert.Equal(t, "hello", req.Arg(0))
	_, ok := req.Headers.Get("rpc-retry")
	assert.False(t, ok)
	assert.Empty(t, req.Alias)
	assert.Equal(t, "echo::say", clone.String())
}

func TestFuture(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := Go(func() (*Response, error) {
		return &Response{Body: "ok"}, nil
	})
	res, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Body)

	sadness := errors.New("great sadness")
	f = Go(func() (*Response, error) { return nil, sadness })
	<-f.Done()
	_, err = f.Get(context.Background())
	assert.Equal(t, sadness, err)
}

func TestFutureGetContextDone(t *testing.T) {
	f := NewFuture()
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := f.Get(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
	f.Complete(nil, nil)
}
