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

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewfOK(t *testing.T) {
	assert.Nil(t, Newf(CodeOK, "hello"))
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		give *Status
		want string
	}{
		{
			give: Newf(CodeUnavailable, "hello %d", 1),
			want: "code:unavailable message:hello 1",
		},
		{
			give: Newf(CodeNotFound, "missing").WithName("group"),
			want: "code:not-found name:group message:missing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.give.Error())
		})
	}
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))
	assert.Equal(t, CodeOK, ErrorCode(nil))

	st := Newf(CodeInternal, "broken")
	assert.Equal(t, st, FromError(fmt.Errorf("wrapped: %w", st)))

	plain := errors.New("great sadness")
	unknown := FromError(plain)
	assert.Equal(t, CodeUnknown, unknown.Code())
	assert.Equal(t, "great sadness", unknown.Message())
	assert.True(t, errors.Is(unknown, plain))
}

func TestRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(Newf(CodeUnavailable, "refused")))

	st := Newf(CodeUnavailable, "refused").WithRetryable(true)
	assert.True(t, IsRetryable(st))
	assert.True(t, IsRetryable(fmt.Errorf("dial: %w", st)))
	assert.True(t, st.WithName("conn").Retryable(), "WithName must keep the flag")
	assert.False(t, st.WithRetryable(false).Retryable())
}

func TestNoCandidate(t *testing.T) {
	err := NoCandidate(0, false, nil)
	assert.Equal(t, CodeUnavailable, err.Code())
	assert.Equal(t, "no suitable node", err.Message())
	assert.False(t, err.Retryable())

	cause := errors.New("refused")
	err = NoCandidate(2, true, cause)
	assert.Equal(t, "no suitable node after retrying 2 times: refused", err.Message())
	assert.True(t, err.Retryable())
	assert.True(t, errors.Is(err, cause))
}

func TestOverload(t *testing.T) {
	cause := Newf(CodeUnavailable, "refused").WithRetryable(true)
	err := Overload(3, cause)
	require.Error(t, err)
	assert.True(t, IsResourceExhausted(err))
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "refused")
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.False(t, IsRetryable(err), "overload must not be retried by an outer router")
}

func TestIsExhausted(t *testing.T) {
	refused := Newf(CodeUnavailable, "refused").WithRetryable(true)

	tests := []struct {
		desc string
		give error
		want bool
	}{
		{desc: "nil", give: nil},
		{desc: "plain error", give: errors.New("great sadness")},
		{desc: "transport error", give: refused},
		{desc: "no candidate", give: NoCandidate(0, false, nil), want: true},
		{desc: "no candidate after retries", give: NoCandidate(2, true, refused), want: true},
		{desc: "overload", give: Overload(3, refused), want: true},
		{desc: "renamed", give: Overload(3, refused).WithName("busy"), want: true},
		{desc: "marked retryable", give: NoCandidate(0, false, nil).WithRetryable(true), want: true},
		{desc: "wrapped", give: fmt.Errorf("group a: %w", Overload(1, refused)), want: true},
		{desc: "timeout", give: Timeout(2, refused)},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExhausted(tt.give))
		})
	}
}

func TestTimeout(t *testing.T) {
	deadline := Newf(CodeDeadlineExceeded, "too slow")
	assert.Equal(t, error(deadline), Timeout(2, deadline))

	err := Timeout(2, context.DeadlineExceeded)
	assert.True(t, IsDeadlineExceeded(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCodeText(t *testing.T) {
	for code, name := range _codeToString {
		text, err := code.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))

		var got Code
		require.NoError(t, got.UnmarshalText([]byte(name)))
		assert.Equal(t, code, got)
	}

	var c Code
	assert.Error(t, c.UnmarshalText([]byte("sadness")))
	_, err := Code(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "42", Code(42).String())
}
