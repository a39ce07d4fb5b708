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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSource is a rand.Source whose every draw is the same value.
type fixedSource int64

func (s fixedSource) Int63() int64 { return int64(s) }
func (fixedSource) Seed(int64)     {}

func TestExponentialValidation(t *testing.T) {
	tests := []struct {
		msg        string
		give       []ExponentialOption
		wantErrors []string
	}{
		{
			msg:        "invalid base",
			give:       []ExponentialOption{BaseJump(0)},
			wantErrors: []string{"invalid base for exponential backoff, need greater than zero"},
		},
		{
			msg: "invalid max & min",
			give: []ExponentialOption{
				MinBackoff(-100),
				MaxBackoff(-1),
			},
			wantErrors: []string{
				"invalid min for exponential backoff, need greater than or equal to zero",
				"invalid max for exponential backoff, need greater than or equal to zero",
			},
		},
		{
			msg:        "max less than min",
			give:       []ExponentialOption{MinBackoff(time.Second), MaxBackoff(time.Millisecond)},
			wantErrors: []string{"exponential max value must be greater than min value"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			_, err := NewExponential(tt.give...)
			require.Error(t, err)
			for _, want := range tt.wantErrors {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestExponentialDuration(t *testing.T) {
	tests := []struct {
		msg         string
		giveAttempt uint
		giveRand    int64
		want        time.Duration
	}{
		{msg: "zero attempt max backoff", giveAttempt: 0, giveRand: 1, want: time.Nanosecond},
		{msg: "zero attempt min backoff", giveAttempt: 0, giveRand: 0, want: 0},
		{msg: "zero attempt wrapped rand value", giveAttempt: 0, giveRand: 2, want: 0},
		{msg: "one attempt max backoff", giveAttempt: 1, giveRand: 2, want: 2 * time.Nanosecond},
		{msg: "three attempts max backoff", giveAttempt: 3, giveRand: 8, want: 8 * time.Nanosecond},
		{msg: "past the max", giveAttempt: 10, giveRand: 100, want: 100 * time.Nanosecond},
		{msg: "shift overflow", giveAttempt: 64, giveRand: 100, want: 100 * time.Nanosecond},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			strategy, err := NewExponential(
				BaseJump(time.Nanosecond),
				MaxBackoff(100*time.Nanosecond),
				randSource(fixedSource(tt.giveRand)),
			)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strategy.Backoff().Duration(tt.giveAttempt))
		})
	}
}

func TestExponentialMin(t *testing.T) {
	strategy, err := NewExponential(
		BaseJump(time.Millisecond),
		MinBackoff(5*time.Millisecond),
		MaxBackoff(10*time.Millisecond),
		randSource(fixedSource(0)),
	)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, strategy.Duration(3))
}

func TestNone(t *testing.T) {
	for i := uint(0); i < 5; i++ {
		assert.Zero(t, None.Backoff().Duration(i))
	}
}
