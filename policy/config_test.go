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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/meshroute/api/transport"
	"go.uber.org/meshroute/routeerrors"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		desc    string
		give    map[string]string
		want    Spec
		wantErr string
	}{
		{
			desc: "empty",
			give: map[string]string{},
		},
		{
			desc: "everything",
			give: map[string]string{
				"maxRetry":        "2",
				"onlyOncePerNode": "false",
				"timeout":         "250ms",
				"retryOn":         "[unavailable, internal]",
				"retryOnNames":    "stock, quota",
				"backoff":         "{base: 10ms, max: 1s}",
				"retryBudget":     "2.5",
			},
			want: Spec{
				MaxRetry:        2,
				OnlyOncePerNode: boolPtr(false),
				Timeout:         250 * time.Millisecond,
				RetryOn:         StringList{"unavailable", "internal"},
				RetryOnNames:    StringList{"stock", "quota"},
				Backoff:         BackoffSpec{Base: 10 * time.Millisecond, Max: time.Second},
				RetryBudget:     2.5,
			},
		},
		{
			desc:    "unknown key",
			give:    map[string]string{"maxRetries": "2"},
			wantErr: "maxRetries",
		},
		{
			desc:    "wrong type",
			give:    map[string]string{"maxRetry": "many"},
			wantErr: "maxRetry",
		},
		{
			desc:    "malformed value",
			give:    map[string]string{"retryOn": "[unavailable"},
			wantErr: `for key "retryOn"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := ParseSpec(tt.give)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, routeerrors.IsInvalidArgument(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func boolPtr(b bool) *bool { return &b }

func TestSpecPolicy(t *testing.T) {
	spec, err := ParseSpec(map[string]string{
		"maxRetry":        "2",
		"onlyOncePerNode": "false",
		"timeout":         "250ms",
		"retryOn":         "internal",
		"retryOnNames":    "stock",
		"backoff":         "{min: 1ms, max: 1ms}",
		"retryBudget":     "0.5",
	})
	require.NoError(t, err)

	p, err := spec.Policy()
	require.NoError(t, err)
	assert.Equal(t, 2, p.MaxRetry())
	assert.False(t, p.OnlyOncePerNode())
	assert.True(t, p.Exception().Retryable(routeerrors.Newf(routeerrors.CodeInternal, "boom")))
	assert.True(t, p.Exception().Retryable(routeerrors.Newf(routeerrors.CodeUnknown, "x").WithName("stock")))
	assert.False(t, p.Exception().Retryable(routeerrors.Newf(routeerrors.CodeNotFound, "x")))
	assert.Equal(t, time.Millisecond, p.Backoff().Duration(4))

	req := &transport.Request{}
	assert.Equal(t, 250*time.Millisecond, p.Timeout().Reset(context.Background(), req))

	assert.True(t, p.AllowRetry(), "a budget below one still allows a burst of one")
	assert.False(t, p.AllowRetry())
}

func TestSpecPolicyErrors(t *testing.T) {
	_, err := Spec{
		MaxRetry:    -1,
		Timeout:     -time.Second,
		RetryOn:     StringList{"sadness"},
		Backoff:     BackoffSpec{Min: time.Second, Max: time.Millisecond},
		RetryBudget: -1,
	}.Policy()
	require.Error(t, err)
	assert.True(t, routeerrors.IsInvalidArgument(err))
	for _, want := range []string{
		"maxRetry must not be negative",
		"timeout must not be negative",
		"unknown code string: sadness",
		"exponential max value must be greater than min value",
		"retryBudget must not be negative",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

const _yamlConfig = `
policies:
  fast:
    maxRetry: 1
    timeout: 100ms
  patient:
    maxRetry: 3
    retryOn: [internal]
    backoff:
      base: 50ms
      max: 1s
default: fast
overrides:
  - service: billing
    with: patient
  - service: billing
    method: charge
    with: fast
`

func TestLoadYAML(t *testing.T) {
	provider, err := LoadYAML([]byte(_yamlConfig))
	require.NoError(t, err)

	ctx := context.Background()
	assert.Equal(t, 3, provider.Policy(ctx, &transport.Request{Service: "billing", Procedure: "refund"}).MaxRetry())
	assert.Equal(t, 1, provider.Policy(ctx, &transport.Request{Service: "billing", Procedure: "charge"}).MaxRetry())
	assert.Equal(t, 1, provider.Policy(ctx, &transport.Request{Service: "users", Procedure: "get"}).MaxRetry())
}

func TestLoadYAMLErrors(t *testing.T) {
	tests := []struct {
		desc    string
		give    string
		wantErr []string
	}{
		{
			desc:    "not yaml",
			give:    "policies: [",
			wantErr: []string{"failed to parse failover configuration"},
		},
		{
			desc:    "unknown field",
			give:    "retries: 3",
			wantErr: []string{"failed to decode failover configuration"},
		},
		{
			desc: "bad references",
			give: `
policies:
  fast: {maxRetry: 1}
  broken: {maxRetry: -1}
default: slow
overrides:
  - service: billing
    with: nope
  - method: charge
    with: fast
`,
			wantErr: []string{
				`policy "broken"`,
				`invalid default failover policy: "slow", possibilities are: [fast]`,
				`invalid failover policy: "nope"`,
				`did not specify a service for failover policy override: "fast"`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := LoadYAML([]byte(tt.give))
			require.Error(t, err)
			assert.True(t, routeerrors.IsInvalidArgument(err))
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
