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

package loadbalance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/cluster/clustertest"
	"go.uber.org/meshroute/routeerrors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"local", "randomWeight", "roundRobin", "sticky"}, r.Names())

	c := clustertest.NewCandidate(1, 1)
	for _, name := range r.Names() {
		t.Run(name, func(t *testing.T) {
			lb, err := r.Build(name, Params{})
			require.NoError(t, err)
			assert.NotNil(t, lb.Select(c, nil))
		})
	}
}

func TestRegistryUnknown(t *testing.T) {
	_, err := NewRegistry().Build("leastActive", Params{})
	require.Error(t, err)
	assert.True(t, routeerrors.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), `unknown load balance "leastActive"`)
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	assert.EqualError(t, r.Register(Spec{}), "name is required")
	assert.Error(t, r.Register(Spec{Name: "broken"}))
	assert.Panics(t, func() { r.MustRegister(Spec{}) })

	first := NewRoundRobin()
	r.MustRegister(Spec{
		Name:  "first",
		Build: func(Params) (cluster.LoadBalance, error) { return first, nil },
	})
	lb, err := r.Build("first", Params{})
	require.NoError(t, err)
	assert.True(t, lb == cluster.LoadBalance(first))

	r.MustRegister(Spec{
		Name:  "failing",
		Build: func(Params) (cluster.LoadBalance, error) { return nil, errors.New("great sadness") },
	})
	_, err = r.Build("failing", Params{})
	assert.True(t, routeerrors.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "great sadness")
}

func TestRegistryBuildConfig(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRegistry(RegistryLogger(zap.New(core)))

	lb, err := r.BuildConfig(Config{Name: "sticky", Inner: "roundRobin"}, cluster.Region{Region: "huabei"})
	require.NoError(t, err)
	sticky, ok := lb.(*Sticky)
	require.True(t, ok)
	assert.IsType(t, &RoundRobin{}, sticky.inner)

	built := logs.FilterMessage("built load balance").All()
	require.Len(t, built, 2)
	assert.Equal(t, "roundRobin", built[0].ContextMap()["name"])
	assert.Equal(t, "sticky", built[1].ContextMap()["name"])

	lb, err = r.BuildConfig(Config{}, cluster.Region{})
	require.NoError(t, err)
	assert.IsType(t, &RandomWeight{}, lb)

	_, err = r.BuildConfig(Config{Name: "sticky", Inner: "nope"}, cluster.Region{})
	assert.True(t, routeerrors.IsInvalidArgument(err))
}
