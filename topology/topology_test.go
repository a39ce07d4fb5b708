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

package topology

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeChannel struct {
	shard  string
	closed int
	err    error
}

func (c *fakeChannel) Close() error {
	c.closed++
	return c.err
}

type fakeBinder struct {
	mu       sync.Mutex
	channels map[string][]*fakeChannel
	fail     map[string]error
}

func newFakeBinder() *fakeBinder {
	return &fakeBinder{
		channels: make(map[string][]*fakeChannel),
		fail:     make(map[string]error),
	}
}

func (b *fakeBinder) Bind(s cluster.Shard) (cluster.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail[s.Name]; err != nil {
		return nil, err
	}
	ch := &fakeChannel{shard: s.Name}
	b.channels[s.Name] = append(b.channels[s.Name], ch)
	return ch, nil
}

func shard(name string, state cluster.ShardState) cluster.Shard {
	return cluster.Shard{
		Name:    name,
		Region:  "us",
		Address: fmt.Sprintf("%s.internal:8080", name),
		Weight:  100,
		State:   state,
	}
}

func names(nodes []*cluster.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

func TestEmptyTopology(t *testing.T) {
	topo := New("svc")
	assert.Equal(t, 0, topo.Candidate().Len())
	assert.Equal(t, 0, topo.Result().Len())
	assert.Empty(t, topo.Nodes())
}

func TestApplyFull(t *testing.T) {
	binder := newFakeBinder()
	topo := New("svc", WithBinder(binder))

	require.NoError(t, topo.Apply(Update{
		Version: 1,
		Full:    true,
		Shards: []cluster.Shard{
			shard("a", cluster.Connecting),
			shard("b", cluster.Connected),
			shard("c", cluster.Initial),
		},
	}))
	assert.Equal(t, int64(1), topo.Version())
	assert.Equal(t, []string{"a", "b", "c"}, names(topo.Nodes()))
	assert.Equal(t, []string{"b", "a", "c"}, names(topo.Candidate().Nodes()), "healthy nodes rank first")

	before := topo.Candidate()
	require.NoError(t, topo.Apply(Update{
		Version: 2,
		Full:    true,
		Shards: []cluster.Shard{
			shard("b", cluster.Connected),
			shard("d", cluster.Connected),
		},
	}))
	assert.Equal(t, []string{"b", "d"}, names(topo.Candidate().Nodes()))
	assert.Equal(t, 3, before.Len(), "published candidates never change")

	assert.Equal(t, 1, binder.channels["a"][0].closed)
	assert.Equal(t, 1, binder.channels["c"][0].closed)
	assert.Equal(t, 0, binder.channels["b"][0].closed)
	assert.Len(t, binder.channels["b"], 1, "kept shards keep their channel")
}

func TestApplyIgnoresStaleVersions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	topo := New("svc", Logger(zap.New(core)))

	require.NoError(t, topo.Apply(Update{Version: 5, Full: true, Shards: []cluster.Shard{shard("a", cluster.Connected)}}))
	current := topo.Candidate()

	require.NoError(t, topo.Apply(Update{Version: 4, Added: []cluster.Shard{shard("b", cluster.Connected)}}))
	require.NoError(t, topo.Apply(Update{Version: 5, Removed: []string{"a"}}))
	assert.True(t, current == topo.Candidate(), "stale updates do not publish anything")
	assert.Equal(t, int64(5), topo.Version())
	assert.Equal(t, 2, logs.FilterMessage("ignoring stale topology update").Len())
}

func TestApplyIncremental(t *testing.T) {
	binder := newFakeBinder()
	topo := New("svc", WithBinder(binder))

	require.NoError(t, topo.Apply(Update{
		Version: 1,
		Added:   []cluster.Shard{shard("a", cluster.Connecting), shard("b", cluster.Connecting)},
	}))
	a := topo.Nodes()[0]
	a.Metrics().Distribute()

	require.NoError(t, topo.Apply(Update{
		Version: 2,
		Updated: []cluster.Shard{shard("a", cluster.Connected)},
		Added:   []cluster.Shard{shard("c", cluster.Connecting)},
		Removed: []string{"b", "unknown"},
	}))

	nodes := topo.Nodes()
	require.Equal(t, []string{"a", "c"}, names(nodes))
	assert.Equal(t, cluster.Connected, nodes[0].State())
	assert.False(t, nodes[0] == a, "state changes publish a new node")
	assert.True(t, nodes[0].Metrics() == a.Metrics(), "metrics survive state changes")
	assert.True(t, nodes[0].Channel() == a.Channel())
	assert.Equal(t, int64(1), nodes[0].Metrics().Distributed())
	assert.Equal(t, 1, binder.channels["b"][0].closed)
	assert.Equal(t, []string{"a", "c"}, names(topo.Candidate().Nodes()))
}

func TestApplyMovedShard(t *testing.T) {
	binder := newFakeBinder()
	topo := New("svc", WithBinder(binder))
	require.NoError(t, topo.Apply(Update{Version: 1, Added: []cluster.Shard{shard("a", cluster.Connected)}}))

	moved := shard("a", cluster.Connecting)
	moved.Address = "10.1.1.1:9090"
	require.NoError(t, topo.Apply(Update{Version: 2, Updated: []cluster.Shard{moved}}))

	require.Len(t, binder.channels["a"], 2)
	assert.Equal(t, 1, binder.channels["a"][0].closed)
	assert.True(t, topo.Nodes()[0].Channel() == cluster.Channel(binder.channels["a"][1]))
}

func TestApplyErrors(t *testing.T) {
	binder := newFakeBinder()
	binder.fail["bad"] = errors.New("connection refused")
	topo := New("svc", WithBinder(binder))

	require.NoError(t, topo.Apply(Update{Version: 1, Added: []cluster.Shard{shard("a", cluster.Connected)}}))
	binder.channels["a"][0].err = errors.New("already closed")

	invalid := shard("neg", cluster.Connected)
	invalid.Weight = -1
	err := topo.Apply(Update{
		Version: 2,
		Added: []cluster.Shard{
			shard("bad", cluster.Connected),
			invalid,
			shard("ok", cluster.Initial),
		},
		Updated: []cluster.Shard{shard("ok", cluster.Connected)},
		Removed: []string{"a"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to bind shard "bad": connection refused`)
	assert.Contains(t, err.Error(), `shard "neg" has negative weight -1`)
	assert.Contains(t, err.Error(), `cannot move from initial to connected`)
	assert.Contains(t, err.Error(), `failed to close channel of shard "a": already closed`)

	assert.Equal(t, []string{"ok"}, names(topo.Nodes()), "valid parts of the update still apply")
	assert.Equal(t, cluster.Initial, topo.Nodes()[0].State())
	assert.Equal(t, int64(2), topo.Version())
}

func TestTiersFollowRegion(t *testing.T) {
	topo := New("svc", Region(cluster.Region{Region: "eu"}), Size(2))

	far := shard("far", cluster.Connected)
	near := shard("near", cluster.Connected)
	near.Region = "eu"
	require.NoError(t, topo.Apply(Update{Version: 1, Full: true, Shards: []cluster.Shard{far, shard("far2", cluster.Connected), near}}))

	res := topo.Result()
	assert.Equal(t, []string{"near"}, names(res.Candidates))
	assert.Equal(t, []string{"far"}, names(res.Standbys))
	assert.Equal(t, []string{"far2"}, names(res.Backups))
	assert.Equal(t, []string{"near", "far"}, names(topo.Candidate().Nodes()))
}

func TestClose(t *testing.T) {
	binder := newFakeBinder()
	topo := New("svc", WithBinder(binder))
	require.NoError(t, topo.Apply(Update{Version: 1, Added: []cluster.Shard{shard("a", cluster.Connected), shard("b", cluster.Connected)}}))

	require.NoError(t, topo.Close())
	assert.Equal(t, 1, binder.channels["a"][0].closed)
	assert.Equal(t, 1, binder.channels["b"][0].closed)
	assert.Equal(t, 0, topo.Candidate().Len())
}

func TestConcurrentReaders(t *testing.T) {
	topo := New("svc")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, topo.Apply(Update{
				Version: int64(i + 1),
				Added:   []cluster.Shard{shard(fmt.Sprintf("n%d", i), cluster.Connected)},
			}))
		}(i)
		go func() {
			defer wg.Done()
			c := topo.Candidate()
			for _, n := range c.Nodes() {
				assert.NotNil(t, n)
			}
		}()
	}
	wg.Wait()
}
