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

package etcddiscovery

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/goleak"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/routeerrors"
)

type fakeKV struct {
	clientv3.KV

	mu      sync.Mutex
	values  map[string]string
	options map[string]int
	putErr  error
	deleted []string
}

func newFakeKV() *fakeKV {
	return &fakeKV{
		values:  make(map[string]string),
		options: make(map[string]int),
	}
}

func (kv *fakeKV) Put(_ context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.putErr != nil {
		return nil, kv.putErr
	}
	kv.values[key] = val
	kv.options[key] = len(opts)
	return &clientv3.PutResponse{}, nil
}

func (kv *fakeKV) Delete(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.values, key)
	kv.deleted = append(kv.deleted, key)
	return &clientv3.DeleteResponse{}, nil
}

type fakeLease struct {
	clientv3.Lease

	mu      sync.Mutex
	next    clientv3.LeaseID
	ttls    map[clientv3.LeaseID]int64
	alive   map[clientv3.LeaseID]bool
	revoked []clientv3.LeaseID
}

func newFakeLease() *fakeLease {
	return &fakeLease{
		ttls:  make(map[clientv3.LeaseID]int64),
		alive: make(map[clientv3.LeaseID]bool),
	}
}

func (l *fakeLease) Grant(_ context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.ttls[l.next] = ttl
	return &clientv3.LeaseGrantResponse{ID: l.next, TTL: ttl}, nil
}

func (l *fakeLease) KeepAlive(ctx context.Context, id clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error) {
	ch := make(chan *clientv3.LeaseKeepAliveResponse)
	l.mu.Lock()
	l.alive[id] = true
	l.mu.Unlock()
	go func() {
		defer func() {
			l.mu.Lock()
			l.alive[id] = false
			l.mu.Unlock()
			close(ch)
		}()
		select {
		case ch <- &clientv3.LeaseKeepAliveResponse{ID: id}:
		case <-ctx.Done():
			return
		}
		<-ctx.Done()
	}()
	return ch, nil
}

func (l *fakeLease) Revoke(_ context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked = append(l.revoked, id)
	return &clientv3.LeaseRevokeResponse{}, nil
}

func (l *fakeLease) isAlive(id clientv3.LeaseID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alive[id]
}

func TestRegisterDeregister(t *testing.T) {
	defer goleak.VerifyNone(t)

	kv, lease := newFakeKV(), newFakeLease()
	r := newRegistry(kv, lease)
	ctx := context.Background()

	shard := testShard("b-1", cluster.Connected)
	require.NoError(t, r.Register(ctx, "billing", shard, 500*time.Millisecond))

	key := Key("billing", "b-1")
	var got cluster.Shard
	require.NoError(t, json.Unmarshal([]byte(kv.values[key]), &got))
	assert.Equal(t, shard, got)
	assert.Equal(t, int64(1), lease.ttls[1], "ttls round up to one second")
	assert.Equal(t, 1, kv.options[key], "keys are put with their lease")

	require.NoError(t, r.Register(ctx, "billing", shard, 10*time.Second))
	assert.Equal(t, int64(10), lease.ttls[2])
	assert.Equal(t, []clientv3.LeaseID{1}, lease.revoked, "registering again replaces the lease")
	assert.False(t, lease.isAlive(1))

	require.NoError(t, r.Deregister(ctx, "billing", "b-1"))
	assert.Equal(t, []string{key}, kv.deleted)
	assert.Equal(t, []clientv3.LeaseID{1, 2}, lease.revoked)
	assert.False(t, lease.isAlive(2))
}

func TestRegisterErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	kv, lease := newFakeKV(), newFakeLease()
	r := newRegistry(kv, lease)
	ctx := context.Background()

	err := r.Register(ctx, "billing", cluster.Shard{Name: "b-1"}, time.Second)
	require.Error(t, err)
	assert.True(t, routeerrors.IsInvalidArgument(err))

	kv.putErr = errors.New("etcdserver: no leader")
	err = r.Register(ctx, "billing", testShard("b-1", cluster.Connected), time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no leader")
	assert.Equal(t, []clientv3.LeaseID{1}, lease.revoked, "the lease of a failed registration is revoked")
}

func TestRegistryClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	kv, lease := newFakeKV(), newFakeLease()
	r := newRegistry(kv, lease)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "billing", testShard("b-1", cluster.Connected), time.Second))
	require.NoError(t, r.Register(ctx, "billing", testShard("b-2", cluster.Connected), time.Second))
	require.NoError(t, r.Close(ctx))

	assert.ElementsMatch(t, []clientv3.LeaseID{1, 2}, lease.revoked)
	assert.False(t, lease.isAlive(1))
	assert.False(t, lease.isAlive(2))
}
