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

	"github.com/jonboulle/clockwork"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/meshroute/api/backoff"
	"go.uber.org/meshroute/topology"
	"go.uber.org/zap"
)

// Watcher follows the shards of services registered in etcd.
type Watcher struct {
	kv      clientv3.KV
	watcher clientv3.Watcher
	logger  *zap.Logger
	clock   clockwork.Clock
	backoff backoff.Strategy
}

// NewWatcher builds a Watcher on an etcd client.
func NewWatcher(client *clientv3.Client, opts ...Option) *Watcher {
	return newWatcher(client.KV, client.Watcher, opts...)
}

func newWatcher(kv clientv3.KV, watcher clientv3.Watcher, opts ...Option) *Watcher {
	o := newOptions(opts)
	return &Watcher{
		kv:      kv,
		watcher: watcher,
		logger:  o.logger,
		clock:   o.clock,
		backoff: o.backoff,
	}
}

// Watch delivers the shards of a service to apply until ctx ends: first a
// full update, then one incremental update per change. When the watch is
// interrupted, a new full update is delivered and watching resumes.
//
// Failed reads of the current shards are retried with backoff. Malformed
// keys and errors returned by apply are logged, never fatal. Watch blocks
// and returns the error of the context.
func (w *Watcher) Watch(ctx context.Context, service string, apply func(topology.Update) error) error {
	prefix := Prefix(service)
	logger := w.logger.With(zap.String("service", service))
	boff := w.backoff.Backoff()

	var failures uint
	for {
		revision, err := w.list(ctx, prefix, logger, apply)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d := boff.Duration(failures)
			failures++
			logger.Warn("failed to read shards",
				zap.Uint("failures", failures),
				zap.Duration("backoff", d),
				zap.Error(err))
			select {
			case <-w.clock.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		failures = 0

		w.follow(ctx, prefix, revision, logger, apply)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Info("resynchronizing shards", zap.Int64("revision", revision))
	}
}

// list applies the current shards as a full update and returns the revision
// they were read at.
func (w *Watcher) list(ctx context.Context, prefix string, logger *zap.Logger, apply func(topology.Update) error) (int64, error) {
	resp, err := w.kv.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return 0, err
	}
	revision := resp.Header.Revision
	u, err := fullUpdate(prefix, revision, resp.Kvs)
	if err != nil {
		logger.Warn("skipping malformed shards", zap.Error(err))
	}
	w.apply(logger, apply, u)
	return revision, nil
}

// follow applies changes made after revision until the watch ends. The
// watch is canceled on return.
func (w *Watcher) follow(ctx context.Context, prefix string, revision int64, logger *zap.Logger, apply func(topology.Update) error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wch := w.watcher.Watch(ctx, prefix, clientv3.WithPrefix(), clientv3.WithRev(revision+1))
	for wresp := range wch {
		if err := wresp.Err(); err != nil {
			logger.Warn("watch interrupted", zap.Error(err))
			return
		}
		if len(wresp.Events) == 0 {
			continue
		}
		u, err := updateFromEvents(prefix, wresp.Header.Revision, wresp.Events)
		if err != nil {
			logger.Warn("skipping malformed shards", zap.Error(err))
		}
		w.apply(logger, apply, u)
	}
}

func (w *Watcher) apply(logger *zap.Logger, apply func(topology.Update) error, u topology.Update) {
	if err := apply(u); err != nil {
		logger.Warn("failed to apply topology update",
			zap.Int64("version", u.Version),
			zap.Error(err))
	}
}
