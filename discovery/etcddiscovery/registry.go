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
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/meshroute/api/backoff"
	"go.uber.org/meshroute/api/cluster"
	ibackoff "go.uber.org/meshroute/internal/backoff"
	"go.uber.org/meshroute/routeerrors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Config configures the etcd client.
//
//	endpoints: [etcd-0:2379, etcd-1:2379]
//	dialTimeout: 5s
type Config struct {
	Endpoints   []string      `config:"endpoints"`
	DialTimeout time.Duration `config:"dialTimeout"`
}

// NewClient connects to etcd.
func NewClient(cfg Config, logger *zap.Logger) (*clientv3.Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, routeerrors.InvalidArgumentErrorf("no etcd endpoints configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Logger:      logger.Named("etcd"),
	})
}

// Option customizes a Registry or a Watcher.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(opts *options) { f(opts) }

type options struct {
	logger  *zap.Logger
	clock   clockwork.Clock
	backoff backoff.Strategy
}

// Logger sets the logger registrations and watches are reported to.
func Logger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
	})
}

// Clock sets the clock a Watcher waits on before reading shards again.
func Clock(clock clockwork.Clock) Option {
	return optionFunc(func(opts *options) {
		opts.clock = clock
	})
}

// RetryBackoff sets how long a Watcher waits after each failed read of the
// shards of a service.
func RetryBackoff(strategy backoff.Strategy) Option {
	return optionFunc(func(opts *options) {
		opts.backoff = strategy
	})
}

func newOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.backoff == nil {
		o.backoff = defaultRetryBackoff()
	}
	return o
}

const (
	_retryBase = 100 * time.Millisecond
	_retryMax  = 10 * time.Second
)

func defaultRetryBackoff() backoff.Strategy {
	strategy, err := ibackoff.NewExponential(ibackoff.BaseJump(_retryBase), ibackoff.MaxBackoff(_retryMax))
	if err != nil {
		panic(err)
	}
	return strategy
}

type registration struct {
	lease  clientv3.LeaseID
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry publishes the shards served by this process.
type Registry struct {
	kv     clientv3.KV
	lease  clientv3.Lease
	logger *zap.Logger

	mu            sync.Mutex
	registrations map[string]*registration // by key
}

// NewRegistry builds a Registry on an etcd client.
func NewRegistry(client *clientv3.Client, opts ...Option) *Registry {
	return newRegistry(client.KV, client.Lease, opts...)
}

func newRegistry(kv clientv3.KV, lease clientv3.Lease, opts ...Option) *Registry {
	o := newOptions(opts)
	return &Registry{
		kv:            kv,
		lease:         lease,
		logger:        o.logger,
		registrations: make(map[string]*registration),
	}
}

// Register publishes a shard of a service under a lease of the given TTL,
// and keeps the lease alive until Deregister or Close. Registering the same
// shard again replaces the previous registration.
func (r *Registry) Register(ctx context.Context, service string, shard cluster.Shard, ttl time.Duration) error {
	if err := shard.Validate(); err != nil {
		return routeerrors.InvalidArgumentErrorf("invalid shard: %v", err)
	}
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	value, err := json.Marshal(shard)
	if err != nil {
		return err
	}

	key := Key(service, shard.Name)
	grant, err := r.lease.Grant(ctx, seconds)
	if err != nil {
		return err
	}
	if _, err := r.kv.Put(ctx, key, string(value), clientv3.WithLease(grant.ID)); err != nil {
		return multierr.Append(err, r.revoke(ctx, grant.ID))
	}

	keepCtx, cancel := context.WithCancel(context.Background())
	ch, err := r.lease.KeepAlive(keepCtx, grant.ID)
	if err != nil {
		cancel()
		return multierr.Append(err, r.revoke(ctx, grant.ID))
	}
	reg := &registration{lease: grant.ID, cancel: cancel, done: make(chan struct{})}
	go r.drain(key, reg, ch)

	r.mu.Lock()
	previous := r.registrations[key]
	r.registrations[key] = reg
	r.mu.Unlock()
	if previous != nil {
		previous.stop()
		if err := r.revoke(ctx, previous.lease); err != nil {
			r.logger.Warn("failed to revoke replaced lease", zap.String("key", key), zap.Error(err))
		}
	}

	r.logger.Info("registered shard",
		zap.String("key", key),
		zap.Int64("lease", int64(grant.ID)),
		zap.Int64("ttlSeconds", seconds))
	return nil
}

// drain consumes keep-alive responses until the keep-alive stops.
func (r *Registry) drain(key string, reg *registration, ch <-chan *clientv3.LeaseKeepAliveResponse) {
	defer close(reg.done)
	for range ch {
	}
	r.logger.Debug("lease keep-alive stopped", zap.String("key", key))
}

func (reg *registration) stop() {
	reg.cancel()
	<-reg.done
}

// Deregister removes a shard of a service and revokes its lease.
func (r *Registry) Deregister(ctx context.Context, service, name string) error {
	key := Key(service, name)
	r.mu.Lock()
	reg := r.registrations[key]
	delete(r.registrations, key)
	r.mu.Unlock()

	var errs error
	if reg != nil {
		reg.stop()
	}
	if _, err := r.kv.Delete(ctx, key); err != nil {
		errs = multierr.Append(errs, err)
	}
	if reg != nil {
		errs = multierr.Append(errs, r.revoke(ctx, reg.lease))
	}
	r.logger.Info("deregistered shard", zap.String("key", key), zap.Error(errs))
	return errs
}

// Close stops every keep-alive and revokes every lease of the registry.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	regs := r.registrations
	r.registrations = make(map[string]*registration)
	r.mu.Unlock()

	var errs error
	for _, reg := range regs {
		reg.stop()
		errs = multierr.Append(errs, r.revoke(ctx, reg.lease))
	}
	return errs
}

func (r *Registry) revoke(ctx context.Context, id clientv3.LeaseID) error {
	_, err := r.lease.Revoke(ctx, id)
	return err
}
