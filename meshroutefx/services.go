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

package meshroutefx

import (
	"context"
	"sync"

	"go.uber.org/meshroute/routeerrors"
	"go.uber.org/meshroute/topology"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// shardWatcher follows the shards of a service, as etcddiscovery.Watcher
// does.
type shardWatcher interface {
	Watch(ctx context.Context, service string, apply func(topology.Update) error) error
}

type service struct {
	topology *topology.Topology
	ready    chan struct{}
	once     sync.Once
}

func (s *service) apply(u topology.Update) error {
	if err := s.topology.Apply(u); err != nil {
		return err
	}
	s.once.Do(func() { close(s.ready) })
	return nil
}

// Services holds the topology of every service called through a Client.
// Topologies are created on first use and, when etcd discovery is
// configured, follow etcd until Stop.
type Services struct {
	opts    []topology.Option
	watcher shardWatcher
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	services map[string]*service
}

// watcher may be nil, in which case topologies are only changed by their
// users.
func newServices(watcher shardWatcher, logger *zap.Logger, opts ...topology.Option) *Services {
	ctx, cancel := context.WithCancel(context.Background())
	return &Services{
		opts:     append(opts, topology.Logger(logger)),
		watcher:  watcher,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		services: make(map[string]*service),
	}
}

// Topology returns the topology of a service.
func (s *Services) Topology(name string) *topology.Topology {
	return s.get(name).topology
}

// Await returns the topology of a service once its shards have been read
// at least once. Without etcd discovery it returns immediately.
func (s *Services) Await(ctx context.Context, name string) (*topology.Topology, error) {
	svc := s.get(name)
	select {
	case <-svc.ready:
		return svc.topology, nil
	default:
	}
	select {
	case <-svc.ready:
		return svc.topology, nil
	case <-ctx.Done():
		return nil, routeerrors.Newf(routeerrors.CodeDeadlineExceeded,
			"shards of service %q were not read in time: %v", name, ctx.Err())
	}
}

func (s *Services) get(name string) *service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc, ok := s.services[name]; ok {
		return svc
	}

	svc := &service{
		topology: topology.New(name, s.opts...),
		ready:    make(chan struct{}),
	}
	s.services[name] = svc
	if s.watcher == nil || s.ctx.Err() != nil {
		close(svc.ready)
		return svc
	}
	s.wg.Add(1)
	go s.watch(name, svc)
	return svc
}

func (s *Services) watch(name string, svc *service) {
	defer s.wg.Done()
	err := s.watcher.Watch(s.ctx, name, svc.apply)
	if err != nil && s.ctx.Err() == nil {
		s.logger.Error("stopped watching service",
			zap.String("service", name),
			zap.Error(err))
	}
}

// Stop ends every watch and closes the channels of every node.
func (s *Services) Stop() error {
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	var errs error
	for _, svc := range s.services {
		errs = multierr.Append(errs, svc.topology.Close())
	}
	return errs
}
