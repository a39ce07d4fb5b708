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

// Package meshroutefx provides the routing stack to fx applications.
//
// Applications supply a cluster.Invoker, their transport, and optionally
// the YAML configuration as a Source:
//
//	fx.New(
//		meshroutefx.Module,
//		fx.Provide(newTransport),
//		fx.Provide(func() meshroutefx.Source { return yamlText }),
//		fx.Invoke(func(c *meshroutefx.Client) { ... }),
//	)
package meshroutefx

import (
	"context"

	"github.com/uber-go/tally"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/fx"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/transport"
	"go.uber.org/meshroute/discovery/etcddiscovery"
	"go.uber.org/meshroute/failover"
	"go.uber.org/meshroute/loadbalance"
	"go.uber.org/meshroute/policy"
	"go.uber.org/meshroute/selector"
	"go.uber.org/meshroute/topology"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Module provides a Client and the stores backing it.
var Module = fx.Options(
	fx.Provide(NewConfig),
	fx.Provide(NewPolicies),
	fx.Provide(NewSelectors),
	fx.Provide(NewLoadBalance),
	fx.Provide(NewRouter),
	fx.Provide(NewDiscovery),
	fx.Provide(NewClient),
)

// Source is the YAML text of the routing configuration.
type Source []byte

// ConfigParams defines the dependencies of NewConfig.
type ConfigParams struct {
	fx.In

	Source Source `optional:"true"`
}

// ConfigResult defines the values produced by NewConfig.
type ConfigResult struct {
	fx.Out

	Config Config
}

// NewConfig decodes the routing configuration.
func NewConfig(p ConfigParams) (ConfigResult, error) {
	if len(p.Source) == 0 {
		return ConfigResult{}, nil
	}
	cfg, err := ParseConfig(p.Source)
	if err != nil {
		return ConfigResult{}, err
	}
	return ConfigResult{Config: cfg}, nil
}

// PoliciesParams defines the dependencies of NewPolicies.
type PoliciesParams struct {
	fx.In

	Config Config
	Logger *zap.Logger `optional:"true"`
}

// NewPolicies produces the failover policy store, loaded with the
// configured policies.
func NewPolicies(p PoliciesParams) (*policy.Store, error) {
	store := policy.NewStore(policy.Logger(loggerOrNop(p.Logger)))
	provider, err := p.Config.Failover.Provider()
	if err != nil {
		return nil, err
	}
	store.Swap(provider)
	return store, nil
}

// SelectorsParams defines the dependencies of NewSelectors.
type SelectorsParams struct {
	fx.In

	Config Config
	Logger *zap.Logger `optional:"true"`
}

// NewSelectors produces the method selector store. Malformed rules fail
// startup.
func NewSelectors(p SelectorsParams) (*selector.Store, error) {
	store := selector.NewStore(selector.Logger(loggerOrNop(p.Logger)))
	for service, text := range p.Config.Selectors {
		sel, err := selector.Compile(text)
		if err != nil {
			return nil, err
		}
		store.Set(service, sel)
	}
	return store, nil
}

// LoadBalanceParams defines the dependencies of NewLoadBalance.
type LoadBalanceParams struct {
	fx.In

	Config   Config
	Registry *loadbalance.Registry `optional:"true"`
	Logger   *zap.Logger           `optional:"true"`
}

// NewLoadBalance builds the configured load balance, one instance per
// called service. Applications provide a Registry to make their own load
// balances available.
func NewLoadBalance(p LoadBalanceParams) (cluster.LoadBalance, error) {
	logger := loggerOrNop(p.Logger)
	registry := p.Registry
	if registry == nil {
		registry = loadbalance.NewRegistry(loadbalance.RegistryLogger(logger))
	}
	cfg, region := p.Config.LoadBalance, p.Config.region()
	if _, err := registry.BuildConfig(cfg, region); err != nil {
		return nil, err
	}
	return loadbalance.PerService(func(service string) cluster.LoadBalance {
		lb, err := registry.BuildConfig(cfg, region)
		if err != nil {
			logger.Error("failed to build load balance, falling back to weighted random",
				zap.String("service", service),
				zap.Error(err))
			return loadbalance.NewRandomWeight()
		}
		return lb
	}), nil
}

// RouterParams defines the dependencies of NewRouter.
type RouterParams struct {
	fx.In

	LoadBalance cluster.LoadBalance
	Invoker     cluster.Invoker
	Policies    *policy.Store
	Selectors   *selector.Store
	Logger      *zap.Logger `optional:"true"`
	Scope       tally.Scope `optional:"true"`
}

// NewRouter produces the failover router.
func NewRouter(p RouterParams) *failover.Router {
	opts := []failover.Option{
		failover.WithPolicyProvider(p.Policies),
		failover.WithNodeSelector(p.Selectors),
		failover.WithLogger(loggerOrNop(p.Logger)),
	}
	if p.Scope != nil {
		opts = append(opts, failover.WithTally(p.Scope.SubScope("meshroute")))
	}
	return failover.NewRouter(p.LoadBalance, p.Invoker, opts...)
}

// DiscoveryParams defines the dependencies of NewDiscovery.
type DiscoveryParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Binder    topology.Binder `optional:"true"`
	Logger    *zap.Logger     `optional:"true"`
}

// DiscoveryResult defines the values produced by NewDiscovery.
type DiscoveryResult struct {
	fx.Out

	Services *Services

	// Registry is nil unless etcd is configured.
	Registry *etcddiscovery.Registry
}

// NewDiscovery produces the topologies of called services, following etcd
// when it is configured.
func NewDiscovery(p DiscoveryParams) (DiscoveryResult, error) {
	logger := loggerOrNop(p.Logger)
	opts := []topology.Option{
		topology.Region(p.Config.region()),
		topology.Size(p.Config.Size),
	}
	if p.Binder != nil {
		opts = append(opts, topology.WithBinder(p.Binder))
	}

	var (
		client   *clientv3.Client
		registry *etcddiscovery.Registry
		watcher  shardWatcher
	)
	if p.Config.Etcd != nil {
		var err error
		client, err = etcddiscovery.NewClient(*p.Config.Etcd, logger)
		if err != nil {
			return DiscoveryResult{}, err
		}
		registry = etcddiscovery.NewRegistry(client, etcddiscovery.Logger(logger))
		watcher = etcddiscovery.NewWatcher(client, etcddiscovery.Logger(logger))
	}

	services := newServices(watcher, logger, opts...)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			err := services.Stop()
			if registry != nil {
				err = multierr.Append(err, registry.Close(ctx))
			}
			if client != nil {
				err = multierr.Append(err, client.Close())
			}
			return err
		},
	})
	return DiscoveryResult{Services: services, Registry: registry}, nil
}

// ClientParams defines the dependencies of NewClient.
type ClientParams struct {
	fx.In

	Router   *failover.Router
	Services *Services
}

// NewClient produces a Client.
func NewClient(p ClientParams) *Client {
	return &Client{router: p.Router, services: p.Services}
}

// Client routes calls to the current nodes of their service.
type Client struct {
	router   *failover.Router
	services *Services
}

// Call routes a request and waits for its response. The first call to a
// service discovered through etcd waits, within ctx, for its shards to be
// read.
func (c *Client) Call(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if err := transport.ValidateRequest(req); err != nil {
		return nil, err
	}
	t, err := c.services.Await(ctx, req.Service)
	if err != nil {
		return nil, err
	}
	return c.router.Route(ctx, req, t.Candidate())
}

// CallAsync routes a request on a new goroutine.
func (c *Client) CallAsync(ctx context.Context, req *transport.Request) *transport.Future {
	return transport.Go(func() (*transport.Response, error) {
		return c.Call(ctx, req)
	})
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
