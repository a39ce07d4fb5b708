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
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/meshroute/api/transport"
	"go.uber.org/zap"
)

// Provider returns the FailoverPolicy of a call. A nil policy means the
// call is never retried.
type Provider interface {
	Policy(ctx context.Context, req *transport.Request) *FailoverPolicy
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func(ctx context.Context, req *transport.Request) *FailoverPolicy

// Policy calls f.
func (f ProviderFunc) Policy(ctx context.Context, req *transport.Request) *FailoverPolicy {
	return f(ctx, req)
}

// Fixed returns a Provider handing out the same policy to every call.
func Fixed(p *FailoverPolicy) Provider {
	return ProviderFunc(func(context.Context, *transport.Request) *FailoverPolicy { return p })
}

type serviceMethod struct {
	Service string
	Method  string
}

// ProcedureProvider is a Provider that keeps a registry of policies with
// ordered precedence:
//
//  1. Policies applied to a specific service and method.
//  2. Policies applied to a specific service.
//  3. A default policy applied when nothing else matches.
//
// Registration is not safe for concurrent use: build a provider, then
// publish it through a Store.
type ProcedureProvider struct {
	policies      map[serviceMethod]*FailoverPolicy
	defaultPolicy *FailoverPolicy
}

// NewProcedureProvider creates an empty ProcedureProvider.
func NewProcedureProvider() *ProcedureProvider {
	return &ProcedureProvider{
		policies: make(map[serviceMethod]*FailoverPolicy),
	}
}

// RegisterServiceMethod sets the policy for calls to the given method of a
// service.
func (p *ProcedureProvider) RegisterServiceMethod(service, method string, pol *FailoverPolicy) {
	p.policies[serviceMethod{Service: service, Method: method}] = pol
}

// RegisterService sets the policy for calls to a service.
func (p *ProcedureProvider) RegisterService(service string, pol *FailoverPolicy) {
	p.policies[serviceMethod{Service: service}] = pol
}

// SetDefault sets the policy used when no other one matches.
func (p *ProcedureProvider) SetDefault(pol *FailoverPolicy) {
	p.defaultPolicy = pol
}

// Policy implements Provider.
func (p *ProcedureProvider) Policy(_ context.Context, req *transport.Request) *FailoverPolicy {
	if pol, ok := p.policies[serviceMethod{Service: req.Service, Method: req.Procedure}]; ok {
		return pol
	}
	if pol, ok := p.policies[serviceMethod{Service: req.Service}]; ok {
		return pol
	}
	return p.defaultPolicy
}

func (p *ProcedureProvider) clone() *ProcedureProvider {
	out := &ProcedureProvider{
		policies:      make(map[serviceMethod]*FailoverPolicy, len(p.policies)+1),
		defaultPolicy: p.defaultPolicy,
	}
	for k, v := range p.policies {
		out.policies[k] = v
	}
	return out
}

// StoreOption customizes a Store.
type StoreOption interface {
	apply(*Store)
}

type storeOptionFunc func(*Store)

func (f storeOptionFunc) apply(s *Store) { f(s) }

// Logger sets the logger configuration updates are reported to.
func Logger(logger *zap.Logger) StoreOption {
	return storeOptionFunc(func(s *Store) {
		s.logger = logger
	})
}

// Store publishes the current ProcedureProvider. Updates build a new
// provider and swap it in; calls in flight keep the policy they started
// with.
type Store struct {
	logger *zap.Logger

	mu       sync.Mutex // serializes writers
	provider atomic.Value
}

var _ Provider = (*Store)(nil)

// NewStore builds a Store without any policy.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt.apply(s)
	}
	s.provider.Store(NewProcedureProvider())
	return s
}

// Policy implements Provider.
func (s *Store) Policy(ctx context.Context, req *transport.Request) *FailoverPolicy {
	return s.load().Policy(ctx, req)
}

// Swap publishes a provider.
func (s *Store) Swap(p *ProcedureProvider) {
	if p == nil {
		p = NewProcedureProvider()
	}
	s.mu.Lock()
	s.provider.Store(p)
	s.mu.Unlock()
}

// UpdateYAML replaces every policy with the ones described by the YAML
// text. The current policies stay in place when the text is invalid.
func (s *Store) UpdateYAML(text []byte) error {
	p, err := LoadYAML(text)
	if err != nil {
		s.logger.Warn("rejected failover configuration", zap.Error(err))
		return err
	}
	s.Swap(p)
	s.logger.Info("updated failover configuration")
	return nil
}

// UpdateService replaces the policy of one service with the one described
// by key/value configuration. An empty map removes it. The current policy
// stays in place when the configuration is invalid.
func (s *Store) UpdateService(service string, kv map[string]string) error {
	var pol *FailoverPolicy
	if len(kv) > 0 {
		spec, err := ParseSpec(kv)
		if err == nil {
			pol, err = spec.Policy()
		}
		if err != nil {
			s.logger.Warn("rejected failover policy",
				zap.String("service", service),
				zap.Error(err))
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.load().clone()
	if pol == nil {
		delete(next.policies, serviceMethod{Service: service})
	} else {
		next.policies[serviceMethod{Service: service}] = pol
	}
	s.provider.Store(next)
	s.logger.Info("updated failover policy",
		zap.String("service", service),
		zap.Int("maxRetry", pol.MaxRetry()))
	return nil
}

func (s *Store) load() *ProcedureProvider {
	return s.provider.Load().(*ProcedureProvider)
}
