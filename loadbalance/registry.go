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
	"fmt"
	"sort"
	"sync"

	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/routeerrors"
	"go.uber.org/zap"
)

// Names of the load balances every Registry knows about.
const (
	RandomWeightName = "randomWeight"
	RoundRobinName   = "roundRobin"
	StickyName       = "sticky"
	LocalName        = "local"
)

// Params are handed to a Spec when building a load balance.
type Params struct {
	// Region of the caller.
	Region cluster.Region

	// Inner is the load balance decorators wrap. Decorators fall back to
	// weighted random when it is nil.
	Inner cluster.LoadBalance

	Logger *zap.Logger
}

// Spec teaches a Registry how to build a load balance of some kind.
type Spec struct {
	// Name of the load balance in configuration.
	Name string

	// Build constructs the load balance.
	Build func(Params) (cluster.LoadBalance, error)
}

// Config names a load balance and, for decorators, the one it wraps.
//
//	loadBalance:
//	  name: sticky
//	  inner: roundRobin
type Config struct {
	Name  string `config:"name"`
	Inner string `config:"inner"`
}

// Registry maps load balance names to their Spec. Applications resolve the
// names they need once at startup and hold on to the resulting
// cluster.LoadBalance.
type Registry struct {
	mu     sync.RWMutex
	specs  map[string]Spec
	logger *zap.Logger
}

// RegistryOption customizes a Registry.
type RegistryOption interface {
	apply(*Registry)
}

type registryOptionFunc func(*Registry)

func (f registryOptionFunc) apply(r *Registry) { f(r) }

// RegistryLogger sets the logger of the registry and of the load balances
// it builds.
func RegistryLogger(logger *zap.Logger) RegistryOption {
	return registryOptionFunc(func(r *Registry) {
		r.logger = logger
	})
}

// NewRegistry returns a Registry that knows about the built-in load
// balances.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		specs:  make(map[string]Spec),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt.apply(r)
	}

	r.MustRegister(Spec{
		Name: RandomWeightName,
		Build: func(Params) (cluster.LoadBalance, error) {
			return NewRandomWeight(), nil
		},
	})
	r.MustRegister(Spec{
		Name: RoundRobinName,
		Build: func(Params) (cluster.LoadBalance, error) {
			return NewRoundRobin(), nil
		},
	})
	r.MustRegister(Spec{
		Name: StickyName,
		Build: func(p Params) (cluster.LoadBalance, error) {
			return NewSticky(innerOrDefault(p)), nil
		},
	})
	r.MustRegister(Spec{
		Name: LocalName,
		Build: func(p Params) (cluster.LoadBalance, error) {
			return Local(innerOrDefault(p), p.Region), nil
		},
	})
	return r
}

func innerOrDefault(p Params) cluster.LoadBalance {
	if p.Inner != nil {
		return p.Inner
	}
	return NewRandomWeight()
}

// Register registers a Spec with the Registry, replacing any Spec of the
// same name.
func (r *Registry) Register(s Spec) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Build == nil {
		return fmt.Errorf("invalid Spec for %q: Build is required", s.Name)
	}

	r.mu.Lock()
	r.specs[s.Name] = s
	r.mu.Unlock()
	return nil
}

// MustRegister registers the given Spec, panicking in case of failure.
func (r *Registry) MustRegister(s Spec) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Names returns the sorted names of the known load balances.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs the load balance registered under name.
func (r *Registry) Build(name string, p Params) (cluster.LoadBalance, error) {
	r.mu.RLock()
	s, ok := r.specs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, routeerrors.InvalidArgumentErrorf(
			"unknown load balance %q, known load balances: %v", name, r.Names())
	}

	if p.Logger == nil {
		p.Logger = r.logger
	}
	lb, err := s.Build(p)
	if err != nil {
		return nil, routeerrors.InvalidArgumentErrorf("failed to build load balance %q: %v", name, err)
	}
	r.logger.Debug("built load balance", zap.String("name", name), zap.Stringer("region", p.Region))
	return lb, nil
}

// BuildConfig constructs the load balance described by cfg. The inner load
// balance, if named, is built first and handed to the outer one.
func (r *Registry) BuildConfig(cfg Config, region cluster.Region) (cluster.LoadBalance, error) {
	if cfg.Name == "" {
		cfg.Name = RandomWeightName
	}
	p := Params{Region: region}
	if cfg.Inner != "" {
		inner, err := r.Build(cfg.Inner, Params{Region: region})
		if err != nil {
			return nil, err
		}
		p.Inner = inner
	}
	return r.Build(cfg.Name, p)
}
