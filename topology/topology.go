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
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/candidature"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Update is a change of the shards of a service.
type Update struct {
	// Version orders updates. Updates not newer than the last applied one
	// are ignored.
	Version int64

	// Full replaces every shard with Shards. Otherwise Added, Updated and
	// Removed are applied to the current shards.
	Full   bool
	Shards []cluster.Shard

	Added   []cluster.Shard
	Updated []cluster.Shard
	Removed []string
}

// Binder opens the transport channel of a shard joining the topology.
type Binder interface {
	Bind(shard cluster.Shard) (cluster.Channel, error)
}

// BinderFunc adapts a function into a Binder.
type BinderFunc func(shard cluster.Shard) (cluster.Channel, error)

// Bind calls f(shard).
func (f BinderFunc) Bind(shard cluster.Shard) (cluster.Channel, error) { return f(shard) }

// Option customizes a Topology.
type Option interface {
	apply(*Topology)
}

type optionFunc func(*Topology)

func (f optionFunc) apply(t *Topology) { f(t) }

// WithBinder sets how channels of new shards are opened. Without a binder,
// nodes have no channel.
func WithBinder(b Binder) Option {
	return optionFunc(func(t *Topology) {
		t.binder = b
	})
}

// Region sets the region of the caller, which candidates are built for.
func Region(r cluster.Region) Option {
	return optionFunc(func(t *Topology) {
		t.region = r
	})
}

// Size sets the number of candidates to build. Zero or less makes every
// node a candidate.
func Size(n int) Option {
	return optionFunc(func(t *Topology) {
		t.size = n
	})
}

// Logger sets the logger topology changes are reported to.
func Logger(logger *zap.Logger) Option {
	return optionFunc(func(t *Topology) {
		t.logger = logger
	})
}

// Topology owns the nodes of one service.
type Topology struct {
	service string
	binder  Binder
	region  cluster.Region
	size    int
	logger  *zap.Logger

	mu      sync.Mutex // guards everything below except the published fields
	applied bool
	nodes   map[string]*cluster.Node
	order   []string

	version atomic.Int64
	result  atomic.Value // candidature.Result
	holder  cluster.CandidateHolder
}

// New builds an empty topology for a service.
func New(service string, opts ...Option) *Topology {
	t := &Topology{
		service: service,
		logger:  zap.NewNop(),
		nodes:   make(map[string]*cluster.Node),
	}
	for _, opt := range opts {
		opt.apply(t)
	}
	t.logger = t.logger.With(zap.String("service", service))
	t.result.Store(candidature.Result{})
	return t
}

// Candidate returns the current candidate of the service.
func (t *Topology) Candidate() *cluster.Candidate {
	return t.holder.Load()
}

// Result returns the current tiers of the service.
func (t *Topology) Result() candidature.Result {
	return t.result.Load().(candidature.Result)
}

// Version returns the version of the last applied update.
func (t *Topology) Version() int64 {
	return t.version.Load()
}

// Nodes returns every node of the service, in the order discovery reported
// them.
func (t *Topology) Nodes() []*cluster.Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.list()
}

// Apply applies an update. Invalid shards, forbidden state changes and
// channels that fail to open or close are reported as errors; the rest of
// the update is applied regardless.
func (t *Topology) Apply(u Update) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.applied && u.Version <= t.version.Load() {
		t.logger.Debug("ignoring stale topology update",
			zap.Int64("version", u.Version),
			zap.Int64("current", t.version.Load()))
		return nil
	}

	var errs error
	if u.Full {
		keep := make(map[string]struct{}, len(u.Shards))
		for _, s := range u.Shards {
			keep[s.Name] = struct{}{}
		}
		for _, name := range append([]string(nil), t.order...) {
			if _, ok := keep[name]; !ok {
				errs = multierr.Append(errs, t.remove(name))
			}
		}
		for _, s := range u.Shards {
			errs = multierr.Append(errs, t.upsert(s))
		}
	} else {
		for _, name := range u.Removed {
			errs = multierr.Append(errs, t.remove(name))
		}
		for _, s := range u.Added {
			errs = multierr.Append(errs, t.upsert(s))
		}
		for _, s := range u.Updated {
			errs = multierr.Append(errs, t.upsert(s))
		}
	}

	t.applied = true
	t.version.Store(u.Version)
	t.rebuild()

	t.logger.Debug("applied topology update",
		zap.Int64("version", u.Version),
		zap.Bool("full", u.Full),
		zap.Int("nodes", len(t.order)),
		zap.Error(errs))
	return errs
}

// Close closes the channels of every node and empties the topology.
func (t *Topology) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs error
	for _, name := range append([]string(nil), t.order...) {
		errs = multierr.Append(errs, t.remove(name))
	}
	t.rebuild()
	return errs
}

// upsert must be run under the lock.
func (t *Topology) upsert(s cluster.Shard) error {
	if err := s.Validate(); err != nil {
		return err
	}

	current, ok := t.nodes[s.Name]
	if ok && current.Shard().Address == s.Address {
		if current.Shard() == s {
			return nil
		}
		if _, err := current.Shard().WithState(s.State); err != nil {
			return err
		}
		t.nodes[s.Name] = current.WithShard(s)
		return nil
	}

	// New shard, or one that moved to another address.
	var channel cluster.Channel
	if t.binder != nil {
		ch, err := t.binder.Bind(s)
		if err != nil {
			return fmt.Errorf("failed to bind shard %q: %v", s.Name, err)
		}
		channel = ch
	}
	if ok {
		if err := closeChannel(current); err != nil {
			t.logger.Warn("failed to close channel of moved shard",
				zap.String("shard", s.Name),
				zap.Error(err))
		}
		t.nodes[s.Name] = cluster.NewNode(s, channel)
		return nil
	}
	t.nodes[s.Name] = cluster.NewNode(s, channel)
	t.order = append(t.order, s.Name)
	return nil
}

// remove must be run under the lock.
func (t *Topology) remove(name string) error {
	n, ok := t.nodes[name]
	if !ok {
		return nil
	}
	delete(t.nodes, name)
	for i, o := range t.order {
		if o == name {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
	if err := closeChannel(n); err != nil {
		return fmt.Errorf("failed to close channel of shard %q: %v", name, err)
	}
	return nil
}

// rebuild must be run under the lock.
func (t *Topology) rebuild() {
	nodes := t.list()
	size := t.size
	if size <= 0 {
		size = len(nodes)
	}
	res := candidature.Build(nodes, t.region, size)
	t.result.Store(res)
	t.holder.Store(res.Candidate())
}

func (t *Topology) list() []*cluster.Node {
	nodes := make([]*cluster.Node, len(t.order))
	for i, name := range t.order {
		nodes[i] = t.nodes[name]
	}
	return nodes
}

func closeChannel(n *cluster.Node) error {
	if ch := n.Channel(); ch != nil {
		return ch.Close()
	}
	return nil
}
