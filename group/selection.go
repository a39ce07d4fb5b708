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

package group

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/meshroute/api/transport"
	"go.uber.org/meshroute/routeerrors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type aliasKey struct{}

// WithAlias returns a context that sends calls made with it to the given
// service group. It takes precedence over every other way of picking a
// group.
func WithAlias(ctx context.Context, alias string) context.Context {
	return context.WithValue(ctx, aliasKey{}, alias)
}

// AliasFromContext returns the alias set with WithAlias, if any.
func AliasFromContext(ctx context.Context) (string, bool) {
	alias, ok := ctx.Value(aliasKey{}).(string)
	return alias, ok && alias != ""
}

// SessionFunc returns the service group a session is pinned to.
type SessionFunc func(ctx context.Context, req *transport.Request) (alias string, ok bool)

// Factory creates the invoker of a service group that has no local
// configuration yet.
type Factory func(ctx context.Context, alias string) (Invoker, error)

// SelectionOption customizes a Selection.
type SelectionOption interface {
	applySelection(*selectionOptions)
}

type selectionOptionFunc func(*selectionOptions)

func (f selectionOptionFunc) applySelection(opts *selectionOptions) { f(opts) }

type selectionOptions struct {
	session      SessionFunc
	defaultIndex int
	methodIndex  map[string]int
	factory      Factory
	logger       *zap.Logger
	source       rand.Source
}

// Session pins calls to the group returned by fn, unless WithAlias says
// otherwise.
func Session(fn SessionFunc) SelectionOption {
	return selectionOptionFunc(func(opts *selectionOptions) {
		opts.session = fn
	})
}

// ArgIndex picks the group of calls to the given method from their
// positional argument at index.
func ArgIndex(method string, index int) SelectionOption {
	return selectionOptionFunc(func(opts *selectionOptions) {
		opts.methodIndex[method] = index
	})
}

// DefaultArgIndex picks the group of calls to methods without an ArgIndex
// from their positional argument at index.
func DefaultArgIndex(index int) SelectionOption {
	return selectionOptionFunc(func(opts *selectionOptions) {
		opts.defaultIndex = index
	})
}

// Adaptive creates unknown groups on first use with the given factory.
// The factory runs once per alias, however many calls wait for it. Failed
// creations are not remembered.
func Adaptive(factory Factory) SelectionOption {
	return selectionOptionFunc(func(opts *selectionOptions) {
		opts.factory = factory
	})
}

// SelectionLogger sets the logger group creation is reported to.
func SelectionLogger(logger *zap.Logger) SelectionOption {
	return selectionOptionFunc(func(opts *selectionOptions) {
		opts.logger = logger
	})
}

// randSource overrides the source of random group picks. Tests only.
func randSource(src rand.Source) SelectionOption {
	return selectionOptionFunc(func(opts *selectionOptions) {
		opts.source = src
	})
}

// groupSet is an immutable snapshot of the known groups.
type groupSet struct {
	byAlias map[string]Invoker
	aliases []string
}

func (s *groupSet) with(alias string, inv Invoker) *groupSet {
	next := &groupSet{
		byAlias: make(map[string]Invoker, len(s.byAlias)+1),
		aliases: make([]string, 0, len(s.aliases)+1),
	}
	for a, i := range s.byAlias {
		next.byAlias[a] = i
	}
	next.byAlias[alias] = inv
	next.aliases = append(next.aliases, s.aliases...)
	next.aliases = append(next.aliases, alias)
	sort.Strings(next.aliases)
	return next
}

// Selection sends each call to the one service group the call resolves
// to, in order of precedence:
//
//  1. the alias of the context, set with WithAlias;
//  2. the alias returned by the Session function;
//  3. the positional argument configured with ArgIndex or DefaultArgIndex;
//  4. a group chosen uniformly at random.
type Selection struct {
	session      SessionFunc
	defaultIndex int
	methodIndex  map[string]int
	factory      Factory
	logger       *zap.Logger

	groups   atomic.Value // *groupSet
	mu       sync.Mutex   // serializes writers of groups
	creating singleflight.Group

	randMu sync.Mutex
	rand   *rand.Rand
}

var _ Invoker = (*Selection)(nil)

// NewSelection builds a Selection over the given groups.
func NewSelection(groups []Group, opts ...SelectionOption) (*Selection, error) {
	if err := validateGroups(groups); err != nil {
		return nil, err
	}
	options := selectionOptions{
		defaultIndex: -1,
		methodIndex:  make(map[string]int),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt.applySelection(&options)
	}
	if options.source == nil {
		options.source = rand.NewSource(time.Now().UnixNano())
	}

	s := &Selection{
		session:      options.session,
		defaultIndex: options.defaultIndex,
		methodIndex:  options.methodIndex,
		factory:      options.factory,
		logger:       options.logger,
		rand:         rand.New(options.source),
	}
	set := &groupSet{byAlias: map[string]Invoker{}}
	for _, g := range groups {
		set = set.with(g.Alias, g.Invoker)
	}
	s.groups.Store(set)
	return s, nil
}

// Aliases returns the aliases of the known groups in lexical order.
func (s *Selection) Aliases() []string {
	return append([]string(nil), s.load().aliases...)
}

// Invoke implements Invoker.
func (s *Selection) Invoke(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if err := transport.ValidateRequest(req); err != nil {
		return nil, err
	}
	alias, err := s.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoker(ctx, alias)
	if err != nil {
		return nil, err
	}
	return inv.Invoke(ctx, bind(req, alias))
}

// Resolve returns the alias of the group a call goes to.
func (s *Selection) Resolve(ctx context.Context, req *transport.Request) (string, error) {
	if alias, ok := AliasFromContext(ctx); ok {
		return alias, nil
	}
	if s.session != nil {
		if alias, ok := s.session(ctx, req); ok && alias != "" {
			return alias, nil
		}
	}
	if alias, ok := s.fromArgs(req); ok {
		return alias, nil
	}

	aliases := s.load().aliases
	if len(aliases) == 0 {
		return "", routeerrors.NotFoundErrorf("no service group configured for %q", req.Service)
	}
	s.randMu.Lock()
	i := s.rand.Intn(len(aliases))
	s.randMu.Unlock()
	return aliases[i], nil
}

func (s *Selection) fromArgs(req *transport.Request) (string, bool) {
	index, ok := s.methodIndex[req.Procedure]
	if !ok {
		index = s.defaultIndex
	}
	if index < 0 {
		return "", false
	}
	switch v := req.Arg(index).(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case fmt.Stringer:
		alias := v.String()
		return alias, alias != ""
	default:
		return fmt.Sprint(v), true
	}
}

func (s *Selection) invoker(ctx context.Context, alias string) (Invoker, error) {
	if inv, ok := s.load().byAlias[alias]; ok {
		return inv, nil
	}
	if s.factory == nil {
		return nil, routeerrors.NotFoundErrorf("unknown service group %q", alias)
	}

	v, err, _ := s.creating.Do(alias, func() (interface{}, error) {
		if inv, ok := s.load().byAlias[alias]; ok {
			return inv, nil
		}
		inv, err := s.factory(ctx, alias)
		if err != nil {
			s.logger.Warn("failed to create service group",
				zap.String("alias", alias),
				zap.Error(err))
			return nil, err
		}
		if inv == nil {
			return nil, routeerrors.InternalErrorf("no invoker created for service group %q", alias)
		}

		s.mu.Lock()
		s.groups.Store(s.load().with(alias, inv))
		s.mu.Unlock()
		s.logger.Info("created service group", zap.String("alias", alias))
		return inv, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Invoker), nil
}

func (s *Selection) load() *groupSet {
	return s.groups.Load().(*groupSet)
}
