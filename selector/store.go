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

package selector

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/transport"
	"go.uber.org/zap"
)

// StoreOption customizes a Store.
type StoreOption interface {
	apply(*Store)
}

type storeOptionFunc func(*Store)

func (f storeOptionFunc) apply(s *Store) { f(s) }

// Logger sets the logger malformed updates are reported to.
func Logger(logger *zap.Logger) StoreOption {
	return storeOptionFunc(func(s *Store) {
		s.logger = logger
	})
}

// Store holds the selector of every service. Updates replace the whole
// table so readers never take a lock.
type Store struct {
	logger *zap.Logger

	mu        sync.Mutex // serializes writers
	selectors atomic.Value
}

var _ cluster.NodeSelector = (*Store)(nil)

// NewStore builds an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt.apply(s)
	}
	s.selectors.Store(map[string]*Selector{})
	return s
}

// Get returns the selector of a service, or nil if it has none.
func (s *Store) Get(service string) *Selector {
	return s.load()[service]
}

// Set installs a compiled selector for a service. A nil or empty selector
// removes the rules of the service.
func (s *Store) Set(service string, sel *Selector) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.load()
	next := make(map[string]*Selector, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	if sel.Len() == 0 {
		delete(next, service)
	} else {
		next[service] = sel
	}
	s.selectors.Store(next)
}

// Update compiles rule text received from a configuration change and
// installs it. Malformed text is logged and leaves the service without
// rules; the compile error is returned for callers that report it.
func (s *Store) Update(service, text string) error {
	sel, err := Compile(text)
	if err != nil {
		s.logger.Warn("ignoring malformed method selector rules",
			zap.String("service", service),
			zap.Error(err))
		s.Set(service, nil)
		return err
	}
	s.Set(service, sel)
	s.logger.Debug("updated method selector rules",
		zap.String("service", service),
		zap.Int("rules", sel.Len()))
	return nil
}

// Select implements cluster.NodeSelector with the selector of the request's
// service.
func (s *Store) Select(c *cluster.Candidate, req *transport.Request) []*cluster.Node {
	if req == nil {
		return c.Nodes()
	}
	return s.Get(req.Service).Select(c, req)
}

func (s *Store) load() map[string]*Selector {
	m, _ := s.selectors.Load().(map[string]*Selector)
	return m
}
