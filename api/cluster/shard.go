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

package cluster

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"go.uber.org/multierr"
)

// Shard is the static description of one remote service instance as
// reported by discovery.
type Shard struct {
	Name       string     `json:"name"`
	Region     string     `json:"region,omitempty"`
	DataCenter string     `json:"dataCenter,omitempty"`
	Protocol   string     `json:"protocol,omitempty"`
	Address    string     `json:"address"`
	Weight     int        `json:"weight"`
	State      ShardState `json:"state"`
}

// Validate checks the invariants of the shard description.
func (s Shard) Validate() (err error) {
	if s.Name == "" {
		err = multierr.Append(err, errors.New("shard name is required"))
	}
	if s.Address == "" {
		err = multierr.Append(err, fmt.Errorf("shard %q has no address", s.Name))
	}
	if s.Weight < 0 {
		err = multierr.Append(err, fmt.Errorf("shard %q has negative weight %d", s.Name, s.Weight))
	}
	if _, ok := _stateNames[s.State]; !ok {
		err = multierr.Append(err, fmt.Errorf("shard %q has unknown state %d", s.Name, int(s.State)))
	}
	return err
}

// WithState returns a copy of the shard in the given state, or an error if
// the state machine forbids the transition.
func (s Shard) WithState(next ShardState) (Shard, error) {
	if !s.State.CanTransitionTo(next) {
		return s, fmt.Errorf("shard %q cannot move from %v to %v", s.Name, s.State, next)
	}
	s.State = next
	return s, nil
}

// Host returns the host part of the shard address. Addresses may be plain
// host:port pairs or URLs such as "tcp://10.0.0.1:8080".
func (s Shard) Host() string {
	addr := s.Address
	if strings.Contains(addr, "://") {
		if u, err := url.Parse(addr); err == nil {
			return u.Hostname()
		}
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
