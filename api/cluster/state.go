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
	"fmt"
	"strings"
)

// ShardState is the connection state of a shard within one connection
// lifecycle.
type ShardState int

const (
	// Initial indicates the shard is known but was never connected to.
	Initial ShardState = iota

	// Connecting indicates a connection to the shard is being established.
	Connecting

	// Connected indicates the shard is serving requests.
	Connected

	// Weak indicates the shard tripped and traffic is being ramped back up.
	Weak

	// Disconnected indicates the connection was lost. A shard may leave
	// this state only by reconnecting.
	Disconnected
)

var _stateNames = map[ShardState]string{
	Initial:      "initial",
	Connecting:   "connecting",
	Connected:    "connected",
	Weak:         "weak",
	Disconnected: "disconnected",
}

var _transitions = map[ShardState][]ShardState{
	Initial:      {Connecting},
	Connecting:   {Connected, Disconnected},
	Connected:    {Weak, Disconnected},
	Weak:         {Connected, Disconnected},
	Disconnected: {Connecting},
}

// CanTransitionTo reports whether a shard in state s may move to next.
// Staying in the same state is always allowed.
func (s ShardState) CanTransitionTo(next ShardState) bool {
	if s == next {
		return true
	}
	for _, allowed := range _transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Proven reports whether the shard ever completed a connection in its
// current lifecycle.
func (s ShardState) Proven() bool {
	return s == Connected || s == Weak
}

// String returns the state name, or the number for unknown states.
func (s ShardState) String() string {
	if name, ok := _stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ShardState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s ShardState) MarshalText() ([]byte, error) {
	name, ok := _stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown shard state: %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ShardState) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for state, n := range _stateNames {
		if n == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown shard state: %q", string(text))
}
