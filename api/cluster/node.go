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

import "go.uber.org/atomic"

// Channel is the transport connection bound to a node. The routing layer
// never uses it beyond handing it to the transport and closing it when the
// shard leaves the topology.
type Channel interface {
	Close() error
}

// Metrics are the runtime counters of a node. They survive state changes of
// the shard and are shared by every Node value built for it.
type Metrics struct {
	active      atomic.Int64
	distributed atomic.Int64
}

// StartRequest records the start of an invocation on the node.
func (m *Metrics) StartRequest() {
	m.active.Inc()
}

// EndRequest records the end of an invocation on the node.
func (m *Metrics) EndRequest() {
	m.active.Dec()
}

// Distribute records that a load balancer picked the node.
func (m *Metrics) Distribute() {
	m.distributed.Inc()
}

// Active is the number of in-flight requests on the node.
func (m *Metrics) Active() int64 {
	return m.active.Load()
}

// Distributed is the number of times the node was selected.
func (m *Metrics) Distributed() int64 {
	return m.distributed.Load()
}

// Node is a shard bound to the runtime: its transport channel and its
// metrics. Nodes are immutable once published; state changes produce new
// Node values through WithShard.
//
// Two nodes are the same node when their shard names match.
type Node struct {
	shard   Shard
	channel Channel
	metrics *Metrics
}

// NewNode binds a shard to a channel. The channel may be nil.
func NewNode(shard Shard, channel Channel) *Node {
	return &Node{
		shard:   shard,
		channel: channel,
		metrics: &Metrics{},
	}
}

// WithShard returns a node for an updated description of the same shard,
// sharing the channel and metrics of the receiver.
func (n *Node) WithShard(shard Shard) *Node {
	return &Node{
		shard:   shard,
		channel: n.channel,
		metrics: n.metrics,
	}
}

// Name is the identity of the node.
func (n *Node) Name() string { return n.shard.Name }

// Shard returns the description of the node.
func (n *Node) Shard() Shard { return n.shard }

// State is shorthand for Shard().State.
func (n *Node) State() ShardState { return n.shard.State }

// Weight is shorthand for Shard().Weight.
func (n *Node) Weight() int { return n.shard.Weight }

// Channel returns the transport channel of the node, if any.
func (n *Node) Channel() Channel { return n.channel }

// Metrics returns the runtime counters of the node.
func (n *Node) Metrics() *Metrics { return n.metrics }

// Same reports whether both nodes describe the same shard.
func (n *Node) Same(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.shard.Name == other.shard.Name
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.shard.Name + "@" + n.shard.Address
}
