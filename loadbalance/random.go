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
	"math/rand"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/transport"
)

type randomOptions struct {
	source rand.Source
}

// RandomOption customizes a RandomWeight load balance.
type RandomOption interface {
	apply(*randomOptions)
}

type randomOptionFunc func(*randomOptions)

func (f randomOptionFunc) apply(options *randomOptions) { f(options) }

// Seed specifies the seed for generating random choices.
func Seed(seed int64) RandomOption {
	return randomOptionFunc(func(options *randomOptions) {
		options.source = rand.NewSource(seed)
	})
}

// Source is a source of randomness for the load balance.
func Source(source rand.Source) RandomOption {
	return randomOptionFunc(func(options *randomOptions) {
		options.source = source
	})
}

// RandomWeight picks a node at random with a probability proportional to
// its weight. When no node carries weight the pick is uniform.
type RandomWeight struct {
	mu     sync.Mutex
	random *rand.Rand

	// last weight table built, keyed by the candidate it was built for
	table atomic.Value
}

var _ cluster.LoadBalance = (*RandomWeight)(nil)

// NewRandomWeight builds a weighted random load balance.
func NewRandomWeight(opts ...RandomOption) *RandomWeight {
	var options randomOptions
	for _, opt := range opts {
		opt.apply(&options)
	}
	if options.source == nil {
		options.source = rand.NewSource(time.Now().UnixNano())
	}
	return &RandomWeight{random: rand.New(options.source)}
}

// Select implements cluster.LoadBalance.
func (r *RandomWeight) Select(c *cluster.Candidate, _ *transport.Request) *cluster.Node {
	nodes := c.Nodes()
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	}

	t := r.weights(c)
	if t.total <= 0 {
		return nodes[r.intn(len(nodes))]
	}
	return nodes[t.search(r.int63n(t.total))]
}

func (r *RandomWeight) weights(c *cluster.Candidate) *weightTable {
	if t, ok := r.table.Load().(*weightTable); ok && t.candidate == c {
		return t
	}
	t := newWeightTable(c)
	r.table.Store(t)
	return t
}

func (r *RandomWeight) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.random.Intn(n)
}

func (r *RandomWeight) int63n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.random.Int63n(n)
}

// weightTable holds the weights of a candidate's nodes along with the
// cumulative weight of the lower half, so that a draw landing in the upper
// half starts walking from the middle.
type weightTable struct {
	candidate *cluster.Candidate
	weights   []int64
	total     int64
	mid       int
	half      int64
}

func newWeightTable(c *cluster.Candidate) *weightTable {
	nodes := c.Nodes()
	t := &weightTable{
		candidate: c,
		weights:   make([]int64, len(nodes)),
		mid:       len(nodes) / 2,
	}
	for i, n := range nodes {
		w := int64(n.Weight())
		if w < 0 {
			w = 0
		}
		t.weights[i] = w
		if i < t.mid {
			t.half += w
		}
		t.total += w
	}
	return t
}

// search returns the index of the node owning the given draw in
// [0, total).
func (t *weightTable) search(draw int64) int {
	start, sum := 0, int64(0)
	if draw >= t.half {
		start, sum = t.mid, t.half
	}
	for i := start; i < len(t.weights); i++ {
		sum += t.weights[i]
		if draw < sum {
			return i
		}
	}
	// unreachable while draw < total
	return len(t.weights) - 1
}
