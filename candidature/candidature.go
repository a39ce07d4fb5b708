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

// Package candidature partitions the nodes of a service into tiers.
//
// Build is run once per topology change. Its Result splits the nodes into
// candidates, standbys used when the caller's region holds too few nodes,
// and backups used as a last resort.
package candidature

import (
	"sort"

	"go.uber.org/meshroute/api/cluster"
)

// Result is the tiered partition of all known nodes. Every node appears in
// exactly one tier, and each tier is ordered best first.
type Result struct {
	Candidates []*cluster.Node
	Standbys   []*cluster.Node
	Backups    []*cluster.Node

	region cluster.Region
	size   int
}

// Len is the total number of nodes in the three tiers.
func (r Result) Len() int {
	return len(r.Candidates) + len(r.Standbys) + len(r.Backups)
}

// Candidate returns the set of nodes requests should be routed to: the
// candidates followed by the standbys, or the backups when both are empty.
func (r Result) Candidate() *cluster.Candidate {
	nodes := make([]*cluster.Node, 0, len(r.Candidates)+len(r.Standbys))
	nodes = append(nodes, r.Candidates...)
	nodes = append(nodes, r.Standbys...)
	if len(nodes) == 0 {
		nodes = r.Backups
	}
	return cluster.NewCandidate(nodes, r.region, r.size)
}

type ranked struct {
	node     *cluster.Node
	health   int
	locality cluster.Locality
	index    int
}

func healthRank(s cluster.ShardState) int {
	switch {
	case s.Proven():
		return 2
	case s == cluster.Initial:
		return 0
	default:
		return 1
	}
}

// Rank orders nodes by health, then proximity to the region, then input
// order. The input slice is not modified.
func Rank(nodes []*cluster.Node, region cluster.Region) []*cluster.Node {
	out := make([]*cluster.Node, len(nodes))
	for i, r := range rank(nodes, region) {
		out[i] = r.node
	}
	return out
}

func rank(nodes []*cluster.Node, region cluster.Region) []ranked {
	rs := make([]ranked, len(nodes))
	for i, n := range nodes {
		rs[i] = ranked{
			node:     n,
			health:   healthRank(n.State()),
			locality: region.Locality(n.Shard()),
			index:    i,
		}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.health != b.health {
			return a.health > b.health
		}
		if a.locality != b.locality {
			return a.locality > b.locality
		}
		return a.index < b.index
	})
	return rs
}

// Build partitions nodes for a caller in region that wants size candidates.
//
// Candidates are the best size nodes of the caller's region, or of all
// nodes when the region is unknown. When the region holds fewer than size
// nodes the best nodes outside it fill the gap as standbys. All remaining
// nodes are backups. Asking for at least as many nodes as exist makes every
// node a candidate.
func Build(nodes []*cluster.Node, region cluster.Region, size int) Result {
	result := Result{region: region, size: size}
	if len(nodes) == 0 {
		return result
	}

	rs := rank(nodes, region)
	if size >= len(nodes) {
		result.Candidates = make([]*cluster.Node, len(rs))
		for i, r := range rs {
			result.Candidates[i] = r.node
		}
		return result
	}

	if size < 0 {
		size = 0
	}

	// Positions in rs of the preferred pool and of the nodes outside it.
	var pool, rest []int
	for i, r := range rs {
		if !region.Known() || r.locality != cluster.Remote {
			pool = append(pool, i)
		} else {
			rest = append(rest, i)
		}
	}

	taken := make([]bool, len(rs))
	for _, i := range pool {
		if len(result.Candidates) == size {
			break
		}
		result.Candidates = append(result.Candidates, rs[i].node)
		taken[i] = true
	}
	for _, i := range rest {
		if len(result.Candidates)+len(result.Standbys) == size {
			break
		}
		result.Standbys = append(result.Standbys, rs[i].node)
		taken[i] = true
	}
	for i, r := range rs {
		if !taken[i] {
			result.Backups = append(result.Backups, r.node)
		}
	}
	return result
}
