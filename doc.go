// Copyright (c) 2020 Uber Technologies, Inc.
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

// Package meshroute routes RPC calls to the nodes of a service and fails
// over between them.
//
// The pieces are small and composable:
//
//   - topology turns discovery updates into the nodes of a service and
//     partitions them into candidates, standbys and backups
//     (candidature).
//   - selector narrows the candidate with per-service method rules.
//   - loadbalance picks one node of the candidate.
//   - policy decides how often, when and where a failed call is retried.
//   - failover drives a call through all of the above.
//   - group routes calls across aliased service groups.
//   - discovery/etcddiscovery registers shards in etcd and feeds their
//     changes to a topology.
//
// Applications using fx can depend on meshroutefx, which wires all of it
// together behind a Client.
package meshroute
