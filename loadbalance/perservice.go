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
	"sync"

	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/transport"
)

// PerService gives every service its own load balance, built by newLB on
// the first request to that service. Stateful load balances such as Sticky
// and RoundRobin then keep their state per service.
func PerService(newLB func(service string) cluster.LoadBalance) cluster.LoadBalance {
	return &perService{newLB: newLB}
}

type perService struct {
	newLB func(service string) cluster.LoadBalance

	mu  sync.Mutex // serializes builds
	lbs sync.Map   // service -> cluster.LoadBalance
}

func (p *perService) Select(c *cluster.Candidate, req *transport.Request) *cluster.Node {
	var service string
	if req != nil {
		service = req.Service
	}
	return p.get(service).Select(c, req)
}

func (p *perService) get(service string) cluster.LoadBalance {
	if lb, ok := p.lbs.Load(service); ok {
		return lb.(cluster.LoadBalance)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if lb, ok := p.lbs.Load(service); ok {
		return lb.(cluster.LoadBalance)
	}
	lb := p.newLB(service)
	p.lbs.Store(service, lb)
	return lb
}
