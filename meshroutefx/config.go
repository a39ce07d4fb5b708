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

package meshroutefx

import (
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/discovery/etcddiscovery"
	"go.uber.org/meshroute/internal/config"
	"go.uber.org/meshroute/loadbalance"
	"go.uber.org/meshroute/policy"
	"go.uber.org/meshroute/routeerrors"
	"gopkg.in/yaml.v2"
)

// Config is the configuration of the routing stack.
//
//	region: {region: us-east, dataCenter: us-east-1a}
//	size: 5
//	loadBalance: {name: sticky, inner: randomWeight}
//	failover:
//	  policies:
//	    default: {maxRetry: 2, retryOn: [unavailable]}
//	  default: default
//	selectors:
//	  billing: |
//	    method == charge => 10.0.0.0/8
//	etcd:
//	  endpoints: [etcd-0:2379]
//	  dialTimeout: 5s
type Config struct {
	// Region of the caller. Read from the environment when absent.
	Region *cluster.Region `config:"region"`

	// Size is the number of candidates built per service. Zero makes every
	// node a candidate.
	Size int `config:"size"`

	LoadBalance loadbalance.Config `config:"loadBalance"`
	Failover    policy.Config      `config:"failover"`

	// Selectors holds the method selector rules of each service.
	Selectors map[string]string `config:"selectors"`

	// Etcd enables discovery through etcd.
	Etcd *etcddiscovery.Config `config:"etcd"`
}

// ParseConfig decodes a Config from YAML text.
func ParseConfig(text []byte) (Config, error) {
	var (
		cfg Config
		raw interface{}
	)
	if err := yaml.Unmarshal(text, &raw); err != nil {
		return cfg, routeerrors.InvalidArgumentErrorf("failed to parse routing configuration: %v", err)
	}
	if err := config.DecodeInto(&cfg, raw); err != nil {
		return cfg, routeerrors.InvalidArgumentErrorf("failed to decode routing configuration: %v", err)
	}
	return cfg, nil
}

func (cfg Config) region() cluster.Region {
	if cfg.Region != nil {
		return *cfg.Region
	}
	return cluster.RegionFromEnv()
}
