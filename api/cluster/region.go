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

import "os"

// Environment variables read by RegionFromEnv.
const (
	RegionEnv     = "MESHROUTE_REGION"
	DataCenterEnv = "MESHROUTE_DATACENTER"
)

// Locality ranks how close a shard is to the caller.
type Locality int

const (
	// Remote shards live in another region, or their region is unknown.
	Remote Locality = iota
	// SameRegion shards share the caller's region but not its data center.
	SameRegion
	// SameDataCenter shards share the caller's data center.
	SameDataCenter
)

// Region is the caller's own locality. It is resolved once per process.
type Region struct {
	Region     string `config:"region"`
	DataCenter string `config:"dataCenter"`
}

// RegionFromEnv reads the caller's region from the environment.
func RegionFromEnv() Region {
	return Region{
		Region:     os.Getenv(RegionEnv),
		DataCenter: os.Getenv(DataCenterEnv),
	}
}

// Known reports whether the caller's region is set.
func (r Region) Known() bool {
	return r.Region != ""
}

// Locality returns the proximity of the shard to this region.
func (r Region) Locality(s Shard) Locality {
	if r.Region == "" || s.Region != r.Region {
		return Remote
	}
	if r.DataCenter != "" && s.DataCenter == r.DataCenter {
		return SameDataCenter
	}
	return SameRegion
}

func (r Region) String() string {
	if r.DataCenter == "" {
		return r.Region
	}
	return r.Region + "/" + r.DataCenter
}
