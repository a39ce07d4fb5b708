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

package etcddiscovery

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/topology"
	"go.uber.org/multierr"
)

const _root = "/meshroute/"

// Prefix returns the prefix of the keys of a service.
func Prefix(service string) string {
	return _root + service + "/"
}

// Key returns the key of a shard of a service.
func Key(service, name string) string {
	return Prefix(service) + name
}

func decodeShard(prefix string, kv *mvccpb.KeyValue) (cluster.Shard, error) {
	var s cluster.Shard
	name := strings.TrimPrefix(string(kv.Key), prefix)
	if err := json.Unmarshal(kv.Value, &s); err != nil {
		return s, fmt.Errorf("malformed shard at %q: %v", kv.Key, err)
	}
	if s.Name == "" {
		s.Name = name
	}
	if s.Name != name {
		return s, fmt.Errorf("shard at %q is named %q", kv.Key, s.Name)
	}
	return s, nil
}

// fullUpdate builds the update replacing every shard with the given keys.
// Malformed keys are left out and reported.
func fullUpdate(prefix string, revision int64, kvs []*mvccpb.KeyValue) (topology.Update, error) {
	u := topology.Update{Version: revision, Full: true}
	var errs error
	for _, kv := range kvs {
		s, err := decodeShard(prefix, kv)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		u.Shards = append(u.Shards, s)
	}
	return u, errs
}

type change struct {
	removed bool
	created bool
	shard   *cluster.Shard
}

// updateFromEvents builds the incremental update of one watch response.
// Events on the same key collapse to their outcome; a key deleted and put
// again is reported as removed and added.
func updateFromEvents(prefix string, revision int64, events []*clientv3.Event) (topology.Update, error) {
	var (
		errs    error
		order   []string
		changes = make(map[string]*change)
	)
	for _, ev := range events {
		if ev.Kv == nil {
			continue
		}
		name := strings.TrimPrefix(string(ev.Kv.Key), prefix)
		c, ok := changes[name]
		if !ok {
			c = &change{}
			changes[name] = c
			order = append(order, name)
		}

		switch ev.Type {
		case clientv3.EventTypeDelete:
			c.removed = true
			c.created = false
			c.shard = nil
		case clientv3.EventTypePut:
			s, err := decodeShard(prefix, ev.Kv)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			c.shard = &s
			c.created = c.created || ev.IsCreate()
		}
	}

	u := topology.Update{Version: revision}
	for _, name := range order {
		c := changes[name]
		if c.removed {
			u.Removed = append(u.Removed, name)
		}
		switch {
		case c.shard == nil:
		case c.removed || c.created:
			u.Added = append(u.Added, *c.shard)
		default:
			u.Updated = append(u.Updated, *c.shard)
		}
	}
	return u, errs
}
