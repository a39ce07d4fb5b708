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

package failover

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"
	opentracinglog "github.com/opentracing/opentracing-go/log"
	"github.com/uber-go/tally"
	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/transport"
	"go.uber.org/meshroute/routeerrors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Reasons a call failed, used as the "reason" tag of the failures counter.
const (
	_reasonNoCandidate = "no_candidate"
	_reasonNoRetry     = "no_retry"
	_reasonUnretryable = "unretryable"
	_reasonTimeout     = "timeout"
	_reasonMaxAttempts = "max_attempts"
	_reasonOnlyOnce    = "only_once"
	_reasonBudget      = "budget"
)

var _reasons = []string{
	_reasonNoCandidate,
	_reasonNoRetry,
	_reasonUnretryable,
	_reasonTimeout,
	_reasonMaxAttempts,
	_reasonOnlyOnce,
	_reasonBudget,
}

// observer holds the metrics of every service called through a Router.
type observer struct {
	logger *zap.Logger
	scope  tally.Scope

	edgesMu sync.RWMutex
	edges   map[string]*edge
}

func newObserver(logger *zap.Logger, scope tally.Scope) *observer {
	return &observer{
		logger: logger,
		scope:  scope,
		edges:  make(map[string]*edge),
	}
}

// edge holds the metrics of one service.
type edge struct {
	calls     tally.Counter
	retries   tally.Counter
	successes tally.Counter
	failures  map[string]tally.Counter
}

func (o *observer) edge(service string) *edge {
	o.edgesMu.RLock()
	e, ok := o.edges[service]
	o.edgesMu.RUnlock()
	if ok {
		return e
	}

	o.edgesMu.Lock()
	defer o.edgesMu.Unlock()
	if e, ok := o.edges[service]; ok {
		return e
	}
	e = newEdge(o.scope, service)
	o.edges[service] = e
	return e
}

func newEdge(root tally.Scope, service string) *edge {
	scope := root.Tagged(map[string]string{"service": service})
	e := &edge{
		calls:     scope.Counter("calls"),
		retries:   scope.Counter("retries"),
		successes: scope.Counter("successes"),
		failures:  make(map[string]tally.Counter, len(_reasons)),
	}
	for _, reason := range _reasons {
		e.failures[reason] = scope.Tagged(map[string]string{"reason": reason}).Counter("failures")
	}
	return e
}

func (o *observer) begin(ctx context.Context, req *transport.Request) *call {
	c := &call{
		logger: o.logger.With(
			zap.String("service", req.Service),
			zap.String("procedure", req.Procedure),
		),
		edge: o.edge(req.Service),
		span: opentracing.SpanFromContext(ctx),
	}
	c.edge.calls.Inc(1)
	return c
}

// call observes the attempts of one routed call.
type call struct {
	logger *zap.Logger
	edge   *edge
	span   opentracing.Span
}

func (c *call) attempt(n int, node *cluster.Node) {
	if ce := c.logger.Check(zapcore.DebugLevel, "sending attempt"); ce != nil {
		ce.Write(zap.Int("attempt", n), zap.Stringer("node", node))
	}
}

func (c *call) retry(n int, failed *cluster.Node, err error) {
	c.edge.retries.Inc(1)
	c.logger.Debug("retrying call",
		zap.Int("attempt", n),
		zap.String("failedNode", failed.Name()),
		zap.Error(err))
	if c.span != nil {
		c.span.LogFields(
			opentracinglog.String("event", "retry"),
			opentracinglog.Int("attempt", n),
			opentracinglog.String("failedNode", failed.Name()),
			opentracinglog.Error(err),
		)
	}
}

func (c *call) succeed(n int, node *cluster.Node) {
	c.edge.successes.Inc(1)
	if n > 0 {
		c.logger.Debug("call succeeded after retrying",
			zap.Int("retries", n),
			zap.String("node", node.Name()))
	}
}

func (c *call) fail(reason string, attempts int, err error) {
	c.edge.failures[reason].Inc(1)
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.Int("attempts", attempts),
		zap.String("code", routeerrors.ErrorCode(err).String()),
		zap.Error(err),
	}
	switch reason {
	case _reasonNoRetry, _reasonUnretryable:
		c.logger.Debug("call failed", fields...)
	default:
		c.logger.Warn("call failed", fields...)
	}
	if c.span != nil && reason != _reasonNoRetry {
		c.span.LogFields(
			opentracinglog.String("event", "failover exhausted"),
			opentracinglog.String("reason", reason),
			opentracinglog.Int("attempts", attempts),
		)
	}
}
