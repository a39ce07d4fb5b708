// Copyright (c) 2016 Uber Technologies, Inc.
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

package transport

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/meshroute/routeerrors"
)

// Request is the routing-level representation of an outgoing call.
//
// The router never inspects the payload: it only reads the fields below to
// pick a node, and writes attachments (Headers) that travel to the remote
// peer.
type Request struct {
	// Name of the service making the request.
	Caller string

	// Address of the caller, used by method selector rules on "ip".
	CallerAddress string

	// Name of the service to which the request is being made.
	Service string

	// Name of the procedure being called.
	Procedure string

	// Alias names the service group the request is bound to. Group invokers
	// set it when the request crosses a group boundary.
	Alias string

	// Positional arguments of the call. Method selector rules and group
	// selection read them by index.
	Args []interface{}

	// Attachments for the request.
	Headers Headers

	// Retries is the attempt counter of the failover router. It is zero for
	// the first attempt.
	Retries int

	// Timeout is the time budget of the current attempt. Timeout policies
	// reset it before each retry.
	Timeout time.Duration
}

// Arg returns the positional argument at index i, or nil when the request
// has fewer arguments.
func (r *Request) Arg(i int) interface{} {
	if r == nil || i < 0 || i >= len(r.Args) {
		return nil
	}
	return r.Args[i]
}

// Clone returns a copy of the request whose Headers and Args can be changed
// without affecting the receiver. Argument values themselves are shared.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Headers = r.Headers.Clone()
	if r.Args != nil {
		clone.Args = make([]interface{}, len(r.Args))
		copy(clone.Args, r.Args)
	}
	return &clone
}

// String implements fmt.Stringer for log fields.
func (r *Request) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s::%s", r.Service, r.Procedure)
}

// ValidateRequest validates the given request. An error is returned if the
// request is invalid.
func ValidateRequest(req *Request) error {
	if req == nil {
		return routeerrors.InvalidArgumentErrorf("missing request")
	}
	var missingParams []string
	if req.Service == "" {
		missingParams = append(missingParams, "service name")
	}
	if req.Procedure == "" {
		missingParams = append(missingParams, "procedure")
	}
	if len(missingParams) > 0 {
		return routeerrors.InvalidArgumentErrorf("missing %s", strings.Join(missingParams, ", "))
	}
	return nil
}
