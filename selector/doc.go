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

// Package selector restricts the nodes allowed to serve a call with rules
// compiled from configuration text.
//
// Each rule reads "conditions => ranges":
//
//	method == getUser => 10.0.0.0/8
//	method == charge && arg[1] > 1000 => 10.1.0.1-10.1.0.9, vip-host
//	ip == 192.168.0.0/16 => *
//
// Conditions test the procedure name ("method"), the caller address ("ip")
// or a positional argument ("arg[N]") with one of ==, !=, >, >=, < and <=.
// Ordering operators only apply to arguments and numeric operands. Ranges
// are networks, addresses, address intervals, host names or "*".
//
// When a rule's conditions hold for a call, only nodes inside one of its
// ranges may serve it. Calls no rule applies to may go to any node.
package selector
