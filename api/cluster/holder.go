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

import "go.uber.org/atomic"

// CandidateHolder is the reference cell a topology publishes candidates
// through. Readers always observe a whole snapshot.
type CandidateHolder struct {
	v atomic.Value
}

// Load returns the current candidate, or an empty one if none was stored.
func (h *CandidateHolder) Load() *Candidate {
	if c, ok := h.v.Load().(*Candidate); ok && c != nil {
		return c
	}
	return _empty
}

// Store publishes a new candidate.
func (h *CandidateHolder) Store(c *Candidate) {
	if c == nil {
		c = _empty
	}
	h.v.Store(c)
}

var _empty = &Candidate{}
