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

package selector

import (
	"strings"

	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/transport"
	"go.uber.org/meshroute/routeerrors"
	"go.uber.org/multierr"
)

// Selector is a compiled set of routing rules. A node is selected for a
// request unless some rule applies to the request and the node is outside
// that rule's ranges.
//
// Selectors are immutable and safe for concurrent use. The nil Selector has
// no rules.
type Selector struct {
	rules []rule
}

var _ cluster.NodeSelector = (*Selector)(nil)

// Compile parses rule text. Rules are separated by new lines or ";", and
// "#" starts a comment. Neither applies inside quoted operands. Every malformed rule is reported in the returned
// error, which carries routeerrors.CodeInvalidArgument.
//
// Text without rules compiles to a Selector that selects every node.
func Compile(text string) (*Selector, error) {
	var (
		s    Selector
		errs error
	)
	for _, line := range strings.Split(text, "\n") {
		for _, part := range splitRules(line) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			r, err := parseRule(part)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			s.rules = append(s.rules, r)
		}
	}
	if errs != nil {
		return nil, routeerrors.InvalidArgumentErrorf("invalid method selector rules: %v", errs)
	}
	return &s, nil
}

// splitRules splits one line on ";" up to its "#" comment, skipping quoted
// text. An unterminated quote runs to the end of the line.
func splitRules(line string) []string {
	var (
		parts []string
		start int
		quote byte
	)
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ';':
			parts = append(parts, line[start:i])
			start = i + 1
		case c == '#':
			return append(parts, line[start:i])
		}
	}
	return append(parts, line[start:])
}

// MustCompile is like Compile but panics on malformed text.
func MustCompile(text string) *Selector {
	s, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return s
}

// Len is the number of compiled rules.
func (s *Selector) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Match reports whether the node may serve the request.
func (s *Selector) Match(node *cluster.Node, req *transport.Request) bool {
	for _, r := range s.applicable(req) {
		if !r.allows(node) {
			return false
		}
	}
	return true
}

// Select returns the nodes of the candidate allowed to serve the request.
// The candidate's own node list is returned when no rule applies.
func (s *Selector) Select(c *cluster.Candidate, req *transport.Request) []*cluster.Node {
	rules := s.applicable(req)
	if len(rules) == 0 {
		return c.Nodes()
	}

	var out []*cluster.Node
	for _, n := range c.Nodes() {
		if allowed(rules, n) {
			out = append(out, n)
		}
	}
	return out
}

// Narrow is like Select but returns a candidate. The candidate itself is
// returned when every node is allowed.
func (s *Selector) Narrow(c *cluster.Candidate, req *transport.Request) *cluster.Candidate {
	rules := s.applicable(req)
	if len(rules) == 0 {
		return c
	}
	return c.Narrow(func(n *cluster.Node) bool { return allowed(rules, n) })
}

// String returns the compiled rules, one per line.
func (s *Selector) String() string {
	lines := make([]string, s.Len())
	for i := range lines {
		lines[i] = s.rules[i].text
	}
	return strings.Join(lines, "\n")
}

// applicable returns the rules whose conditions hold for req. The
// conditions only depend on the request so they are evaluated once per
// call instead of once per node.
func (s *Selector) applicable(req *transport.Request) []rule {
	if s.Len() == 0 || req == nil {
		return nil
	}
	var out []rule
	for _, r := range s.rules {
		if r.applies(req) {
			out = append(out, r)
		}
	}
	return out
}

func allowed(rules []rule, n *cluster.Node) bool {
	for _, r := range rules {
		if !r.allows(n) {
			return false
		}
	}
	return true
}
