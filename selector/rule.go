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
	"fmt"
	"net"
	"net/netip"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/meshroute/api/cluster"
	"go.uber.org/meshroute/api/transport"
)

type subject int

const (
	subjectMethod subject = iota
	subjectIP
	subjectArg
)

type operator int

const (
	opEQ operator = iota
	opNE
	opGT
	opGE
	opLT
	opLE
)

var _operators = map[string]operator{
	"==": opEQ,
	"=":  opEQ,
	"!=": opNE,
	">":  opGT,
	">=": opGE,
	"<":  opLT,
	"<=": opLE,
}

func (o operator) ordering() bool {
	return o != opEQ && o != opNE
}

var _conditionPattern = regexp.MustCompile(`^(method|ip|arg\[(\d+)\]|[A-Za-z_][\w.\[\]]*)\s*(==|!=|>=|<=|>|<|=)\s*(.*)$`)

type literal struct {
	text    string
	number  float64
	numeric bool
	// set when the literal of an "ip" condition is an address or a network
	network addrRange
}

// condition is one "subject op literal" test over a request.
type condition struct {
	subject subject
	index   int
	op      operator
	literal literal
}

func parseCondition(text string) (condition, error) {
	m := _conditionPattern.FindStringSubmatch(text)
	if m == nil {
		return condition{}, fmt.Errorf("malformed condition %q", text)
	}
	var c condition
	switch {
	case m[1] == "method":
		c.subject = subjectMethod
	case m[1] == "ip":
		c.subject = subjectIP
	case m[2] != "":
		c.subject = subjectArg
		index, err := strconv.Atoi(m[2])
		if err != nil {
			return c, fmt.Errorf("bad argument index in %q: %v", text, err)
		}
		c.index = index
	default:
		return c, fmt.Errorf("unknown subject %q in %q", m[1], text)
	}

	op, ok := _operators[m[3]]
	if !ok {
		return c, fmt.Errorf("unknown operator %q in %q", m[3], text)
	}
	c.op = op

	lit, err := parseLiteral(m[4])
	if err != nil {
		return c, fmt.Errorf("%v in %q", err, text)
	}
	c.literal = lit

	if op.ordering() {
		if c.subject != subjectArg {
			return c, fmt.Errorf("operator %q needs an argument subject in %q", m[3], text)
		}
		if !lit.numeric {
			return c, fmt.Errorf("operator %q needs a numeric operand in %q", m[3], text)
		}
	}
	if c.subject == subjectIP {
		r, err := parseRange(lit.text)
		if err != nil || r.host != "" || r.any {
			return c, fmt.Errorf("ip condition needs an address or network in %q", text)
		}
		c.literal.network = r
	}
	return c, nil
}

func parseLiteral(text string) (literal, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return literal{}, fmt.Errorf("missing operand")
	case text == "null" || text == "nil":
		return literal{}, fmt.Errorf("null operand is not comparable")
	case len(text) >= 2 && (text[0] == '"' || text[0] == '\''):
		if text[len(text)-1] != text[0] {
			return literal{}, fmt.Errorf("unterminated string %s", text)
		}
		return literal{text: text[1 : len(text)-1]}, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return literal{text: text, number: f, numeric: true}, nil
	}
	if strings.ContainsAny(text, " \t") {
		return literal{}, fmt.Errorf("operand %q must be quoted", text)
	}
	return literal{text: text}, nil
}

func (c condition) match(req *transport.Request) bool {
	switch c.subject {
	case subjectMethod:
		return c.compareText(req.Procedure)
	case subjectIP:
		addr, ok := parseHostAddr(req.CallerAddress)
		if !ok {
			return false
		}
		in := c.literal.network.contains(addr, "")
		if c.op == opNE {
			return !in
		}
		return in
	default:
		v := req.Arg(c.index)
		if v == nil {
			return false
		}
		if c.literal.numeric {
			f, ok := toFloat(v)
			if !ok {
				return false
			}
			return c.compareNumber(f)
		}
		return c.compareText(fmt.Sprint(v))
	}
}

func (c condition) compareText(s string) bool {
	if c.op == opNE {
		return s != c.literal.text
	}
	return s == c.literal.text
}

func (c condition) compareNumber(f float64) bool {
	want := c.literal.number
	switch c.op {
	case opEQ:
		return f == want
	case opNE:
		return f != want
	case opGT:
		return f > want
	case opGE:
		return f >= want
	case opLT:
		return f < want
	default:
		return f <= want
	}
}

func toFloat(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
		return f, err == nil
	}
	return 0, false
}

// addrRange is one entry of a "then" clause.
type addrRange struct {
	any    bool
	prefix netip.Prefix
	from   netip.Addr
	to     netip.Addr
	host   string
}

var _hostPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9.\-]*[A-Za-z0-9])?$`)

func parseRange(text string) (addrRange, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return addrRange{}, fmt.Errorf("empty range")
	case text == "*":
		return addrRange{any: true}, nil
	case strings.Contains(text, "/"):
		p, err := netip.ParsePrefix(text)
		if err != nil {
			return addrRange{}, fmt.Errorf("bad network %q: %v", text, err)
		}
		return addrRange{prefix: p.Masked()}, nil
	}

	if from, to, ok := strings.Cut(text, "-"); ok {
		lo, err1 := netip.ParseAddr(strings.TrimSpace(from))
		hi, err2 := netip.ParseAddr(strings.TrimSpace(to))
		if err1 == nil && err2 == nil {
			if lo.BitLen() != hi.BitLen() || hi.Less(lo) {
				return addrRange{}, fmt.Errorf("bad address range %q", text)
			}
			return addrRange{from: lo, to: hi}, nil
		}
	}
	if addr, err := netip.ParseAddr(text); err == nil {
		return addrRange{from: addr, to: addr}, nil
	}
	if _hostPattern.MatchString(text) {
		return addrRange{host: strings.ToLower(text)}, nil
	}
	return addrRange{}, fmt.Errorf("bad range %q", text)
}

// contains reports whether the address, or the host name when the node
// address is not an IP, is inside the range.
func (r addrRange) contains(addr netip.Addr, host string) bool {
	switch {
	case r.any:
		return true
	case r.host != "":
		return strings.EqualFold(r.host, host)
	case !addr.IsValid():
		return false
	case r.prefix.IsValid():
		return r.prefix.Contains(addr)
	default:
		return !addr.Less(r.from) && !r.to.Less(addr)
	}
}

func parseHostAddr(address string) (netip.Addr, bool) {
	host := address
	if h, _, err := net.SplitHostPort(address); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// rule is a compiled "when => then" pair.
type rule struct {
	text string
	when []condition
	then []addrRange
}

func parseRule(text string) (rule, error) {
	r := rule{text: text}
	when, then, ok := strings.Cut(text, "=>")
	if !ok {
		return r, fmt.Errorf("rule %q is missing \"=>\"", text)
	}
	if strings.Contains(then, "=>") {
		return r, fmt.Errorf("rule %q has more than one \"=>\"", text)
	}

	if when = strings.TrimSpace(when); when != "" {
		for _, part := range strings.Split(when, "&&") {
			c, err := parseCondition(strings.TrimSpace(part))
			if err != nil {
				return r, err
			}
			r.when = append(r.when, c)
		}
	}

	if strings.TrimSpace(then) == "" {
		return r, fmt.Errorf("rule %q has no range", text)
	}
	for _, part := range strings.Split(then, ",") {
		ar, err := parseRange(part)
		if err != nil {
			return r, fmt.Errorf("%v in rule %q", err, text)
		}
		r.then = append(r.then, ar)
	}
	return r, nil
}

// applies reports whether every condition of the rule holds for req.
func (r rule) applies(req *transport.Request) bool {
	for _, c := range r.when {
		if !c.match(req) {
			return false
		}
	}
	return true
}

// allows reports whether the node is inside one of the rule's ranges.
func (r rule) allows(node *cluster.Node) bool {
	host := node.Shard().Host()
	addr, _ := parseHostAddr(host)
	for _, ar := range r.then {
		if ar.contains(addr, host) {
			return true
		}
	}
	return false
}
