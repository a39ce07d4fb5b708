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

package routeerrors

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// CodeOK means no error; returned on success
	CodeOK Code = 0

	// CodeCancelled means the operation was cancelled, typically by the caller.
	CodeCancelled Code = 1

	// CodeUnknown means an unknown error. Errors returned by transports that
	// do not carry enough information may be converted to this error.
	CodeUnknown Code = 2

	// CodeInvalidArgument means the configuration or request was invalid
	// regardless of the state of the cluster, e.g. a malformed routing rule.
	CodeInvalidArgument Code = 3

	// CodeDeadlineExceeded means the deadline of the call expired before a
	// node could answer it. Retrying stops as soon as this is observed.
	CodeDeadlineExceeded Code = 4

	// CodeNotFound means some requested entity, such as a group alias, was
	// not found.
	CodeNotFound Code = 5

	// CodeResourceExhausted means the retry budget for a call was spent.
	CodeResourceExhausted Code = 8

	// CodeInternal means an internal error. Some invariant expected by the
	// router has been broken.
	CodeInternal Code = 13

	// CodeUnavailable means no node could serve the call. This is most likely
	// a transient condition which a later topology update may resolve.
	CodeUnavailable Code = 14
)

var (
	_codeToString = map[Code]string{
		CodeOK:                "ok",
		CodeCancelled:         "cancelled",
		CodeUnknown:           "unknown",
		CodeInvalidArgument:   "invalid-argument",
		CodeDeadlineExceeded:  "deadline-exceeded",
		CodeNotFound:          "not-found",
		CodeResourceExhausted: "resource-exhausted",
		CodeInternal:          "internal",
		CodeUnavailable:       "unavailable",
	}
	_stringToCode = map[string]Code{
		"ok":                 CodeOK,
		"cancelled":          CodeCancelled,
		"unknown":            CodeUnknown,
		"invalid-argument":   CodeInvalidArgument,
		"deadline-exceeded":  CodeDeadlineExceeded,
		"not-found":          CodeNotFound,
		"resource-exhausted": CodeResourceExhausted,
		"internal":           CodeInternal,
		"unavailable":        CodeUnavailable,
	}
)

// Code represents the type of error for a routed call.
//
// The numeric values match gRPC status codes so transports can map them
// without a lookup table.
type Code int

// String returns the the string representation of the Code.
func (c Code) String() string {
	s, ok := _codeToString[c]
	if ok {
		return s
	}
	return strconv.Itoa(int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	s, ok := _codeToString[c]
	if ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("unknown code: %d", int(c))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(text []byte) error {
	i, ok := _stringToCode[strings.ToLower(strings.TrimSpace(string(text)))]
	if !ok {
		return fmt.Errorf("unknown code string: %s", string(text))
	}
	*c = i
	return nil
}
