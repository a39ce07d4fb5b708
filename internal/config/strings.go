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

package config

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

// FromStrings builds an AttributeMap out of flat key/value configuration,
// the form policies arrive in from configuration-change callbacks.
//
// Every value is read as a YAML scalar or flow collection, so "3" becomes an
// int, "true" a bool and "[a, b]" a list. Empty values are skipped.
func FromStrings(kv map[string]string) (AttributeMap, error) {
	attrs := make(AttributeMap, len(kv))
	var err error
	for key, raw := range kv {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		var v interface{}
		if uerr := yaml.Unmarshal([]byte(raw), &v); uerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to parse %q for key %q: %v", raw, key, uerr))
			continue
		}
		attrs[key] = v
	}
	return attrs, err
}
