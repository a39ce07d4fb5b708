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

package policy

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/uber-go/mapdecode"
	"go.uber.org/meshroute/api/backoff"
	ibackoff "go.uber.org/meshroute/internal/backoff"
	"go.uber.org/meshroute/internal/config"
	"go.uber.org/meshroute/routeerrors"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v2"
)

// Spec is the configuration of one FailoverPolicy.
//
//	maxRetry: 2
//	onlyOncePerNode: true
//	timeout: 500ms
//	retryOn: [unavailable, internal]
//	backoff: {base: 10ms, max: 200ms}
//	retryBudget: 50
//	retryBurst: 10
type Spec struct {
	// MaxRetry is the number of attempts after the first one.
	MaxRetry int `config:"maxRetry"`

	// OnlyOncePerNode forbids sending a call twice to the same node.
	// Defaults to true.
	OnlyOncePerNode *bool `config:"onlyOncePerNode"`

	// Timeout bounds each attempt. The deadline of the call's context
	// still applies.
	Timeout time.Duration `config:"timeout"`

	// RetryOn lists the error codes retried even when the transport did not
	// flag the failure as retryable.
	RetryOn StringList `config:"retryOn"`

	// RetryOnNames lists the error names retried likewise.
	RetryOnNames StringList `config:"retryOnNames"`

	Backoff BackoffSpec `config:"backoff"`

	// RetryBudget is the number of retries per second allowed across every
	// call using the policy. Zero means unlimited.
	RetryBudget float64 `config:"retryBudget"`

	// RetryBurst is the number of retries the budget allows at once.
	// Defaults to the budget rounded up.
	RetryBurst int `config:"retryBurst"`
}

// BackoffSpec configures an exponential backoff with full jitter. The zero
// value does not wait between attempts.
type BackoffSpec struct {
	Base time.Duration `config:"base"`
	Min  time.Duration `config:"min"`
	Max  time.Duration `config:"max"`
}

// Strategy builds the configured backoff strategy.
func (b BackoffSpec) Strategy() (backoff.Strategy, error) {
	if b.Base == 0 && b.Min == 0 && b.Max == 0 {
		return ibackoff.None, nil
	}
	var opts []ibackoff.ExponentialOption
	if b.Base > 0 {
		opts = append(opts, ibackoff.BaseJump(b.Base))
	}
	if b.Min > 0 {
		opts = append(opts, ibackoff.MinBackoff(b.Min))
	}
	if b.Max > 0 {
		opts = append(opts, ibackoff.MaxBackoff(b.Max))
	}
	return ibackoff.NewExponential(opts...)
}

// StringList decodes from a list of strings or from a single
// comma-separated string.
type StringList []string

// Decode implements mapdecode.Decoder.
func (l *StringList) Decode(into mapdecode.Into) error {
	var s string
	if err := into(&s); err == nil {
		*l = nil
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				*l = append(*l, item)
			}
		}
		return nil
	}
	var items []string
	if err := into(&items); err != nil {
		return err
	}
	*l = items
	return nil
}

// ParseSpec decodes a Spec from key/value configuration strings. Values are
// YAML scalars or flow collections.
func ParseSpec(kv map[string]string) (Spec, error) {
	var spec Spec
	attrs, err := config.FromStrings(kv)
	if err != nil {
		return spec, routeerrors.InvalidArgumentErrorf("invalid failover policy: %v", err)
	}
	if err := attrs.Decode(&spec); err != nil {
		return spec, routeerrors.InvalidArgumentErrorf("invalid failover policy: %v", err)
	}
	return spec, nil
}

// Policy builds the FailoverPolicy described by s. Extra options
// are applied last.
func (s Spec) Policy(extra ...FailoverOption) (*FailoverPolicy, error) {
	var (
		errs error
		opts []FailoverOption
	)
	if s.MaxRetry < 0 {
		errs = multierr.Append(errs, fmt.Errorf("maxRetry must not be negative, got %d", s.MaxRetry))
	}
	opts = append(opts, MaxRetry(s.MaxRetry))
	if s.OnlyOncePerNode != nil {
		opts = append(opts, OnlyOncePerNode(*s.OnlyOncePerNode))
	}

	if s.Timeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("timeout must not be negative, got %v", s.Timeout))
	} else if s.Timeout > 0 {
		opts = append(opts, Timeout(NewDeadline(s.Timeout)))
	}

	var exceptions []ExceptionPolicy
	if len(s.RetryOn) > 0 {
		codes := make([]routeerrors.Code, 0, len(s.RetryOn))
		for _, name := range s.RetryOn {
			var code routeerrors.Code
			if err := code.UnmarshalText([]byte(name)); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			codes = append(codes, code)
		}
		exceptions = append(exceptions, RetryOnCodes(codes...))
	}
	if len(s.RetryOnNames) > 0 {
		exceptions = append(exceptions, RetryOnNames(s.RetryOnNames...))
	}
	if p := AnyException(exceptions...); p != nil {
		opts = append(opts, Exceptions(p))
	}

	strategy, err := s.Backoff.Strategy()
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	opts = append(opts, BackoffStrategy(strategy))

	switch {
	case s.RetryBudget < 0:
		errs = multierr.Append(errs, fmt.Errorf("retryBudget must not be negative, got %v", s.RetryBudget))
	case s.RetryBudget > 0:
		burst := s.RetryBurst
		if burst <= 0 {
			burst = int(s.RetryBudget)
			if float64(burst) < s.RetryBudget {
				burst++
			}
		}
		opts = append(opts, RetryBudget(rate.NewLimiter(rate.Limit(s.RetryBudget), burst)))
	}

	if errs != nil {
		return nil, routeerrors.InvalidArgumentErrorf("invalid failover policy: %v", errs)
	}
	return NewFailoverPolicy(append(opts, extra...)...), nil
}

// OverrideConfig applies a named policy to a service, or to one method of a
// service.
type OverrideConfig struct {
	Service string `config:"service"`
	Method  string `config:"method"`
	With    string `config:"with"`
}

// Config names policies and says which calls they apply to.
//
//	policies:
//	  fast:
//	    maxRetry: 1
//	    timeout: 100ms
//	  patient:
//	    maxRetry: 3
//	    backoff: {base: 50ms, max: 1s}
//	default: fast
//	overrides:
//	  - service: billing
//	    with: patient
//	  - service: billing
//	    method: charge
//	    with: fast
type Config struct {
	Policies  map[string]Spec  `config:"policies"`
	Default   string           `config:"default"`
	Overrides []OverrideConfig `config:"overrides"`
}

// Provider builds the ProcedureProvider described by the configuration.
// Every problem found is reported.
func (cfg Config) Provider() (*ProcedureProvider, error) {
	var errs error
	policies := make(map[string]*FailoverPolicy, len(cfg.Policies))
	for name, spec := range cfg.Policies {
		p, err := spec.Policy()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("policy %q: %v", name, err))
			continue
		}
		policies[name] = p
	}

	provider := NewProcedureProvider()
	if cfg.Default != "" {
		if p, ok := policies[cfg.Default]; ok {
			provider.SetDefault(p)
		} else {
			errs = multierr.Append(errs, fmt.Errorf("invalid default failover policy: %q, possibilities are: %v", cfg.Default, policyNames(policies)))
		}
	}

	for _, o := range cfg.Overrides {
		p, ok := policies[o.With]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("invalid failover policy: %q, possibilities are: %v", o.With, policyNames(policies)))
			continue
		}
		switch {
		case o.Service != "" && o.Method != "":
			provider.RegisterServiceMethod(o.Service, o.Method, p)
		case o.Service != "":
			provider.RegisterService(o.Service, p)
		default:
			errs = multierr.Append(errs, fmt.Errorf("did not specify a service for failover policy override: %q", o.With))
		}
	}

	if errs != nil {
		return nil, routeerrors.InvalidArgumentErrorf("invalid failover configuration: %v", errs)
	}
	return provider, nil
}

// LoadYAML builds a ProcedureProvider from YAML text shaped like Config.
func LoadYAML(text []byte) (*ProcedureProvider, error) {
	var raw interface{}
	if err := yaml.Unmarshal(text, &raw); err != nil {
		return nil, routeerrors.InvalidArgumentErrorf("failed to parse failover configuration: %v", err)
	}
	var cfg Config
	if err := config.DecodeInto(&cfg, raw); err != nil {
		return nil, routeerrors.InvalidArgumentErrorf("failed to decode failover configuration: %v", err)
	}
	return cfg.Provider()
}

func policyNames(policies map[string]*FailoverPolicy) []string {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
