package middleware

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/los-insight/pkg/options"
)

// TimeoutOptions defines request timeout middleware options.
type TimeoutOptions struct {
	// Timeout 请求上下文的截止时间，0 表示不限制。
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	SkipPaths []string      `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewTimeoutOptions creates default timeout options.
func NewTimeoutOptions() *TimeoutOptions {
	return &TimeoutOptions{
		Timeout:   90 * time.Second,
		SkipPaths: []string{"/healthz", "/metrics"},
	}
}

// AddFlags adds flags for timeout options to the specified FlagSet.
func (o *TimeoutOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"middleware.timeout.timeout", o.Timeout, "Request context timeout (0 disables).")
	fs.StringSliceVar(&o.SkipPaths, options.Join(prefixes...)+"middleware.timeout.skip-paths", o.SkipPaths, "Paths without a request timeout.")
}

// Validate validates the timeout options.
func (o *TimeoutOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if o.Timeout < 0 {
		return []error{errors.New("timeout must not be negative")}
	}
	return nil
}
