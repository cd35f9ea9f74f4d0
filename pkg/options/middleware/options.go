// Package middleware provides HTTP middleware configuration options.
package middleware

import (
	"github.com/spf13/pflag"

	"github.com/kart-io/los-insight/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options 聚合 HTTP 中间件配置。CORS 为 nil 时不启用。
type Options struct {
	RequestID *RequestIDOptions `json:"request-id" mapstructure:"request-id"`
	Logger    *LoggerOptions    `json:"logger" mapstructure:"logger"`
	CORS      *CORSOptions      `json:"cors" mapstructure:"cors"`
	Timeout   *TimeoutOptions   `json:"timeout" mapstructure:"timeout"`
}

// NewOptions creates default middleware options.
func NewOptions() *Options {
	return &Options{
		RequestID: NewRequestIDOptions(),
		Logger:    NewLoggerOptions(),
		CORS:      NewCORSOptions(),
		Timeout:   NewTimeoutOptions(),
	}
}

// AddFlags adds flags for every middleware to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	if o.RequestID != nil {
		o.RequestID.AddFlags(fs, prefixes...)
	}
	if o.Logger != nil {
		o.Logger.AddFlags(fs, prefixes...)
	}
	if o.CORS != nil {
		o.CORS.AddFlags(fs, prefixes...)
	}
	if o.Timeout != nil {
		o.Timeout.AddFlags(fs, prefixes...)
	}
}

// Validate validates every configured middleware.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	errs = append(errs, o.RequestID.Validate()...)
	errs = append(errs, o.Logger.Validate()...)
	errs = append(errs, o.CORS.Validate()...)
	errs = append(errs, o.Timeout.Validate()...)
	return errs
}
