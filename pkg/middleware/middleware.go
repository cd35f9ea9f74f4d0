// Package middleware provides the gin middleware used by the HTTP server.
//
// The default chain, outermost first:
//
//	Recovery -> RequestID -> Logger -> Metrics -> CORS -> Timeout
//
// Usage:
//
//	engine.Use(middleware.Chain(opts, collector)...)
package middleware

import (
	"github.com/gin-gonic/gin"

	mwopts "github.com/kart-io/los-insight/pkg/options/middleware"
)

// Chain returns the configured middleware in execution order.
// A nil collector disables request metrics.
func Chain(opts *mwopts.Options, collector *MetricsCollector) []gin.HandlerFunc {
	if opts == nil {
		opts = mwopts.NewOptions()
	}

	chain := []gin.HandlerFunc{Recovery()}
	if opts.RequestID != nil {
		chain = append(chain, RequestIDWithOptions(opts.RequestID))
	}
	if opts.Logger != nil {
		chain = append(chain, LoggerWithConfig(LoggerConfig{SkipPaths: opts.Logger.SkipPaths}))
	}
	if collector != nil {
		chain = append(chain, Metrics(collector))
	}
	if opts.CORS != nil {
		chain = append(chain, CORSWithOptions(opts.CORS))
	}
	if opts.Timeout != nil && opts.Timeout.Timeout > 0 {
		chain = append(chain, TimeoutWithConfig(TimeoutConfig{
			Timeout:   opts.Timeout.Timeout,
			SkipPaths: opts.Timeout.SkipPaths,
		}))
	}
	return chain
}
