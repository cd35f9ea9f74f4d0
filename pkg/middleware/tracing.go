package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	ctxlog "github.com/kart-io/los-insight/pkg/infra/logger"
	"github.com/kart-io/los-insight/pkg/infra/tracing"
)

// Tracing starts a server span per request, continuing any W3C trace context
// sent by the caller, and copies the trace ID into the context log fields.
func Tracing(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracing.StartSpan(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String(tracing.HTTPMethod, c.Request.Method),
				attribute.String(tracing.HTTPRoute, route),
				attribute.String(tracing.HTTPRequestID, GetRequestID(c)),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctxlog.WithTraceFields(ctx))
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int(tracing.HTTPStatusCode, status))
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
	}
}
