// Package logger carries request-scoped log fields through context.Context.
//
// Middleware stores the request ID and trace ID once; biz code calls
// FromContext(ctx) and every entry it writes carries those fields.
package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

type contextKey int

const loggerFieldsKey contextKey = iota

// loggerFields holds the fields attached to a context. Values are never
// mutated after creation; each With* call clones.
type loggerFields struct {
	keys   []string
	values map[string]interface{}
}

func (lf *loggerFields) clone() *loggerFields {
	n := &loggerFields{values: make(map[string]interface{}, len(lf.values)+1)}
	n.keys = append(n.keys, lf.keys...)
	for k, v := range lf.values {
		n.values[k] = v
	}
	return n
}

func (lf *loggerFields) set(key string, value interface{}) {
	if _, ok := lf.values[key]; !ok {
		lf.keys = append(lf.keys, key)
	}
	lf.values[key] = value
}

func (lf *loggerFields) toSlice() []interface{} {
	if len(lf.keys) == 0 {
		return nil
	}
	out := make([]interface{}, 0, len(lf.keys)*2)
	for _, k := range lf.keys {
		out = append(out, k, lf.values[k])
	}
	return out
}

func getLoggerFields(ctx context.Context) *loggerFields {
	if lf, ok := ctx.Value(loggerFieldsKey).(*loggerFields); ok {
		return lf
	}
	return &loggerFields{values: map[string]interface{}{}}
}

func withField(ctx context.Context, key string, value interface{}) context.Context {
	lf := getLoggerFields(ctx).clone()
	lf.set(key, value)
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// WithRequestID adds request_id to the context logger fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return withField(ctx, "request_id", requestID)
}

// WithPatientID adds patient_id to the context logger fields.
func WithPatientID(ctx context.Context, patientID string) context.Context {
	if patientID == "" {
		return ctx
	}
	return withField(ctx, "patient_id", patientID)
}

// WithFields adds key-value pairs to the context logger fields. A trailing
// key without value is dropped.
func WithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	if len(keysAndValues) < 2 {
		return ctx
	}
	lf := getLoggerFields(ctx).clone()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			lf.set(key, keysAndValues[i+1])
		}
	}
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// WithTraceFields copies trace_id and span_id of the active span into the
// context logger fields. Contexts without a valid span are returned as is.
func WithTraceFields(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	lf := getLoggerFields(ctx).clone()
	lf.set("trace_id", sc.TraceID().String())
	lf.set("span_id", sc.SpanID().String())
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// Fields returns the context logger fields as a key-value slice.
func Fields(ctx context.Context) []interface{} {
	return getLoggerFields(ctx).toSlice()
}

// FromContext returns the global logger carrying the context fields.
func FromContext(ctx context.Context) core.Logger {
	base := logger.Global()
	if ctx == nil {
		return base
	}
	fields := Fields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
