package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithPatientID(ctx, "42")
	assert.Equal(t, []interface{}{"request_id", "req-1", "patient_id", "42"}, Fields(ctx))

	assert.Nil(t, Fields(WithRequestID(context.Background(), "")))
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	parent := WithRequestID(context.Background(), "req-1")
	child := WithFields(parent, "kind", "quota", "dangling")

	assert.Equal(t, []interface{}{"request_id", "req-1"}, Fields(parent))
	assert.Equal(t, []interface{}{"request_id", "req-1", "kind", "quota"}, Fields(child))

	overwritten := WithRequestID(child, "req-2")
	assert.Equal(t, []interface{}{"request_id", "req-2", "kind", "quota"}, Fields(overwritten))
}

func TestWithTraceFields(t *testing.T) {
	assert.Nil(t, Fields(WithTraceFields(context.Background())))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	fields := Fields(WithTraceFields(ctx))
	require.Len(t, fields, 4)
	assert.Equal(t, "trace_id", fields[0])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields[1])
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
	assert.NotNil(t, FromContext(WithRequestID(context.Background(), "req-1")))
}
