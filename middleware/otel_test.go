package middleware

import (
	"testing"

	"github.com/qvcloud/console"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOtelCallback(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(sr))

	var got *console.Message
	cb := OtelCallback(func(m *console.Message) { got = m }, WithTracer(tp.Tracer("test")))

	msg := &console.Message{Destination: "/topic/foo", Body: "hello"}
	cb(msg)

	assert.Equal(t, msg, got)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "console.handle", spans[0].Name())

	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("messaging.destination", "/topic/foo"))
	assert.Contains(t, attrs, attribute.String("messaging.operation", "process"))
}
