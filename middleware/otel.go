package middleware

import (
	"context"

	"github.com/qvcloud/console"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OtelCallback wraps a message callback with an OpenTelemetry consumer span.
func OtelCallback(cb console.Callback, opts ...Option) console.Callback {
	options := options{
		tracer: otel.Tracer("github.com/qvcloud/console"),
	}
	for _, o := range opts {
		o(&options)
	}

	return func(msg *console.Message) {
		_, span := options.tracer.Start(context.Background(), "console.handle",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "console"),
				attribute.String("messaging.destination", msg.Destination),
				attribute.String("messaging.operation", "process"),
			),
		)
		defer span.End()

		cb(msg)
	}
}

type options struct {
	tracer trace.Tracer
}

type Option func(*options)

func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}
