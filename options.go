package console

import (
	"crypto/tls"
	"io"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Options contains the session-level configuration shared by the command
// surface, the receive loop, and the transport clients.
type Options struct {
	// Logger receives session and receive-loop log output.
	Logger zerolog.Logger
	// Out is where rendered messages and command results are printed.
	Out io.Writer
	// Listener receives connection lifecycle notifications.
	Listener Listener

	// Codec is used by transports that cannot carry headers natively.
	Codec Marshaler

	// TLSConfig overrides the default TLS configuration when the
	// connection is secure.
	TLSConfig *tls.Config

	// ClientID names this client to brokers that support it.
	ClientID string

	// Tracer, when set, wraps publishes in spans.
	Tracer trace.Tracer
	// Meter, when set, counts received messages.
	Meter metric.Meter
}

type Option func(*Options)

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) *Options {
	options := Options{
		Logger: zerolog.Nop(),
		Out:    os.Stdout,
		Codec:  JsonMarshaler{},
	}
	for _, o := range opts {
		o(&options)
	}
	if options.Listener == nil {
		options.Listener = LogListener{Logger: options.Logger}
	}
	return &options
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithOutput sets the writer rendered messages are printed to.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Out = w
	}
}

// WithListener sets the lifecycle notification listener.
func WithListener(l Listener) Option {
	return func(o *Options) {
		o.Listener = l
	}
}

// WithCodec sets the codec used where a transport does not support headers.
func WithCodec(c Marshaler) Option {
	return func(o *Options) {
		o.Codec = c
	}
}

// WithTLSConfig specifies the TLS configuration.
func WithTLSConfig(t *tls.Config) Option {
	return func(o *Options) {
		o.TLSConfig = t
	}
}

// WithClientID names this client to the broker.
func WithClientID(id string) Option {
	return func(o *Options) {
		o.ClientID = id
	}
}

// WithTracer sets the tracer used for observability.
func WithTracer(t trace.Tracer) Option {
	return func(o *Options) {
		o.Tracer = t
	}
}

// WithMeter sets the meter used for observability.
func WithMeter(m metric.Meter) Option {
	return func(o *Options) {
		o.Meter = m
	}
}
