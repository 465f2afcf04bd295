package console

import (
	"bytes"
	"crypto/tls"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestOptions(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	opts := NewOptions(
		WithLogger(logger),
		WithOutput(&buf),
		WithClientID("test-client"),
		WithTLSConfig(&tls.Config{}),
		WithTracer(tracenoop.NewTracerProvider().Tracer("test")),
		WithMeter(noop.NewMeterProvider().Meter("test")),
		WithCodec(JsonMarshaler{}),
	)

	assert.Equal(t, &buf, opts.Out)
	assert.Equal(t, "test-client", opts.ClientID)
	assert.NotNil(t, opts.TLSConfig)
	assert.NotNil(t, opts.Tracer)
	assert.NotNil(t, opts.Meter)
	assert.NotNil(t, opts.Codec)
	assert.NotNil(t, opts.Listener)
}

func TestOptions_Defaults(t *testing.T) {
	opts := NewOptions()
	assert.NotNil(t, opts.Out)
	assert.NotNil(t, opts.Codec)
	assert.NotNil(t, opts.Listener)
	assert.Nil(t, opts.Tracer)
	assert.Nil(t, opts.Meter)
}

func TestOptions_CustomListenerKept(t *testing.T) {
	l := recordingListener{}
	opts := NewOptions(WithListener(&l))
	assert.Equal(t, &l, opts.Listener)
}

type recordingListener struct {
	events []string
}

func (l *recordingListener) OnConnecting(addr string)            { l.events = append(l.events, "connecting") }
func (l *recordingListener) OnConnected(addr string)             { l.events = append(l.events, "connected") }
func (l *recordingListener) OnConnectFailed(addr string, _ error) { l.events = append(l.events, "failed") }
func (l *recordingListener) OnMiscError(_ error)                 { l.events = append(l.events, "error") }
