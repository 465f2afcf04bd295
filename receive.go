package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

// Pump is the session's background receive loop. It repeatedly blocks on the
// client, stamps the arrival time, renders each message with a snapshot of
// the display state, prints it, and invokes the current callback. Transient
// receive errors are logged and the loop continues; only the deliberate
// close of the connection (ErrClosed) or context cancellation ends it.
type Pump struct {
	client  Client
	display *DisplayOptions
	out     io.Writer
	logger  zerolog.Logger

	received metric.Int64Counter
}

func NewPump(client Client, display *DisplayOptions, opts ...Option) *Pump {
	options := NewOptions(opts...)
	p := &Pump{
		client:  client,
		display: display,
		out:     options.Out,
		logger:  options.Logger.With().Str("component", "pump").Logger(),
	}
	if options.Meter != nil {
		c, err := options.Meter.Int64Counter("console.messages.received")
		if err == nil {
			p.received = c
		}
	}
	return p
}

// Run drains the client until the connection closes or ctx is cancelled, and
// returns the terminal error to the session owner. The callback runs
// synchronously: a slow callback delays subsequent messages, it is not
// buffered around.
func (p *Pump) Run(ctx context.Context) error {
	for {
		msg, err := p.client.Receive(ctx)
		if err != nil {
			switch {
			case errors.Is(err, ErrClosed):
				p.logger.Debug().Str("address", p.client.Address()).Msg("receive loop stopped")
				return err
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				p.logger.Warn().
					Str("address", p.client.Address()).
					Err(err).
					Msg("receive failed")
				continue
			}
		}

		if msg.Received.IsZero() {
			msg.Received = time.Now()
		}
		if p.received != nil {
			p.received.Add(ctx, 1)
		}

		snap := p.display.Snapshot()
		fmt.Fprintln(p.out, Render(snap.Template, msg))
		if snap.Callback != nil {
			snap.Callback(msg)
		}
	}
}
