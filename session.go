package console

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Session ties one Client to the interactive command surface. It owns the
// subscription registry and the display state and is handed by reference to
// both execution contexts: command handlers mutate it while the pump reads
// it.
type Session struct {
	client   Client
	registry *SubscriptionRegistry
	display  *DisplayOptions
	pump     *Pump
	opts     *Options
}

// Receipt reports a successful publish: the destination, body, and effective
// headers that went out.
type Receipt struct {
	Destination string
	Body        string
	Header      map[string]string
}

func NewSession(client Client, opts ...Option) *Session {
	options := NewOptions(opts...)
	display := NewDisplayOptions()
	return &Session{
		client:   client,
		registry: NewSubscriptionRegistry(client),
		display:  display,
		pump:     NewPump(client, display, opts...),
		opts:     options,
	}
}

// Run drives the receive loop until the connection closes; the terminal
// error is returned to the caller.
func (s *Session) Run(ctx context.Context) error {
	return s.pump.Run(ctx)
}

// Close releases the broker connection. The pump observes the closure as its
// stop signal.
func (s *Session) Close() error {
	return s.client.Disconnect()
}

// Subscribe registers /kind/name and returns the allocated subscription id.
func (s *Session) Subscribe(kind, name string, headers map[string]string) (int, error) {
	dest, err := NewDestination(kind, name)
	if err != nil {
		return 0, err
	}
	return s.registry.Subscribe(dest, headers)
}

// Unsubscribe removes /kind/name.
func (s *Session) Unsubscribe(kind, name string, headers map[string]string) error {
	dest, err := NewDestination(kind, name)
	if err != nil {
		return err
	}
	return s.registry.Unsubscribe(dest, headers)
}

// Subscriptions returns the subscribed destinations in insertion order.
func (s *Session) Subscriptions() []string {
	return s.registry.List()
}

// SendTopic publishes body to /topic/name.
func (s *Session) SendTopic(ctx context.Context, name, body string, headers map[string]string) (Receipt, error) {
	return s.send(ctx, KindTopic, name, body, headers)
}

// SendQueue publishes body to /queue/name.
func (s *Session) SendQueue(ctx context.Context, name, body string, headers map[string]string) (Receipt, error) {
	return s.send(ctx, KindQueue, name, body, headers)
}

// SendExchange publishes body to /exchange/name.
func (s *Session) SendExchange(ctx context.Context, name, body string, headers map[string]string) (Receipt, error) {
	return s.send(ctx, KindExchange, name, body, headers)
}

func (s *Session) send(ctx context.Context, kind, name, body string, headers map[string]string) (Receipt, error) {
	dest, err := NewDestination(kind, name)
	if err != nil {
		return Receipt{}, err
	}

	hdr := make(map[string]string, len(headers))
	for k, v := range headers {
		hdr[k] = v
	}

	var span trace.Span
	if s.opts.Tracer != nil {
		ctx, span = s.opts.Tracer.Start(ctx, "console.publish",
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(
				attribute.String("messaging.destination", dest.String()),
			),
		)
		defer span.End()
	}

	if err := s.client.Publish(ctx, dest.String(), body, hdr); err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return Receipt{}, &PublishError{Destination: dest.String(), Err: err}
	}
	return Receipt{Destination: dest.String(), Body: body, Header: hdr}, nil
}

func (s *Session) SetVerbose(v bool)        { s.display.SetVerbose(v) }
func (s *Session) ToggleVerbose() bool      { return s.display.ToggleVerbose() }
func (s *Session) SetLongFormat(f string)   { s.display.SetLongFormat(f) }
func (s *Session) SetShortFormat(f string)  { s.display.SetShortFormat(f) }
func (s *Session) SetCallback(cb Callback)  { s.display.SetCallback(cb) }
func (s *Session) Display() *DisplayOptions { return s.display }

// Command is a named console operation.
type Command struct {
	Name    string
	Usage   string
	Handler func(ctx context.Context, args []string) (string, error)
}

// Commands builds the name → command table. The table is fixed here, at
// startup, and validated; names never resolve dynamically at call time.
func (s *Session) Commands() (map[string]Command, error) {
	cmds := []Command{
		{
			Name:  "subscribe",
			Usage: "subscribe <topic|queue|exchange> <name>",
			Handler: func(ctx context.Context, args []string) (string, error) {
				if len(args) != 2 {
					return "", fmt.Errorf("usage: subscribe <topic|queue|exchange> <name>")
				}
				id, err := s.Subscribe(args[0], args[1], nil)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("subscribed /%s/%s id=%d", args[0], args[1], id), nil
			},
		},
		{
			Name:  "unsubscribe",
			Usage: "unsubscribe <topic|queue|exchange> <name>",
			Handler: func(ctx context.Context, args []string) (string, error) {
				if len(args) != 2 {
					return "", fmt.Errorf("usage: unsubscribe <topic|queue|exchange> <name>")
				}
				if err := s.Unsubscribe(args[0], args[1], nil); err != nil {
					return "", err
				}
				return fmt.Sprintf("unsubscribed /%s/%s", args[0], args[1]), nil
			},
		},
		{
			Name:  "topic",
			Usage: "topic <name> <body...>",
			Handler: func(ctx context.Context, args []string) (string, error) {
				return s.sendCommand(ctx, KindTopic, args)
			},
		},
		{
			Name:  "queue",
			Usage: "queue <name> <body...>",
			Handler: func(ctx context.Context, args []string) (string, error) {
				return s.sendCommand(ctx, KindQueue, args)
			},
		},
		{
			Name:  "exchange",
			Usage: "exchange <name> <body...>",
			Handler: func(ctx context.Context, args []string) (string, error) {
				return s.sendCommand(ctx, KindExchange, args)
			},
		},
		{
			Name:  "verbose",
			Usage: "verbose",
			Handler: func(ctx context.Context, args []string) (string, error) {
				if s.ToggleVerbose() {
					return "verbose on", nil
				}
				return "verbose off", nil
			},
		},
		{
			Name:  "long",
			Usage: "long <template>",
			Handler: func(ctx context.Context, args []string) (string, error) {
				if len(args) == 0 {
					return "", fmt.Errorf("usage: long <template>")
				}
				s.SetLongFormat(strings.Join(args, " "))
				return "long format set", nil
			},
		},
		{
			Name:  "short",
			Usage: "short <template>",
			Handler: func(ctx context.Context, args []string) (string, error) {
				if len(args) == 0 {
					return "", fmt.Errorf("usage: short <template>")
				}
				s.SetShortFormat(strings.Join(args, " "))
				return "short format set", nil
			},
		},
		{
			Name:  "list",
			Usage: "list",
			Handler: func(ctx context.Context, args []string) (string, error) {
				subs := s.Subscriptions()
				if len(subs) == 0 {
					return "no subscriptions", nil
				}
				return strings.Join(subs, "\n"), nil
			},
		},
	}

	table := make(map[string]Command, len(cmds))
	for _, c := range cmds {
		if c.Name == "" || c.Handler == nil {
			return nil, fmt.Errorf("invalid command entry %q", c.Name)
		}
		if _, dup := table[c.Name]; dup {
			return nil, fmt.Errorf("duplicate command %q", c.Name)
		}
		table[c.Name] = c
	}
	return table, nil
}

func (s *Session) sendCommand(ctx context.Context, kind string, args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("usage: %s <name> <body...>", kind)
	}
	rcpt, err := s.send(ctx, kind, args[0], strings.Join(args[1:], " "), nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sent %s %q", rcpt.Destination, rcpt.Body), nil
}
