package rabbitmq

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/qvcloud/console"
	amqp "github.com/rabbitmq/amqp091-go"
)

type rabbitConn interface {
	Channel() (rabbitChannel, error)
	Close() error
	IsClosed() bool
}

type rabbitChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Close() error
}

type connWrapper struct{ *amqp.Connection }

func (w *connWrapper) Channel() (rabbitChannel, error) {
	return w.Connection.Channel()
}

// topicExchange is where topic destinations are routed, matching the broker's
// STOMP-style mapping.
const topicExchange = "amq.topic"

// Client is a console.Client over an AMQP 0.9.1 connection. Queue
// destinations consume a named queue directly; topic destinations bind a
// private queue to amq.topic by routing key; exchange destinations bind a
// private queue to the named exchange.
type Client struct {
	cfg  console.ConnectionConfig
	opts *console.Options

	sync.RWMutex
	conn    rabbitConn
	channel rabbitChannel
	subs    map[string]rabbitChannel

	inbox     chan *console.Message
	closed    chan struct{}
	closeOnce sync.Once

	newConn func(addr string, config amqp.Config) (rabbitConn, error)
}

func NewClient(cfg console.ConnectionConfig, opts ...console.Option) *Client {
	return &Client{
		cfg:    cfg,
		opts:   console.NewOptions(opts...),
		subs:   make(map[string]rabbitChannel),
		inbox:  make(chan *console.Message, 128),
		closed: make(chan struct{}),
		newConn: func(addr string, config amqp.Config) (rabbitConn, error) {
			conn, err := amqp.DialConfig(addr, config)
			if err != nil {
				return nil, err
			}
			return &connWrapper{conn}, nil
		},
	}
}

func (c *Client) amqpURL() string {
	scheme := "amqp"
	if c.cfg.UseTLS {
		scheme = "amqps"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   c.cfg.Addr(),
		Path:   "/" + c.cfg.VirtualHost(),
	}
	if c.cfg.Login != "" {
		u.User = url.UserPassword(c.cfg.Login, c.cfg.Passcode)
	}
	return u.String()
}

func (c *Client) Connect(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if c.conn != nil {
		return nil
	}

	addr := c.cfg.Addr()
	c.opts.Listener.OnConnecting(addr)

	config := amqp.Config{
		Heartbeat:       c.cfg.Heartbeat.Send,
		TLSClientConfig: c.opts.TLSConfig,
	}
	if c.opts.ClientID != "" {
		config.Properties = amqp.Table{
			"connection_name": c.opts.ClientID,
		}
	}

	conn, err := c.newConn(c.amqpURL(), config)
	if err != nil {
		c.opts.Listener.OnConnectFailed(addr, err)
		return &console.ConnectError{Addr: addr, Err: err}
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		c.opts.Listener.OnConnectFailed(addr, err)
		return &console.ConnectError{Addr: addr, Err: err}
	}

	c.conn = conn
	c.channel = ch
	c.opts.Listener.OnConnected(addr)
	return nil
}

func (c *Client) Disconnect() error {
	c.Lock()
	defer c.Unlock()

	c.closeOnce.Do(func() { close(c.closed) })
	for dest, ch := range c.subs {
		ch.Close()
		delete(c.subs, dest)
	}
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

func (c *Client) Subscribe(destination string, headers map[string]string) error {
	dest, err := console.ParseDestination(destination)
	if err != nil {
		return err
	}

	c.RLock()
	conn := c.conn
	c.RUnlock()
	if conn == nil {
		return console.ErrNotConnected
	}

	ch, err := conn.Channel()
	if err != nil {
		return err
	}

	var queue string
	switch dest.Kind {
	case console.KindQueue:
		q, err := ch.QueueDeclare(dest.Name, false, false, false, false, nil)
		if err != nil {
			ch.Close()
			return err
		}
		queue = q.Name
	default:
		// Private queue bound to the exchange for this destination.
		q, err := ch.QueueDeclare("", false, true, true, false, nil)
		if err != nil {
			ch.Close()
			return err
		}
		exchange, key := topicExchange, dest.Name
		if dest.Kind == console.KindExchange {
			exchange, key = dest.Name, ""
		}
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			ch.Close()
			return err
		}
		queue = q.Name
	}

	deliveries, err := ch.Consume(queue, "", true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return err
	}

	go func() {
		for d := range deliveries {
			hdr := make(map[string]string, len(d.Headers))
			for k, v := range d.Headers {
				hdr[k] = fmt.Sprint(v)
			}
			msg := &console.Message{
				Destination: destination,
				Body:        string(d.Body),
				Header:      hdr,
				Received:    time.Now(),
			}
			select {
			case <-c.closed:
				return
			case c.inbox <- msg:
			}
		}
	}()

	c.Lock()
	c.subs[destination] = ch
	c.Unlock()
	return nil
}

func (c *Client) Unsubscribe(destination string, headers map[string]string) error {
	c.Lock()
	defer c.Unlock()

	ch, ok := c.subs[destination]
	if !ok {
		return fmt.Errorf("rabbitmq: no subscription for %s", destination)
	}
	delete(c.subs, destination)
	// Closing the channel ends the consumer and its delivery range loop.
	return ch.Close()
}

func (c *Client) Publish(ctx context.Context, destination, body string, headers map[string]string) error {
	dest, err := console.ParseDestination(destination)
	if err != nil {
		return err
	}

	c.RLock()
	ch := c.channel
	c.RUnlock()
	if ch == nil {
		return console.ErrNotConnected
	}

	table := make(amqp.Table, len(headers))
	for k, v := range headers {
		table[k] = v
	}

	exchange, key := "", dest.Name
	switch dest.Kind {
	case console.KindTopic:
		exchange = topicExchange
	case console.KindExchange:
		exchange, key = dest.Name, ""
	}

	return ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		Headers:     table,
		ContentType: "text/plain",
		Body:        []byte(body),
	})
}

func (c *Client) Receive(ctx context.Context) (*console.Message, error) {
	select {
	case <-c.closed:
		return nil, console.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-c.inbox:
		return msg, nil
	}
}

func (c *Client) Address() string { return c.cfg.Addr() }

func (c *Client) String() string { return "rabbitmq" }
