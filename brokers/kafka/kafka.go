package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qvcloud/console"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

type subscription struct {
	reader *kafka.Reader
	cancel context.CancelFunc
}

// Client is a console.Client over Kafka. Every destination maps to a Kafka
// topic; queue destinations share a consumer group named after the queue so
// consoles compete for messages, while topic and exchange destinations get a
// group of their own and see every message.
type Client struct {
	cfg  console.ConnectionConfig
	opts *console.Options

	sync.RWMutex
	writer *kafka.Writer
	subs   map[string]subscription

	inbox     chan *console.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func NewClient(cfg console.ConnectionConfig, opts ...console.Option) *Client {
	return &Client{
		cfg:    cfg,
		opts:   console.NewOptions(opts...),
		subs:   make(map[string]subscription),
		inbox:  make(chan *console.Message, 128),
		closed: make(chan struct{}),
	}
}

func (c *Client) tlsConfig() *tls.Config {
	if !c.cfg.UseTLS {
		return nil
	}
	if c.opts.TLSConfig != nil {
		return c.opts.TLSConfig
	}
	return &tls.Config{}
}

func (c *Client) saslMechanism() sasl.Mechanism {
	if c.cfg.Login == "" {
		return nil
	}
	return plain.Mechanism{
		Username: c.cfg.Login,
		Password: c.cfg.Passcode,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if c.writer != nil {
		return nil
	}

	addr := c.cfg.Addr()
	c.opts.Listener.OnConnecting(addr)

	c.writer = &kafka.Writer{
		Addr:     kafka.TCP(addr),
		Balancer: &kafka.LeastBytes{},
		Transport: &kafka.Transport{
			TLS:  c.tlsConfig(),
			SASL: c.saslMechanism(),
		},
		AllowAutoTopicCreation: true,
	}
	c.opts.Listener.OnConnected(addr)
	return nil
}

func (c *Client) Disconnect() error {
	c.Lock()
	defer c.Unlock()

	c.closeOnce.Do(func() { close(c.closed) })
	for dest, sub := range c.subs {
		sub.cancel()
		sub.reader.Close()
		delete(c.subs, dest)
	}
	if c.writer != nil {
		c.writer.Close()
		c.writer = nil
	}
	return nil
}

func (c *Client) Subscribe(destination string, headers map[string]string) error {
	dest, err := console.ParseDestination(destination)
	if err != nil {
		return err
	}

	c.Lock()
	defer c.Unlock()
	if c.writer == nil {
		return console.ErrNotConnected
	}

	groupID := dest.Name
	if dest.Kind != console.KindQueue {
		groupID = "console-" + uuid.New().String()
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{c.cfg.Addr()},
		GroupID: groupID,
		Topic:   dest.Name,
		Dialer: &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			TLS:           c.tlsConfig(),
			SASLMechanism: c.saslMechanism(),
		},
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.opts.Listener.OnMiscError(err)
				continue
			}

			hdr := make(map[string]string, len(m.Headers))
			for _, h := range m.Headers {
				hdr[h.Key] = string(h.Value)
			}
			msg := &console.Message{
				Destination: destination,
				Body:        string(m.Value),
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

	c.subs[destination] = subscription{reader: reader, cancel: cancel}
	return nil
}

func (c *Client) Unsubscribe(destination string, headers map[string]string) error {
	c.Lock()
	defer c.Unlock()

	sub, ok := c.subs[destination]
	if !ok {
		return fmt.Errorf("kafka: no subscription for %s", destination)
	}
	delete(c.subs, destination)
	sub.cancel()
	return sub.reader.Close()
}

func (c *Client) Publish(ctx context.Context, destination, body string, headers map[string]string) error {
	dest, err := console.ParseDestination(destination)
	if err != nil {
		return err
	}

	c.RLock()
	writer := c.writer
	c.RUnlock()
	if writer == nil {
		return console.ErrNotConnected
	}

	kh := make([]kafka.Header, 0, len(headers))
	for k, v := range headers {
		kh = append(kh, kafka.Header{Key: k, Value: []byte(v)})
	}

	return writer.WriteMessages(ctx, kafka.Message{
		Topic:   dest.Name,
		Value:   []byte(body),
		Headers: kh,
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

func (c *Client) String() string { return "kafka" }
