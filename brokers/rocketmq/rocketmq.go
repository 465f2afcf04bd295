package rocketmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/qvcloud/console"
)

// Client is a console.Client over RocketMQ. Every destination maps to a
// RocketMQ topic consumed through a single push consumer; delivery semantics
// follow the consumer group, which is shared per client, so queue and topic
// destinations behave alike within one console.
type Client struct {
	cfg  console.ConnectionConfig
	opts *console.Options

	sync.RWMutex
	producer rocketmq.Producer
	consumer rocketmq.PushConsumer
	subs     map[string]struct{}

	inbox     chan *console.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func NewClient(cfg console.ConnectionConfig, opts ...console.Option) *Client {
	return &Client{
		cfg:    cfg,
		opts:   console.NewOptions(opts...),
		subs:   make(map[string]struct{}),
		inbox:  make(chan *console.Message, 128),
		closed: make(chan struct{}),
	}
}

func (c *Client) groupID() string {
	if c.opts.ClientID != "" {
		return "GID_" + c.opts.ClientID
	}
	return "GID_CONSOLE"
}

func (c *Client) Connect(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if c.producer != nil {
		return nil
	}

	addr := c.cfg.Addr()
	c.opts.Listener.OnConnecting(addr)

	p, err := rocketmq.NewProducer(
		producer.WithNameServer([]string{addr}),
		producer.WithRetry(2),
	)
	if err != nil {
		c.opts.Listener.OnConnectFailed(addr, err)
		return &console.ConnectError{Addr: addr, Err: err}
	}
	if err := p.Start(); err != nil {
		c.opts.Listener.OnConnectFailed(addr, err)
		return &console.ConnectError{Addr: addr, Err: err}
	}

	c.producer = p
	c.opts.Listener.OnConnected(addr)
	return nil
}

func (c *Client) Disconnect() error {
	c.Lock()
	defer c.Unlock()

	c.closeOnce.Do(func() { close(c.closed) })
	if c.producer != nil {
		c.producer.Shutdown()
		c.producer = nil
	}
	if c.consumer != nil {
		c.consumer.Shutdown()
		c.consumer = nil
	}
	return nil
}

func (c *Client) Subscribe(destination string, headers map[string]string) error {
	dest, err := console.ParseDestination(destination)
	if err != nil {
		return err
	}

	c.Lock()
	if c.producer == nil {
		c.Unlock()
		return console.ErrNotConnected
	}
	if c.consumer == nil {
		pc, err := rocketmq.NewPushConsumer(
			consumer.WithNameServer([]string{c.cfg.Addr()}),
			consumer.WithGroupName(c.groupID()),
		)
		if err != nil {
			c.Unlock()
			return err
		}
		if err := pc.Start(); err != nil {
			c.Unlock()
			return err
		}
		c.consumer = pc
	}
	pushConsumer := c.consumer
	c.Unlock()

	err = pushConsumer.Subscribe(dest.Name, consumer.MessageSelector{}, func(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
		for _, m := range msgs {
			msg := &console.Message{
				Destination: destination,
				Body:        string(m.Body),
				Header:      m.GetProperties(),
				Received:    time.Now(),
			}
			select {
			case <-c.closed:
				return consumer.ConsumeSuccess, nil
			case c.inbox <- msg:
			}
		}
		return consumer.ConsumeSuccess, nil
	})
	if err != nil {
		return err
	}

	c.Lock()
	c.subs[destination] = struct{}{}
	c.Unlock()
	return nil
}

func (c *Client) Unsubscribe(destination string, headers map[string]string) error {
	dest, err := console.ParseDestination(destination)
	if err != nil {
		return err
	}

	c.Lock()
	pushConsumer := c.consumer
	if _, ok := c.subs[destination]; !ok || pushConsumer == nil {
		c.Unlock()
		return fmt.Errorf("rocketmq: no subscription for %s", destination)
	}
	delete(c.subs, destination)
	c.Unlock()
	return pushConsumer.Unsubscribe(dest.Name)
}

func (c *Client) Publish(ctx context.Context, destination, body string, headers map[string]string) error {
	dest, err := console.ParseDestination(destination)
	if err != nil {
		return err
	}

	c.RLock()
	p := c.producer
	c.RUnlock()
	if p == nil {
		return console.ErrNotConnected
	}

	rmqMsg := primitive.NewMessage(dest.Name, []byte(body))
	for k, v := range headers {
		rmqMsg.WithProperty(k, v)
	}

	res, err := p.SendSync(ctx, rmqMsg)
	if err != nil {
		return err
	}
	if res.Status != primitive.SendOK {
		return fmt.Errorf("rocketmq: send failed: %s", res.String())
	}
	return nil
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

func (c *Client) String() string { return "rocketmq" }
