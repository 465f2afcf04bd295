package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qvcloud/console"
	"github.com/redis/go-redis/v9"
)

type redisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Client is a console.Client over Redis streams. Each destination is a
// stream keyed by the destination string; queue destinations share a
// consumer group named after the queue, topic and exchange destinations get
// a group per console. Headers ride in a codec-packed stream field since
// stream entries carry no native header map.
type Client struct {
	cfg  console.ConnectionConfig
	opts *console.Options

	sync.RWMutex
	client redisClient
	subs   map[string]context.CancelFunc

	inbox     chan *console.Message
	closed    chan struct{}
	closeOnce sync.Once

	newClient func(opts *redis.Options) redisClient
}

func NewClient(cfg console.ConnectionConfig, opts ...console.Option) *Client {
	return &Client{
		cfg:    cfg,
		opts:   console.NewOptions(opts...),
		subs:   make(map[string]context.CancelFunc),
		inbox:  make(chan *console.Message, 128),
		closed: make(chan struct{}),
		newClient: func(opts *redis.Options) redisClient {
			return redis.NewClient(opts)
		},
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if c.client != nil {
		return nil
	}

	addr := c.cfg.Addr()
	c.opts.Listener.OnConnecting(addr)

	ropts := &redis.Options{
		Addr:     addr,
		Username: c.cfg.Login,
		Password: c.cfg.Passcode,
	}
	if c.cfg.UseTLS {
		ropts.TLSConfig = c.opts.TLSConfig
	}

	client := c.newClient(ropts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		c.opts.Listener.OnConnectFailed(addr, err)
		return &console.ConnectError{Addr: addr, Err: err}
	}

	c.client = client
	c.opts.Listener.OnConnected(addr)
	return nil
}

func (c *Client) Disconnect() error {
	c.Lock()
	defer c.Unlock()

	c.closeOnce.Do(func() { close(c.closed) })
	for dest, cancel := range c.subs {
		cancel()
		delete(c.subs, dest)
	}
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	return nil
}

func (c *Client) Subscribe(destination string, headers map[string]string) error {
	dest, err := console.ParseDestination(destination)
	if err != nil {
		return err
	}

	c.RLock()
	client := c.client
	c.RUnlock()
	if client == nil {
		return console.ErrNotConnected
	}

	group := "console:" + dest.Name
	if dest.Kind != console.KindQueue {
		group = "console-" + uuid.New().String()
	}
	consumer := c.opts.ClientID
	if consumer == "" {
		consumer = uuid.New().String()
	}

	if err := client.XGroupCreateMkStream(context.Background(), destination, group, "$").Err(); err != nil {
		// BUSYGROUP means the group already exists, which is fine for
		// shared queue groups.
		if !isBusyGroup(err) {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go c.consume(ctx, destination, group, consumer)

	c.Lock()
	c.subs[destination] = cancel
	c.Unlock()
	return nil
}

func (c *Client) consume(ctx context.Context, destination, group, consumer string) {
	for {
		if ctx.Err() != nil {
			return
		}

		c.RLock()
		client := c.client
		c.RUnlock()
		if client == nil {
			return
		}

		streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{destination, ">"},
			Count:    16,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			c.opts.Listener.OnMiscError(err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				msg := c.decode(destination, entry)
				select {
				case <-c.closed:
					return
				case c.inbox <- msg:
				}
				client.XAck(ctx, destination, group, entry.ID)
			}
		}
	}
}

func (c *Client) decode(destination string, entry redis.XMessage) *console.Message {
	msg := &console.Message{
		Destination: destination,
		Header:      map[string]string{"message-id": entry.ID},
		Received:    time.Now(),
	}
	if body, ok := entry.Values["body"].(string); ok {
		msg.Body = body
	}
	if packed, ok := entry.Values["header"].(string); ok && packed != "" {
		hdr := make(map[string]string)
		if err := c.opts.Codec.Unmarshal([]byte(packed), &hdr); err == nil {
			for k, v := range hdr {
				msg.Header[k] = v
			}
		}
	}
	return msg
}

func (c *Client) Unsubscribe(destination string, headers map[string]string) error {
	c.Lock()
	defer c.Unlock()

	cancel, ok := c.subs[destination]
	if !ok {
		return fmt.Errorf("redis: no subscription for %s", destination)
	}
	delete(c.subs, destination)
	cancel()
	return nil
}

func (c *Client) Publish(ctx context.Context, destination, body string, headers map[string]string) error {
	if _, err := console.ParseDestination(destination); err != nil {
		return err
	}

	c.RLock()
	client := c.client
	c.RUnlock()
	if client == nil {
		return console.ErrNotConnected
	}

	values := map[string]any{"body": body}
	if len(headers) > 0 {
		packed, err := c.opts.Codec.Marshal(headers)
		if err != nil {
			return err
		}
		values["header"] = string(packed)
	}

	return client.XAdd(ctx, &redis.XAddArgs{
		Stream: destination,
		Values: values,
	}).Err()
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

func (c *Client) String() string { return "redis" }

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
