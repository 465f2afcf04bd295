package nats

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/qvcloud/console"
)

type natsConn interface {
	PublishMsg(m *nats.Msg) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

// Client is a console.Client over a NATS connection. Topic and exchange
// destinations become plain subjects; queue destinations join a queue group
// named after the queue so consoles on the same queue compete for messages.
type Client struct {
	cfg  console.ConnectionConfig
	opts *console.Options

	sync.RWMutex
	conn natsConn
	subs map[string]*nats.Subscription

	inbox     chan *console.Message
	closed    chan struct{}
	closeOnce sync.Once

	newConn func(url string, opts ...nats.Option) (natsConn, error)
}

func NewClient(cfg console.ConnectionConfig, opts ...console.Option) *Client {
	return &Client{
		cfg:    cfg,
		opts:   console.NewOptions(opts...),
		subs:   make(map[string]*nats.Subscription),
		inbox:  make(chan *console.Message, 128),
		closed: make(chan struct{}),
		newConn: func(url string, opts ...nats.Option) (natsConn, error) {
			return nats.Connect(url, opts...)
		},
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if c.conn != nil {
		return nil
	}

	addr := c.cfg.Addr()
	c.opts.Listener.OnConnecting(addr)

	nopts := []nats.Option{}
	if c.cfg.Login != "" {
		nopts = append(nopts, nats.UserInfo(c.cfg.Login, c.cfg.Passcode))
	}
	if c.cfg.Heartbeat.Send > 0 {
		nopts = append(nopts, nats.PingInterval(c.cfg.Heartbeat.Send))
	}
	if c.opts.ClientID != "" {
		nopts = append(nopts, nats.Name(c.opts.ClientID))
	}
	if c.cfg.UseTLS {
		tlsConf := c.opts.TLSConfig
		if tlsConf == nil {
			tlsConf = &tls.Config{}
		}
		nopts = append(nopts, nats.Secure(tlsConf))
	}

	conn, err := c.newConn("nats://"+addr, nopts...)
	if err != nil {
		c.opts.Listener.OnConnectFailed(addr, err)
		return &console.ConnectError{Addr: addr, Err: err}
	}
	c.conn = conn
	c.opts.Listener.OnConnected(addr)
	return nil
}

func (c *Client) Disconnect() error {
	c.Lock()
	defer c.Unlock()

	c.closeOnce.Do(func() { close(c.closed) })
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

	h := func(nm *nats.Msg) {
		hdr := make(map[string]string, len(nm.Header))
		for k, v := range nm.Header {
			if len(v) > 0 {
				hdr[k] = v[0]
			}
		}
		msg := &console.Message{
			Destination: destination,
			Body:        string(nm.Data),
			Header:      hdr,
			Received:    time.Now(),
		}
		select {
		case <-c.closed:
		case c.inbox <- msg:
		}
	}

	var sub *nats.Subscription
	if dest.Kind == console.KindQueue {
		sub, err = conn.QueueSubscribe(dest.Name, dest.Name, h)
	} else {
		sub, err = conn.Subscribe(dest.Name, h)
	}
	if err != nil {
		return err
	}

	c.Lock()
	c.subs[destination] = sub
	c.Unlock()
	return nil
}

func (c *Client) Unsubscribe(destination string, headers map[string]string) error {
	c.Lock()
	defer c.Unlock()

	sub, ok := c.subs[destination]
	if !ok {
		return fmt.Errorf("nats: no subscription for %s", destination)
	}
	delete(c.subs, destination)
	return sub.Unsubscribe()
}

func (c *Client) Publish(ctx context.Context, destination, body string, headers map[string]string) error {
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

	nm := &nats.Msg{
		Subject: dest.Name,
		Header:  make(nats.Header),
		Data:    []byte(body),
	}
	for k, v := range headers {
		nm.Header.Set(k, v)
	}
	return conn.PublishMsg(nm)
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

func (c *Client) String() string { return "nats" }
