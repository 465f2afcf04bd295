package console

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Loopback is an in-process Client: published messages are delivered back to
// this client's own matching subscriptions through the receive inbox. It
// backs the examples, the tests, and the console's loopback target.
type Loopback struct {
	opts *Options

	sync.RWMutex
	connected bool
	subs      map[string]map[string]string

	inbox     chan *Message
	closed    chan struct{}
	closeOnce sync.Once
}

func NewLoopback(opts ...Option) *Loopback {
	return &Loopback{
		opts:   NewOptions(opts...),
		subs:   make(map[string]map[string]string),
		inbox:  make(chan *Message, 128),
		closed: make(chan struct{}),
	}
}

func (l *Loopback) Connect(ctx context.Context) error {
	l.Lock()
	defer l.Unlock()
	l.opts.Listener.OnConnecting(l.Address())
	l.connected = true
	l.opts.Listener.OnConnected(l.Address())
	return nil
}

func (l *Loopback) Disconnect() error {
	l.Lock()
	defer l.Unlock()
	l.connected = false
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

func (l *Loopback) Subscribe(destination string, headers map[string]string) error {
	hdr := make(map[string]string, len(headers))
	for k, v := range headers {
		hdr[k] = v
	}
	l.Lock()
	l.subs[destination] = hdr
	l.Unlock()
	return nil
}

func (l *Loopback) Unsubscribe(destination string, headers map[string]string) error {
	l.Lock()
	delete(l.subs, destination)
	l.Unlock()
	return nil
}

// Publish delivers to the inbox when the destination is subscribed, and is a
// no-op otherwise, like a broker with no consumers.
func (l *Loopback) Publish(ctx context.Context, destination, body string, headers map[string]string) error {
	l.RLock()
	connected := l.connected
	_, subscribed := l.subs[destination]
	l.RUnlock()

	if !connected {
		return ErrNotConnected
	}
	if !subscribed {
		return nil
	}

	hdr := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		hdr[k] = v
	}
	if _, ok := hdr["message-id"]; !ok {
		hdr["message-id"] = uuid.New().String()
	}

	msg := &Message{
		Destination: destination,
		Body:        body,
		Header:      hdr,
		Received:    time.Now(),
	}

	select {
	case <-l.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case l.inbox <- msg:
		return nil
	}
}

func (l *Loopback) Receive(ctx context.Context) (*Message, error) {
	select {
	case <-l.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-l.inbox:
		return msg, nil
	}
}

func (l *Loopback) Address() string { return "loopback" }

func (l *Loopback) String() string { return "loopback" }
