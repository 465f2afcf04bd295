package console

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Client is the transport side of a console session. One Client holds one
// broker connection; the session issues subscribe/unsubscribe/publish from
// the command context while a single receive loop drains Receive.
type Client interface {
	Connect(ctx context.Context) error
	Subscribe(destination string, headers map[string]string) error
	Unsubscribe(destination string, headers map[string]string) error
	Publish(ctx context.Context, destination, body string, headers map[string]string) error
	// Receive blocks until a message arrives, ctx is cancelled, or the
	// connection is closed. A closed connection is reported as ErrClosed.
	Receive(ctx context.Context) (*Message, error)
	Disconnect() error
	Address() string
	String() string
}

// Message is a single broker message.
type Message struct {
	Destination string
	Body        string
	Header      map[string]string
	// Received is stamped by the session on arrival, not by the broker.
	Received time.Time
}

// Callback handles an inbound message after it has been printed.
type Callback func(*Message)

// Listener receives connection lifecycle notifications from a Client.
type Listener interface {
	OnConnecting(addr string)
	OnConnected(addr string)
	OnConnectFailed(addr string, err error)
	OnMiscError(err error)
}

// LogListener reports lifecycle notifications through zerolog.
type LogListener struct {
	Logger zerolog.Logger
}

func (l LogListener) OnConnecting(addr string) {
	l.Logger.Debug().Str("address", addr).Msg("connecting")
}

func (l LogListener) OnConnected(addr string) {
	l.Logger.Info().Str("address", addr).Msg("connected")
}

func (l LogListener) OnConnectFailed(addr string, err error) {
	l.Logger.Error().Str("address", addr).Err(err).Msg("connect failed")
}

func (l LogListener) OnMiscError(err error) {
	l.Logger.Warn().Err(err).Msg("broker error")
}

// Marshaler is a simple encoding interface, used by transports that cannot
// carry message headers natively.
type Marshaler interface {
	Marshal(any) ([]byte, error)
	Unmarshal([]byte, any) error
	String() string
}
