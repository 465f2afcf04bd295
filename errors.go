package console

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	// User-input errors. The operation is aborted and session state is
	// unchanged.
	ErrAlreadySubscribed  = errors.New("already subscribed")
	ErrNotSubscribed      = errors.New("not subscribed")
	ErrInvalidDestination = errors.New("invalid destination")

	// Connection errors.
	ErrNotConnected = errors.New("client not connected")
	// ErrClosed is the terminal receive-loop signal: the connection was
	// closed deliberately, as opposed to a transient receive failure.
	ErrClosed = errors.New("connection closed")
)

// ConnectError reports a failure to establish the broker connection. It is
// fatal to session start.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TransportError reports a broker-side failure of a subscribe or unsubscribe.
// Registry state is consistent with whichever side effect completed: the
// registry mutates only after the transport call succeeds.
type TransportError struct {
	Op          string
	Destination string
	Err         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Destination, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PublishError reports a rejected send.
type PublishError struct {
	Destination string
	Err         error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Destination, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
