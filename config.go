package console

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Heartbeat is the keep-alive pair negotiated with the broker at connect
// time: the interval this client sends at and the interval it expects the
// broker to send at.
type Heartbeat struct {
	Send time.Duration
	Recv time.Duration
}

// ParseHeartbeat parses the "<ms>,<ms>" startup form.
func ParseHeartbeat(s string) (Heartbeat, error) {
	send, recv, ok := strings.Cut(s, ",")
	if !ok {
		return Heartbeat{}, fmt.Errorf("heartbeat %q: want \"<ms>,<ms>\"", s)
	}
	sms, err := strconv.Atoi(strings.TrimSpace(send))
	if err != nil {
		return Heartbeat{}, fmt.Errorf("heartbeat %q: %v", s, err)
	}
	rms, err := strconv.Atoi(strings.TrimSpace(recv))
	if err != nil {
		return Heartbeat{}, fmt.Errorf("heartbeat %q: %v", s, err)
	}
	if sms < 0 || rms < 0 {
		return Heartbeat{}, fmt.Errorf("heartbeat %q: negative interval", s)
	}
	return Heartbeat{
		Send: time.Duration(sms) * time.Millisecond,
		Recv: time.Duration(rms) * time.Millisecond,
	}, nil
}

// ConnectionConfig holds the broker connection parameters. It is built once
// from startup flags and environment and is immutable after connect.
type ConnectionConfig struct {
	Host      string
	Port      int
	Login     string
	Passcode  string
	UseTLS    bool
	Heartbeat Heartbeat
	// Vhost is the broker-side virtual host; empty means the host name.
	Vhost string
}

// Addr returns the "host:port" dial address.
func (c ConnectionConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// VirtualHost returns the configured vhost, defaulting to the host.
func (c ConnectionConfig) VirtualHost() string {
	if c.Vhost == "" {
		return c.Host
	}
	return c.Vhost
}
