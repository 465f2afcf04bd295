package console

import (
	"fmt"
	"strings"
)

// Destination kinds.
const (
	KindTopic    = "topic"
	KindQueue    = "queue"
	KindExchange = "exchange"
)

// Destination is a parsed "/kind/name" endpoint.
type Destination struct {
	Kind string
	Name string
}

// NewDestination validates kind and name and returns the destination.
func NewDestination(kind, name string) (Destination, error) {
	switch kind {
	case KindTopic, KindQueue, KindExchange:
	default:
		return Destination{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidDestination, kind)
	}
	if name == "" || strings.Contains(name, "/") {
		return Destination{}, fmt.Errorf("%w: bad name %q", ErrInvalidDestination, name)
	}
	return Destination{Kind: kind, Name: name}, nil
}

// ParseDestination parses a "/kind/name" string.
func ParseDestination(s string) (Destination, error) {
	if !strings.HasPrefix(s, "/") {
		return Destination{}, fmt.Errorf("%w: %q", ErrInvalidDestination, s)
	}
	kind, name, ok := strings.Cut(s[1:], "/")
	if !ok {
		return Destination{}, fmt.Errorf("%w: %q", ErrInvalidDestination, s)
	}
	return NewDestination(kind, name)
}

func (d Destination) String() string {
	return "/" + d.Kind + "/" + d.Name
}
