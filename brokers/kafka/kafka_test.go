package kafka

import (
	"context"
	"testing"

	"github.com/qvcloud/console"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_NotConnected(t *testing.T) {
	c := NewClient(console.ConnectionConfig{Host: "localhost", Port: 9092})

	assert.ErrorIs(t, c.Subscribe("/topic/t", nil), console.ErrNotConnected)
	assert.ErrorIs(t, c.Publish(context.Background(), "/topic/t", "x", nil), console.ErrNotConnected)
}

func TestClient_InvalidDestination(t *testing.T) {
	c := NewClient(console.ConnectionConfig{Host: "localhost", Port: 9092})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()

	assert.ErrorIs(t, c.Subscribe("/bogus/t", nil), console.ErrInvalidDestination)
	assert.ErrorIs(t, c.Publish(context.Background(), "nope", "x", nil), console.ErrInvalidDestination)
}

func TestClient_UnsubscribeUnknown(t *testing.T) {
	c := NewClient(console.ConnectionConfig{Host: "localhost", Port: 9092})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()

	assert.Error(t, c.Unsubscribe("/topic/t", nil))
}

func TestClient_SASLSelection(t *testing.T) {
	c := NewClient(console.ConnectionConfig{Host: "h", Port: 9092})
	assert.Nil(t, c.saslMechanism())

	c = NewClient(console.ConnectionConfig{Host: "h", Port: 9092, Login: "u", Passcode: "p"})
	mech := c.saslMechanism()
	require.NotNil(t, mech)
	assert.Equal(t, plain.Mechanism{Username: "u", Password: "p"}, mech)
}

func TestClient_TLSSelection(t *testing.T) {
	c := NewClient(console.ConnectionConfig{Host: "h", Port: 9092})
	assert.Nil(t, c.tlsConfig())

	c = NewClient(console.ConnectionConfig{Host: "h", Port: 9092, UseTLS: true})
	assert.NotNil(t, c.tlsConfig())
}

func TestClient_DisconnectStopsReceive(t *testing.T) {
	c := NewClient(console.ConnectionConfig{Host: "h", Port: 9092})
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Disconnect())

	_, err := c.Receive(context.Background())
	assert.ErrorIs(t, err, console.ErrClosed)
}

func TestClient_Identity(t *testing.T) {
	c := NewClient(console.ConnectionConfig{Host: "h", Port: 9092})
	assert.Equal(t, "h:9092", c.Address())
	assert.Equal(t, "kafka", c.String())
}
