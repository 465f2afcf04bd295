package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/qvcloud/console"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	pingErr  error
	xadds    []*redis.XAddArgs
	groups   []string
	groupErr error
	closed   bool
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.pingErr != nil {
		cmd.SetErr(f.pingErr)
	}
	return cmd
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func (f *fakeRedis) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.xadds = append(f.xadds, a)
	return redis.NewStringCmd(ctx)
}

func (f *fakeRedis) XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd {
	f.groups = append(f.groups, group)
	cmd := redis.NewStatusCmd(ctx)
	if f.groupErr != nil {
		cmd.SetErr(f.groupErr)
	}
	return cmd
}

func (f *fakeRedis) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	cmd := redis.NewXStreamSliceCmd(ctx)
	cmd.SetErr(context.Canceled)
	return cmd
}

func (f *fakeRedis) XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd {
	return redis.NewIntCmd(ctx)
}

func newTestClient(t *testing.T, fr *fakeRedis) *Client {
	t.Helper()
	c := NewClient(console.ConnectionConfig{Host: "localhost", Port: 6379})
	c.newClient = func(opts *redis.Options) redisClient { return fr }
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { c.Disconnect() })
	return c
}

func TestClient_ConnectFailure(t *testing.T) {
	c := NewClient(console.ConnectionConfig{Host: "localhost", Port: 6379})
	fr := &fakeRedis{pingErr: errors.New("refused")}
	c.newClient = func(opts *redis.Options) redisClient { return fr }

	err := c.Connect(context.Background())
	var cerr *console.ConnectError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, fr.closed)
}

func TestClient_PublishPacksHeaders(t *testing.T) {
	fr := &fakeRedis{}
	c := newTestClient(t, fr)

	err := c.Publish(context.Background(), "/topic/prices", "42", map[string]string{"k": "v"})
	require.NoError(t, err)

	require.Len(t, fr.xadds, 1)
	assert.Equal(t, "/topic/prices", fr.xadds[0].Stream)
	values := fr.xadds[0].Values.(map[string]any)
	assert.Equal(t, "42", values["body"])
	assert.JSONEq(t, `{"k":"v"}`, values["header"].(string))
}

func TestClient_SubscribeGroups(t *testing.T) {
	fr := &fakeRedis{}
	c := newTestClient(t, fr)

	require.NoError(t, c.Subscribe("/queue/jobs", nil))
	require.Len(t, fr.groups, 1)
	assert.Equal(t, "console:jobs", fr.groups[0])

	require.NoError(t, c.Subscribe("/topic/prices", nil))
	require.Len(t, fr.groups, 2)
	assert.NotEqual(t, fr.groups[0], fr.groups[1])
	assert.Contains(t, fr.groups[1], "console-")
}

func TestClient_SubscribeBusyGroupTolerated(t *testing.T) {
	fr := &fakeRedis{groupErr: errors.New("BUSYGROUP Consumer Group name already exists")}
	c := newTestClient(t, fr)

	assert.NoError(t, c.Subscribe("/queue/jobs", nil))
}

func TestClient_UnsubscribeUnknown(t *testing.T) {
	fr := &fakeRedis{}
	c := newTestClient(t, fr)

	assert.Error(t, c.Unsubscribe("/queue/jobs", nil))
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient(console.ConnectionConfig{Host: "localhost", Port: 6379})

	assert.ErrorIs(t, c.Subscribe("/queue/q", nil), console.ErrNotConnected)
	assert.ErrorIs(t, c.Publish(context.Background(), "/queue/q", "x", nil), console.ErrNotConnected)
}

func TestClient_Identity(t *testing.T) {
	c := NewClient(console.ConnectionConfig{Host: "h", Port: 6379})
	assert.Equal(t, "h:6379", c.Address())
	assert.Equal(t, "redis", c.String())
}
