package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-search-be/pkg/gateway"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(hub *Hub, userID string) (*Client, <-chan struct{}) {
	kicked := make(chan struct{})
	c := NewClient(hub, newFakeConn(), userID, 1, nil)
	c.session = gateway.New(nil, nil).NewSession()
	var once sync.Once
	c.cancel = func() { once.Do(func() { close(kicked) }) }
	return c, kicked
}

func newRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestHubTracksPresence(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(rdb, "instance-a", nil)
	go hub.Run(ctx)

	c, _ := testClient(hub, "user-1")
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	n, err := hub.ClusterCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	sessions := hub.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, c.SessionID(), sessions[0].ID)
	assert.Equal(t, "user-1", sessions[0].UserID)
	assert.Equal(t, "CONNECTING", sessions[0].State)
	assert.Equal(t, "instance-a", sessions[0].Instance)

	hub.Unregister(c)
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		n, err := hub.ClusterCount(ctx)
		return err == nil && n == 0
	}, time.Second, 5*time.Millisecond)
}

func TestHubWithoutRedis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, "solo", nil)
	go hub.Run(ctx)

	c, kicked := testClient(hub, "")
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	n, err := hub.ClusterCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	found, err := hub.Disconnect(ctx, c.SessionID())
	require.NoError(t, err)
	assert.True(t, found)
	<-kicked

	found, err = hub.Disconnect(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHubDisconnectReachesOtherInstance(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := NewHub(rdb, "a", nil)
	b := NewHub(rdb, "b", nil)
	go a.Run(ctx)
	go b.Run(ctx)

	c, kicked := testClient(a, "")
	a.Register(c)
	require.Eventually(t, func() bool { return a.Count() == 1 }, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		if found, err := b.Disconnect(ctx, c.SessionID()); err != nil || found {
			return false
		}
		select {
		case <-kicked:
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHubShutdownDisconnectsSessions(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())

	hub := NewHub(rdb, "a", nil)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c, kicked := testClient(hub, "")
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	<-kicked
	assert.Zero(t, hub.Count())
	assert.Zero(t, rdb.HLen(context.Background(), PresenceKey).Val())

	late, lateKicked := testClient(hub, "")
	hub.Register(late)
	<-lateKicked
	hub.Unregister(late)
}
