package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookstore_go/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hub *Hub) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, c.Query("user"))
		c.Next()
	}, hub.HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+userID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubLocalDelivery(t *testing.T) {
	hub := NewHub(nil)
	t.Cleanup(hub.Close)
	url := newTestServer(t, hub)

	alice := dial(t, url, "alice")
	bob := dial(t, url, "bob")
	require.Eventually(t, func() bool { return hub.OnlineCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Notify("alice", "order_placed", map[string]interface{}{"order_id": "o-1"})

	msg := readMessage(t, alice)
	assert.Equal(t, "order_placed", msg.Type)
	assert.Equal(t, "o-1", msg.Data.(map[string]interface{})["order_id"])
	assert.NotZero(t, msg.Timestamp)

	// bob 收不到 alice 的通知
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)
}

func TestHubPingPong(t *testing.T) {
	hub := NewHub(nil)
	t.Cleanup(hub.Close)
	url := newTestServer(t, hub)

	conn := dial(t, url, "alice")
	require.NoError(t, conn.WriteJSON(WSMessage{Type: "ping"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	t.Cleanup(hub.Close)
	url := newTestServer(t, hub)

	conn := dial(t, url, "alice")
	require.Eventually(t, func() bool { return hub.OnlineCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.OnlineCount() == 0 }, time.Second, 10*time.Millisecond)

	// 已无连接，不应 panic
	hub.Notify("alice", "cart_updated", nil)
}

func TestHubRedisFanOut(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// 两个实例共享同一个Redis
	publisher := NewHub(rdb)
	require.NoError(t, publisher.Start(context.Background()))
	t.Cleanup(publisher.Close)

	receiver := NewHub(rdb)
	require.NoError(t, receiver.Start(context.Background()))
	t.Cleanup(receiver.Close)

	url := newTestServer(t, receiver)
	conn := dial(t, url, "alice")
	require.Eventually(t, func() bool { return receiver.OnlineCount() == 1 }, time.Second, 10*time.Millisecond)

	publisher.Notify("alice", "cart_updated", map[string]interface{}{"count": 2})

	msg := readMessage(t, conn)
	assert.Equal(t, "cart_updated", msg.Type)
	assert.Equal(t, float64(2), msg.Data.(map[string]interface{})["count"])

	require.Eventually(t, func() bool {
		ok, _ := mr.IsMember(onlineUsersKey, "alice")
		return ok
	}, time.Second, 10*time.Millisecond)
}
