package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"bookstore_go/middleware"
	"bookstore_go/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// NotificationChannel 多实例间转发通知的Redis频道
	NotificationChannel = "bookstore:notifications"

	onlineUsersKey = "online:users"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBufferSize = 64
)

// WSMessage 推送给客户端的消息
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// envelope Redis频道中的消息
type envelope struct {
	UserID  string     `json:"user_id"`
	Message *WSMessage `json:"message"`
}

// Client 一条WebSocket连接
type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan *WSMessage
	hub    *Hub
}

// Hub 管理在线连接并按用户推送通知
type Hub struct {
	rdb      *redis.Client
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // userID -> 连接集合

	pubsub *redis.PubSub
	cancel context.CancelFunc
}

// NewHub 创建Hub，rdb 为 nil 时只做本地推送
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		rdb: rdb,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]map[*Client]struct{}),
	}
}

// Start 订阅Redis频道，把其他实例发布的通知投递给本地连接
func (h *Hub) Start(ctx context.Context) error {
	if h.rdb == nil {
		return nil
	}

	ctx, h.cancel = context.WithCancel(ctx)
	pubsub := h.rdb.Subscribe(ctx, NotificationChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	h.pubsub = pubsub

	go func() {
		for msg := range pubsub.Channel() {
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || env.Message == nil {
				middleware.DebugLogger("invalid notification payload", zap.String("payload", msg.Payload))
				continue
			}
			h.deliver(env.UserID, env.Message)
		}
	}()

	middleware.InfoLogger("websocket hub subscribed", zap.String("channel", NotificationChannel))
	return nil
}

// Notify 向用户推送事件；订阅了Redis时经频道广播到所有实例
func (h *Hub) Notify(userID, event string, data interface{}) {
	msg := &WSMessage{Type: event, Data: data, Timestamp: time.Now().Unix()}

	if h.pubsub != nil {
		payload, err := json.Marshal(envelope{UserID: userID, Message: msg})
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err = h.rdb.Publish(ctx, NotificationChannel, payload).Err()
			cancel()
			if err == nil {
				return
			}
		}
		middleware.ErrorLogger("failed to publish notification", zap.String("user_id", userID), zap.Error(err))
	}

	h.deliver(userID, msg)
}

// deliver 投递给本地连接，发送缓冲已满的连接被断开
func (h *Hub) deliver(userID string, msg *WSMessage) {
	var slow []*Client

	h.mu.RLock()
	for client := range h.clients[userID] {
		select {
		case client.send <- msg:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		middleware.InfoLogger("dropping slow websocket client", zap.String("user_id", client.userID))
		h.unregister(client)
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	conns, ok := h.clients[client.userID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[client.userID] = conns
	}
	conns[client] = struct{}{}
	h.mu.Unlock()

	if h.rdb != nil {
		go h.rdb.SAdd(context.Background(), onlineUsersKey, client.userID)
	}
}

// unregister 移除连接并关闭发送通道，重复调用无副作用
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	conns, ok := h.clients[client.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := conns[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(conns, client)
	close(client.send)
	lastConn := len(conns) == 0
	if lastConn {
		delete(h.clients, client.userID)
	}
	h.mu.Unlock()

	if lastConn && h.rdb != nil {
		go h.rdb.SRem(context.Background(), onlineUsersKey, client.userID)
	}
}

// OnlineCount 本实例在线用户数
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleConnection 升级为WebSocket连接，需在认证中间件之后
func (h *Hub) HandleConnection(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		utils.Unauthorized(c, "Login required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		middleware.ErrorLogger("failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan *WSMessage, sendBufferSize),
		hub:    h,
	}
	h.register(client)

	middleware.DebugLogger("websocket connected", zap.String("user_id", userID))

	go client.writePump()
	go client.readPump()
}

// Close 取消订阅并断开所有连接
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.pubsub != nil {
		_ = h.pubsub.Close()
	}

	h.mu.Lock()
	for _, conns := range h.clients {
		for client := range conns {
			_ = client.conn.Close()
		}
	}
	h.mu.Unlock()
}

// readPump 只处理心跳，读出错时注销连接
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.DebugLogger("websocket read error", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if json.Unmarshal(data, &msg) == nil && msg.Type == "ping" {
			c.hub.mu.RLock()
			if _, ok := c.hub.clients[c.userID][c]; ok {
				select {
				case c.send <- &WSMessage{Type: "pong", Timestamp: time.Now().Unix()}:
				default:
				}
			}
			c.hub.mu.RUnlock()
		}
	}
}

// writePump 发送消息与定时ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				middleware.DebugLogger("websocket write error", zap.String("user_id", c.userID), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
