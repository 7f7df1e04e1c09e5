package presence_sdk

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cydxin/presence-sdk/config"
	"github.com/cydxin/presence-sdk/cons"
	"github.com/cydxin/presence-sdk/hub"
	"github.com/cydxin/presence-sdk/message"
	"github.com/cydxin/presence-sdk/service"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy belongs to the host application
	},
}

// MembershipChecker answers whether a user may join a project room.
type MembershipChecker interface {
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}

// Client is one WebSocket connection. It is the hub.Sender of its registry
// entry: Send only queues, writePump owns the socket writes.
type Client struct {
	server *WsServer
	conn   *websocket.Conn

	// ID is the registry connection id.
	ID string

	mu     sync.Mutex
	send   chan []byte
	closed bool

	authTimer *time.Timer
}

var _ hub.Sender = (*Client)(nil)

// Send queues msg without blocking. A client whose buffer is full is closed,
// the caller sees hub.ErrSlowConsumer.
func (c *Client) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return hub.ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		c.closed = true
		close(c.send)
		return hub.ErrSlowConsumer
	}
}

// Close stops the write side; writePump sends a close frame and drops the socket.
func (c *Client) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

func (c *Client) emit(event string, payload any) {
	msg, err := hub.Encode(event, payload)
	if err != nil {
		c.server.logger.Error("encode event failed", zap.String("event", event), zap.Error(err))
		return
	}
	if err := c.Send(msg); err != nil {
		c.server.logger.Debug("emit dropped", zap.String("conn", c.ID), zap.String("event", event), zap.Error(err))
	}
}

// readPump feeds inbound frames to the message handlers and tears the
// connection down when the peer goes away.
func (c *Client) readPump() {
	s := c.server
	defer func() {
		if c.authTimer != nil {
			c.authTimer.Stop()
		}
		s.registry.Disconnect(c.ID)
		c.Close()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("read failed", zap.String("conn", c.ID), zap.Error(err))
			}
			return
		}
		s.handleMessage(c, data)
	}
}

// writePump writes one text frame per queued event and keeps the peer alive
// with pings.
func (c *Client) writePump() {
	s := c.server
	ticker := time.NewTicker(s.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WsServer upgrades HTTP requests and binds every socket to the registry.
type WsServer struct {
	registry *hub.Registry
	auth     *service.AuthService
	members  MembershipChecker
	cfg      config.WSConfig
	logger   *zap.Logger
}

// NewWsServer expects cfg to carry defaults (see config.Config.SetDefaults).
// members may be nil, in which case join_project is refused.
func NewWsServer(registry *hub.Registry, auth *service.AuthService, members MembershipChecker, cfg config.WSConfig, logger *zap.Logger) *WsServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WsServer{
		registry: registry,
		auth:     auth,
		members:  members,
		cfg:      cfg,
		logger:   logger.Named("ws"),
	}
}

func (s *WsServer) pingPeriod() time.Duration {
	return (s.cfg.PongWait * 9) / 10
}

// ServeWs upgrades the request. A token in the Authorization header or the
// token query parameter authenticates the connection right away; otherwise
// the client has cfg.AuthTimeout to send an authenticate message.
func (s *WsServer) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	c := &Client{
		server: s,
		conn:   conn,
		send:   make(chan []byte, s.cfg.SendBuffer),
	}
	c.ID = s.registry.Accept(c)
	go c.writePump()

	if token := s.auth.ExtractToken(r); token != "" {
		s.onAuthenticate(c, token)
	}
	if !s.registry.IsAuthenticated(c.ID) {
		c.authTimer = time.AfterFunc(s.cfg.AuthTimeout, func() {
			if s.registry.IsAuthenticated(c.ID) {
				return
			}
			s.logger.Debug("authentication timeout", zap.String("conn", c.ID))
			c.emit(cons.EventAuthenticationError, message.AuthErrorResp{Reason: "authentication timeout"})
			c.Close()
		})
	}
	go c.readPump()
}
