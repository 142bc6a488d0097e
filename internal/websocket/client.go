package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-search-be/internal/pkg/logger"
	"ai-search-be/pkg/gateway"
	"ai-search-be/pkg/protocol"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	inboundBuffer  = 16
)

var ErrClientClosed = errors.New("websocket client closed")

// Conn is the part of a websocket connection the pumps use. Both the fiber
// and the fasthttp connections satisfy it.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is a middleman between the websocket connection and a gateway
// session. It implements gateway.Outbox.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn Conn

	// Subject of the bearer token, empty for anonymous connections.
	UserID string

	ConnectedAt time.Time

	session *gateway.Session
	cancel  context.CancelFunc
	logger  logger.ILogger

	// Buffered channel of outbound frames, already encoded.
	send chan []byte
	// Client requests read from the connection. Closed by readPump.
	inbound chan []byte

	attached   chan struct{}
	finish     chan struct{}
	finishOnce sync.Once
	// done is closed when writePump has exited.
	done chan struct{}
}

var _ gateway.Outbox = (*Client)(nil)

func NewClient(hub *Hub, conn Conn, userID string, sendBuffer int, log logger.ILogger) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Client{
		Hub:         hub,
		Conn:        conn,
		UserID:      userID,
		ConnectedAt: time.Now(),
		cancel:      func() {},
		logger:      log,
		send:        make(chan []byte, sendBuffer),
		inbound:     make(chan []byte, inboundBuffer),
		attached:    make(chan struct{}),
		finish:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// SessionID is empty until the client is bound to a session.
func (c *Client) SessionID() string {
	if c.session == nil {
		return ""
	}
	return c.session.ID()
}

func (c *Client) State() gateway.State {
	if c.session == nil {
		return gateway.StateConnecting
	}
	return c.session.State()
}

func (c *Client) Attached() <-chan struct{} { return c.attached }

// Send encodes f and queues it for writePump. It blocks while the buffer is
// full, so a slow peer slows the producer down instead of losing frames.
func (c *Client) Send(ctx context.Context, f protocol.Frame) error {
	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish asks writePump to flush queued frames, send a close message and
// shut the connection.
func (c *Client) Finish() {
	c.finishOnce.Do(func() { close(c.finish) })
}

// Disconnect ends the client's session.
func (c *Client) Disconnect() {
	c.cancel()
}

// readPump pumps requests from the websocket connection to the session.
func (c *Client) readPump() {
	defer func() {
		close(c.inbound)
		c.logger.Debug("WS", "readPump exiting", map[string]interface{}{"session_id": c.SessionID()})
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WS", "Unexpected close", map[string]interface{}{
					"session_id": c.SessionID(),
					"error":      err.Error(),
				})
			}
			return
		}
		select {
		case c.inbound <- message:
		case <-c.done:
			return
		}
	}
}

// writePump pumps frames to the websocket connection, one frame per message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		_ = c.Conn.Close()
		c.logger.Debug("WS", "writePump exiting", map[string]interface{}{"session_id": c.SessionID()})
	}()

	close(c.attached)
	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.finish:
			for {
				select {
				case message := <-c.send:
					if err := c.write(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					_ = c.write(websocket.CloseMessage, []byte{})
					return
				}
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.Conn.WriteMessage(messageType, data); err != nil {
		if messageType != websocket.CloseMessage {
			c.logger.Warn("WS", "Write failed", map[string]interface{}{
				"session_id": c.SessionID(),
				"error":      err.Error(),
			})
		}
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
