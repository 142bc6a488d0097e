package websocket

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"ai-search-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	// PresenceKey is a Redis hash of session id to SessionInfo JSON across
	// every instance.
	PresenceKey = "search:sessions"
	// ControlChannel carries cross-instance disconnect requests.
	ControlChannel = "search:session_control"

	redisTimeout = 2 * time.Second
)

type SessionInfo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	State       string    `json:"state"`
	Instance    string    `json:"instance"`
	ConnectedAt time.Time `json:"connected_at"`
}

type controlMessage struct {
	SessionID string `json:"session_id"`
}

type Hub struct {
	// Registered clients by session id.
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}

	mu sync.RWMutex

	// Redis connection for cluster presence and control, may be nil.
	rdb      *redis.Client
	instance string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, instance string, log logger.ILogger) *Hub {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		clients:    make(map[string]*Client),
		rdb:        rdb,
		instance:   instance,
		logger:     log,
	}
}

// Run owns the client map until ctx is cancelled, then disconnects every
// local session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID()] = client
			h.mu.Unlock()
			h.setPresence(client)
			h.logger.Info("HUB", "Session registered", map[string]interface{}{
				"session_id": client.SessionID(),
				"user_id":    client.UserID,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client.SessionID()] == client {
				delete(h.clients, client.SessionID())
			}
			h.mu.Unlock()
			h.clearPresence(client.SessionID())
			h.logger.Info("HUB", "Session unregistered", map[string]interface{}{
				"session_id": client.SessionID(),
				"state":      client.State().String(),
			})

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.Disconnect()
				h.clearPresence(id)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a client. After shutdown the client is disconnected instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
		c.Disconnect()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Count returns the number of sessions on this instance.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Sessions lists local sessions ordered by connection time.
func (h *Hub) Sessions() []SessionInfo {
	h.mu.RLock()
	out := make([]SessionInfo, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, h.info(c))
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

// ClusterCount returns the number of sessions across instances. Without
// Redis it equals Count.
func (h *Hub) ClusterCount(ctx context.Context) (int64, error) {
	if h.rdb == nil {
		return int64(h.Count()), nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return h.rdb.HLen(ctx, PresenceKey).Result()
}

// Disconnect ends a session wherever it runs. It reports whether the session
// was found locally; remote sessions are reached through Redis.
func (h *Hub) Disconnect(ctx context.Context, sessionID string) (bool, error) {
	if h.disconnectLocal(sessionID) {
		return true, nil
	}
	if h.rdb == nil {
		return false, nil
	}

	payload, err := json.Marshal(controlMessage{SessionID: sessionID})
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return false, h.rdb.Publish(ctx, ControlChannel, payload).Err()
}

func (h *Hub) disconnectLocal(sessionID string) bool {
	h.mu.RLock()
	client, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if ok {
		client.Disconnect()
	}
	return ok
}

func (h *Hub) info(c *Client) SessionInfo {
	return SessionInfo{
		ID:          c.SessionID(),
		UserID:      c.UserID,
		State:       c.State().String(),
		Instance:    h.instance,
		ConnectedAt: c.ConnectedAt,
	}
}

func (h *Hub) setPresence(c *Client) {
	if h.rdb == nil {
		return
	}
	data, err := json.Marshal(h.info(c))
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := h.rdb.HSet(ctx, PresenceKey, c.SessionID(), data).Err(); err != nil {
		h.logger.Warn("HUB", "Failed to record presence", map[string]interface{}{
			"session_id": c.SessionID(),
			"error":      err.Error(),
		})
	}
}

func (h *Hub) clearPresence(sessionID string) {
	if h.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := h.rdb.HDel(ctx, PresenceKey, sessionID).Err(); err != nil {
		h.logger.Warn("HUB", "Failed to clear presence", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// subscribeToRedis applies disconnect requests published by other instances.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ControlChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload controlMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("HUB", "Redis control message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if h.disconnectLocal(payload.SessionID) {
				h.logger.Info("HUB", "Session disconnected by peer instance", map[string]interface{}{
					"session_id": payload.SessionID,
				})
			}
		}
	}
}
