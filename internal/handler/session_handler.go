package handler

import (
	"context"

	"ai-search-be/internal/pkg/logger"
	"ai-search-be/internal/pkg/serverutils"
	"ai-search-be/internal/repository/memory"
	internalWS "ai-search-be/internal/websocket"
	"ai-search-be/pkg/embedding"
	"ai-search-be/pkg/gateway"
	"ai-search-be/pkg/llm"
	"ai-search-be/pkg/protocol"
	"ai-search-be/pkg/provider"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type SessionHandler struct {
	ctx        context.Context
	gateway    *gateway.Gateway
	hub        *internalWS.Hub
	chat       *provider.Registry[llm.LLMProvider]
	embedding  *provider.Registry[embedding.Embedder]
	catalogs   *memory.CatalogRepository
	jwtSecret  string
	sendBuffer int
	logger     logger.ILogger
}

type SessionHandlerConfig struct {
	Gateway    *gateway.Gateway
	Hub        *internalWS.Hub
	Chat       *provider.Registry[llm.LLMProvider]
	Embedding  *provider.Registry[embedding.Embedder]
	Catalogs   *memory.CatalogRepository
	JWTSecret  string
	SendBuffer int
	Logger     logger.ILogger
}

// NewSessionHandler builds the handler. ctx bounds every websocket session;
// cancelling it ends them all.
func NewSessionHandler(ctx context.Context, cfg SessionHandlerConfig) *SessionHandler {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &SessionHandler{
		ctx:        ctx,
		gateway:    cfg.Gateway,
		hub:        cfg.Hub,
		chat:       cfg.Chat,
		embedding:  cfg.Embedding,
		catalogs:   cfg.Catalogs,
		jwtSecret:  cfg.JWTSecret,
		sendBuffer: cfg.SendBuffer,
		logger:     log,
	}
}

// ServeWs upgrades the request and runs one search session on it. The model
// selection travels in the query string.
func (h *SessionHandler) ServeWs(c *fiber.Ctx) error {
	if h.jwtSecret != "" {
		userID, err := serverutils.ParseSubject(serverutils.TokenFromRequest(c), h.jwtSecret)
		if err != nil {
			h.logger.Warn("SessionHandler", "Rejected websocket handshake", map[string]interface{}{"error": err.Error()})
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		c.Locals("user_id", userID)
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		params := protocol.ParamsFromQuery(func(key string) string { return conn.Query(key) })
		userID, _ := conn.Locals("user_id").(string)

		h.logger.Info("SessionHandler", "Starting websocket session", map[string]interface{}{
			"user_id":       userID,
			"chat_provider": params.ChatModelProvider,
			"chat_model":    params.ChatModel,
		})
		err := internalWS.ServeWs(h.ctx, h.hub, h.gateway, conn, params, userID, h.sendBuffer)
		details := map[string]interface{}{"user_id": userID}
		if err != nil {
			details["error"] = err.Error()
		}
		h.logger.Info("SessionHandler", "Websocket session ended", details)
	})(c)
}

// GetModels lists what a client can select, served from a short-lived cache.
func (h *SessionHandler) GetModels(c *fiber.Ctx) error {
	if c.QueryBool("refresh") {
		h.catalogs.Invalidate()
	}

	chat, ok := h.catalogs.Get(memory.ChatCatalog)
	if !ok {
		chat = h.chat.Refresh(c.UserContext()).Summary()
		h.catalogs.Save(memory.ChatCatalog, chat)
	}
	emb, ok := h.catalogs.Get(memory.EmbeddingCatalog)
	if !ok {
		emb = h.embedding.Refresh(c.UserContext()).Summary()
		h.catalogs.Save(memory.EmbeddingCatalog, emb)
	}

	return c.JSON(fiber.Map{
		"chatModelProviders":      chat,
		"embeddingModelProviders": emb,
	})
}

func (h *SessionHandler) GetSessions(c *fiber.Ctx) error {
	cluster, err := h.hub.ClusterCount(c.UserContext())
	if err != nil {
		h.logger.Warn("SessionHandler", "Cluster count unavailable", map[string]interface{}{"error": err.Error()})
		cluster = -1
	}
	sessions := h.hub.Sessions()
	return c.JSON(fiber.Map{
		"data":    sessions,
		"local":   len(sessions),
		"cluster": cluster,
	})
}

func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	id := c.Params("id")
	local, err := h.hub.Disconnect(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"session_id": id, "local": local})
}

func (h *SessionHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"sessions": h.hub.Count(),
	})
}

func (h *SessionHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/models", h.GetModels)

	sessions := router.Group("/sessions")
	sessions.Use(serverutils.JwtMiddleware(h.jwtSecret))
	sessions.Get("/", h.GetSessions)
	sessions.Delete("/:id", h.DeleteSession)

	// WebSocket
	router.Get("/ws", h.ServeWs)
}
