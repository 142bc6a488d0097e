package bootstrap

import (
	"context"
	"os"

	"ai-search-be/internal/config"
	"ai-search-be/internal/handler"
	"ai-search-be/internal/pkg/logger"
	"ai-search-be/internal/repository/memory"
	"ai-search-be/internal/service"
	"ai-search-be/internal/websocket"
	"ai-search-be/pkg/embedding"
	"ai-search-be/pkg/gateway"
	"ai-search-be/pkg/generation"
	"ai-search-be/pkg/llm"
	"ai-search-be/pkg/llm/factory"
	"ai-search-be/pkg/negotiator"
	"ai-search-be/pkg/provider"

	pktNats "ai-search-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	Logger logger.ILogger

	Gateway        *gateway.Gateway
	SessionHandler *handler.SessionHandler
	WebSocketHub   *websocket.Hub

	// Background Services (Exposed for main.go to run)
	SessionEvents service.ISessionEventService

	closers []func()
}

// Overrides lets tests swap pieces that would otherwise reach the network.
type Overrides struct {
	Logger     logger.ILogger
	Chat       []provider.Adapter[llm.LLMProvider]
	Embedding  []provider.Adapter[embedding.Embedder]
	Engine     generation.Engine
	Redis      *redis.Client
	SkipEvents bool
}

// NewContainer wires the application. ctx bounds the hub and every session.
func NewContainer(ctx context.Context, cfg *config.Config, ov Overrides) *Container {
	c := &Container{}

	// 1. Logging
	sysLogger := ov.Logger
	sessionLogger := ov.Logger
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
		sessionLogger = logger.NewIsolatedLogger(cfg.App.SessionLogFilePath)
	}
	c.Logger = sysLogger

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var forwarder service.EventForwarder
	if cfg.App.NatsURL != "" && !ov.SkipEvents {
		natsPub, err := pktNats.NewPublisher(ctx, cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}
	c.SessionEvents = service.NewSessionEventService(pubSub, service.SessionEventTopic, forwarder, sysLogger)

	// 3. Redis
	rdb := ov.Redis
	if rdb == nil && cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 4. WebSocket Hub
	hub := websocket.NewHub(rdb, instanceID(), sessionLogger)
	go hub.Run(ctx)
	c.WebSocketHub = hub

	// 5. Providers and negotiation
	chatAdapters, embAdapters := ov.Chat, ov.Embedding
	if chatAdapters == nil {
		chatAdapters = provider.ChatAdapters(cfg.Providers)
	}
	if embAdapters == nil {
		embAdapters = provider.EmbeddingAdapters(cfg.Providers)
	}
	registryOpts := []provider.RegistryOption{
		provider.WithDiscoveryTimeout(cfg.Session.DiscoveryTimeout),
		provider.WithLogger(sysLogger),
	}
	chatRegistry := provider.NewRegistry(chatAdapters, registryOpts...)
	embRegistry := provider.NewRegistry(embAdapters, registryOpts...)

	neg := negotiator.New(
		chatRegistry,
		embRegistry,
		func(ep negotiator.CustomEndpoint, model string) llm.LLMProvider {
			return factory.NewCustomProvider(ep.BaseURL, ep.APIKey, model)
		},
		negotiator.GenerationParams{Temperature: cfg.Session.DefaultTemperature},
		sysLogger,
	)

	// 6. Generation
	engine := ov.Engine
	if engine == nil {
		llmEngine := generation.NewLLMEngine(sysLogger)
		if cfg.Search.SearxngURL != "" {
			llmEngine.WithRetriever(generation.FocusWebSearch, generation.NewSearxngRetriever(cfg.Search.SearxngURL, cfg.Search.MaxSources))
			sysLogger.Info("BOOTSTRAP", "Web search enabled", map[string]interface{}{"searxng_url": cfg.Search.SearxngURL})
		}
		engine = llmEngine
	}

	c.Gateway = gateway.New(neg, engine,
		gateway.WithEventSink(c.SessionEvents),
		gateway.WithLogger(sessionLogger),
	)

	// 7. Handlers
	c.SessionHandler = handler.NewSessionHandler(ctx, handler.SessionHandlerConfig{
		Gateway:    c.Gateway,
		Hub:        hub,
		Chat:       chatRegistry,
		Embedding:  embRegistry,
		Catalogs:   memory.NewCatalogRepository(cfg.Session.CatalogCacheTTL),
		JWTSecret:  cfg.App.JWTSecret,
		SendBuffer: cfg.Session.SendBufferSize,
		Logger:     sysLogger,
	})

	return c
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "search"
	}
	return host + "-" + uuid.NewString()[:8]
}
