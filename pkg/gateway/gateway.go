// Package gateway runs one streaming search session per connection: it
// negotiates models, signals readiness and relays generated answers as
// protocol frames.
package gateway

import (
	"ai-search-be/internal/pkg/logger"
	"ai-search-be/pkg/events"
	"ai-search-be/pkg/generation"
	"ai-search-be/pkg/negotiator"
	"ai-search-be/pkg/protocol"
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Outbox is the transport side of a session.
type Outbox interface {
	// Attached is closed once the peer's frame writer is running. Nothing is
	// sent before that.
	Attached() <-chan struct{}
	// Send queues f behind every frame sent before it.
	Send(ctx context.Context, f protocol.Frame) error
}

// Negotiator binds a session to chat and embedding models.
type Negotiator interface {
	Negotiate(ctx context.Context, chat, embedding negotiator.Selection) (negotiator.Bindings, error)
}

// EventSink receives session lifecycle events. Publish must not block for
// long; delivery failures are the sink's concern.
type EventSink interface {
	Publish(ctx context.Context, e events.Event)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, events.Event) {}

type Gateway struct {
	negotiator Negotiator
	engine     generation.Engine
	sink       EventSink
	logger     logger.ILogger
	tracer     trace.Tracer
}

type Option func(*Gateway)

// WithEventSink sets where lifecycle events go. Publish runs on the session
// loop, so s must return without waiting on delivery. The session event
// service qualifies: its gochannel bus hands each message to subscribers on
// a separate goroutine.
func WithEventSink(s EventSink) Option {
	return func(g *Gateway) {
		if s != nil {
			g.sink = s
		}
	}
}

func WithLogger(l logger.ILogger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) {
		if t != nil {
			g.tracer = t
		}
	}
}

func New(n Negotiator, engine generation.Engine, opts ...Option) *Gateway {
	g := &Gateway{
		negotiator: n,
		engine:     engine,
		sink:       nopSink{},
		logger:     logger.NewNopLogger(),
		tracer:     otel.Tracer("ai-search-be/gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSession creates a session in the CONNECTING state.
func (g *Gateway) NewSession() *Session {
	return &Session{id: uuid.NewString(), gw: g}
}

// Run serves one connection with a fresh session. See Session.Run.
func (g *Gateway) Run(ctx context.Context, params protocol.Params, inbound <-chan []byte, out Outbox) error {
	return g.NewSession().Run(ctx, params, inbound, out)
}

// Selections splits connection params into chat and embedding selections.
// The custom endpoint only applies to chat.
func Selections(p protocol.Params) (chat, embedding negotiator.Selection) {
	chat = negotiator.Selection{
		Provider:      p.ChatModelProvider,
		Model:         p.ChatModel,
		CustomBaseURL: p.OpenAIBaseURL,
		CustomAPIKey:  p.OpenAIAPIKey,
	}
	embedding = negotiator.Selection{
		Provider: p.EmbeddingModelProvider,
		Model:    p.EmbeddingModel,
	}
	return chat, embedding
}
