package gateway

import (
	"ai-search-be/pkg/events"
	"ai-search-be/pkg/generation"
	"ai-search-be/pkg/negotiator"
	"ai-search-be/pkg/protocol"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type State int32

const (
	StateConnecting State = iota
	StateNegotiating
	StateReady
	StateStreaming
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateNegotiating:
		return "NEGOTIATING"
	case StateReady:
		return "READY"
	case StateStreaming:
		return "STREAMING"
	case StateClosed:
		return "CLOSED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Session is the state of one connection. Only Run mutates it.
type Session struct {
	id    string
	gw    *Gateway
	state atomic.Int32
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.gw.logger.Debug("GATEWAY", "State change", map[string]interface{}{
			"session_id": s.id,
			"from":       prev.String(),
			"to":         st.String(),
		})
	}
}

func (s *Session) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	s.gw.sink.Publish(ctx, events.NewSessionEvent(eventType, s.id, data))
}

// relayResult is what a finished relay hands back to Run.
type relayResult struct {
	messageID string
	text      string
	err       error
	// transport marks a failed Send; the connection is unusable.
	transport bool
}

type activeRelay struct {
	messageID string
	cancel    context.CancelFunc
	done      chan relayResult
}

// Run drives the session until the peer goes away (inbound is closed), ctx
// is cancelled, negotiation fails or the transport breaks.
//
// It returns nil on a clean close, the negotiation error after reporting it
// to the peer, or the transport error that ended the session.
func (s *Session) Run(ctx context.Context, params protocol.Params, inbound <-chan []byte, out Outbox) error {
	defer s.publish(context.WithoutCancel(ctx), events.SessionClosed, nil)

	s.publish(ctx, events.SessionOpened, map[string]interface{}{
		"chat_provider":      params.ChatModelProvider,
		"chat_model":         params.ChatModel,
		"embedding_provider": params.EmbeddingModelProvider,
		"embedding_model":    params.EmbeddingModel,
	})

	s.setState(StateNegotiating)
	bindings, err := s.negotiate(ctx, params)
	if err != nil {
		return s.fail(ctx, out, err)
	}

	if !s.awaitAttached(ctx, out) {
		s.setState(StateClosed)
		return nil
	}
	if err := out.Send(ctx, protocol.Ready()); err != nil {
		s.setState(StateClosed)
		return fmt.Errorf("send ready: %w", err)
	}
	s.setState(StateReady)
	s.publish(ctx, events.SessionReady, map[string]interface{}{
		"chat_provider":      bindings.Chat.Provider,
		"chat_model":         bindings.Chat.Model,
		"embedding_provider": bindings.Embedding.Provider,
		"embedding_model":    bindings.Embedding.Model,
	})

	var relay *activeRelay
	stopRelay := func() {
		if relay != nil {
			relay.cancel()
			<-relay.done
			relay = nil
		}
	}

	for {
		var relayDone chan relayResult
		if relay != nil {
			relayDone = relay.done
		}

		select {
		case <-ctx.Done():
			stopRelay()
			s.setState(StateClosed)
			return nil

		case raw, ok := <-inbound:
			if !ok {
				stopRelay()
				s.setState(StateClosed)
				return nil
			}
			active := ""
			if relay != nil {
				active = relay.messageID
			}
			next, err := s.handleRequest(ctx, raw, active, bindings, out)
			if err != nil {
				stopRelay()
				s.setState(StateClosed)
				return err
			}
			if next != nil {
				relay = next
			}

		case res := <-relayDone:
			relay.cancel()
			relay = nil
			if err := s.finish(ctx, res, out); err != nil {
				s.setState(StateClosed)
				return err
			}
			s.setState(StateReady)
		}
	}
}

func (s *Session) negotiate(ctx context.Context, params protocol.Params) (b negotiator.Bindings, err error) {
	ctx, span := s.gw.tracer.Start(ctx, "gateway.negotiate", trace.WithAttributes(
		attribute.String("session.id", s.id),
	))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("negotiation panicked: %v", rec)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	chat, emb := Selections(params)
	return s.gw.negotiator.Negotiate(ctx, chat, emb)
}

// fail reports a negotiation failure as the session's only frame.
func (s *Session) fail(ctx context.Context, out Outbox, err error) error {
	s.setState(StateFailed)

	code, message := protocol.CodeInternalServerError, "internal server error"
	var nerr *negotiator.NegotiationError
	if errors.As(err, &nerr) {
		code = nerr.Code()
		message = "Invalid LLM or embeddings model selected, please refresh the page and try again."
		if nerr.Kind == negotiator.ReasonMissingCustomCredentials {
			message = "A custom provider needs both an API key and a base URL."
		}
	}

	s.gw.logger.Error("GATEWAY", "Negotiation failed", map[string]interface{}{
		"session_id": s.id,
		"code":       code,
		"error":      err.Error(),
	})
	s.publish(ctx, events.SessionFailed, map[string]interface{}{"code": code, "error": err.Error()})

	if s.awaitAttached(ctx, out) {
		if sendErr := out.Send(ctx, protocol.Error("", code, message)); sendErr != nil {
			s.gw.logger.Warn("GATEWAY", "Failed to deliver negotiation error", map[string]interface{}{
				"session_id": s.id,
				"error":      sendErr.Error(),
			})
		}
	}
	if nerr != nil {
		return nerr
	}
	return err
}

func (s *Session) awaitAttached(ctx context.Context, out Outbox) bool {
	select {
	case <-out.Attached():
		return true
	case <-ctx.Done():
		return false
	}
}

// handleRequest validates one inbound message and starts a relay for it.
// A nil relay with a nil error means the message was answered with an error
// frame. active is the id of the stream in flight, if any; a rejection never
// carries it, so that stream keeps a single terminal frame.
func (s *Session) handleRequest(ctx context.Context, raw []byte, active string, b negotiator.Bindings, out Outbox) (*activeRelay, error) {
	req, err := protocol.DecodeRequest(raw)
	if err != nil {
		s.gw.logger.Warn("GATEWAY", "Rejected malformed request", map[string]interface{}{
			"session_id": s.id,
			"error":      err.Error(),
		})
		return nil, s.send(ctx, out, protocol.Error(rejectionID(req.Message.MessageID, active), protocol.CodeInvalidRequest, err.Error()))
	}

	id := req.Message.MessageID
	if active != "" {
		s.publish(ctx, events.StreamRejected, map[string]interface{}{"message_id": id})
		if id == active {
			s.gw.logger.Warn("GATEWAY", "Request reuses the streaming message id", map[string]interface{}{
				"session_id": s.id,
				"message_id": id,
			})
		}
		return nil, s.send(ctx, out, protocol.Error(rejectionID(id, active), protocol.CodeStreamInProgress,
			"A response is still streaming; wait for it to finish before sending another message."))
	}

	relayCtx, cancel := context.WithCancel(ctx)
	r := &activeRelay{messageID: id, cancel: cancel, done: make(chan relayResult, 1)}
	greq := generation.RequestFrom(req)

	s.publish(ctx, events.StreamStarted, map[string]interface{}{
		"message_id": id,
		"chat_id":    req.Message.ChatID,
		"focus_mode": req.FocusMode,
	})
	s.setState(StateStreaming)
	go func() {
		r.done <- s.relay(relayCtx, greq, b, out)
	}()
	return r, nil
}

// rejectionID tags an error frame with id unless id names the active stream,
// in which case the frame is sent untagged.
func rejectionID(id, active string) string {
	if active != "" && id == active {
		return ""
	}
	return id
}

func (s *Session) send(ctx context.Context, out Outbox, f protocol.Frame) error {
	if err := out.Send(ctx, f); err != nil {
		return fmt.Errorf("send %s frame: %w", f.Type, err)
	}
	return nil
}

// relay forwards one answer's content frames. The terminal frame is left to
// Run so it always follows every content frame.
func (s *Session) relay(ctx context.Context, req generation.Request, b negotiator.Bindings, out Outbox) (res relayResult) {
	id := req.MessageID
	res.messageID = id

	ctx, span := s.gw.tracer.Start(ctx, "gateway.stream", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("message.id", id),
		attribute.String("chat.provider", b.Chat.Provider),
		attribute.String("chat.model", b.Chat.Model),
	))
	defer func() {
		if rec := recover(); rec != nil {
			res.err = fmt.Errorf("generation panicked: %v", rec)
			res.transport = false
		}
		if res.err != nil {
			span.RecordError(res.err)
			span.SetStatus(codes.Error, res.err.Error())
		}
		span.SetAttributes(attribute.Int("answer.length", len(res.text)))
		span.End()
	}()

	evs, err := s.gw.engine.Answer(ctx, b, req)
	if err != nil {
		res.err = err
		return res
	}

	var (
		text            strings.Builder
		sentSources     bool
		sentSuggestions bool
	)
	for ev := range evs {
		var frame protocol.Frame
		switch {
		case ev.Err != nil:
			res.text = text.String()
			res.err = ev.Err
			return res

		case ev.Sources != nil:
			if sentSources {
				s.dropped(id, protocol.KindSources)
				continue
			}
			sentSources = true
			frame = protocol.SourcesFrame(id, ev.Sources)

		case ev.Suggestions != nil:
			if sentSuggestions {
				s.dropped(id, protocol.KindSuggestions)
				continue
			}
			sentSuggestions = true
			frame = protocol.SuggestionsFrame(id, ev.Suggestions)

		case ev.Text != "":
			text.WriteString(ev.Text)
			frame = protocol.Chunk(id, ev.Text)

		default:
			continue
		}

		if err := out.Send(ctx, frame); err != nil {
			res.text = text.String()
			res.err = err
			// A cancelled relay is not a transport failure.
			res.transport = ctx.Err() == nil
			return res
		}
	}

	res.text = text.String()
	if err := ctx.Err(); err != nil {
		res.err = err
	}
	return res
}

func (s *Session) dropped(id string, kind protocol.Kind) {
	s.gw.logger.Warn("GATEWAY", "Dropped duplicate frame", map[string]interface{}{
		"session_id": s.id,
		"message_id": id,
		"type":       string(kind),
	})
}

// finish sends the terminal frame for a completed relay.
func (s *Session) finish(ctx context.Context, res relayResult, out Outbox) error {
	if res.transport {
		return fmt.Errorf("relay %s: %w", res.messageID, res.err)
	}

	if res.err != nil {
		s.gw.logger.Error("GATEWAY", "Generation failed", map[string]interface{}{
			"session_id": s.id,
			"message_id": res.messageID,
			"error":      res.err.Error(),
		})
		s.publish(ctx, events.StreamFailed, map[string]interface{}{
			"message_id": res.messageID,
			"error":      res.err.Error(),
		})
		return s.send(ctx, out, protocol.Error(res.messageID, protocol.CodeGenerationFailed, "An error occurred while generating the answer."))
	}

	s.publish(ctx, events.StreamCompleted, map[string]interface{}{
		"message_id": res.messageID,
		"length":     len(res.text),
	})
	return s.send(ctx, out, protocol.End(res.messageID, res.text))
}
