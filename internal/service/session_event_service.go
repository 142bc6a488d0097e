package service

import (
	"context"

	"ai-search-be/internal/pkg/logger"
	"ai-search-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const SessionEventTopic = "session_events"

// EventForwarder ships events off the process. *nats.Publisher implements it.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type ISessionEventService interface {
	// Publish queues the event on the in-process bus and returns immediately.
	Publish(ctx context.Context, event events.Event)
	Consume(ctx context.Context) error
}

type sessionEventService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	forwarder EventForwarder
	logger    logger.ILogger
}

// NewSessionEventService wires the in-process bus. forwarder may be nil, in
// which case events are only logged.
func NewSessionEventService(
	pubSub *gochannel.GoChannel,
	topicName string,
	forwarder EventForwarder,
	log logger.ILogger,
) ISessionEventService {
	return &sessionEventService{
		pubSub:    pubSub,
		topicName: topicName,
		forwarder: forwarder,
		logger:    log,
	}
}

func (s *sessionEventService) Publish(ctx context.Context, event events.Event) {
	payload, err := events.Marshal(event)
	if err != nil {
		s.logger.Error("EVENTS", "Failed to marshal event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		s.logger.Warn("EVENTS", "Failed to queue event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}

func (s *sessionEventService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *sessionEventService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		s.logger.Error("EVENTS", "Dropping undecodable event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	details := map[string]interface{}{"type": event.EventType()}
	for k, v := range event.Payload() {
		details[k] = v
	}
	s.logger.Info("EVENTS", "Session event", details)

	if s.forwarder != nil {
		if err := s.forwarder.Publish(ctx, event); err != nil {
			// Acked anyway: redelivering while the bus is down would spin.
			s.logger.Warn("EVENTS", "Failed to forward event", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}
	msg.Ack()
}
