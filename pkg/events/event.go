package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "STREAM_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Session lifecycle event types.
const (
	SessionOpened   = "SESSION_OPENED"
	SessionReady    = "SESSION_READY"
	SessionFailed   = "SESSION_FAILED"
	SessionClosed   = "SESSION_CLOSED"
	StreamStarted   = "STREAM_STARTED"
	StreamCompleted = "STREAM_COMPLETED"
	StreamFailed    = "STREAM_FAILED"
	StreamRejected  = "STREAM_REJECTED"
)

// NewSessionEvent stamps an event for sessionID. data may be nil.
func NewSessionEvent(eventType, sessionID string, data map[string]interface{}) BaseEvent {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["session_id"] = sessionID
	return BaseEvent{Type: eventType, Data: payload, OccurredAt: time.Now().UTC()}
}

type envelope struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Marshal encodes any Event with its type and timestamp so consumers can
// rebuild it.
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(envelope{Type: e.EventType(), Payload: e.Payload(), OccurredAt: e.Timestamp()})
}

func Unmarshal(data []byte) (BaseEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return BaseEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if env.Type == "" {
		return BaseEvent{}, fmt.Errorf("decode event: missing type")
	}
	return BaseEvent{Type: env.Type, Data: env.Payload, OccurredAt: env.OccurredAt}, nil
}
