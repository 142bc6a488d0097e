package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionEventCopiesData(t *testing.T) {
	data := map[string]interface{}{"message_id": "m1"}
	ev := NewSessionEvent(StreamStarted, "s1", data)
	data["message_id"] = "changed"

	assert.Equal(t, StreamStarted, ev.EventType())
	assert.Equal(t, "m1", ev.Payload()["message_id"])
	assert.Equal(t, "s1", ev.Payload()["session_id"])
	assert.False(t, ev.Timestamp().IsZero())
}

func TestMarshalKeepsTypeAndTime(t *testing.T) {
	ev := NewSessionEvent(SessionReady, "s1", nil)
	data, err := Marshal(ev)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, SessionReady, back.Type)
	assert.Equal(t, "s1", back.Data["session_id"])
	assert.True(t, ev.OccurredAt.Equal(back.OccurredAt))
}

func TestUnmarshalRejectsUntyped(t *testing.T) {
	_, err := Unmarshal([]byte(`{"payload":{}}`))
	assert.Error(t, err)
	_, err = Unmarshal([]byte(`nope`))
	assert.Error(t, err)
}
