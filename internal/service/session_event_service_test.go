package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-search-be/internal/pkg/logger"
	"ai-search-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingForwarder struct {
	mu   sync.Mutex
	got  []events.Event
	fail bool
}

func (f *recordingForwarder) Publish(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, e)
	if f.fail {
		return errors.New("nats: no servers available")
	}
	return nil
}

func (f *recordingForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func newBus(t *testing.T) *gochannel.GoChannel {
	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestSessionEventsAreForwarded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fwd := &recordingForwarder{}
	svc := NewSessionEventService(newBus(t), SessionEventTopic, fwd, logger.NewNopLogger())
	require.NoError(t, svc.Consume(ctx))

	svc.Publish(ctx, events.NewSessionEvent(events.StreamStarted, "s-1", map[string]interface{}{"message_id": "m1"}))

	require.Eventually(t, func() bool { return fwd.count() == 1 }, time.Second, 5*time.Millisecond)
	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	assert.Equal(t, events.StreamStarted, fwd.got[0].EventType())
	assert.Equal(t, "s-1", fwd.got[0].Payload()["session_id"])
	assert.Equal(t, "m1", fwd.got[0].Payload()["message_id"])
}

func TestForwardFailureDoesNotStopConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fwd := &recordingForwarder{fail: true}
	svc := NewSessionEventService(newBus(t), SessionEventTopic, fwd, logger.NewNopLogger())
	require.NoError(t, svc.Consume(ctx))

	svc.Publish(ctx, events.NewSessionEvent(events.SessionOpened, "s-1", nil))
	svc.Publish(ctx, events.NewSessionEvent(events.SessionClosed, "s-1", nil))

	assert.Eventually(t, func() bool { return fwd.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestNilForwarderOnlyLogs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewSessionEventService(newBus(t), SessionEventTopic, nil, logger.NewNopLogger())
	require.NoError(t, svc.Consume(ctx))
	assert.NotPanics(t, func() {
		svc.Publish(ctx, events.NewSessionEvent(events.SessionReady, "s-1", nil))
	})
}

type stalledForwarder struct {
	release chan struct{}
}

func (f *stalledForwarder) Publish(ctx context.Context, _ events.Event) error {
	select {
	case <-f.release:
	case <-ctx.Done():
	}
	return nil
}

func TestPublishDoesNotWaitForStalledForwarder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fwd := &stalledForwarder{release: make(chan struct{})}
	defer close(fwd.release)
	svc := NewSessionEventService(newBus(t), SessionEventTopic, fwd, logger.NewNopLogger())
	require.NoError(t, svc.Consume(ctx))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 64; i++ {
			svc.Publish(ctx, events.NewSessionEvent(events.StreamStarted, "s-1", nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked behind the forwarder")
	}
}
