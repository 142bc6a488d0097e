package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerAttachesModuleAndDetails(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewWithCore(core)

	l.Info("Gateway", "session ready", map[string]interface{}{"session_id": "abc"})
	l.Warn("Registry", "provider skipped", nil)
	l.Error("Gateway", "stream failed", map[string]interface{}{"error": errors.New("boom")})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "session ready", entries[0].Message)
	assert.Equal(t, "Gateway", entries[0].ContextMap()["module"])
	assert.Equal(t, map[string]interface{}{"session_id": "abc"}, entries[0].ContextMap()["details"])

	// nil details are normalised to an empty map
	assert.Equal(t, map[string]interface{}{}, entries[1].ContextMap()["details"])

	_, hasRef := entries[2].ContextMap()["error_ref"]
	assert.True(t, hasRef)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Debug("x", "y", nil)
	assert.NoError(t, l.Sync())
}
