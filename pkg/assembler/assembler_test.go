package assembler

import (
	"strings"
	"testing"

	"ai-search-be/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fold(frames ...protocol.Frame) Message {
	var m *Message
	for _, f := range frames {
		next := Reduce(m, f)
		m = &next
	}
	return *m
}

func TestReduceCapitalScenario(t *testing.T) {
	src := []protocol.Source{{Metadata: protocol.SourceMetadata{URL: "a"}}}

	m := fold(
		protocol.Chunk("s1", "Paris"),
		protocol.SourcesFrame("s1", src),
		protocol.Chunk("s1", " is the capital."),
		protocol.End("s1", ""),
	)

	assert.Equal(t, "s1", m.StreamID)
	assert.Equal(t, "Paris is the capital.", m.Text)
	assert.Equal(t, src, m.Sources)
	assert.Equal(t, StatusComplete, m.Status)
	assert.Nil(t, m.Err)
}

func TestReduceTextIsConcatenationOfChunks(t *testing.T) {
	chunks := []string{"a", "", "bc", " d", "ü", "[1]"}
	side := []protocol.Frame{
		protocol.SourcesFrame("s", []protocol.Source{{PageContent: "p"}}),
		protocol.SuggestionsFrame("s", []string{"next?"}),
	}

	// interleave the side frames at every position
	for pos := 0; pos <= len(chunks); pos++ {
		var frames []protocol.Frame
		for i, c := range chunks {
			if i == pos {
				frames = append(frames, side...)
			}
			frames = append(frames, protocol.Chunk("s", c))
		}
		if pos == len(chunks) {
			frames = append(frames, side...)
		}

		m := fold(frames...)
		assert.Equal(t, strings.Join(chunks, ""), m.Text, "side frames at %d", pos)
		assert.Equal(t, StatusStreaming, m.Status)
	}
}

func TestReduceFirstFrameCreatesMessage(t *testing.T) {
	m := Reduce(nil, protocol.Chunk("new", "hello"))
	assert.Equal(t, Message{StreamID: "new", Text: "hello", Status: StatusStreaming}, m)
}

func TestReduceErrorPreservesPartialOutput(t *testing.T) {
	src := []protocol.Source{{Metadata: protocol.SourceMetadata{URL: "u"}}}
	m := fold(
		protocol.Chunk("s", "partial"),
		protocol.SourcesFrame("s", src),
		protocol.Error("s", protocol.CodeGenerationFailed, "model went away"),
	)

	assert.Equal(t, StatusErrored, m.Status)
	assert.Equal(t, "partial", m.Text)
	assert.Equal(t, src, m.Sources)
	require.NotNil(t, m.Err)
	assert.Equal(t, protocol.CodeGenerationFailed, m.Err.Key)
}

func TestReduceTerminalFramesAreIdempotent(t *testing.T) {
	done := fold(protocol.Chunk("s", "x"), protocol.End("s", ""))
	again := Reduce(&done, protocol.End("s", ""))
	assert.Equal(t, done, again)

	failed := fold(protocol.Chunk("s", "x"), protocol.Error("s", "E", "m"))
	againErr := Reduce(&failed, protocol.Error("s", "E", "m"))
	assert.Equal(t, failed, againErr)
}

func TestReduceIgnoresFramesAfterTerminal(t *testing.T) {
	done := fold(protocol.Chunk("s", "x"), protocol.End("s", ""))

	for _, f := range []protocol.Frame{
		protocol.Chunk("s", "late"),
		protocol.SourcesFrame("s", []protocol.Source{{PageContent: "late"}}),
		protocol.Error("s", "E", "late"),
	} {
		assert.Equal(t, done, Reduce(&done, f))
	}
}

func TestReduceEndAdoptsServerText(t *testing.T) {
	m := fold(protocol.Chunk("s", "Pari"), protocol.End("s", "Paris."))
	assert.Equal(t, "Paris.", m.Text)
}

func TestReduceSecondSourcesOverwrites(t *testing.T) {
	first := []protocol.Source{{PageContent: "1"}}
	second := []protocol.Source{{PageContent: "2"}}
	m := fold(protocol.SourcesFrame("s", first), protocol.SourcesFrame("s", second))
	assert.Equal(t, second, m.Sources)
}

func TestReduceIgnoresReadyAndBadPayloads(t *testing.T) {
	m := fold(protocol.Chunk("s", "ok"))

	assert.Equal(t, m, Reduce(&m, protocol.Ready()))
	assert.Equal(t, m, Reduce(&m, protocol.Frame{Type: protocol.KindChunk, MessageID: "s", Data: []byte(`42`)}))
}

func TestReduceDifferentStreamStartsFresh(t *testing.T) {
	m := fold(protocol.Chunk("a", "old"), protocol.End("a", ""))
	next := Reduce(&m, protocol.Chunk("b", "new"))
	assert.Equal(t, Message{StreamID: "b", Text: "new", Status: StatusStreaming}, next)
}

func TestAssemblerTracksStreamsInArrivalOrder(t *testing.T) {
	a := New()

	_, ok := a.Apply(protocol.Ready())
	assert.False(t, ok)

	a.Apply(protocol.Chunk("one", "1"))
	a.Apply(protocol.End("one", ""))
	a.Apply(protocol.Chunk("two", "2"))
	a.Apply(protocol.SuggestionsFrame("two", []string{"more?"}))
	m, ok := a.Apply(protocol.End("two", ""))
	require.True(t, ok)

	assert.Equal(t, []string{"one", "two"}, a.Order())
	assert.Equal(t, []string{"more?"}, m.Suggestions)

	one, ok := a.Get("one")
	require.True(t, ok)
	assert.Equal(t, StatusComplete, one.Status)

	_, ok = a.Get("missing")
	assert.False(t, ok)
}
