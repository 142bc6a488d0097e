package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyFrameWireShape(t *testing.T) {
	b, err := Encode(Ready())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"signal","data":"open"}`, string(b))
}

func TestErrorFrameWireShape(t *testing.T) {
	b, err := Encode(Error("m1", CodeInvalidModelSelected, "pick another model"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","messageId":"m1","data":{"key":"INVALID_MODEL_SELECTED","message":"pick another model"}}`, string(b))
}

func TestSourcesFrameDecodesBack(t *testing.T) {
	in := []Source{{PageContent: "x", Metadata: SourceMetadata{URL: "https://a.example"}}}
	f, err := Decode(mustEncode(t, SourcesFrame("m1", in)))
	require.NoError(t, err)

	assert.Equal(t, KindSources, f.Type)
	assert.Equal(t, "m1", f.MessageID)
	got, err := f.Sources()
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestNilListsEncodeAsEmptyArrays(t *testing.T) {
	assert.JSONEq(t, `[]`, string(SourcesFrame("m", nil).Data))
	assert.JSONEq(t, `[]`, string(SuggestionsFrame("m", nil).Data))
}

func TestAccessorsRejectWrongKind(t *testing.T) {
	_, err := Chunk("m", "hi").Sources()
	assert.True(t, errors.Is(err, ErrKindMismatch))

	_, err = End("m", "done").ErrorInfo()
	assert.True(t, errors.Is(err, ErrKindMismatch))
}

func TestErrorInfoAcceptsPlainString(t *testing.T) {
	f := Frame{Type: KindError, Data: []byte(`"Internal server error."`)}
	info, err := f.ErrorInfo()
	require.NoError(t, err)
	assert.Equal(t, "", info.Key)
	assert.Equal(t, "Internal server error.", info.Message)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"bogus"}`))
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = Encode(Frame{Type: "bogus"})
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestKindTerminal(t *testing.T) {
	assert.True(t, KindEnd.Terminal())
	assert.True(t, KindError.Terminal())
	assert.False(t, KindChunk.Terminal())
	assert.False(t, KindReady.Terminal())
}

func TestDecodeRequest(t *testing.T) {
	raw := []byte(`{
		"type": "message",
		"message": {"messageId": "m1", "chatId": "c1", "content": "capital of France?"},
		"history": [["human", "hi"], ["assistant", "hello"]],
		"focusMode": "webSearch",
		"optimizationMode": "speed",
		"files": ["f1"]
	}`)

	req, err := DecodeRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, "m1", req.Message.MessageID)
	assert.Equal(t, [][2]string{{"human", "hi"}, {"assistant", "hello"}}, req.History)
	assert.Equal(t, "webSearch", req.FocusMode)
	assert.Equal(t, []string{"f1"}, req.Files)
}

func TestDecodeRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"type":`},
		{"wrong type", `{"type":"sources","message":{"messageId":"m","content":"q"}}`},
		{"missing message id", `{"type":"message","message":{"content":"q"}}`},
		{"blank content", `{"type":"message","message":{"messageId":"m","content":"   "}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestParamsFromQuery(t *testing.T) {
	q := map[string]string{
		ParamChatModelProvider: "custom_openai",
		ParamChatModel:         "llama",
		ParamOpenAIBaseURL:     "http://localhost:8080/v1",
		ParamOpenAIAPIKey:      "k",
	}
	p := ParamsFromQuery(func(k string) string { return q[k] })
	assert.Equal(t, Params{
		ChatModelProvider: "custom_openai",
		ChatModel:         "llama",
		OpenAIAPIKey:      "k",
		OpenAIBaseURL:     "http://localhost:8080/v1",
	}, p)
}

func mustEncode(t *testing.T, f Frame) []byte {
	t.Helper()
	b, err := Encode(f)
	require.NoError(t, err)
	return b
}
