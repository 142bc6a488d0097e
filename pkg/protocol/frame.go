package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the wire "type" of a frame.
type Kind string

const (
	KindReady       Kind = "signal"
	KindChunk       Kind = "message"
	KindSources     Kind = "sources"
	KindSuggestions Kind = "suggestions"
	KindEnd         Kind = "messageEnd"
	KindError       Kind = "error"
)

// Terminal reports whether a frame of this kind closes its stream.
func (k Kind) Terminal() bool {
	return k == KindEnd || k == KindError
}

func (k Kind) valid() bool {
	switch k {
	case KindReady, KindChunk, KindSources, KindSuggestions, KindEnd, KindError:
		return true
	}
	return false
}

// Stable error keys carried in error frames. Clients branch on these.
const (
	CodeInvalidModelSelected     = "INVALID_MODEL_SELECTED"
	CodeMissingCustomCredentials = "MISSING_CUSTOM_CREDENTIALS"
	CodeInternalServerError      = "INTERNAL_SERVER_ERROR"
	CodeInvalidRequest           = "INVALID_REQUEST"
	CodeStreamInProgress         = "STREAM_IN_PROGRESS"
	CodeGenerationFailed         = "GENERATION_FAILED"
)

const readySignal = "open"

var (
	ErrUnknownKind  = errors.New("unknown frame type")
	ErrKindMismatch = errors.New("frame payload accessed with wrong kind")
)

// Frame is one unit of the wire protocol. Data holds the kind-specific payload
// already encoded, so a Frame is safe to share between goroutines.
type Frame struct {
	Type      Kind            `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
}

type SourceMetadata struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Source is one retrieved document referenced by [k] citation markers.
type Source struct {
	PageContent string         `json:"pageContent"`
	Metadata    SourceMetadata `json:"metadata"`
}

type ErrorInfo struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

func (e ErrorInfo) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

func mustRaw(v interface{}) json.RawMessage {
	// Payload types are plain structs, strings and slices; Marshal cannot fail on them.
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("protocol: marshal payload: %v", err))
	}
	return b
}

func Ready() Frame {
	return Frame{Type: KindReady, Data: mustRaw(readySignal)}
}

func Chunk(messageID, text string) Frame {
	return Frame{Type: KindChunk, Data: mustRaw(text), MessageID: messageID}
}

func SourcesFrame(messageID string, sources []Source) Frame {
	if sources == nil {
		sources = []Source{}
	}
	return Frame{Type: KindSources, Data: mustRaw(sources), MessageID: messageID}
}

func SuggestionsFrame(messageID string, suggestions []string) Frame {
	if suggestions == nil {
		suggestions = []string{}
	}
	return Frame{Type: KindSuggestions, Data: mustRaw(suggestions), MessageID: messageID}
}

// End closes a stream; text is the server-finalized answer.
func End(messageID, text string) Frame {
	return Frame{Type: KindEnd, Data: mustRaw(text), MessageID: messageID}
}

func Error(messageID, code, message string) Frame {
	return Frame{Type: KindError, Data: mustRaw(ErrorInfo{Key: code, Message: message}), MessageID: messageID}
}

// Text decodes the payload of chunk, end and ready frames.
func (f Frame) Text() (string, error) {
	if f.Type != KindChunk && f.Type != KindEnd && f.Type != KindReady {
		return "", fmt.Errorf("%w: %s has no text", ErrKindMismatch, f.Type)
	}
	if len(f.Data) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(f.Data, &s); err != nil {
		return "", fmt.Errorf("decode %s text: %w", f.Type, err)
	}
	return s, nil
}

func (f Frame) Sources() ([]Source, error) {
	if f.Type != KindSources {
		return nil, fmt.Errorf("%w: %s has no sources", ErrKindMismatch, f.Type)
	}
	var out []Source
	if err := json.Unmarshal(f.Data, &out); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	return out, nil
}

func (f Frame) Suggestions() ([]string, error) {
	if f.Type != KindSuggestions {
		return nil, fmt.Errorf("%w: %s has no suggestions", ErrKindMismatch, f.Type)
	}
	var out []string
	if err := json.Unmarshal(f.Data, &out); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return out, nil
}

// ErrorInfo decodes an error payload. A bare string payload is accepted and
// reported with an empty key.
func (f Frame) ErrorInfo() (ErrorInfo, error) {
	if f.Type != KindError {
		return ErrorInfo{}, fmt.Errorf("%w: %s is not an error", ErrKindMismatch, f.Type)
	}
	var info ErrorInfo
	if err := json.Unmarshal(f.Data, &info); err == nil {
		return info, nil
	}
	var msg string
	if err := json.Unmarshal(f.Data, &msg); err != nil {
		return ErrorInfo{}, fmt.Errorf("decode error payload: %w", err)
	}
	return ErrorInfo{Message: msg}, nil
}
