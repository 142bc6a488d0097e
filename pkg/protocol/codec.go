package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func Encode(f Frame) ([]byte, error) {
	if !f.Type.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, f.Type)
	}
	return json.Marshal(f)
}

func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if !f.Type.valid() {
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownKind, f.Type)
	}
	return f, nil
}

// RequestMessage identifies the user turn that opens a stream.
type RequestMessage struct {
	MessageID string `json:"messageId" validate:"required"`
	ChatID    string `json:"chatId"`
	Content   string `json:"content" validate:"required"`
}

// Request is the only frame a client sends.
type Request struct {
	Type               string         `json:"type" validate:"required,eq=message"`
	Message            RequestMessage `json:"message"`
	History            [][2]string    `json:"history"`
	FocusMode          string         `json:"focusMode"`
	OptimizationMode   string         `json:"optimizationMode"`
	Files              []string       `json:"files"`
	SystemInstructions string         `json:"systemInstructions,omitempty"`
}

// DecodeRequest parses and validates a client request frame.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if err := validate.Struct(req); err != nil {
		return req, fmt.Errorf("invalid request: %s", describeValidation(err))
	}
	if strings.TrimSpace(req.Message.Content) == "" {
		return req, fmt.Errorf("invalid request: message.content is blank")
	}
	return req, nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// Params are the session establishment parameters carried on the connect URL.
type Params struct {
	ChatModelProvider      string
	ChatModel              string
	EmbeddingModelProvider string
	EmbeddingModel         string
	OpenAIAPIKey           string
	OpenAIBaseURL          string
}

// Query parameter names.
const (
	ParamChatModelProvider      = "chatModelProvider"
	ParamChatModel              = "chatModel"
	ParamEmbeddingModelProvider = "embeddingModelProvider"
	ParamEmbeddingModel         = "embeddingModel"
	ParamOpenAIAPIKey           = "openAIApiKey"
	ParamOpenAIBaseURL          = "openAIBaseURL"
)

// ParamsFromQuery builds Params from any query lookup (fiber ctx, websocket conn, url.Values).
func ParamsFromQuery(get func(key string) string) Params {
	return Params{
		ChatModelProvider:      get(ParamChatModelProvider),
		ChatModel:              get(ParamChatModel),
		EmbeddingModelProvider: get(ParamEmbeddingModelProvider),
		EmbeddingModel:         get(ParamEmbeddingModel),
		OpenAIAPIKey:           get(ParamOpenAIAPIKey),
		OpenAIBaseURL:          get(ParamOpenAIBaseURL),
	}
}
