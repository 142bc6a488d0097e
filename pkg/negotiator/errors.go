package negotiator

import (
	"errors"
	"fmt"

	"ai-search-be/pkg/protocol"
)

type Reason int

const (
	ReasonInvalidModelSelection Reason = iota + 1
	ReasonMissingCustomCredentials
)

var (
	ErrInvalidModelSelection    = errors.New("invalid model selection")
	ErrMissingCustomCredentials = errors.New("missing custom endpoint credentials")
)

// NegotiationError is a terminal failure to bind a session to a model.
type NegotiationError struct {
	Kind     Reason
	Target   string // "chat" or "embedding"
	Provider string
	Model    string
}

func (e *NegotiationError) Error() string {
	switch e.Kind {
	case ReasonMissingCustomCredentials:
		return fmt.Sprintf("%s: %s requires both a base URL and an API key", e.Target, e.Provider)
	default:
		return fmt.Sprintf("%s: model %q is not available from provider %q", e.Target, e.Model, e.Provider)
	}
}

func (e *NegotiationError) Unwrap() error {
	switch e.Kind {
	case ReasonMissingCustomCredentials:
		return ErrMissingCustomCredentials
	default:
		return ErrInvalidModelSelection
	}
}

// Code is the stable key carried by the error frame.
func (e *NegotiationError) Code() string {
	switch e.Kind {
	case ReasonMissingCustomCredentials:
		return protocol.CodeMissingCustomCredentials
	default:
		return protocol.CodeInvalidModelSelected
	}
}
