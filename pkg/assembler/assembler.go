// Package assembler folds protocol frames back into chat messages on the
// client side. Reduce is pure; Assembler keeps one message per stream id.
package assembler

import (
	"ai-search-be/pkg/protocol"
)

type Status string

const (
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusErrored   Status = "errored"
)

type Message struct {
	StreamID    string
	Text        string
	Sources     []protocol.Source
	Suggestions []string
	Status      Status
	Err         *protocol.ErrorInfo
}

// Terminal reports whether the message is frozen.
func (m Message) Terminal() bool {
	return m.Status == StatusComplete || m.Status == StatusErrored
}

// Reduce applies one frame to the message it belongs to. prior is nil for a
// stream id not seen yet, or when prior belongs to another stream.
//
// Frames arriving after the message is terminal, ready signals and frames
// with undecodable payloads leave the message unchanged.
func Reduce(prior *Message, f protocol.Frame) Message {
	if f.Type == protocol.KindReady {
		if prior != nil {
			return *prior
		}
		return Message{}
	}

	var msg Message
	if prior != nil && prior.StreamID == f.MessageID {
		msg = *prior
	} else {
		msg = Message{StreamID: f.MessageID, Status: StatusStreaming}
	}

	if msg.Terminal() {
		return msg
	}

	switch f.Type {
	case protocol.KindChunk:
		text, err := f.Text()
		if err != nil {
			return msg
		}
		msg.Text += text

	case protocol.KindSources:
		sources, err := f.Sources()
		if err != nil {
			return msg
		}
		msg.Sources = sources

	case protocol.KindSuggestions:
		suggestions, err := f.Suggestions()
		if err != nil {
			return msg
		}
		msg.Suggestions = suggestions

	case protocol.KindEnd:
		if text, err := f.Text(); err == nil && text != "" {
			msg.Text = text
		}
		msg.Status = StatusComplete

	case protocol.KindError:
		info, err := f.ErrorInfo()
		if err != nil {
			info = protocol.ErrorInfo{Message: "unreadable error frame"}
		}
		msg.Err = &info
		msg.Status = StatusErrored
	}

	return msg
}

// Assembler tracks every stream seen on one connection, in arrival order.
// It is not safe for concurrent use.
type Assembler struct {
	messages map[string]*Message
	order    []string
}

func New() *Assembler {
	return &Assembler{messages: make(map[string]*Message)}
}

// Apply folds f into its stream's message. The bool is false for frames that
// carry no stream id (ready signals, connection-level errors).
func (a *Assembler) Apply(f protocol.Frame) (Message, bool) {
	if f.MessageID == "" {
		return Message{}, false
	}
	prior, seen := a.messages[f.MessageID]
	next := Reduce(prior, f)
	if !seen {
		a.order = append(a.order, f.MessageID)
	}
	a.messages[f.MessageID] = &next
	return next, true
}

func (a *Assembler) Get(streamID string) (Message, bool) {
	m, ok := a.messages[streamID]
	if !ok {
		return Message{}, false
	}
	return *m, true
}

// Order returns stream ids in the order their first frame arrived.
func (a *Assembler) Order() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}
