// Package llm drives the model side of a chat turn. A Runner turns one or
// more streamed model steps into a single ordered Event stream, executing
// requested tools between steps.
package llm

import (
	"context"

	"google.golang.org/genai"

	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/tools"
)

// DefaultMaxSteps bounds the model/tool round trips of one turn.
const DefaultMaxSteps = 50

// FinishMaxSteps is reported when a turn hits the step bound.
const FinishMaxSteps = "MAX_STEPS"

// EventKind classifies backend stream events.
type EventKind string

const (
	EventText        EventKind = "text"
	EventToolCall    EventKind = "tool-call"
	EventToolResult  EventKind = "tool-result"
	EventStreamError EventKind = "stream-error"
	EventFinish      EventKind = "finish"
)

// Event is one item of a backend stream.
type Event struct {
	Kind EventKind

	// Text is set for EventText.
	Text string

	// CallID, Name and Args identify a tool call; set for EventToolCall and
	// EventToolResult.
	CallID string
	Name   string
	Args   map[string]any

	// Result is set for EventToolResult.
	Result *tools.Result

	// Err is set for EventStreamError.
	Err error

	// FinishReason is set for EventFinish.
	FinishReason string
}

// Request is one turn.
type Request struct {
	Messages        []models.Message
	System          string
	Tools           []*genai.FunctionDeclaration
	Temperature     float32
	MaxOutputTokens int32
	MaxSteps        int
}

// Stream is a running turn. Events is closed when the turn ends; Err is
// valid after that and reports a failure that ended the turn early.
type Stream struct {
	Events <-chan Event
	err    error
}

// NewStream wraps an event channel owned by a producer goroutine.
func NewStream(ch <-chan Event) *Stream {
	return &Stream{Events: ch}
}

// Fail records err as the reason the producer stopped. Call before closing
// the events channel.
func (s *Stream) Fail(err error) {
	s.err = err
}

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// Backend runs turns.
type Backend interface {
	Stream(ctx context.Context, req Request) (*Stream, error)
}

// ToolExecutor runs tool calls requested by the model.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) tools.Result
}
