package llm

import (
	"context"

	"google.golang.org/genai"
)

// StepRequest is a single model call.
type StepRequest struct {
	System          string
	Contents        []*genai.Content
	Tools           []*genai.FunctionDeclaration
	Temperature     float32
	MaxOutputTokens int32
}

// Chunk is one streamed piece of a model response. A chunk with Err ends the
// step.
type Chunk struct {
	Text         string
	Calls        []*genai.FunctionCall
	FinishReason genai.FinishReason
	Err          error
}

// Model streams one step. Errors returned by GenerateStream happen before any
// output and may be retried; errors after that arrive as a Chunk.
type Model interface {
	GenerateStream(ctx context.Context, req StepRequest) (<-chan Chunk, error)
	Name() string
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
