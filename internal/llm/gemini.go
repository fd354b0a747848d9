package llm

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"
)

// GeminiModel streams steps from the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini API client for model.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: gemini api key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Name returns the model name.
func (g *GeminiModel) Name() string {
	return g.model
}

// GenerateStream opens a streamed generation.
func (g *GeminiModel) GenerateStream(ctx context.Context, req StepRequest) (<-chan Chunk, error) {
	config := &genai.GenerateContentConfig{
		Temperature: Ptr(req.Temperature),
	}
	if req.MaxOutputTokens > 0 {
		config.MaxOutputTokens = req.MaxOutputTokens
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: req.Tools}}
	}

	return streamChunks(ctx, g.client.Models.GenerateContentStream(ctx, g.model, req.Contents, config))
}

// streamChunks pulls the first response of seq before returning, so that
// request errors are reported to the caller. Later errors arrive as a Chunk.
func streamChunks(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) (<-chan Chunk, error) {
	next, stop := iter.Pull2(seq)
	resp, err, ok := next()
	if err != nil {
		stop()
		return nil, err
	}

	chunks := make(chan Chunk, 10)
	go func() {
		defer close(chunks)
		defer stop()

		for ok {
			if err != nil {
				select {
				case chunks <- Chunk{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if resp != nil {
				select {
				case chunks <- processResponse(resp):
				case <-ctx.Done():
					return
				}
			}
			resp, err, ok = next()
		}
	}()
	return chunks, nil
}

// processResponse converts a Gemini response to a Chunk. Thought parts are
// dropped.
func processResponse(resp *genai.GenerateContentResponse) Chunk {
	var chunk Chunk
	if len(resp.Candidates) == 0 {
		return chunk
	}
	candidate := resp.Candidates[0]
	chunk.FinishReason = candidate.FinishReason
	if candidate.Content == nil {
		return chunk
	}
	for _, part := range candidate.Content.Parts {
		if part.Thought {
			continue
		}
		if part.Text != "" {
			chunk.Text += part.Text
		}
		if part.FunctionCall != nil {
			chunk.Calls = append(chunk.Calls, part.FunctionCall)
		}
	}
	return chunk
}
