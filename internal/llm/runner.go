package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Runner implements Backend over a Model, executing tool calls between
// steps until the model stops asking for tools or MaxSteps is reached.
type Runner struct {
	model  Model
	tools  ToolExecutor
	retry  RetryConfig
	logger *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(model Model, exec ToolExecutor, retry RetryConfig, logger *slog.Logger) *Runner {
	return &Runner{model: model, tools: exec, retry: retry, logger: logger}
}

// Stream starts a turn. The returned stream ends after a finish event, or
// early with Err set when a step cannot be opened or ctx is cancelled.
func (r *Runner) Stream(ctx context.Context, req Request) (*Stream, error) {
	system, contents := ConvertMessages(req.Messages)
	if req.System != "" {
		system = strings.TrimSpace(req.System + "\n\n" + system)
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("llm: no messages to send")
	}
	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	out := make(chan Event)
	s := NewStream(out)

	go func() {
		defer close(out)

		send := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		// Call ids must be unique across the conversation; some servers
		// number calls per response or send none.
		seen := callIDs(contents)

		for step := 0; step < maxSteps; step++ {
			chunks, err := r.open(ctx, StepRequest{
				System:          system,
				Contents:        contents,
				Tools:           req.Tools,
				Temperature:     req.Temperature,
				MaxOutputTokens: req.MaxOutputTokens,
			})
			if err != nil {
				s.Fail(err)
				return
			}

			var (
				text   strings.Builder
				calls  []*genai.FunctionCall
				finish genai.FinishReason
			)
			for c := range chunks {
				if c.Err != nil {
					if !send(Event{Kind: EventStreamError, Err: c.Err}) {
						s.Fail(ctx.Err())
						return
					}
					continue
				}
				if c.Text != "" {
					text.WriteString(c.Text)
					if !send(Event{Kind: EventText, Text: c.Text}) {
						s.Fail(ctx.Err())
						return
					}
				}
				for _, fc := range c.Calls {
					if _, dup := seen[fc.ID]; fc.ID == "" || dup {
						fc.ID = uuid.NewString()
					}
					seen[fc.ID] = struct{}{}
					calls = append(calls, fc)
					if !send(Event{Kind: EventToolCall, CallID: fc.ID, Name: fc.Name, Args: fc.Args}) {
						s.Fail(ctx.Err())
						return
					}
				}
				if c.FinishReason != "" {
					finish = c.FinishReason
				}
			}

			if len(calls) == 0 {
				if finish == "" {
					finish = genai.FinishReasonStop
				}
				send(Event{Kind: EventFinish, FinishReason: string(finish)})
				return
			}

			modelParts := make([]*genai.Part, 0, len(calls)+1)
			if text.Len() > 0 {
				modelParts = append(modelParts, genai.NewPartFromText(text.String()))
			}
			responses := make([]*genai.Part, 0, len(calls))
			for _, fc := range calls {
				modelParts = append(modelParts, &genai.Part{FunctionCall: fc})

				res := r.tools.Execute(ctx, fc.Name, fc.Args)
				if !send(Event{Kind: EventToolResult, CallID: fc.ID, Name: fc.Name, Args: fc.Args, Result: &res}) {
					s.Fail(ctx.Err())
					return
				}
				part := genai.NewPartFromFunctionResponse(fc.Name, res.ToMap())
				part.FunctionResponse.ID = fc.ID
				responses = append(responses, part)
			}
			contents = append(contents,
				&genai.Content{Role: genai.RoleModel, Parts: modelParts},
				&genai.Content{Role: genai.RoleUser, Parts: responses},
			)

			r.logger.Debug("llm: step done",
				slog.Int("step", step+1),
				slog.Int("tool_calls", len(calls)))
		}

		r.logger.Warn("llm: step limit reached", slog.Int("max_steps", maxSteps))
		send(Event{Kind: EventFinish, FinishReason: FinishMaxSteps})
	}()

	return s, nil
}

// callIDs returns the ids of the function calls already in contents.
func callIDs(contents []*genai.Content) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, c := range contents {
		for _, p := range c.Parts {
			if p.FunctionCall != nil && p.FunctionCall.ID != "" {
				ids[p.FunctionCall.ID] = struct{}{}
			}
		}
	}
	return ids
}

// open starts a model step, retrying retryable failures with backoff.
func (r *Runner) open(ctx context.Context, req StepRequest) (<-chan Chunk, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(r.retry.RetryDelay, attempt-1, r.retry.MaxDelay)
			r.logger.Info("llm: retrying request",
				slog.String("model", r.model.Name()),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}

		chunks, err := r.model.GenerateStream(ctx, req)
		if err == nil {
			return chunks, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsRetryable(err) {
			return nil, err
		}
		r.logger.Warn("llm: request failed, will retry",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
	}
	return nil, fmt.Errorf("max retries (%d) exceeded: %w", r.retry.MaxRetries, lastErr)
}
