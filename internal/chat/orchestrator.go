// Package chat runs conversational turns. The Orchestrator drives a model
// backend and turns its stream into normalized StreamEvents, registering
// mutating tool calls with the approval gate.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/starford/muninn/internal/approval"
	"github.com/starford/muninn/internal/changes"
	"github.com/starford/muninn/internal/llm"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/tools"
)

// Generation defaults.
const (
	DefaultTemperature     float32 = 0.7
	DefaultMaxOutputTokens int32   = 8192
)

// TurnRequest is the input of one turn.
type TurnRequest struct {
	// Messages is the conversation so far, ending with the new user message.
	Messages []models.Message

	// ActiveFile is the vault path of the note the user is looking at, if any.
	ActiveFile string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithGeneration sets temperature and the output token limit.
func WithGeneration(temperature float32, maxOutputTokens int32) Option {
	return func(o *Orchestrator) {
		o.temperature = temperature
		if maxOutputTokens > 0 {
			o.maxOutputTokens = maxOutputTokens
		}
	}
}

// WithMaxSteps bounds the model/tool round trips of a turn.
func WithMaxSteps(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// WithContext prepends a system message built from the vault to every turn.
func WithContext(b *ContextBuilder) Option {
	return func(o *Orchestrator) { o.context = b }
}

// WithClock overrides time.Now for approval timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs turns against a backend.
type Orchestrator struct {
	backend llm.Backend
	decls   []*genai.FunctionDeclaration
	gate    *approval.Gate
	applier *changes.Applier
	context *ContextBuilder
	logger  *slog.Logger
	now     func() time.Time

	temperature     float32
	maxOutputTokens int32
	maxSteps        int
}

// NewOrchestrator creates an orchestrator. decls are the tool schemas
// offered to the model; deferred tool results are registered in gate with an
// action that applies the proposed change through applier.
func NewOrchestrator(backend llm.Backend, decls []*genai.FunctionDeclaration, gate *approval.Gate, applier *changes.Applier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:         backend,
		decls:           decls,
		gate:            gate,
		applier:         applier,
		logger:          slog.Default(),
		now:             time.Now,
		temperature:     DefaultTemperature,
		maxOutputTokens: DefaultMaxOutputTokens,
		maxSteps:        llm.DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run starts a turn. The returned channel yields events in backend arrival
// order and always ends with exactly one EventDone, unless ctx is cancelled
// first, in which case the channel is closed without it.
func (o *Orchestrator) Run(ctx context.Context, req TurnRequest) <-chan models.StreamEvent {
	out := make(chan models.StreamEvent)
	t := &turn{
		o:     o,
		ctx:   ctx,
		out:   out,
		calls: make(map[string]*models.ToolCall),
	}
	go func() {
		defer close(out)
		t.run(req)
	}()
	return out
}

func (o *Orchestrator) request(req TurnRequest) llm.Request {
	msgs := req.Messages
	if o.context != nil {
		sys := models.Message{
			Role:      models.RoleSystem,
			Content:   o.context.BuildSystemPrompt(req.ActiveFile),
			Timestamp: o.now(),
		}
		msgs = append([]models.Message{sys}, msgs...)
	}
	return llm.Request{
		Messages:        msgs,
		Tools:           o.decls,
		Temperature:     o.temperature,
		MaxOutputTokens: o.maxOutputTokens,
		MaxSteps:        o.maxSteps,
	}
}

// turn is the state of one running turn, owned by its producer goroutine.
type turn struct {
	o     *Orchestrator
	ctx   context.Context
	out   chan<- models.StreamEvent
	calls map[string]*models.ToolCall

	// gone is set once the consumer's context is cancelled.
	gone bool
}

func (t *turn) run(req TurnRequest) {
	logger := t.o.logger

	stream, err := t.o.backend.Stream(t.ctx, t.o.request(req))
	if err != nil {
		logger.Error("chat: turn failed to start", slog.String("error", err.Error()))
		t.text(failureText(err))
		t.emit(models.StreamEvent{Kind: models.EventDone})
		return
	}

	for ev := range stream.Events {
		if t.gone {
			continue
		}
		t.handle(ev)
	}

	if err := stream.Err(); err != nil && t.ctx.Err() == nil {
		logger.Error("chat: turn failed", slog.String("error", err.Error()))
		t.text(failureText(err))
	}
	t.emit(models.StreamEvent{Kind: models.EventDone})
}

func (t *turn) handle(ev llm.Event) {
	switch ev.Kind {
	case llm.EventText:
		if ev.Text != "" {
			t.text(ev.Text)
		}

	case llm.EventToolCall:
		tc := &models.ToolCall{
			ID:     ev.CallID,
			Name:   ev.Name,
			Args:   ev.Args,
			Status: models.ToolRunning,
		}
		t.calls[ev.CallID] = tc
		t.emit(models.StreamEvent{Kind: models.EventToolCall, ToolCall: snapshot(tc)})

	case llm.EventToolResult:
		tc, ok := t.calls[ev.CallID]
		if !ok {
			t.o.logger.Warn("chat: result for unknown tool call",
				slog.String("id", ev.CallID),
				slog.String("tool", ev.Name),
			)
			return
		}
		t.resolve(tc, ev.Result)
		t.emit(models.StreamEvent{Kind: models.EventToolResult, ToolCall: snapshot(tc)})

	case llm.EventStreamError:
		t.o.logger.Warn("chat: stream error", slog.String("error", errString(ev.Err)))
		t.text(fmt.Sprintf("\n\n[Stream error: %s]\n\n", errString(ev.Err)))

	case llm.EventFinish:
		if msg := finishText(ev.FinishReason); msg != "" {
			t.text(msg)
		}
	}
}

// resolve moves a running call to its terminal state for res.
func (t *turn) resolve(tc *models.ToolCall, res *tools.Result) {
	switch {
	case res == nil:
		tc.Status = models.ToolFailed
		tc.Error = "tool returned no result"

	case res.RequiresApproval:
		if res.Change == nil {
			tc.Status = models.ToolFailed
			tc.Error = "approval result carries no change"
			return
		}
		if err := t.register(tc, res); err != nil {
			t.o.logger.Error("chat: register approval",
				slog.String("id", tc.ID),
				slog.String("error", err.Error()),
			)
			tc.Status = models.ToolFailed
			tc.Error = err.Error()
			return
		}
		tc.Status = models.ToolRequiresApproval
		tc.Result = approvalPayload(res)

	case !res.Success:
		tc.Status = models.ToolFailed
		tc.Error = res.Error

	default:
		tc.Status = models.ToolCompleted
		tc.Result = res.ToMap()
	}
}

func (t *turn) register(tc *models.ToolCall, res *tools.Result) error {
	change := *res.Change
	applier := t.o.applier
	return t.o.gate.Register(tc.ID, approval.Request{
		Tool:        tc.Name,
		Description: res.Description,
		Preview:     res.Preview,
		CreatedAt:   t.o.now(),
	}, func(ctx context.Context) (models.ChangeRecord, error) {
		return applier.Apply(ctx, change)
	})
}

func (t *turn) text(s string) {
	t.emit(models.StreamEvent{Kind: models.EventText, Content: s})
}

func (t *turn) emit(ev models.StreamEvent) {
	if t.gone {
		return
	}
	select {
	case t.out <- ev:
	case <-t.ctx.Done():
		t.gone = true
	}
}

func snapshot(tc *models.ToolCall) *models.ToolCall {
	cp := *tc
	cp.Args = maps.Clone(tc.Args)
	return &cp
}

// approvalPayload is everything a client needs to show and later perform a
// proposed change.
func approvalPayload(res *tools.Result) map[string]any {
	c := res.Change
	payload := map[string]any{
		"requiresApproval": true,
		"kind":             string(c.Kind),
		"path":             c.Path,
		"description":      res.Description,
		"preview":          res.Preview,
	}
	if c.OldContent != nil {
		payload["oldContent"] = *c.OldContent
	}
	if c.NewContent != nil {
		payload["newContent"] = *c.NewContent
	}
	return payload
}

// finishText explains an abnormal finish. Normal reasons return "".
func finishText(reason string) string {
	switch genai.FinishReason(reason) {
	case "", genai.FinishReasonStop, genai.FinishReasonMaxTokens, genai.FinishReasonUnspecified:
		return ""
	case genai.FinishReasonMalformedFunctionCall:
		return "\n\n[A tool call could not be understood and was skipped. Continuing without it.]\n\n"
	}
	if reason == llm.FinishMaxSteps {
		return "\n\n[Stopped after reaching the tool call limit for this turn.]\n\n"
	}
	return fmt.Sprintf("\n\n[Response stopped: %s]\n\n", reason)
}

// failureText is the message shown when a turn ends with an error.
func failureText(err error) string {
	if isMalformedCall(err) {
		return "\n\nThe model produced an invalid tool call. Please try rephrasing your request."
	}
	return "\n\nError: " + err.Error()
}

func isMalformedCall(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "malformed_function_call") || strings.Contains(s, "malformed function call")
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
