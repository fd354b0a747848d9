package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/genai"
)

// Registry manages the collection of available tools.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
}

// NewRegistry creates a new tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Run == nil {
		return fmt.Errorf("tool needs a name and a run func")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool already registered: %s", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Immediate returns the tools that never need approval.
func (r *Registry) Immediate() []Tool {
	var out []Tool
	for _, t := range r.List() {
		if t.Trust == Immediate {
			out = append(out, t)
		}
	}
	return out
}

// Declarations returns all tool declarations for the model.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	tools := r.List()
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		out = append(out, t.Declaration())
	}
	return out
}

// Execute runs the named tool. Unknown tools and panics become error results.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (res Result) {
	t, ok := r.Get(name)
	if !ok {
		return NewErrorResult(fmt.Sprintf("unknown tool: %s", name))
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tools: panic",
				slog.String("tool", name),
				slog.String("panic", fmt.Sprint(p)))
			res = NewErrorResult(fmt.Sprintf("tool %s crashed: %v", name, p))
		}
	}()

	res = t.Run(ctx, NewArgs(args, t.Params))
	r.logger.Debug("tools: executed",
		slog.String("tool", name),
		slog.Bool("success", res.Success),
		slog.Bool("requires_approval", res.RequiresApproval))
	return res
}
