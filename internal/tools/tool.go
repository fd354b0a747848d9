// Package tools declares the functions offered to the model and executes them.
//
// Immediate tools run straight away against the vault. Deferred tools never
// mutate anything: they return a result that requires approval and carries
// the proposed change.
package tools

import (
	"context"

	"google.golang.org/genai"

	"github.com/starford/muninn/internal/changes"
)

// Trust separates read-only tools from tools whose effect needs approval.
type Trust int

const (
	Immediate Trust = iota
	Deferred
)

func (t Trust) String() string {
	if t == Deferred {
		return "deferred"
	}
	return "immediate"
}

// ParamType is the JSON type of a tool argument.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
)

// Param declares one logical argument. Aliases are alternative keys the
// model sometimes uses instead of Name; they are tried in order.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Aliases     []string
	Enum        []string
}

// RunFunc executes a tool. Failures are returned as error results.
type RunFunc func(ctx context.Context, args Args) Result

// Tool is one callable function.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Trust       Trust
	Run         RunFunc
}

// Declaration returns the Gemini function declaration for t.
func (t Tool) Declaration() *genai.FunctionDeclaration {
	props := make(map[string]*genai.Schema, len(t.Params))
	var required []string
	for _, p := range t.Params {
		props[p.Name] = &genai.Schema{
			Type:        schemaType(p.Type),
			Description: p.Description,
			Enum:        p.Enum,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   required,
		},
	}
}

func schemaType(t ParamType) genai.Type {
	switch t {
	case TypeInteger:
		return genai.TypeInteger
	case TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

// Result is the outcome of a tool execution.
type Result struct {
	// Content is the main result content (usually text).
	Content string

	// Data contains structured data if applicable.
	Data any

	// Error contains an error message if the tool failed.
	Error string

	// Success indicates if the tool executed successfully.
	Success bool

	// RequiresApproval marks a deferred tool result; Change holds the proposal.
	RequiresApproval bool
	Change           *changes.Change
	Description      string
	Preview          string
}

// NewSuccessResult creates a successful tool result.
func NewSuccessResult(content string) Result {
	return Result{Content: content, Success: true}
}

// NewSuccessResultWithData creates a successful tool result with additional data.
func NewSuccessResultWithData(content string, data any) Result {
	return Result{Content: content, Data: data, Success: true}
}

// NewErrorResult creates a failed tool result.
func NewErrorResult(errMsg string) Result {
	return Result{Error: errMsg}
}

// NewApprovalResult wraps a proposed change.
func NewApprovalResult(c changes.Change) Result {
	return Result{
		Success:          true,
		RequiresApproval: true,
		Change:           &c,
		Description:      changes.Describe(c),
		Preview:          changes.Preview(c),
	}
}

// ToMap converts the result to a map for a model function response.
func (r Result) ToMap() map[string]any {
	result := make(map[string]any)

	switch {
	case r.RequiresApproval:
		result["success"] = true
		result["requiresApproval"] = true
		result["content"] = "Awaiting user approval: " + r.Description
		if r.Change != nil {
			result["kind"] = string(r.Change.Kind)
			result["path"] = r.Change.Path
		}
	case r.Success:
		result["success"] = true
		if r.Content != "" {
			result["content"] = r.Content
		}
		if r.Data != nil {
			result["data"] = r.Data
		}
	default:
		result["success"] = false
		result["error"] = r.Error
	}

	return result
}
